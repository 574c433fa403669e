package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type CourseRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error)
	GetByExternalIDs(ctx context.Context, tx *gorm.DB, externalCourseIDs []string) ([]*types.Course, error)
	GetByOwnerIDs(ctx context.Context, tx *gorm.DB, ownerIDs []uuid.UUID) ([]*types.Course, error)
	Upsert(ctx context.Context, tx *gorm.DB, course *types.Course) error
	UpdateStudentCount(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, studentCount int) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (cr *courseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Course
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *courseRepo) GetByExternalIDs(ctx context.Context, tx *gorm.DB, externalCourseIDs []string) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Course
	if len(externalCourseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("external_course_id IN ?", externalCourseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *courseRepo) GetByOwnerIDs(ctx context.Context, tx *gorm.DB, ownerIDs []uuid.UUID) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Course
	if len(ownerIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("owner_id IN ?", ownerIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Upsert writes a course keyed on its external id. owner_id is deliberately
// not in the update set: a course already claimed by another local user is
// never reassigned (the caller skips it before ever getting here).
func (cr *courseRepo) Upsert(ctx context.Context, tx *gorm.DB, course *types.Course) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name",
				"section",
				"description",
				"room",
				"enrollment_code",
				"alternate_link",
				"is_active",
				"updated_at",
			}),
		}).Create(course).Error
}

func (cr *courseRepo) UpdateStudentCount(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, studentCount int) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Update("student_count", studentCount).Error
}
