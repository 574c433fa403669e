package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type EnrollmentRepo interface {
	Exists(ctx context.Context, tx *gorm.DB, courseID, studentID uuid.UUID) (bool, error)
	Upsert(ctx context.Context, tx *gorm.DB, enrollment *types.Enrollment) error
	CountActiveByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	repoLog := baseLog.With("repo", "EnrollmentRepo")
	return &enrollmentRepo{db: db, log: repoLog}
}

func (er *enrollmentRepo) Exists(ctx context.Context, tx *gorm.DB, courseID, studentID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (er *enrollmentRepo) Upsert(ctx context.Context, tx *gorm.DB, enrollment *types.Enrollment) error {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"updated_at",
			}),
		}).Create(enrollment).Error
}

func (er *enrollmentRepo) CountActiveByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, "active").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
