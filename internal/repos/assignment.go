package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type AssignmentRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, assignmentIDs []uuid.UUID) ([]*types.Assignment, error)
	GetByExternalIDs(ctx context.Context, tx *gorm.DB, externalAssignmentIDs []string) ([]*types.Assignment, error)
	GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Assignment, error)
	Upsert(ctx context.Context, tx *gorm.DB, assignment *types.Assignment) error
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	repoLog := baseLog.With("repo", "AssignmentRepo")
	return &assignmentRepo{db: db, log: repoLog}
}

func (ar *assignmentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, assignmentIDs []uuid.UUID) ([]*types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.Assignment
	if len(assignmentIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", assignmentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *assignmentRepo) GetByExternalIDs(ctx context.Context, tx *gorm.DB, externalAssignmentIDs []string) ([]*types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.Assignment
	if len(externalAssignmentIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("external_assignment_id IN ?", externalAssignmentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *assignmentRepo) GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.Assignment
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *assignmentRepo) Upsert(ctx context.Context, tx *gorm.DB, assignment *types.Assignment) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_assignment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title",
				"description",
				"max_points",
				"due_date",
				"rubric_id",
				"attachments",
				"sync_status",
				"last_sync_at",
				"updated_at",
			}),
		}).Create(assignment).Error
}
