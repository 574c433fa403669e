package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type SubmissionRepo interface {
	Exists(ctx context.Context, tx *gorm.DB, assignmentID, studentID uuid.UUID) (bool, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, submissionIDs []uuid.UUID) ([]*types.Submission, error)
	GetByAssignmentIDs(ctx context.Context, tx *gorm.DB, assignmentIDs []uuid.UUID) ([]*types.Submission, error)
	Upsert(ctx context.Context, tx *gorm.DB, submission *types.Submission) error
	UpdateFields(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID, fields map[string]interface{}) error
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	repoLog := baseLog.With("repo", "SubmissionRepo")
	return &submissionRepo{db: db, log: repoLog}
}

func (sr *submissionRepo) Exists(ctx context.Context, tx *gorm.DB, assignmentID, studentID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Submission{}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (sr *submissionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, submissionIDs []uuid.UUID) ([]*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Submission
	if len(submissionIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", submissionIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *submissionRepo) GetByAssignmentIDs(ctx context.Context, tx *gorm.DB, assignmentIDs []uuid.UUID) ([]*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Submission
	if len(assignmentIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("assignment_id IN ?", assignmentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *submissionRepo) Upsert(ctx context.Context, tx *gorm.DB, submission *types.Submission) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"external_submission_id",
				"content",
				"file_urls",
				"status",
				"submitted_at",
				"updated_at",
			}),
		}).Create(submission).Error
}

func (sr *submissionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Submission{}).
		Where("id = ?", submissionID).
		Updates(fields).Error
}
