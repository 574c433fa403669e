package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type QuizAttemptRepo interface {
	ExistsByExternalSubmissionID(ctx context.Context, tx *gorm.DB, externalSubmissionID string) (bool, error)
	Upsert(ctx context.Context, tx *gorm.DB, attempt *types.QuizAttempt) error
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	repoLog := baseLog.With("repo", "QuizAttemptRepo")
	return &quizAttemptRepo{db: db, log: repoLog}
}

// ExistsByExternalSubmissionID is the hard idempotence pre-check: an external
// submission id that has already produced an attempt is never written again,
// independent of the upsert conflict key.
func (qar *quizAttemptRepo) ExistsByExternalSubmissionID(ctx context.Context, tx *gorm.DB, externalSubmissionID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = qar.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuizAttempt{}).
		Where("external_submission_id = ?", externalSubmissionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (qar *quizAttemptRepo) Upsert(ctx context.Context, tx *gorm.DB, attempt *types.QuizAttempt) error {
	transaction := tx
	if transaction == nil {
		transaction = qar.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "quiz_id"}, {Name: "student_id"}, {Name: "started_at"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"answers",
				"max_score",
				"submitted_at",
				"updated_at",
			}),
		}).Create(attempt).Error
}
