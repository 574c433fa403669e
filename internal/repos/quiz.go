package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type QuizRepo interface {
	GetByExternalIDs(ctx context.Context, tx *gorm.DB, externalQuizIDs []string) ([]*types.Quiz, error)
	GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Quiz, error)
	Upsert(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) error
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	repoLog := baseLog.With("repo", "QuizRepo")
	return &quizRepo{db: db, log: repoLog}
}

func (qr *quizRepo) GetByExternalIDs(ctx context.Context, tx *gorm.DB, externalQuizIDs []string) ([]*types.Quiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}

	var results []*types.Quiz
	if len(externalQuizIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("external_quiz_id IN ?", externalQuizIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *quizRepo) GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Quiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}

	var results []*types.Quiz
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

func (qr *quizRepo) Upsert(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_quiz_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title",
				"description",
				"questions",
				"is_published",
				"updated_at",
			}),
		}).Create(quiz).Error
}
