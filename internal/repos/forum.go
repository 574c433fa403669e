package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type ForumRepo interface {
	Create(ctx context.Context, tx *gorm.DB, forums []*types.Forum) ([]*types.Forum, error)
	GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Forum, error)
}

type forumRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewForumRepo(db *gorm.DB, baseLog *logger.Logger) ForumRepo {
	repoLog := baseLog.With("repo", "ForumRepo")
	return &forumRepo{db: db, log: repoLog}
}

func (fr *forumRepo) Create(ctx context.Context, tx *gorm.DB, forums []*types.Forum) ([]*types.Forum, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	if len(forums) == 0 {
		return []*types.Forum{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&forums).Error; err != nil {
		return nil, err
	}
	return forums, nil
}

func (fr *forumRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Forum, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var results []*types.Forum
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}
