package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type RubricRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rubrics []*types.Rubric) ([]*types.Rubric, error)
	GetByCreatorAndName(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, name string) (*types.Rubric, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, rubricID uuid.UUID, fields map[string]interface{}) error
}

type rubricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRubricRepo(db *gorm.DB, baseLog *logger.Logger) RubricRepo {
	repoLog := baseLog.With("repo", "RubricRepo")
	return &rubricRepo{db: db, log: repoLog}
}

func (rr *rubricRepo) Create(ctx context.Context, tx *gorm.DB, rubrics []*types.Rubric) ([]*types.Rubric, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if len(rubrics) == 0 {
		return []*types.Rubric{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rubrics).Error; err != nil {
		return nil, err
	}
	return rubrics, nil
}

func (rr *rubricRepo) GetByCreatorAndName(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, name string) (*types.Rubric, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.Rubric
	if err := transaction.WithContext(ctx).
		Where("creator_id = ? AND name = ?", creatorID, name).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (rr *rubricRepo) UpdateFields(ctx context.Context, tx *gorm.DB, rubricID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if len(fields) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Rubric{}).
		Where("id = ?", rubricID).
		Updates(fields).Error
}
