package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type ProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profiles []*types.Profile) ([]*types.Profile, error)
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Profile, error)
	GetByExternalUserIDs(ctx context.Context, tx *gorm.DB, externalUserIDs []string) ([]*types.Profile, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, fields map[string]interface{}) error
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	repoLog := baseLog.With("repo", "ProfileRepo")
	return &profileRepo{db: db, log: repoLog}
}

func (pr *profileRepo) Create(ctx context.Context, tx *gorm.DB, profiles []*types.Profile) ([]*types.Profile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if len(profiles) == 0 {
		return []*types.Profile{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (pr *profileRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Profile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Profile
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *profileRepo) GetByExternalUserIDs(ctx context.Context, tx *gorm.DB, externalUserIDs []string) ([]*types.Profile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Profile
	if len(externalUserIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("external_user_id IN ?", externalUserIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *profileRepo) UpdateFields(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if len(fields) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Profile{}).
		Where("id = ?", profileID).
		Updates(fields).Error
}
