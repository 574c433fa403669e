package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type IntegrationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, integrations []*types.Integration) ([]*types.Integration, error)
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Integration, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, integrationID uuid.UUID, fields map[string]interface{}) error
	ClaimSyncRun(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (bool, error)
}

type integrationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIntegrationRepo(db *gorm.DB, baseLog *logger.Logger) IntegrationRepo {
	repoLog := baseLog.With("repo", "IntegrationRepo")
	return &integrationRepo{db: db, log: repoLog}
}

func (ir *integrationRepo) Create(ctx context.Context, tx *gorm.DB, integrations []*types.Integration) ([]*types.Integration, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if len(integrations) == 0 {
		return []*types.Integration{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&integrations).Error; err != nil {
		return nil, err
	}
	return integrations, nil
}

func (ir *integrationRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Integration, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []*types.Integration
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

func (ir *integrationRepo) UpdateFields(ctx context.Context, tx *gorm.DB, integrationID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if len(fields) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Integration{}).
		Where("id = ?", integrationID).
		Updates(fields).Error
}

// ClaimSyncRun flips sync_status to in_progress only when no run is active.
// The rows-affected check makes the claim atomic, so two overlapping runs
// for the same user cannot both start.
func (ir *integrationRepo) ClaimSyncRun(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Integration{}).
		Where("user_id = ? AND sync_status <> ?", userID, types.SyncStatusInProgress).
		Update("sync_status", types.SyncStatusInProgress)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
