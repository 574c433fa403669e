package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

type ForumMessageRepo interface {
	ExistsByExternalID(ctx context.Context, tx *gorm.DB, externalAnnouncementID string) (bool, error)
	Upsert(ctx context.Context, tx *gorm.DB, message *types.ForumMessage) error
}

type forumMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewForumMessageRepo(db *gorm.DB, baseLog *logger.Logger) ForumMessageRepo {
	repoLog := baseLog.With("repo", "ForumMessageRepo")
	return &forumMessageRepo{db: db, log: repoLog}
}

func (fmr *forumMessageRepo) ExistsByExternalID(ctx context.Context, tx *gorm.DB, externalAnnouncementID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = fmr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ForumMessage{}).
		Where("external_announcement_id = ?", externalAnnouncementID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert always overwrites: announcements are fully external-authoritative,
// unlike assignments where only selected fields are refreshed.
func (fmr *forumMessageRepo) Upsert(ctx context.Context, tx *gorm.DB, message *types.ForumMessage) error {
	transaction := tx
	if transaction == nil {
		transaction = fmr.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_announcement_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"author_id",
				"content",
				"materials",
				"state",
				"posted_at",
				"edited_at",
				"updated_at",
			}),
		}).Create(message).Error
}
