package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	SyncStatusPending    = "pending"
	SyncStatusInProgress = "in_progress"
	SyncStatusCompleted  = "completed"
	SyncStatusError      = "error"
)

const ProviderGoogleClassroom = "google_classroom"

// Integration holds the OAuth grant one local user gave us for their
// classroom account. One row per user; refresh_token is never rotated.
type Integration struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User              *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Provider          string     `gorm:"column:provider;not null;default:google_classroom" json:"provider"`
	AccessToken       string     `gorm:"column:access_token" json:"-"`
	RefreshToken      string     `gorm:"column:refresh_token" json:"-"`
	TokenExpiresAt    time.Time  `gorm:"column:token_expires_at" json:"token_expires_at"`
	ExternalAccountID string     `gorm:"column:external_account_id;index" json:"external_account_id"`
	SyncStatus        string     `gorm:"column:sync_status;not null;default:pending" json:"sync_status"`
	LastSyncAt        *time.Time `gorm:"column:last_sync_at" json:"last_sync_at,omitempty"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
}

func (Integration) TableName() string {
	return "integration"
}
