package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ForumMessage struct {
	ID                     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ForumID                uuid.UUID      `gorm:"type:uuid;not null;index" json:"forum_id"`
	Forum                  *Forum         `gorm:"constraint:OnDelete:CASCADE;foreignKey:ForumID;references:ID" json:"forum,omitempty"`
	AuthorID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"author_id"`
	Author                 *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:AuthorID;references:ID" json:"author,omitempty"`
	ParentMessageID        *uuid.UUID     `gorm:"type:uuid;column:parent_message_id" json:"parent_message_id,omitempty"`
	ExternalAnnouncementID string         `gorm:"column:external_announcement_id;uniqueIndex" json:"external_announcement_id"`
	Content                string         `gorm:"column:content;not null" json:"content"`
	Materials              datatypes.JSON `gorm:"column:materials;type:jsonb" json:"materials,omitempty"`
	State                  string         `gorm:"column:state" json:"state"`
	PostedAt               *time.Time     `gorm:"column:posted_at" json:"posted_at,omitempty"`
	EditedAt               *time.Time     `gorm:"column:edited_at" json:"edited_at,omitempty"`
	CreatedAt              time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"not null" json:"updated_at"`
}

func (ForumMessage) TableName() string {
	return "forum_message"
}
