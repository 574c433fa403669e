package types

import (
	"time"

	"github.com/google/uuid"
)

// Forum is a per-course container for synced announcements. Exactly one per
// course, created lazily on the first announcement sync.
type Forum struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"course_id"`
	Course    *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Forum) TableName() string {
	return "forum"
}
