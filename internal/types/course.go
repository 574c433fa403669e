package types

import (
	"time"

	"github.com/google/uuid"
)

type Course struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID          uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner            *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
	ExternalCourseID string    `gorm:"column:external_course_id;uniqueIndex;not null" json:"external_course_id"`
	Name             string    `gorm:"column:name;not null" json:"name"`
	Section          string    `gorm:"column:section" json:"section"`
	Description      string    `gorm:"column:description" json:"description"`
	Room             string    `gorm:"column:room" json:"room"`
	EnrollmentCode   string    `gorm:"column:enrollment_code" json:"enrollment_code"`
	AlternateLink    string    `gorm:"column:alternate_link" json:"alternate_link"`
	IsActive         bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	// Derived; recomputed after every roster sync.
	StudentCount int       `gorm:"column:student_count;not null;default:0" json:"student_count"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string {
	return "course"
}
