package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Attachment is the normalized material shape stored in
// Assignment.Attachments and ForumMessage.Materials.
type Attachment struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	ID    string `json:"id,omitempty"`
}

const (
	AttachmentTypeDriveFile = "drive_file"
	AttachmentTypeVideo     = "video"
	AttachmentTypeLink      = "link"
	AttachmentTypeForm      = "form"
)

type Assignment struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Course               *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	ExternalAssignmentID string         `gorm:"column:external_assignment_id;uniqueIndex;not null" json:"external_assignment_id"`
	Title                string         `gorm:"column:title;not null" json:"title"`
	Description          string         `gorm:"column:description" json:"description"`
	MaxPoints            float64        `gorm:"column:max_points;not null;default:0" json:"max_points"`
	DueDate              *time.Time     `gorm:"column:due_date" json:"due_date,omitempty"`
	RubricID             *uuid.UUID     `gorm:"type:uuid;column:rubric_id" json:"rubric_id,omitempty"`
	Rubric               *Rubric        `gorm:"constraint:OnDelete:SET NULL;foreignKey:RubricID;references:ID" json:"rubric,omitempty"`
	Attachments          datatypes.JSON `gorm:"column:attachments;type:jsonb" json:"attachments,omitempty"`
	SyncStatus           string         `gorm:"column:sync_status;not null;default:completed" json:"sync_status"`
	LastSyncAt           *time.Time     `gorm:"column:last_sync_at" json:"last_sync_at,omitempty"`
	CreatedAt            time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null" json:"updated_at"`
}

func (Assignment) TableName() string {
	return "assignment"
}
