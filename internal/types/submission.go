package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SubmissionStatusDraft     = "draft"
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusReturned  = "returned"
)

type Submission struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	Assignment           *Assignment    `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssignmentID;references:ID" json:"assignment,omitempty"`
	StudentID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_submission_assignment_student" json:"student_id"`
	Student              *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudentID;references:ID" json:"student,omitempty"`
	ExternalSubmissionID string         `gorm:"column:external_submission_id;index" json:"external_submission_id"`
	Content              string         `gorm:"column:content" json:"content"`
	FileURLs             datatypes.JSON `gorm:"column:file_urls;type:jsonb" json:"file_urls,omitempty"`
	Status               string         `gorm:"column:status;not null;default:draft" json:"status"`
	SubmittedAt          *time.Time     `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt            time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null" json:"updated_at"`
}

func (Submission) TableName() string {
	return "submission"
}
