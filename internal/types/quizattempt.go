package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QuizAttempt rows are written once per external submission id. StartedAt is
// the external state-transition timestamp, which keeps the
// (quiz_id, student_id, started_at) conflict key stable across re-runs.
type QuizAttempt struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID               uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_quiz_student_started" json:"quiz_id"`
	Quiz                 *Quiz          `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuizID;references:ID" json:"quiz,omitempty"`
	StudentID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_quiz_student_started" json:"student_id"`
	Student              *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudentID;references:ID" json:"student,omitempty"`
	StartedAt            time.Time      `gorm:"column:started_at;not null;uniqueIndex:idx_attempt_quiz_student_started" json:"started_at"`
	ExternalSubmissionID string         `gorm:"column:external_submission_id;uniqueIndex;not null" json:"external_submission_id"`
	Answers              datatypes.JSON `gorm:"column:answers;type:jsonb" json:"answers"`
	MaxScore             float64        `gorm:"column:max_score;not null;default:0" json:"max_score"`
	SubmittedAt          *time.Time     `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt            time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null" json:"updated_at"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempt"
}
