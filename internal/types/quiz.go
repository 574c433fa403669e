package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeShortAnswer    = "short_answer"
)

// QuizQuestion is the shape stored in Quiz.Questions. Options is only set
// for multiple_choice questions.
type QuizQuestion struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Points   float64  `json:"points"`
}

type Quiz struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Course         *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	ExternalQuizID string         `gorm:"column:external_quiz_id;uniqueIndex;not null" json:"external_quiz_id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Description    string         `gorm:"column:description" json:"description"`
	Questions      datatypes.JSON `gorm:"column:questions;type:jsonb" json:"questions"`
	IsPublished    bool           `gorm:"column:is_published;not null;default:false" json:"is_published"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (Quiz) TableName() string {
	return "quiz"
}
