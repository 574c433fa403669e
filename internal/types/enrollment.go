package types

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment links a course to a student account. Never deleted by sync;
// external unenrollment is not reconciled.
type Enrollment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_course_student" json:"course_id"`
	Course    *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_course_student" json:"student_id"`
	Student   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudentID;references:ID" json:"student,omitempty"`
	Status    string    `gorm:"column:status;not null;default:active" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Enrollment) TableName() string {
	return "enrollment"
}
