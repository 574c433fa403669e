package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type Profile struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User           *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Role           string    `gorm:"column:role;not null;default:student" json:"role"`
	FullName       string    `gorm:"column:full_name" json:"full_name"`
	ExternalUserID string    `gorm:"column:external_user_id;index" json:"external_user_id"`
	ExternalEmail  string    `gorm:"column:external_email" json:"external_email"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profile"
}
