package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RubricLevel and RubricCriterion describe the shape stored in
// Rubric.Criteria. Weights always sum to 100 across criteria.
type RubricLevel struct {
	Name        string  `json:"name"`
	Points      float64 `json:"points"`
	Description string  `json:"description"`
}

type RubricCriterion struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Weight      float64       `json:"weight"`
	MaxPoints   float64       `json:"max_points"`
	Levels      []RubricLevel `json:"levels"`
}

type Rubric struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatorID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_rubric_creator_name" json:"creator_id"`
	Creator     *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:CreatorID;references:ID" json:"creator,omitempty"`
	Name        string         `gorm:"column:name;not null;uniqueIndex:idx_rubric_creator_name" json:"name"`
	Criteria    datatypes.JSON `gorm:"column:criteria;type:jsonb" json:"criteria"`
	TotalPoints float64        `gorm:"column:total_points;not null;default:0" json:"total_points"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Rubric) TableName() string {
	return "rubric"
}
