package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	classroom "google.golang.org/api/classroom/v1"
	"gorm.io/gorm"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/repos"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

const defaultRubricPoints = 100

type ConvertedRubric struct {
	Criteria    []types.RubricCriterion
	TotalPoints float64
}

type RubricService interface {
	Convert(rubric *classroom.Rubric, fallbackMaxPoints float64) ConvertedRubric
	UpsertForAssignment(ctx context.Context, creatorID uuid.UUID, assignmentTitle string, rubric *classroom.Rubric, fallbackMaxPoints float64) (uuid.UUID, error)
}

type rubricService struct {
	db         *gorm.DB
	log        *logger.Logger
	rubricRepo repos.RubricRepo
}

func NewRubricService(db *gorm.DB, log *logger.Logger, rubricRepo repos.RubricRepo) RubricService {
	serviceLog := log.With("service", "RubricService")
	return &rubricService{db: db, log: serviceLog, rubricRepo: rubricRepo}
}

// Convert flattens the external criteria/levels tree into the internal
// weighted shape. total_points is the sum of each criterion's best level;
// weights are derived from that same total, so they always agree with
// max_points even when the external system weighted things differently.
func (rs *rubricService) Convert(rubric *classroom.Rubric, fallbackMaxPoints float64) ConvertedRubric {
	if rubric == nil || len(rubric.Criteria) == 0 {
		total := fallbackMaxPoints
		if total <= 0 {
			total = defaultRubricPoints
		}
		return ConvertedRubric{Criteria: []types.RubricCriterion{}, TotalPoints: total}
	}

	total := 0.0
	maxPerCriterion := make([]float64, len(rubric.Criteria))
	for i, criterion := range rubric.Criteria {
		maxPoints := 0.0
		for _, level := range criterion.Levels {
			if level != nil && level.Points > maxPoints {
				maxPoints = level.Points
			}
		}
		maxPerCriterion[i] = maxPoints
		total += maxPoints
	}

	criteria := make([]types.RubricCriterion, 0, len(rubric.Criteria))
	for i, criterion := range rubric.Criteria {
		levels := make([]types.RubricLevel, 0, len(criterion.Levels))
		for _, level := range criterion.Levels {
			if level == nil {
				continue
			}
			levels = append(levels, types.RubricLevel{
				Name:        level.Title,
				Points:      level.Points,
				Description: level.Description,
			})
		}
		weight := 0.0
		if total > 0 {
			weight = maxPerCriterion[i] / total * 100
		}
		criteria = append(criteria, types.RubricCriterion{
			Name:        criterion.Title,
			Description: criterion.Description,
			Weight:      weight,
			MaxPoints:   maxPerCriterion[i],
			Levels:      levels,
		})
	}

	return ConvertedRubric{Criteria: criteria, TotalPoints: total}
}

// UpsertForAssignment converts and persists the rubric under its generated
// name. Re-converting the same rubric updates the existing row in place.
func (rs *rubricService) UpsertForAssignment(ctx context.Context, creatorID uuid.UUID, assignmentTitle string, rubric *classroom.Rubric, fallbackMaxPoints float64) (uuid.UUID, error) {
	converted := rs.Convert(rubric, fallbackMaxPoints)

	criteriaJSON, err := json.Marshal(converted.Criteria)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode rubric criteria: %w", err)
	}

	name := assignmentTitle + " - Rubric"
	existing, err := rs.rubricRepo.GetByCreatorAndName(ctx, nil, creatorID, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up rubric %q: %w", name, err)
	}

	if existing != nil {
		if err := rs.rubricRepo.UpdateFields(ctx, nil, existing.ID, map[string]interface{}{
			"criteria":     criteriaJSON,
			"total_points": converted.TotalPoints,
		}); err != nil {
			return uuid.Nil, fmt.Errorf("failed to update rubric %q: %w", name, err)
		}
		return existing.ID, nil
	}

	created := &types.Rubric{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		Name:        name,
		Criteria:    criteriaJSON,
		TotalPoints: converted.TotalPoints,
	}
	if _, err := rs.rubricRepo.Create(ctx, nil, []*types.Rubric{created}); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create rubric %q: %w", name, err)
	}
	return created.ID, nil
}
