package services

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"
	classroom "google.golang.org/api/classroom/v1"

	"github.com/yungbote/gradebridge-backend/internal/repos"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

func TestRubricConvert_TotalsAndWeights(t *testing.T) {
	rs := &rubricService{}
	converted := rs.Convert(&classroom.Rubric{
		Criteria: []*classroom.Criterion{
			{
				Title: "Clarity",
				Levels: []*classroom.Level{
					{Title: "Poor", Points: 2},
					{Title: "Good", Points: 10},
				},
			},
			{
				Title: "Depth",
				Levels: []*classroom.Level{
					{Title: "Shallow", Points: 5},
					{Title: "Thorough", Points: 15, Description: "covers everything"},
				},
			},
		},
	}, 0)

	if converted.TotalPoints != 25 {
		t.Fatalf("expected total 25, got %v", converted.TotalPoints)
	}
	if len(converted.Criteria) != 2 {
		t.Fatalf("expected 2 criteria, got %d", len(converted.Criteria))
	}
	if math.Abs(converted.Criteria[0].Weight-40) > 1e-9 {
		t.Fatalf("expected first weight 40, got %v", converted.Criteria[0].Weight)
	}
	if math.Abs(converted.Criteria[1].Weight-60) > 1e-9 {
		t.Fatalf("expected second weight 60, got %v", converted.Criteria[1].Weight)
	}
	if converted.Criteria[0].MaxPoints != 10 || converted.Criteria[1].MaxPoints != 15 {
		t.Fatalf("unexpected max points: %+v", converted.Criteria)
	}
	if converted.Criteria[1].Levels[1].Description != "covers everything" {
		t.Fatalf("level description lost: %+v", converted.Criteria[1].Levels)
	}
}

func TestRubricConvert_EmptyFallsBackToCourseworkMax(t *testing.T) {
	rs := &rubricService{}
	converted := rs.Convert(nil, 50)
	if converted.TotalPoints != 50 {
		t.Fatalf("expected total 50, got %v", converted.TotalPoints)
	}
	if len(converted.Criteria) != 0 {
		t.Fatalf("expected no criteria, got %+v", converted.Criteria)
	}
}

func TestRubricConvert_EmptyDefaultsTo100(t *testing.T) {
	rs := &rubricService{}
	converted := rs.Convert(&classroom.Rubric{}, 0)
	if converted.TotalPoints != 100 {
		t.Fatalf("expected total 100, got %v", converted.TotalPoints)
	}
}

func TestRubricUpsertForAssignment_UpdatesInPlace(t *testing.T) {
	gdb, log := newTestDB(t)
	rubricRepo := repos.NewRubricRepo(gdb, log)
	rs := NewRubricService(gdb, log, rubricRepo)

	creatorID := uuid.New()
	extRubric := &classroom.Rubric{
		Criteria: []*classroom.Criterion{
			{Title: "Clarity", Levels: []*classroom.Level{{Title: "Good", Points: 10}}},
		},
	}

	firstID, err := rs.UpsertForAssignment(context.Background(), creatorID, "Essay 1", extRubric, 0)
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	extRubric.Criteria[0].Levels[0].Points = 20
	secondID, err := rs.UpsertForAssignment(context.Background(), creatorID, "Essay 1", extRubric, 0)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if firstID != secondID {
		t.Fatalf("expected stable rubric id, got %s then %s", firstID, secondID)
	}

	stored, err := rubricRepo.GetByCreatorAndName(context.Background(), nil, creatorID, "Essay 1 - Rubric")
	if err != nil || stored == nil {
		t.Fatalf("failed to reload rubric: %v", err)
	}
	if stored.TotalPoints != 20 {
		t.Fatalf("expected updated total 20, got %v", stored.TotalPoints)
	}

	var criteria []types.RubricCriterion
	if err := json.Unmarshal(stored.Criteria, &criteria); err != nil {
		t.Fatalf("failed to decode criteria: %v", err)
	}
	if len(criteria) != 1 || criteria[0].MaxPoints != 20 {
		t.Fatalf("unexpected criteria: %+v", criteria)
	}
}
