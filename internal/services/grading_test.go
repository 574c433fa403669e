package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/gradebridge-backend/internal/clients/gcp"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

func newGradingService(f *syncFixture, client gcp.ClassroomClient) GradingService {
	tokens := NewTokenService(f.gdb, f.log, f.integrationRepo, "cid", "secret", "")
	return NewGradingService(f.gdb, f.log, f.integrationRepo, f.courseRepo, f.assignmentRepo, f.submissionRepo, tokens,
		func(ctx context.Context, accessToken string) (gcp.ClassroomClient, error) {
			return client, nil
		})
}

func TestPublishCourseWork_CreatesExternalAndLocalRows(t *testing.T) {
	client := scenarioA()
	f := newSyncFixture(t, client)
	if _, err := f.svc.Run(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	courses, _ := f.courseRepo.GetByExternalIDs(context.Background(), nil, []string{"c1"})

	gs := newGradingService(f, client)
	due := time.Date(2026, 10, 1, 23, 59, 0, 0, time.UTC)
	assignment, err := gs.PublishCourseWork(context.Background(), f.owner.ID, courses[0].ID, PublishCourseWorkInput{
		Title:     "Lab Report",
		MaxPoints: 50,
		DueDate:   &due,
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if assignment.ExternalAssignmentID != "created-Lab Report" {
		t.Fatalf("external id not recorded: %q", assignment.ExternalAssignmentID)
	}

	stored, err := f.assignmentRepo.GetByExternalIDs(context.Background(), nil, []string{"created-Lab Report"})
	if err != nil || len(stored) != 1 {
		t.Fatalf("local mirror missing: %v", err)
	}
	if stored[0].MaxPoints != 50 || stored[0].DueDate == nil || !stored[0].DueDate.Equal(due) {
		t.Fatalf("unexpected local row: %+v", stored[0])
	}
}

func TestPublishCourseWork_RejectsForeignCourse(t *testing.T) {
	client := scenarioA()
	f := newSyncFixture(t, client)
	if _, err := f.svc.Run(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	courses, _ := f.courseRepo.GetByExternalIDs(context.Background(), nil, []string{"c1"})

	other := f.seedOwner(t, "other@example.com")
	f.seedIntegrationFor(t, other.ID)

	gs := newGradingService(f, client)
	_, err := gs.PublishCourseWork(context.Background(), other.ID, courses[0].ID, PublishCourseWorkInput{Title: "x"})
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestGradeSubmission_ReturnUpdatesLocalStatus(t *testing.T) {
	client := scenarioA()
	f := newSyncFixture(t, client)
	if _, err := f.svc.Run(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	assignments, _ := f.assignmentRepo.GetByExternalIDs(context.Background(), nil, []string{"cw1"})
	subs, _ := f.submissionRepo.GetByAssignmentIDs(context.Background(), nil, []uuid.UUID{assignments[0].ID})
	if len(subs) != 1 {
		t.Fatalf("expected a synced submission")
	}

	gs := newGradingService(f, client)
	if err := gs.GradeSubmission(context.Background(), f.owner.ID, subs[0].ID, 22, true); err != nil {
		t.Fatalf("grade failed: %v", err)
	}

	reloaded, _ := f.submissionRepo.GetByIDs(context.Background(), nil, []uuid.UUID{subs[0].ID})
	if len(reloaded) != 1 || reloaded[0].Status != types.SubmissionStatusReturned {
		t.Fatalf("expected returned status, got %+v", reloaded)
	}
}

func TestGradeSubmission_UnknownSubmission(t *testing.T) {
	client := scenarioA()
	f := newSyncFixture(t, client)
	gs := newGradingService(f, client)

	err := gs.GradeSubmission(context.Background(), f.owner.ID, uuid.New(), 10, false)
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}
