package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	classroom "google.golang.org/api/classroom/v1"
	"gorm.io/gorm"

	"github.com/yungbote/gradebridge-backend/internal/clients/gcp"
	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/repos"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrNotLinked means the local row was never synced from (or pushed to)
	// the external system, so there is nothing to address the API call at.
	ErrNotLinked = errors.New("record has no external id")
)

// PublishCourseWorkInput is the local shape pushed out as new coursework.
type PublishCourseWorkInput struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	MaxPoints   float64    `json:"max_points"`
	DueDate     *time.Time `json:"due_date"`
}

type GradingService interface {
	PublishCourseWork(ctx context.Context, userID, courseID uuid.UUID, input PublishCourseWorkInput) (*types.Assignment, error)
	GradeSubmission(ctx context.Context, userID, submissionID uuid.UUID, grade float64, returnToStudent bool) error
}

type gradingService struct {
	db              *gorm.DB
	log             *logger.Logger
	integrationRepo repos.IntegrationRepo
	courseRepo      repos.CourseRepo
	assignmentRepo  repos.AssignmentRepo
	submissionRepo  repos.SubmissionRepo
	tokens          TokenService
	newClient       ClientFactory
	now             func() time.Time
}

func NewGradingService(
	db *gorm.DB,
	log *logger.Logger,
	integrationRepo repos.IntegrationRepo,
	courseRepo repos.CourseRepo,
	assignmentRepo repos.AssignmentRepo,
	submissionRepo repos.SubmissionRepo,
	tokens TokenService,
	newClient ClientFactory,
) GradingService {
	serviceLog := log.With("service", "GradingService")
	return &gradingService{
		db:              db,
		log:             serviceLog,
		integrationRepo: integrationRepo,
		courseRepo:      courseRepo,
		assignmentRepo:  assignmentRepo,
		submissionRepo:  submissionRepo,
		tokens:          tokens,
		newClient:       newClient,
		now:             time.Now,
	}
}

func (gs *gradingService) client(ctx context.Context, userID uuid.UUID) (gcp.ClassroomClient, error) {
	integrations, err := gs.integrationRepo.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	if len(integrations) == 0 {
		return nil, ErrNoIntegration
	}

	token, _, err := gs.tokens.EnsureFresh(ctx, integrations[0])
	if err != nil {
		return nil, err
	}
	return gs.newClient(ctx, token)
}

// PublishCourseWork creates new coursework in the external course and
// mirrors it back as a local assignment, so the next sync sees it as
// already present.
func (gs *gradingService) PublishCourseWork(ctx context.Context, userID, courseID uuid.UUID, input PublishCourseWorkInput) (*types.Assignment, error) {
	courses, err := gs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	if len(courses) == 0 || courses[0].OwnerID != userID {
		return nil, ErrCourseNotFound
	}
	course := courses[0]

	client, err := gs.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	cw := &classroom.CourseWork{
		Title:       input.Title,
		Description: input.Description,
		MaxPoints:   input.MaxPoints,
		WorkType:    workTypeAssignment,
		State:       "PUBLISHED",
	}
	if input.DueDate != nil {
		due := input.DueDate.UTC()
		cw.DueDate = &classroom.Date{
			Year:  int64(due.Year()),
			Month: int64(due.Month()),
			Day:   int64(due.Day()),
		}
		cw.DueTime = &classroom.TimeOfDay{
			Hours:   int64(due.Hour()),
			Minutes: int64(due.Minute()),
		}
	}

	created, err := client.CreateCourseWork(ctx, course.ExternalCourseID, cw)
	if err != nil {
		return nil, fmt.Errorf("failed to publish coursework: %w", err)
	}

	syncedAt := gs.now().UTC()
	assignment := &types.Assignment{
		ID:                   uuid.New(),
		CourseID:             course.ID,
		ExternalAssignmentID: created.Id,
		Title:                created.Title,
		Description:          created.Description,
		MaxPoints:            created.MaxPoints,
		DueDate:              composeDueDate(created.DueDate, created.DueTime),
		SyncStatus:           types.SyncStatusCompleted,
		LastSyncAt:           &syncedAt,
	}
	if err := gs.assignmentRepo.Upsert(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to record published assignment: %w", err)
	}

	gs.log.Info("Published coursework", "course_id", course.ID, "external_assignment_id", created.Id)
	return assignment, nil
}

// GradeSubmission pushes a grade to the external submission, optionally
// returning it to the student, then reflects the new state locally.
func (gs *gradingService) GradeSubmission(ctx context.Context, userID, submissionID uuid.UUID, grade float64, returnToStudent bool) error {
	submissions, err := gs.submissionRepo.GetByIDs(ctx, nil, []uuid.UUID{submissionID})
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}
	if len(submissions) == 0 {
		return ErrSubmissionNotFound
	}
	submission := submissions[0]
	if submission.ExternalSubmissionID == "" {
		return ErrNotLinked
	}

	assignments, err := gs.assignmentRepo.GetByIDs(ctx, nil, []uuid.UUID{submission.AssignmentID})
	if err != nil {
		return fmt.Errorf("failed to load assignment: %w", err)
	}
	if len(assignments) == 0 || assignments[0].ExternalAssignmentID == "" {
		return ErrNotLinked
	}
	assignment := assignments[0]

	courses, err := gs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{assignment.CourseID})
	if err != nil {
		return fmt.Errorf("failed to load course: %w", err)
	}
	if len(courses) == 0 || courses[0].OwnerID != userID {
		return ErrCourseNotFound
	}
	course := courses[0]

	client, err := gs.client(ctx, userID)
	if err != nil {
		return err
	}

	if _, err := client.PatchSubmissionGrade(ctx, course.ExternalCourseID, assignment.ExternalAssignmentID, submission.ExternalSubmissionID, grade, grade); err != nil {
		return fmt.Errorf("failed to push grade: %w", err)
	}

	status := submission.Status
	if returnToStudent {
		if err := client.ReturnSubmission(ctx, course.ExternalCourseID, assignment.ExternalAssignmentID, submission.ExternalSubmissionID); err != nil {
			return fmt.Errorf("failed to return submission: %w", err)
		}
		status = types.SubmissionStatusReturned
	}

	if err := gs.submissionRepo.UpdateFields(ctx, nil, submission.ID, map[string]interface{}{
		"status": status,
	}); err != nil {
		return fmt.Errorf("failed to record graded submission: %w", err)
	}

	gs.log.Info("Graded submission", "submission_id", submission.ID, "returned", returnToStudent)
	return nil
}
