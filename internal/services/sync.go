package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	classroom "google.golang.org/api/classroom/v1"
	"gorm.io/gorm"

	"github.com/yungbote/gradebridge-backend/internal/clients/gcp"
	redisclient "github.com/yungbote/gradebridge-backend/internal/clients/redis"
	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/repos"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

var (
	// ErrNoIntegration means the user never connected a classroom account.
	ErrNoIntegration = errors.New("no classroom integration for user")

	// ErrSyncInProgress means another run already holds this user's sync claim.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// SyncResult reports what one full pull accomplished. Every counter,
// courses included, counts rows that were new to the local database during
// this run; Skipped and Errors count courses that could not be pulled.
type SyncResult struct {
	Synced              int `json:"synced"`
	Skipped             int `json:"skipped"`
	Errors              int `json:"errors"`
	Total               int `json:"total"`
	StudentsSynced      int `json:"studentsSynced"`
	AssignmentsSynced   int `json:"assignmentsSynced"`
	SubmissionsSynced   int `json:"submissionsSynced"`
	QuizzesSynced       int `json:"quizzesSynced"`
	AnnouncementsSynced int `json:"announcementsSynced"`
}

// ClientFactory builds an API client for one access token. Swapped out in
// tests for a fake.
type ClientFactory func(ctx context.Context, accessToken string) (gcp.ClassroomClient, error)

// ConnectInput carries the OAuth grant material captured by the frontend
// consent flow.
type ConnectInput struct {
	AccessToken       string    `json:"access_token"`
	RefreshToken      string    `json:"refresh_token" binding:"required"`
	TokenExpiresAt    time.Time `json:"token_expires_at"`
	ExternalAccountID string    `json:"external_account_id"`
}

type SyncService interface {
	Connect(ctx context.Context, userID uuid.UUID, input ConnectInput) (*types.Integration, error)
	Run(ctx context.Context, userID uuid.UUID) (*SyncResult, error)
	Status(ctx context.Context, userID uuid.UUID) (*types.Integration, error)
}

type syncService struct {
	db              *gorm.DB
	log             *logger.Logger
	integrationRepo repos.IntegrationRepo
	courseRepo      repos.CourseRepo
	enrollmentRepo  repos.EnrollmentRepo
	assignmentRepo  repos.AssignmentRepo
	submissionRepo  repos.SubmissionRepo
	quizRepo        repos.QuizRepo
	attemptRepo     repos.QuizAttemptRepo
	forumRepo       repos.ForumRepo
	messageRepo     repos.ForumMessageRepo
	profileRepo     repos.ProfileRepo
	tokens          TokenService
	identity        IdentityService
	rubrics         RubricService
	newClient       ClientFactory
	runLock         redisclient.RunLock
	now             func() time.Time
}

func NewSyncService(
	db *gorm.DB,
	log *logger.Logger,
	integrationRepo repos.IntegrationRepo,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	assignmentRepo repos.AssignmentRepo,
	submissionRepo repos.SubmissionRepo,
	quizRepo repos.QuizRepo,
	attemptRepo repos.QuizAttemptRepo,
	forumRepo repos.ForumRepo,
	messageRepo repos.ForumMessageRepo,
	profileRepo repos.ProfileRepo,
	tokens TokenService,
	identity IdentityService,
	rubrics RubricService,
	newClient ClientFactory,
	runLock redisclient.RunLock,
) SyncService {
	serviceLog := log.With("service", "SyncService")
	return &syncService{
		db:              db,
		log:             serviceLog,
		integrationRepo: integrationRepo,
		courseRepo:      courseRepo,
		enrollmentRepo:  enrollmentRepo,
		assignmentRepo:  assignmentRepo,
		submissionRepo:  submissionRepo,
		quizRepo:        quizRepo,
		attemptRepo:     attemptRepo,
		forumRepo:       forumRepo,
		messageRepo:     messageRepo,
		profileRepo:     profileRepo,
		tokens:          tokens,
		identity:        identity,
		rubrics:         rubrics,
		newClient:       newClient,
		runLock:         runLock,
		now:             time.Now,
	}
}

// Connect stores (or replaces) the user's OAuth grant. Reconnecting resets
// the sync status so the next run starts clean.
func (ss *syncService) Connect(ctx context.Context, userID uuid.UUID, input ConnectInput) (*types.Integration, error) {
	existing, err := ss.integrationRepo.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up integration: %w", err)
	}

	if len(existing) > 0 {
		integration := existing[0]
		if err := ss.integrationRepo.UpdateFields(ctx, nil, integration.ID, map[string]interface{}{
			"access_token":        input.AccessToken,
			"refresh_token":       input.RefreshToken,
			"token_expires_at":    input.TokenExpiresAt,
			"external_account_id": input.ExternalAccountID,
			"sync_status":         types.SyncStatusPending,
		}); err != nil {
			return nil, fmt.Errorf("failed to update integration: %w", err)
		}
		integration.AccessToken = input.AccessToken
		integration.RefreshToken = input.RefreshToken
		integration.TokenExpiresAt = input.TokenExpiresAt
		integration.ExternalAccountID = input.ExternalAccountID
		integration.SyncStatus = types.SyncStatusPending
		return integration, nil
	}

	integration := &types.Integration{
		ID:                uuid.New(),
		UserID:            userID,
		Provider:          types.ProviderGoogleClassroom,
		AccessToken:       input.AccessToken,
		RefreshToken:      input.RefreshToken,
		TokenExpiresAt:    input.TokenExpiresAt,
		ExternalAccountID: input.ExternalAccountID,
		SyncStatus:        types.SyncStatusPending,
	}
	if _, err := ss.integrationRepo.Create(ctx, nil, []*types.Integration{integration}); err != nil {
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}
	ss.log.Info("Connected classroom integration", "user_id", userID)
	return integration, nil
}

func (ss *syncService) Status(ctx context.Context, userID uuid.UUID) (*types.Integration, error) {
	integrations, err := ss.integrationRepo.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	if len(integrations) == 0 {
		return nil, ErrNoIntegration
	}
	return integrations[0], nil
}

// Run executes one full pull for the user. The run is guarded twice: an
// optional Redis lock keeps replicas apart, and a database compare-and-set
// on sync_status is the guard of record. Per-course failures are isolated;
// only token refresh and the initial course listing abort the whole run.
func (ss *syncService) Run(ctx context.Context, userID uuid.UUID) (*SyncResult, error) {
	integration, err := ss.Status(ctx, userID)
	if err != nil {
		return nil, err
	}

	if ss.runLock != nil {
		acquired, err := ss.runLock.Acquire(ctx, userID)
		if err != nil {
			ss.log.Warn("Sync run lock unavailable, falling back to database claim", "error", err)
		} else if !acquired {
			return nil, ErrSyncInProgress
		} else {
			defer func() {
				if err := ss.runLock.Release(context.Background(), userID); err != nil {
					ss.log.Warn("Failed to release sync run lock", "error", err)
				}
			}()
		}
	}

	claimed, err := ss.integrationRepo.ClaimSyncRun(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim sync run: %w", err)
	}
	if !claimed {
		return nil, ErrSyncInProgress
	}

	result, runErr := ss.run(ctx, integration)
	if runErr != nil {
		ss.markError(ctx, integration.ID)
		return nil, runErr
	}

	finishedAt := ss.now().UTC()
	if err := ss.integrationRepo.UpdateFields(ctx, nil, integration.ID, map[string]interface{}{
		"sync_status":  types.SyncStatusCompleted,
		"last_sync_at": finishedAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to finalize sync run: %w", err)
	}

	ss.log.Info("Classroom sync completed",
		"courses_total", result.Total,
		"courses_synced", result.Synced,
		"courses_skipped", result.Skipped,
		"courses_errored", result.Errors,
	)
	return result, nil
}

func (ss *syncService) markError(ctx context.Context, integrationID uuid.UUID) {
	if err := ss.integrationRepo.UpdateFields(ctx, nil, integrationID, map[string]interface{}{
		"sync_status": types.SyncStatusError,
	}); err != nil {
		ss.log.Error("Failed to mark integration errored", "integration_id", integrationID, "error", err)
	}
}

func (ss *syncService) run(ctx context.Context, integration *types.Integration) (*SyncResult, error) {
	token, _, err := ss.tokens.EnsureFresh(ctx, integration)
	if err != nil {
		return nil, err
	}

	client, err := ss.newClient(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to build classroom client: %w", err)
	}

	courses, err := client.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	result := &SyncResult{Total: len(courses)}
	for _, extCourse := range courses {
		if extCourse == nil {
			continue
		}
		isNew, err := ss.syncCourse(ctx, client, extCourse, integration.UserID, result)
		if err != nil {
			if errors.Is(err, ErrCourseOwnedElsewhere) {
				ss.log.Warn("Skipping course owned by another user", "external_course_id", extCourse.Id)
				result.Skipped++
				continue
			}
			ss.log.Error("Course sync failed", "external_course_id", extCourse.Id, "error", err)
			result.Errors++
			continue
		}
		if isNew {
			result.Synced++
		}
	}
	return result, nil
}

// syncCourse pulls one course and everything under it, reporting whether the
// course row itself was new. Category listing failures fail the course;
// individual row failures within a category are logged and skipped.
func (ss *syncService) syncCourse(ctx context.Context, client gcp.ClassroomClient, extCourse *classroom.Course, ownerID uuid.UUID, result *SyncResult) (bool, error) {
	courseID, isNew, err := ss.identity.ResolveCourseOwnership(ctx, extCourse, ownerID)
	if err != nil {
		return false, err
	}

	students, err := ss.syncRoster(ctx, client, extCourse.Id, courseID, ownerID)
	if err != nil {
		return isNew, err
	}
	result.StudentsSynced += students

	assignments, submissions, err := ss.syncCourseWork(ctx, client, extCourse.Id, courseID, ownerID)
	if err != nil {
		return isNew, err
	}
	result.AssignmentsSynced += assignments
	result.SubmissionsSynced += submissions

	quizzes, attempts, err := ss.syncQuizzes(ctx, client, extCourse.Id, courseID, ownerID)
	if err != nil {
		return isNew, err
	}
	result.QuizzesSynced += quizzes
	result.SubmissionsSynced += attempts

	announcements, err := ss.syncAnnouncements(ctx, client, extCourse, courseID, ownerID)
	if err != nil {
		return isNew, err
	}
	result.AnnouncementsSynced += announcements

	return isNew, nil
}

// syncRoster enrolls every resolvable roster entry and refreshes the cached
// student count. A student who cannot be resolved is skipped, not fatal.
func (ss *syncService) syncRoster(ctx context.Context, client gcp.ClassroomClient, extCourseID string, courseID, ownerID uuid.UUID) (int, error) {
	roster, err := client.ListStudents(ctx, extCourseID)
	if err != nil {
		return 0, fmt.Errorf("failed to list roster: %w", err)
	}

	synced := 0
	for _, entry := range roster {
		if entry == nil || entry.Profile == nil {
			continue
		}
		student := externalStudentFromProfile(entry.Profile)
		studentID, err := ss.identity.ResolveStudent(ctx, student, ownerID)
		if err != nil {
			ss.log.Warn("Failed to resolve roster entry", "external_user_id", student.ExternalUserID, "error", err)
			continue
		}

		existed, err := ss.enrollmentRepo.Exists(ctx, nil, courseID, studentID)
		if err != nil {
			ss.log.Warn("Failed to check enrollment", "course_id", courseID, "error", err)
			continue
		}
		if err := ss.enrollmentRepo.Upsert(ctx, nil, &types.Enrollment{
			ID:        uuid.New(),
			CourseID:  courseID,
			StudentID: studentID,
			Status:    "active",
		}); err != nil {
			ss.log.Warn("Failed to upsert enrollment", "course_id", courseID, "error", err)
			continue
		}
		if !existed {
			synced++
		}
	}

	count, err := ss.enrollmentRepo.CountActiveByCourse(ctx, nil, courseID)
	if err != nil {
		return synced, fmt.Errorf("failed to count enrollments: %w", err)
	}
	if err := ss.courseRepo.UpdateStudentCount(ctx, nil, courseID, count); err != nil {
		return synced, fmt.Errorf("failed to update student count: %w", err)
	}
	return synced, nil
}

// syncCourseWork pulls graded assignments (ASSIGNMENT work type) plus their
// rubrics and submissions. Question-type coursework belongs to the quiz
// sync, not here.
func (ss *syncService) syncCourseWork(ctx context.Context, client gcp.ClassroomClient, extCourseID string, courseID, ownerID uuid.UUID) (int, int, error) {
	courseWork, err := client.ListCourseWork(ctx, extCourseID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list coursework: %w", err)
	}

	assignmentsSynced := 0
	submissionsSynced := 0
	for _, cw := range courseWork {
		if cw == nil || cw.WorkType != workTypeAssignment {
			continue
		}

		// The list payload can omit materials; the detail fetch fills
		// them in. Fall back to the listed item when the fetch fails.
		detail, err := client.GetCourseWork(ctx, extCourseID, cw.Id)
		if err != nil {
			ss.log.Warn("Failed to fetch coursework detail, using listing", "external_assignment_id", cw.Id, "error", err)
			detail = cw
		}

		attachments := normalizeMaterials(detail.Materials)
		attachmentsJSON, err := json.Marshal(attachments)
		if err != nil {
			ss.log.Warn("Failed to encode attachments", "external_assignment_id", cw.Id, "error", err)
			continue
		}

		var rubricID *uuid.UUID
		if extRubric, err := client.GetRubric(ctx, extCourseID, cw.Id); err != nil {
			// Rubrics are optional and the endpoint 404s on courses that
			// never used them. Never fail the assignment over it.
			if !gcp.IsNotFound(err) {
				ss.log.Warn("Failed to fetch rubric", "external_assignment_id", cw.Id, "error", err)
			}
		} else if extRubric != nil {
			id, err := ss.rubrics.UpsertForAssignment(ctx, ownerID, detail.Title, extRubric, detail.MaxPoints)
			if err != nil {
				ss.log.Warn("Failed to persist rubric", "external_assignment_id", cw.Id, "error", err)
			} else {
				rubricID = &id
			}
		}

		existing, err := ss.assignmentRepo.GetByExternalIDs(ctx, nil, []string{cw.Id})
		if err != nil {
			ss.log.Warn("Failed to look up assignment", "external_assignment_id", cw.Id, "error", err)
			continue
		}

		syncedAt := ss.now().UTC()
		assignment := &types.Assignment{
			CourseID:             courseID,
			ExternalAssignmentID: cw.Id,
			Title:                detail.Title,
			Description:          detail.Description,
			MaxPoints:            detail.MaxPoints,
			DueDate:              composeDueDate(detail.DueDate, detail.DueTime),
			RubricID:             rubricID,
			Attachments:          attachmentsJSON,
			SyncStatus:           types.SyncStatusCompleted,
			LastSyncAt:           &syncedAt,
		}
		if len(existing) > 0 {
			assignment.ID = existing[0].ID
		} else {
			assignment.ID = uuid.New()
		}
		if err := ss.assignmentRepo.Upsert(ctx, nil, assignment); err != nil {
			ss.log.Warn("Failed to upsert assignment", "external_assignment_id", cw.Id, "error", err)
			continue
		}
		if len(existing) == 0 {
			assignmentsSynced++
		}

		newSubs, err := ss.syncSubmissions(ctx, client, extCourseID, cw.Id, assignment.ID, ownerID)
		if err != nil {
			ss.log.Warn("Failed to sync submissions", "external_assignment_id", cw.Id, "error", err)
			continue
		}
		submissionsSynced += newSubs
	}
	return assignmentsSynced, submissionsSynced, nil
}

// syncSubmissions pulls submissions for one assignment. Drafts with no
// attachments are noise (every student gets an empty submission row the
// moment coursework is published) and are skipped.
func (ss *syncService) syncSubmissions(ctx context.Context, client gcp.ClassroomClient, extCourseID, extCourseWorkID string, assignmentID, ownerID uuid.UUID) (int, error) {
	subs, err := client.ListSubmissions(ctx, extCourseID, extCourseWorkID)
	if err != nil {
		return 0, fmt.Errorf("failed to list submissions: %w", err)
	}

	synced := 0
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if !isTurnedInOrReturned(sub.State) && !submissionHasAttachments(sub) {
			continue
		}

		studentID, err := ss.resolveSubmitter(ctx, client, sub.UserId, ownerID)
		if err != nil {
			ss.log.Warn("Failed to resolve submitter", "error", err)
			continue
		}

		var fileURLs []string
		if sub.AssignmentSubmission != nil {
			fileURLs = extractFileURLs(sub.AssignmentSubmission.Attachments)
		}
		fileURLsJSON, err := json.Marshal(fileURLs)
		if err != nil {
			continue
		}

		var submittedAt *time.Time
		if isTurnedInOrReturned(sub.State) {
			ts := submissionStateTime(sub)
			if !ts.IsZero() {
				submittedAt = &ts
			}
		}

		existed, err := ss.submissionRepo.Exists(ctx, nil, assignmentID, studentID)
		if err != nil {
			ss.log.Warn("Failed to check submission", "external_submission_id", sub.Id, "error", err)
			continue
		}
		if err := ss.submissionRepo.Upsert(ctx, nil, &types.Submission{
			ID:                   uuid.New(),
			AssignmentID:         assignmentID,
			StudentID:            studentID,
			ExternalSubmissionID: sub.Id,
			FileURLs:             fileURLsJSON,
			Status:               mapSubmissionState(sub.State),
			SubmittedAt:          submittedAt,
		}); err != nil {
			ss.log.Warn("Failed to upsert submission", "external_submission_id", sub.Id, "error", err)
			continue
		}
		if !existed {
			synced++
		}
	}
	return synced, nil
}

// resolveSubmitter maps an external user id on a submission to a local
// account. Roster sync usually resolved it already; the profile fetch covers
// submitters who left the course.
func (ss *syncService) resolveSubmitter(ctx context.Context, client gcp.ClassroomClient, externalUserID string, ownerID uuid.UUID) (uuid.UUID, error) {
	if externalUserID == "" {
		return uuid.Nil, fmt.Errorf("submission has no user id")
	}

	profiles, err := ss.profileRepo.GetByExternalUserIDs(ctx, nil, []string{externalUserID})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up submitter profile: %w", err)
	}
	if len(profiles) > 0 {
		profile := profiles[0]
		// A profile adopted before its roster payload arrived can sit
		// without a display name; fill it in from the external profile.
		if profile.FullName == "" {
			if extProfile, err := client.GetUserProfile(ctx, externalUserID); err == nil &&
				extProfile != nil && extProfile.Name != nil && extProfile.Name.FullName != "" {
				if err := ss.profileRepo.UpdateFields(ctx, nil, profile.ID, map[string]interface{}{
					"full_name": extProfile.Name.FullName,
				}); err != nil {
					ss.log.Warn("Failed to backfill display name", "external_user_id", externalUserID, "error", err)
				}
			}
		}
		return profile.UserID, nil
	}

	extProfile, err := client.GetUserProfile(ctx, externalUserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to fetch submitter profile: %w", err)
	}
	return ss.identity.ResolveStudent(ctx, externalStudentFromProfile(extProfile), ownerID)
}

// syncQuizzes pulls the quiz candidate set: assignments that attach a form,
// plus standalone question-type coursework. Candidates that yield zero
// questions are skipped.
func (ss *syncService) syncQuizzes(ctx context.Context, client gcp.ClassroomClient, extCourseID string, courseID, ownerID uuid.UUID) (int, int, error) {
	courseWork, err := client.ListCourseWork(ctx, extCourseID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list coursework for quizzes: %w", err)
	}

	quizzesSynced := 0
	attemptsSynced := 0
	for _, cw := range courseWork {
		if cw == nil {
			continue
		}

		var questions []types.QuizQuestion
		switch cw.WorkType {
		case workTypeAssignment:
			formURL, ok := formMaterialURL(cw)
			if !ok {
				continue
			}
			formID := formIDFromURL(formURL)
			if formID == "" {
				continue
			}
			form, err := client.GetForm(ctx, formID)
			if err != nil {
				// Forms API access is a separate scope; a failed fetch
				// just means this candidate produces no quiz.
				ss.log.Warn("Failed to fetch form for quiz candidate", "external_quiz_id", cw.Id, "error", err)
				continue
			}
			questions = questionsFromForm(form)
		case workTypeShortAnswer, workTypeMultipleChoice:
			if q := questionFromCourseWork(cw); q != nil {
				questions = []types.QuizQuestion{*q}
			}
		default:
			continue
		}
		if len(questions) == 0 {
			continue
		}

		questionsJSON, err := json.Marshal(questions)
		if err != nil {
			continue
		}

		existing, err := ss.quizRepo.GetByExternalIDs(ctx, nil, []string{cw.Id})
		if err != nil {
			ss.log.Warn("Failed to look up quiz", "external_quiz_id", cw.Id, "error", err)
			continue
		}

		quiz := &types.Quiz{
			CourseID:       courseID,
			ExternalQuizID: cw.Id,
			Title:          cw.Title,
			Description:    cw.Description,
			Questions:      questionsJSON,
			IsPublished:    cw.State == "PUBLISHED",
		}
		if len(existing) > 0 {
			quiz.ID = existing[0].ID
		} else {
			quiz.ID = uuid.New()
		}
		if err := ss.quizRepo.Upsert(ctx, nil, quiz); err != nil {
			ss.log.Warn("Failed to upsert quiz", "external_quiz_id", cw.Id, "error", err)
			continue
		}
		if len(existing) == 0 {
			quizzesSynced++
		}

		newAttempts, err := ss.syncQuizAttempts(ctx, client, extCourseID, cw, quiz.ID, ownerID, questions)
		if err != nil {
			ss.log.Warn("Failed to sync quiz attempts", "external_quiz_id", cw.Id, "error", err)
			continue
		}
		attemptsSynced += newAttempts
	}
	return quizzesSynced, attemptsSynced, nil
}

// syncQuizAttempts records one attempt per turned-in external submission.
// The external submission id is the idempotence key: once recorded, an
// attempt is never rewritten, so a student's answers survive re-runs.
func (ss *syncService) syncQuizAttempts(ctx context.Context, client gcp.ClassroomClient, extCourseID string, cw *classroom.CourseWork, quizID, ownerID uuid.UUID, questions []types.QuizQuestion) (int, error) {
	subs, err := client.ListSubmissions(ctx, extCourseID, cw.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to list quiz submissions: %w", err)
	}

	// Form coursework usually carries no MaxPoints of its own; the quiz's
	// worth is what its questions add up to.
	var maxScore float64
	for _, q := range questions {
		maxScore += q.Points
	}
	if maxScore <= 0 {
		maxScore = cw.MaxPoints
	}
	if maxScore <= 0 {
		maxScore = 1
	}

	synced := 0
	for _, sub := range subs {
		if sub == nil || !isTurnedInOrReturned(sub.State) {
			continue
		}

		recorded, err := ss.attemptRepo.ExistsByExternalSubmissionID(ctx, nil, sub.Id)
		if err != nil {
			ss.log.Warn("Failed to check quiz attempt", "external_submission_id", sub.Id, "error", err)
			continue
		}
		if recorded {
			continue
		}

		studentID, err := ss.resolveSubmitter(ctx, client, sub.UserId, ownerID)
		if err != nil {
			ss.log.Warn("Failed to resolve quiz submitter", "error", err)
			continue
		}

		// A turned-in submission without an inline answer shape (the form
		// case) records an explicit null, so it reads differently from a
		// submitted empty answer.
		answers := map[string]*string{}
		if len(questions) > 0 {
			answers[questions[0].ID] = extractAnswer(sub)
		}
		answersJSON, err := json.Marshal(answers)
		if err != nil {
			continue
		}

		startedAt := submissionStateTime(sub)
		if startedAt.IsZero() {
			startedAt = ss.now().UTC()
		}
		submittedAt := startedAt

		if err := ss.attemptRepo.Upsert(ctx, nil, &types.QuizAttempt{
			ID:                   uuid.New(),
			QuizID:               quizID,
			StudentID:            studentID,
			StartedAt:            startedAt,
			ExternalSubmissionID: sub.Id,
			Answers:              answersJSON,
			MaxScore:             maxScore,
			SubmittedAt:          &submittedAt,
		}); err != nil {
			ss.log.Warn("Failed to record quiz attempt", "external_submission_id", sub.Id, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// syncAnnouncements mirrors course announcements into the course forum,
// creating the forum lazily on first use. Announcement edits always
// overwrite the local copy; the external stream is the source of truth.
func (ss *syncService) syncAnnouncements(ctx context.Context, client gcp.ClassroomClient, extCourse *classroom.Course, courseID, ownerID uuid.UUID) (int, error) {
	announcements, err := client.ListAnnouncements(ctx, extCourse.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to list announcements: %w", err)
	}
	if len(announcements) == 0 {
		return 0, nil
	}

	forum, err := ss.forumRepo.GetByCourseID(ctx, nil, courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up forum: %w", err)
	}
	if forum == nil {
		forum = &types.Forum{
			ID:       uuid.New(),
			CourseID: courseID,
			Title:    extCourse.Name + " Announcements",
		}
		if _, err := ss.forumRepo.Create(ctx, nil, []*types.Forum{forum}); err != nil {
			return 0, fmt.Errorf("failed to create forum: %w", err)
		}
	}

	synced := 0
	for _, ann := range announcements {
		if ann == nil || ann.Id == "" {
			continue
		}

		authorID := ownerID
		if ann.CreatorUserId != "" {
			if resolved, err := ss.resolveSubmitter(ctx, client, ann.CreatorUserId, ownerID); err == nil {
				authorID = resolved
			}
		}

		materialsJSON, err := json.Marshal(normalizeMaterials(ann.Materials))
		if err != nil {
			continue
		}

		existed, err := ss.messageRepo.ExistsByExternalID(ctx, nil, ann.Id)
		if err != nil {
			ss.log.Warn("Failed to check announcement", "external_announcement_id", ann.Id, "error", err)
			continue
		}
		if err := ss.messageRepo.Upsert(ctx, nil, &types.ForumMessage{
			ID:                     uuid.New(),
			ForumID:                forum.ID,
			AuthorID:               authorID,
			ExternalAnnouncementID: ann.Id,
			Content:                ann.Text,
			Materials:              materialsJSON,
			State:                  ann.State,
			PostedAt:               parseTime(ann.CreationTime),
			EditedAt:               parseTime(ann.UpdateTime),
		}); err != nil {
			ss.log.Warn("Failed to upsert announcement", "external_announcement_id", ann.Id, "error", err)
			continue
		}
		if !existed {
			synced++
		}
	}
	return synced, nil
}

func externalStudentFromProfile(profile *classroom.UserProfile) ExternalStudent {
	student := ExternalStudent{}
	if profile == nil {
		return student
	}
	student.ExternalUserID = profile.Id
	student.Email = profile.EmailAddress
	if profile.Name != nil {
		student.FirstName = profile.Name.GivenName
		student.LastName = profile.Name.FamilyName
		student.FullName = profile.Name.FullName
	}
	return student
}
