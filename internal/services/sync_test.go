package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	classroom "google.golang.org/api/classroom/v1"
	forms "google.golang.org/api/forms/v1"
	"gorm.io/gorm"

	"github.com/yungbote/gradebridge-backend/internal/clients/gcp"
	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/repos"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

// fakeClassroomClient serves canned API payloads. Submission lists are keyed
// by "<courseID>/<courseWorkID>".
type fakeClassroomClient struct {
	courses       []*classroom.Course
	students      map[string][]*classroom.Student
	courseWork    map[string][]*classroom.CourseWork
	submissions   map[string][]*classroom.StudentSubmission
	rubrics       map[string]*classroom.Rubric
	profiles      map[string]*classroom.UserProfile
	forms         map[string]*forms.Form
	announcements map[string][]*classroom.Announcement
	failRoster    map[string]bool
}

func (f *fakeClassroomClient) ListCourses(ctx context.Context) ([]*classroom.Course, error) {
	return f.courses, nil
}

func (f *fakeClassroomClient) ListStudents(ctx context.Context, courseID string) ([]*classroom.Student, error) {
	if f.failRoster[courseID] {
		return nil, fmt.Errorf("roster unavailable for %s", courseID)
	}
	return f.students[courseID], nil
}

func (f *fakeClassroomClient) ListCourseWork(ctx context.Context, courseID string) ([]*classroom.CourseWork, error) {
	return f.courseWork[courseID], nil
}

func (f *fakeClassroomClient) GetCourseWork(ctx context.Context, courseID, courseWorkID string) (*classroom.CourseWork, error) {
	for _, cw := range f.courseWork[courseID] {
		if cw.Id == courseWorkID {
			return cw, nil
		}
	}
	return nil, fmt.Errorf("coursework %s not found", courseWorkID)
}

func (f *fakeClassroomClient) ListSubmissions(ctx context.Context, courseID, courseWorkID string) ([]*classroom.StudentSubmission, error) {
	return f.submissions[courseID+"/"+courseWorkID], nil
}

func (f *fakeClassroomClient) GetRubric(ctx context.Context, courseID, courseWorkID string) (*classroom.Rubric, error) {
	return f.rubrics[courseID+"/"+courseWorkID], nil
}

func (f *fakeClassroomClient) ListAnnouncements(ctx context.Context, courseID string) ([]*classroom.Announcement, error) {
	return f.announcements[courseID], nil
}

func (f *fakeClassroomClient) GetUserProfile(ctx context.Context, userID string) (*classroom.UserProfile, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("profile %s not found", userID)
}

func (f *fakeClassroomClient) GetForm(ctx context.Context, formID string) (*forms.Form, error) {
	if form, ok := f.forms[formID]; ok {
		return form, nil
	}
	return nil, fmt.Errorf("form %s not found", formID)
}

func (f *fakeClassroomClient) CreateCourseWork(ctx context.Context, courseID string, courseWork *classroom.CourseWork) (*classroom.CourseWork, error) {
	created := *courseWork
	created.Id = "created-" + courseWork.Title
	return &created, nil
}

func (f *fakeClassroomClient) PatchSubmissionGrade(ctx context.Context, courseID, courseWorkID, submissionID string, assignedGrade, draftGrade float64) (*classroom.StudentSubmission, error) {
	return &classroom.StudentSubmission{Id: submissionID, AssignedGrade: assignedGrade}, nil
}

func (f *fakeClassroomClient) ReturnSubmission(ctx context.Context, courseID, courseWorkID, submissionID string) error {
	return nil
}

type syncFixture struct {
	gdb             *gorm.DB
	log             *logger.Logger
	owner           *types.User
	integration     *types.Integration
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
	userRepo        repos.UserRepo
	svc             SyncService
}

func newSyncFixture(t *testing.T, client gcp.ClassroomClient) *syncFixture {
	t.Helper()
	gdb, log := newTestDB(t)

	f := &syncFixture{
		gdb:             gdb,
		log:             log,
		integrationRepo: repos.NewIntegrationRepo(gdb, log),
		courseRepo:      repos.NewCourseRepo(gdb, log),
		enrollmentRepo:  repos.NewEnrollmentRepo(gdb, log),
		assignmentRepo:  repos.NewAssignmentRepo(gdb, log),
		submissionRepo:  repos.NewSubmissionRepo(gdb, log),
		quizRepo:        repos.NewQuizRepo(gdb, log),
		attemptRepo:     repos.NewQuizAttemptRepo(gdb, log),
		forumRepo:       repos.NewForumRepo(gdb, log),
		messageRepo:     repos.NewForumMessageRepo(gdb, log),
		profileRepo:     repos.NewProfileRepo(gdb, log),
		userRepo:        repos.NewUserRepo(gdb, log),
	}

	f.owner = f.seedOwner(t, "teacher@example.com")
	f.integration = f.seedIntegrationFor(t, f.owner.ID)
	f.svc = f.serviceFor(client)
	return f
}

func (f *syncFixture) serviceFor(client gcp.ClassroomClient) SyncService {
	tokens := NewTokenService(f.gdb, f.log, f.integrationRepo, "cid", "secret", "")
	identity := NewIdentityService(f.gdb, f.log, f.userRepo, f.profileRepo, f.courseRepo)
	rubrics := NewRubricService(f.gdb, f.log, repos.NewRubricRepo(f.gdb, f.log))
	factory := func(ctx context.Context, accessToken string) (gcp.ClassroomClient, error) {
		return client, nil
	}
	return NewSyncService(
		f.gdb, f.log,
		f.integrationRepo, f.courseRepo, f.enrollmentRepo,
		f.assignmentRepo, f.submissionRepo,
		f.quizRepo, f.attemptRepo,
		f.forumRepo, f.messageRepo, f.profileRepo,
		tokens, identity, rubrics,
		factory, nil,
	)
}

func (f *syncFixture) seedOwner(t *testing.T, email string) *types.User {
	t.Helper()
	user := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: "x",
	}
	if _, err := f.userRepo.Create(context.Background(), nil, []*types.User{user}); err != nil {
		t.Fatalf("failed to seed owner: %v", err)
	}
	profile := &types.Profile{
		ID:     uuid.New(),
		UserID: user.ID,
		Role:   types.RoleTeacher,
	}
	if _, err := f.profileRepo.Create(context.Background(), nil, []*types.Profile{profile}); err != nil {
		t.Fatalf("failed to seed owner profile: %v", err)
	}
	return user
}

func (f *syncFixture) seedIntegrationFor(t *testing.T, userID uuid.UUID) *types.Integration {
	t.Helper()
	integration := &types.Integration{
		ID:             uuid.New(),
		UserID:         userID,
		Provider:       types.ProviderGoogleClassroom,
		AccessToken:    "valid-token",
		RefreshToken:   "refresh",
		TokenExpiresAt: time.Now().Add(time.Hour),
		SyncStatus:     types.SyncStatusPending,
	}
	if _, err := f.integrationRepo.Create(context.Background(), nil, []*types.Integration{integration}); err != nil {
		t.Fatalf("failed to seed integration: %v", err)
	}
	return integration
}

// scenarioA: one active course with one student, one assignment carrying a
// rubric and a PDF attachment, and one turned-in submission.
func scenarioA() *fakeClassroomClient {
	return &fakeClassroomClient{
		courses: []*classroom.Course{
			{Id: "c1", Name: "Biology 101", CourseState: "ACTIVE"},
		},
		students: map[string][]*classroom.Student{
			"c1": {{
				UserId: "ext-s1",
				Profile: &classroom.UserProfile{
					Id:           "ext-s1",
					EmailAddress: "alice@school.edu",
					Name:         &classroom.Name{GivenName: "Alice", FamilyName: "Ngo", FullName: "Alice Ngo"},
				},
			}},
		},
		courseWork: map[string][]*classroom.CourseWork{
			"c1": {{
				Id:        "cw1",
				Title:     "Cell Essay",
				WorkType:  "ASSIGNMENT",
				MaxPoints: 25,
				State:     "PUBLISHED",
				DueDate:   &classroom.Date{Year: 2026, Month: 9, Day: 1},
				DueTime:   &classroom.TimeOfDay{Hours: 23, Minutes: 59},
			}},
		},
		rubrics: map[string]*classroom.Rubric{
			"c1/cw1": {
				Criteria: []*classroom.Criterion{
					{Title: "Clarity", Levels: []*classroom.Level{{Title: "Good", Points: 10}}},
					{Title: "Depth", Levels: []*classroom.Level{{Title: "Thorough", Points: 15}}},
				},
			},
		},
		submissions: map[string][]*classroom.StudentSubmission{
			"c1/cw1": {{
				Id:     "sub1",
				UserId: "ext-s1",
				State:  "TURNED_IN",
				AssignmentSubmission: &classroom.AssignmentSubmission{
					Attachments: []*classroom.Attachment{
						{DriveFile: &classroom.DriveFile{Id: "file1", Title: "essay.pdf"}},
					},
				},
				SubmissionHistory: []*classroom.SubmissionHistory{
					{StateHistory: &classroom.StateHistory{State: "TURNED_IN", StateTimestamp: "2026-08-20T12:00:00Z"}},
				},
			}},
		},
		profiles: map[string]*classroom.UserProfile{
			"ext-s1": {
				Id:           "ext-s1",
				EmailAddress: "alice@school.edu",
				Name:         &classroom.Name{GivenName: "Alice", FamilyName: "Ngo", FullName: "Alice Ngo"},
			},
		},
		announcements: map[string][]*classroom.Announcement{
			"c1": {{
				Id:            "ann1",
				Text:          "Welcome to Biology 101",
				CreatorUserId: "ext-s1",
				State:         "PUBLISHED",
				CreationTime:  "2026-08-18T09:00:00Z",
				UpdateTime:    "2026-08-18T09:00:00Z",
			}},
		},
	}
}

func TestSyncRun_ScenarioA_FullPull(t *testing.T) {
	f := newSyncFixture(t, scenarioA())

	result, err := f.svc.Run(context.Background(), f.owner.ID)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Total != 1 || result.Synced != 1 || result.Skipped != 0 || result.Errors != 0 {
		t.Fatalf("unexpected course counts: %+v", result)
	}
	if result.StudentsSynced != 1 || result.AssignmentsSynced != 1 || result.SubmissionsSynced != 1 {
		t.Fatalf("unexpected row counts: %+v", result)
	}
	if result.AnnouncementsSynced != 1 {
		t.Fatalf("expected 1 announcement, got %d", result.AnnouncementsSynced)
	}

	courses, err := f.courseRepo.GetByExternalIDs(context.Background(), nil, []string{"c1"})
	if err != nil || len(courses) != 1 {
		t.Fatalf("course not stored: %v", err)
	}
	course := courses[0]
	if course.OwnerID != f.owner.ID || !course.IsActive || course.StudentCount != 1 {
		t.Fatalf("unexpected course row: %+v", course)
	}

	assignments, err := f.assignmentRepo.GetByExternalIDs(context.Background(), nil, []string{"cw1"})
	if err != nil || len(assignments) != 1 {
		t.Fatalf("assignment not stored: %v", err)
	}
	assignment := assignments[0]
	if assignment.MaxPoints != 25 || assignment.RubricID == nil || assignment.DueDate == nil {
		t.Fatalf("unexpected assignment row: %+v", assignment)
	}

	rubricRepo := repos.NewRubricRepo(f.gdb, f.log)
	rubric, err := rubricRepo.GetByCreatorAndName(context.Background(), nil, f.owner.ID, "Cell Essay - Rubric")
	if err != nil || rubric == nil {
		t.Fatalf("rubric not stored: %v", err)
	}
	if rubric.TotalPoints != 25 {
		t.Fatalf("expected rubric total 25, got %v", rubric.TotalPoints)
	}
	var criteria []types.RubricCriterion
	if err := json.Unmarshal(rubric.Criteria, &criteria); err != nil || len(criteria) != 2 {
		t.Fatalf("unexpected criteria: %v %+v", err, criteria)
	}
	if criteria[0].Weight != 40 || criteria[1].Weight != 60 {
		t.Fatalf("expected weights 40/60, got %v/%v", criteria[0].Weight, criteria[1].Weight)
	}

	subs, err := f.submissionRepo.GetByAssignmentIDs(context.Background(), nil, []uuid.UUID{assignment.ID})
	if err != nil || len(subs) != 1 {
		t.Fatalf("submission not stored: %v", err)
	}
	sub := subs[0]
	if sub.Status != types.SubmissionStatusSubmitted {
		t.Fatalf("expected status submitted, got %q", sub.Status)
	}
	var urls []string
	if err := json.Unmarshal(sub.FileURLs, &urls); err != nil || len(urls) != 1 {
		t.Fatalf("unexpected file urls: %v %v", err, urls)
	}
	if urls[0] != "https://drive.google.com/file/d/file1/preview" {
		t.Fatalf("expected preview url, got %q", urls[0])
	}

	profiles, err := f.profileRepo.GetByExternalUserIDs(context.Background(), nil, []string{"ext-s1"})
	if err != nil || len(profiles) != 1 {
		t.Fatalf("student profile not stored: %v", err)
	}
	if profiles[0].Role != types.RoleStudent || profiles[0].FullName != "Alice Ngo" {
		t.Fatalf("unexpected student profile: %+v", profiles[0])
	}

	status, err := f.svc.Status(context.Background(), f.owner.ID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.SyncStatus != types.SyncStatusCompleted || status.LastSyncAt == nil {
		t.Fatalf("integration not finalized: %+v", status)
	}
}

func TestSyncRun_ScenarioB_SecondRunIsAllZeros(t *testing.T) {
	f := newSyncFixture(t, scenarioA())

	if _, err := f.svc.Run(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	result, err := f.svc.Run(context.Background(), f.owner.ID)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result.Total != 1 || result.Synced != 0 {
		t.Fatalf("an unchanged course must not count as synced again: %+v", result)
	}
	if result.StudentsSynced != 0 || result.AssignmentsSynced != 0 || result.SubmissionsSynced != 0 || result.AnnouncementsSynced != 0 {
		t.Fatalf("expected zero new rows on re-run: %+v", result)
	}

	var userCount, subCount int64
	f.gdb.Model(&types.User{}).Count(&userCount)
	f.gdb.Model(&types.Submission{}).Count(&subCount)
	if userCount != 2 {
		t.Fatalf("expected 2 users (owner + student), got %d", userCount)
	}
	if subCount != 1 {
		t.Fatalf("expected 1 submission row, got %d", subCount)
	}
}

func TestSyncRun_CourseOwnedByAnotherUserIsSkipped(t *testing.T) {
	f := newSyncFixture(t, scenarioA())
	if _, err := f.svc.Run(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("owner run failed: %v", err)
	}

	other := f.seedOwner(t, "other@example.com")
	f.seedIntegrationFor(t, other.ID)

	result, err := f.svc.Run(context.Background(), other.ID)
	if err != nil {
		t.Fatalf("second user run failed: %v", err)
	}
	if result.Skipped != 1 || result.Synced != 0 {
		t.Fatalf("expected the course to be skipped, got %+v", result)
	}

	courses, _ := f.courseRepo.GetByExternalIDs(context.Background(), nil, []string{"c1"})
	if len(courses) != 1 || courses[0].OwnerID != f.owner.ID {
		t.Fatalf("course ownership must not change: %+v", courses)
	}
}

func TestSyncRun_DraftWithoutAttachmentsIsSkipped(t *testing.T) {
	client := scenarioA()
	client.submissions["c1/cw1"] = []*classroom.StudentSubmission{
		{Id: "sub-draft", UserId: "ext-s1", State: "CREATED"},
	}
	f := newSyncFixture(t, client)

	result, err := f.svc.Run(context.Background(), f.owner.ID)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.SubmissionsSynced != 0 {
		t.Fatalf("expected no submissions, got %d", result.SubmissionsSynced)
	}
	var count int64
	f.gdb.Model(&types.Submission{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no submission rows, got %d", count)
	}
}

// scenarioC: one standalone multiple-choice question and one turned-in answer.
func scenarioC() *fakeClassroomClient {
	client := scenarioA()
	client.courseWork["c1"] = []*classroom.CourseWork{{
		Id:       "q-cw1",
		Title:    "Pop quiz",
		WorkType: "MULTIPLE_CHOICE_QUESTION",
		State:    "PUBLISHED",
		MultipleChoiceQuestion: &classroom.MultipleChoiceQuestion{
			Choices: []string{"Mitochondria", "Chloroplast"},
		},
	}}
	client.rubrics = nil
	client.submissions = map[string][]*classroom.StudentSubmission{
		"c1/q-cw1": {{
			Id:     "qsub1",
			UserId: "ext-s1",
			State:  "TURNED_IN",
			MultipleChoiceSubmission: &classroom.MultipleChoiceSubmission{
				Answer: "Mitochondria",
			},
			SubmissionHistory: []*classroom.SubmissionHistory{
				{StateHistory: &classroom.StateHistory{State: "TURNED_IN", StateTimestamp: "2026-08-21T10:00:00Z"}},
			},
		}},
	}
	return client
}

func TestSyncRun_ScenarioC_StandaloneQuestionBecomesQuiz(t *testing.T) {
	f := newSyncFixture(t, scenarioC())

	result, err := f.svc.Run(context.Background(), f.owner.ID)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.QuizzesSynced != 1 {
		t.Fatalf("expected 1 quiz, got %d", result.QuizzesSynced)
	}
	if result.AssignmentsSynced != 0 {
		t.Fatalf("question coursework must not become an assignment: %+v", result)
	}

	quizzes, err := f.quizRepo.GetByExternalIDs(context.Background(), nil, []string{"q-cw1"})
	if err != nil || len(quizzes) != 1 {
		t.Fatalf("quiz not stored: %v", err)
	}
	var questions []types.QuizQuestion
	if err := json.Unmarshal(quizzes[0].Questions, &questions); err != nil || len(questions) != 1 {
		t.Fatalf("unexpected questions: %v %+v", err, questions)
	}
	if questions[0].Type != types.QuestionTypeMultipleChoice || len(questions[0].Options) != 2 {
		t.Fatalf("unexpected question: %+v", questions[0])
	}

	var attempts []*types.QuizAttempt
	if err := f.gdb.Find(&attempts).Error; err != nil || len(attempts) != 1 {
		t.Fatalf("expected 1 attempt: %v %d", err, len(attempts))
	}
	var answers map[string]string
	if err := json.Unmarshal(attempts[0].Answers, &answers); err != nil {
		t.Fatalf("failed to decode answers: %v", err)
	}
	if answers["q-cw1"] != "Mitochondria" {
		t.Fatalf("unexpected answers: %v", answers)
	}
}

// scenarioD: a form-backed quiz with two graded questions. The coursework
// carries no MaxPoints and the turned-in submission has no inline answer
// shape, which is how the Classroom API reports form responses.
func scenarioD() *fakeClassroomClient {
	client := scenarioA()
	client.courseWork["c1"] = []*classroom.CourseWork{{
		Id:       "form-cw1",
		Title:    "Unit Quiz",
		WorkType: "ASSIGNMENT",
		State:    "PUBLISHED",
		Materials: []*classroom.Material{
			{Form: &classroom.Form{FormUrl: "https://docs.google.com/forms/d/form-1/viewform"}},
		},
	}}
	client.rubrics = nil
	client.forms = map[string]*forms.Form{
		"form-1": {Items: []*forms.Item{
			{ItemId: "fq1", Title: "Name an organelle", QuestionItem: &forms.QuestionItem{Question: &forms.Question{
				TextQuestion: &forms.TextQuestion{},
				Grading:      &forms.Grading{PointValue: 2},
			}}},
			{ItemId: "fq2", Title: "Pick one", QuestionItem: &forms.QuestionItem{Question: &forms.Question{
				ChoiceQuestion: &forms.ChoiceQuestion{Options: []*forms.Option{{Value: "A"}, {Value: "B"}}},
				Grading:        &forms.Grading{PointValue: 2},
			}}},
		}},
	}
	client.submissions = map[string][]*classroom.StudentSubmission{
		"c1/form-cw1": {{
			Id:     "fsub1",
			UserId: "ext-s1",
			State:  "TURNED_IN",
			SubmissionHistory: []*classroom.SubmissionHistory{
				{StateHistory: &classroom.StateHistory{State: "TURNED_IN", StateTimestamp: "2026-08-22T10:00:00Z"}},
			},
		}},
	}
	return client
}

func TestSyncRun_ScenarioD_FormQuizScoresSumOfQuestionPoints(t *testing.T) {
	f := newSyncFixture(t, scenarioD())

	result, err := f.svc.Run(context.Background(), f.owner.ID)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.QuizzesSynced != 1 {
		t.Fatalf("expected 1 quiz, got %d", result.QuizzesSynced)
	}

	var attempts []*types.QuizAttempt
	if err := f.gdb.Find(&attempts).Error; err != nil || len(attempts) != 1 {
		t.Fatalf("expected 1 attempt: %v %d", err, len(attempts))
	}
	if attempts[0].MaxScore != 4 {
		t.Fatalf("expected max score 4 from the question points, got %v", attempts[0].MaxScore)
	}
}

func TestSyncRun_AttemptWithoutAnswerShapeRecordsNull(t *testing.T) {
	f := newSyncFixture(t, scenarioD())

	if _, err := f.svc.Run(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	var attempts []*types.QuizAttempt
	if err := f.gdb.Find(&attempts).Error; err != nil || len(attempts) != 1 {
		t.Fatalf("expected 1 attempt: %v %d", err, len(attempts))
	}
	var answers map[string]*string
	if err := json.Unmarshal(attempts[0].Answers, &answers); err != nil {
		t.Fatalf("failed to decode answers: %v", err)
	}
	val, ok := answers["fq1"]
	if !ok {
		t.Fatalf("expected an entry for the first question, got %v", answers)
	}
	if val != nil {
		t.Fatalf("missing answer shape must record null, got %q", *val)
	}
}

func TestSyncRun_QuizAttemptsNotDuplicatedAcrossRuns(t *testing.T) {
	f := newSyncFixture(t, scenarioC())

	if _, err := f.svc.Run(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	result, err := f.svc.Run(context.Background(), f.owner.ID)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result.SubmissionsSynced != 0 {
		t.Fatalf("expected no new attempts, got %d", result.SubmissionsSynced)
	}

	var count int64
	f.gdb.Model(&types.QuizAttempt{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 attempt row, got %d", count)
	}
}

func TestSyncRun_PerCourseErrorIsolation(t *testing.T) {
	client := scenarioA()
	client.courses = append(client.courses, &classroom.Course{
		Id: "c2", Name: "Broken", CourseState: "ACTIVE",
	})
	client.failRoster = map[string]bool{"c2": true}
	f := newSyncFixture(t, client)

	result, err := f.svc.Run(context.Background(), f.owner.ID)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Total != 2 || result.Synced != 1 || result.Errors != 1 {
		t.Fatalf("expected one good and one errored course: %+v", result)
	}

	status, _ := f.svc.Status(context.Background(), f.owner.ID)
	if status.SyncStatus != types.SyncStatusCompleted {
		t.Fatalf("per-course errors must not fail the run: %q", status.SyncStatus)
	}
}

func TestSyncRun_ConflictWhileInProgress(t *testing.T) {
	f := newSyncFixture(t, scenarioA())

	if err := f.integrationRepo.UpdateFields(context.Background(), nil, f.integration.ID, map[string]interface{}{
		"sync_status": types.SyncStatusInProgress,
	}); err != nil {
		t.Fatalf("failed to mark in progress: %v", err)
	}

	_, err := f.svc.Run(context.Background(), f.owner.ID)
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
}

func TestSyncRun_NoIntegration(t *testing.T) {
	f := newSyncFixture(t, scenarioA())
	_, err := f.svc.Run(context.Background(), uuid.New())
	if !errors.Is(err, ErrNoIntegration) {
		t.Fatalf("expected ErrNoIntegration, got %v", err)
	}
}

func TestSyncRun_TokenRefreshFailureMarksError(t *testing.T) {
	f := newSyncFixture(t, scenarioA())

	// Expire the token and point refresh at a dead endpoint.
	if err := f.integrationRepo.UpdateFields(context.Background(), nil, f.integration.ID, map[string]interface{}{
		"token_expires_at": time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("failed to expire token: %v", err)
	}

	tokens := NewTokenService(f.gdb, f.log, f.integrationRepo, "cid", "secret", "http://127.0.0.1:1/token")
	identity := NewIdentityService(f.gdb, f.log, f.userRepo, f.profileRepo, f.courseRepo)
	rubrics := NewRubricService(f.gdb, f.log, repos.NewRubricRepo(f.gdb, f.log))
	svc := NewSyncService(
		f.gdb, f.log,
		f.integrationRepo, f.courseRepo, f.enrollmentRepo,
		f.assignmentRepo, f.submissionRepo,
		f.quizRepo, f.attemptRepo,
		f.forumRepo, f.messageRepo, f.profileRepo,
		tokens, identity, rubrics,
		func(ctx context.Context, accessToken string) (gcp.ClassroomClient, error) {
			return scenarioA(), nil
		}, nil,
	)

	_, err := svc.Run(context.Background(), f.owner.ID)
	if !errors.Is(err, ErrTokenRefresh) {
		t.Fatalf("expected ErrTokenRefresh, got %v", err)
	}

	status, _ := svc.Status(context.Background(), f.owner.ID)
	if status.SyncStatus != types.SyncStatusError {
		t.Fatalf("expected error status, got %q", status.SyncStatus)
	}
}

func TestResolveStudent_EmailMatchAttachesExternalIdentity(t *testing.T) {
	f := newSyncFixture(t, scenarioA())

	// Pre-existing local account with the student's email but no external id.
	existing := f.seedOwner(t, "alice@school.edu")

	if _, err := f.svc.Run(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	profiles, err := f.profileRepo.GetByUserIDs(context.Background(), nil, []uuid.UUID{existing.ID})
	if err != nil || len(profiles) != 1 {
		t.Fatalf("failed to reload profile: %v", err)
	}
	if profiles[0].ExternalUserID != "ext-s1" {
		t.Fatalf("external identity not attached: %+v", profiles[0])
	}
	if profiles[0].Role != types.RoleStudent {
		t.Fatalf("matched non-owner account must become a student, got %q", profiles[0].Role)
	}

	var userCount int64
	f.gdb.Model(&types.User{}).Count(&userCount)
	if userCount != 2 {
		t.Fatalf("no new account should be provisioned, got %d users", userCount)
	}
}

func TestSyncAnnouncements_BackfillsMissingAuthorName(t *testing.T) {
	client := scenarioA()
	client.announcements["c1"] = []*classroom.Announcement{{
		Id:            "ann-author",
		Text:          "Field trip Friday",
		CreatorUserId: "ext-author",
		State:         "PUBLISHED",
		CreationTime:  "2026-08-19T09:00:00Z",
	}}
	client.profiles["ext-author"] = &classroom.UserProfile{
		Id:           "ext-author",
		EmailAddress: "coach@school.edu",
		Name:         &classroom.Name{GivenName: "Sam", FamilyName: "Ito", FullName: "Sam Ito"},
	}
	f := newSyncFixture(t, client)

	// The author already has a local account, but the profile never got a
	// display name.
	author := &types.User{ID: uuid.New(), Email: "coach@school.edu", Password: "x"}
	if _, err := f.userRepo.Create(context.Background(), nil, []*types.User{author}); err != nil {
		t.Fatalf("failed to seed author: %v", err)
	}
	profile := &types.Profile{
		ID:             uuid.New(),
		UserID:         author.ID,
		Role:           types.RoleStudent,
		ExternalUserID: "ext-author",
	}
	if _, err := f.profileRepo.Create(context.Background(), nil, []*types.Profile{profile}); err != nil {
		t.Fatalf("failed to seed author profile: %v", err)
	}

	if _, err := f.svc.Run(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	reloaded, err := f.profileRepo.GetByExternalUserIDs(context.Background(), nil, []string{"ext-author"})
	if err != nil || len(reloaded) != 1 {
		t.Fatalf("failed to reload author profile: %v", err)
	}
	if reloaded[0].FullName != "Sam Ito" {
		t.Fatalf("expected the display name to be backfilled, got %q", reloaded[0].FullName)
	}

	messages := []*types.ForumMessage{}
	if err := f.gdb.Where("external_announcement_id = ?", "ann-author").Find(&messages).Error; err != nil || len(messages) != 1 {
		t.Fatalf("announcement not stored: %v", err)
	}
	if messages[0].AuthorID != author.ID {
		t.Fatalf("expected the announcement attributed to its author, got %+v", messages[0])
	}
}

func TestProvisionedStudentHasUnusableEmailFallback(t *testing.T) {
	client := scenarioA()
	client.students["c1"][0].Profile.EmailAddress = ""
	client.profiles["ext-s1"].EmailAddress = ""
	f := newSyncFixture(t, client)

	if _, err := f.svc.Run(context.Background(), f.owner.ID); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	profiles, err := f.profileRepo.GetByExternalUserIDs(context.Background(), nil, []string{"ext-s1"})
	if err != nil || len(profiles) != 1 {
		t.Fatalf("student not provisioned: %v", err)
	}
	users, err := f.userRepo.GetByIDs(context.Background(), nil, []uuid.UUID{profiles[0].UserID})
	if err != nil || len(users) != 1 {
		t.Fatalf("failed to load provisioned user: %v", err)
	}
	if !strings.HasSuffix(users[0].Email, "@classroom.local") {
		t.Fatalf("expected fallback email, got %q", users[0].Email)
	}
}
