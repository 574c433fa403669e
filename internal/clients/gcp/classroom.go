package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	classroom "google.golang.org/api/classroom/v1"
	forms "google.golang.org/api/forms/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/yungbote/gradebridge-backend/internal/logger"
)

const pageSize = 100

// ClassroomClient wraps the Classroom and Forms APIs for one access token.
// Every list call drains all pages before returning; callers never see a
// partial page.
type ClassroomClient interface {
	ListCourses(ctx context.Context) ([]*classroom.Course, error)
	ListStudents(ctx context.Context, courseID string) ([]*classroom.Student, error)
	ListCourseWork(ctx context.Context, courseID string) ([]*classroom.CourseWork, error)
	GetCourseWork(ctx context.Context, courseID, courseWorkID string) (*classroom.CourseWork, error)
	ListSubmissions(ctx context.Context, courseID, courseWorkID string) ([]*classroom.StudentSubmission, error)
	GetRubric(ctx context.Context, courseID, courseWorkID string) (*classroom.Rubric, error)
	ListAnnouncements(ctx context.Context, courseID string) ([]*classroom.Announcement, error)
	GetUserProfile(ctx context.Context, userID string) (*classroom.UserProfile, error)
	GetForm(ctx context.Context, formID string) (*forms.Form, error)
	CreateCourseWork(ctx context.Context, courseID string, courseWork *classroom.CourseWork) (*classroom.CourseWork, error)
	PatchSubmissionGrade(ctx context.Context, courseID, courseWorkID, submissionID string, assignedGrade, draftGrade float64) (*classroom.StudentSubmission, error)
	ReturnSubmission(ctx context.Context, courseID, courseWorkID, submissionID string) error
}

type classroomClient struct {
	log      *logger.Logger
	svc      *classroom.Service
	formsSvc *forms.Service
}

// NewClassroomClient builds a client bound to one user's access token. Extra
// options are appended after the token source so tests can override the
// endpoint.
func NewClassroomClient(ctx context.Context, log *logger.Logger, accessToken string, extraOpts ...option.ClientOption) (ClassroomClient, error) {
	clientLog := log.With("client", "ClassroomClient")

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, extraOpts...)

	svc, err := classroom.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create classroom service: %w", err)
	}
	formsSvc, err := forms.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create forms service: %w", err)
	}

	return &classroomClient{log: clientLog, svc: svc, formsSvc: formsSvc}, nil
}

func (cc *classroomClient) ListCourses(ctx context.Context) ([]*classroom.Course, error) {
	var all []*classroom.Course
	pageToken := ""
	for {
		call := cc.svc.Courses.List().
			CourseStates("ACTIVE", "ARCHIVED").
			PageSize(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list courses: %w", err)
		}
		all = append(all, resp.Courses...)
		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (cc *classroomClient) ListStudents(ctx context.Context, courseID string) ([]*classroom.Student, error) {
	var all []*classroom.Student
	pageToken := ""
	for {
		call := cc.svc.Courses.Students.List(courseID).
			PageSize(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list students for course %s: %w", courseID, err)
		}
		all = append(all, resp.Students...)
		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (cc *classroomClient) ListCourseWork(ctx context.Context, courseID string) ([]*classroom.CourseWork, error) {
	var all []*classroom.CourseWork
	pageToken := ""
	for {
		call := cc.svc.Courses.CourseWork.List(courseID).
			PageSize(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list coursework for course %s: %w", courseID, err)
		}
		all = append(all, resp.CourseWork...)
		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (cc *classroomClient) GetCourseWork(ctx context.Context, courseID, courseWorkID string) (*classroom.CourseWork, error) {
	cw, err := cc.svc.Courses.CourseWork.Get(courseID, courseWorkID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get coursework %s/%s: %w", courseID, courseWorkID, err)
	}
	return cw, nil
}

func (cc *classroomClient) ListSubmissions(ctx context.Context, courseID, courseWorkID string) ([]*classroom.StudentSubmission, error) {
	var all []*classroom.StudentSubmission
	pageToken := ""
	for {
		call := cc.svc.Courses.CourseWork.StudentSubmissions.List(courseID, courseWorkID).
			PageSize(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list submissions for coursework %s/%s: %w", courseID, courseWorkID, err)
		}
		all = append(all, resp.StudentSubmissions...)
		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

// GetRubric returns the first rubric attached to the coursework item, or nil
// when none exists. Coursework carries at most one rubric.
func (cc *classroomClient) GetRubric(ctx context.Context, courseID, courseWorkID string) (*classroom.Rubric, error) {
	resp, err := cc.svc.Courses.CourseWork.Rubrics.List(courseID, courseWorkID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list rubrics for coursework %s/%s: %w", courseID, courseWorkID, err)
	}
	if len(resp.Rubrics) == 0 {
		return nil, nil
	}
	return resp.Rubrics[0], nil
}

func (cc *classroomClient) ListAnnouncements(ctx context.Context, courseID string) ([]*classroom.Announcement, error) {
	var all []*classroom.Announcement
	pageToken := ""
	for {
		call := cc.svc.Courses.Announcements.List(courseID).
			PageSize(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list announcements for course %s: %w", courseID, err)
		}
		all = append(all, resp.Announcements...)
		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (cc *classroomClient) GetUserProfile(ctx context.Context, userID string) (*classroom.UserProfile, error) {
	profile, err := cc.svc.UserProfiles.Get(userID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get user profile %s: %w", userID, err)
	}
	return profile, nil
}

func (cc *classroomClient) GetForm(ctx context.Context, formID string) (*forms.Form, error) {
	form, err := cc.formsSvc.Forms.Get(formID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get form %s: %w", formID, err)
	}
	return form, nil
}

func (cc *classroomClient) CreateCourseWork(ctx context.Context, courseID string, courseWork *classroom.CourseWork) (*classroom.CourseWork, error) {
	created, err := cc.svc.Courses.CourseWork.Create(courseID, courseWork).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create coursework in course %s: %w", courseID, err)
	}
	return created, nil
}

func (cc *classroomClient) PatchSubmissionGrade(ctx context.Context, courseID, courseWorkID, submissionID string, assignedGrade, draftGrade float64) (*classroom.StudentSubmission, error) {
	patch := &classroom.StudentSubmission{
		AssignedGrade:   assignedGrade,
		DraftGrade:      draftGrade,
		ForceSendFields: []string{"AssignedGrade", "DraftGrade"},
	}
	updated, err := cc.svc.Courses.CourseWork.StudentSubmissions.
		Patch(courseID, courseWorkID, submissionID, patch).
		UpdateMask("assignedGrade,draftGrade").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("patch grade for submission %s/%s/%s: %w", courseID, courseWorkID, submissionID, err)
	}
	return updated, nil
}

// ReturnSubmission hands the submission back to the student. The API responds
// with an empty body, which is a valid success.
func (cc *classroomClient) ReturnSubmission(ctx context.Context, courseID, courseWorkID, submissionID string) error {
	_, err := cc.svc.Courses.CourseWork.StudentSubmissions.
		Return(courseID, courseWorkID, submissionID, &classroom.ReturnStudentSubmissionRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("return submission %s/%s/%s: %w", courseID, courseWorkID, submissionID, err)
	}
	return nil
}

// IsNotFound reports whether err is an HTTP 404 from the Google APIs. Rubric
// and forms lookups treat 404 as "feature not in use", not a failure.
func IsNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// StatusCode extracts the HTTP status carried by a Google API error, or 0.
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
