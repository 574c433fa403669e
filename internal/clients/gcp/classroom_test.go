package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/option"

	"github.com/yungbote/gradebridge-backend/internal/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (ClassroomClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	client, err := NewClassroomClient(context.Background(), log, "test-token", option.WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	return client, srv
}

func TestListCourses_DrainsAllPages(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(w, `{"courses":[{"id":"c1","name":"First"}],"nextPageToken":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"courses":[{"id":"c2","name":"Second"}]}`)
		default:
			t.Fatalf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))

	courses, err := client.ListCourses(context.Background())
	if err != nil {
		t.Fatalf("list courses failed: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 courses across pages, got %d", len(courses))
	}
	if courses[0].Id != "c1" || courses[1].Id != "c2" {
		t.Fatalf("unexpected course order: %s, %s", courses[0].Id, courses[1].Id)
	}
}

func TestListSubmissions_DrainsAllPages(t *testing.T) {
	pagesServed := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"studentSubmissions":[{"id":"s1"},{"id":"s2"}],"nextPageToken":"next"}`)
			return
		}
		fmt.Fprint(w, `{"studentSubmissions":[{"id":"s3"}]}`)
	}))

	subs, err := client.ListSubmissions(context.Background(), "c1", "cw1")
	if err != nil {
		t.Fatalf("list submissions failed: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(subs))
	}
	if pagesServed != 2 {
		t.Fatalf("expected 2 pages served, got %d", pagesServed)
	}
}

func TestGetRubric_FirstOrNil(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"rubrics":[]}`)
	}))

	rubric, err := client.GetRubric(context.Background(), "c1", "cw1")
	if err != nil {
		t.Fatalf("get rubric failed: %v", err)
	}
	if rubric != nil {
		t.Fatalf("expected nil rubric, got %+v", rubric)
	}
}

func TestIsNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"not found"}}`)
	}))

	_, err := client.GetCourseWork(context.Background(), "c1", "missing")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected 404 detection, got %v", err)
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", StatusCode(err))
	}
}

func TestPatchSubmissionGrade_SendsUpdateMaskAndBody(t *testing.T) {
	var gotMask string
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMask = r.URL.Query().Get("updateMask")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"sub1","assignedGrade":21.5}`)
	}))

	updated, err := client.PatchSubmissionGrade(context.Background(), "c1", "cw1", "sub1", 21.5, 21.5)
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if gotMask != "assignedGrade,draftGrade" {
		t.Fatalf("unexpected update mask: %q", gotMask)
	}
	if gotBody["assignedGrade"] != 21.5 {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if updated.AssignedGrade != 21.5 {
		t.Fatalf("unexpected response grade: %v", updated.AssignedGrade)
	}
}
