package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/gradebridge-backend/internal/repos"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

func seedIntegration(t *testing.T, integrationRepo repos.IntegrationRepo, integration *types.Integration) *types.Integration {
	t.Helper()
	integration.ID = uuid.New()
	integration.UserID = uuid.New()
	integration.Provider = types.ProviderGoogleClassroom
	if integration.SyncStatus == "" {
		integration.SyncStatus = types.SyncStatusPending
	}
	if _, err := integrationRepo.Create(context.Background(), nil, []*types.Integration{integration}); err != nil {
		t.Fatalf("failed to seed integration: %v", err)
	}
	return integration
}

func TestEnsureFresh_ShortCircuitsOnValidToken(t *testing.T) {
	gdb, log := newTestDB(t)
	integrationRepo := repos.NewIntegrationRepo(gdb, log)
	integration := seedIntegration(t, integrationRepo, &types.Integration{
		AccessToken:    "still-good",
		RefreshToken:   "refresh",
		TokenExpiresAt: time.Now().Add(time.Hour),
	})

	ts := NewTokenService(gdb, log, integrationRepo, "cid", "secret", "http://127.0.0.1:0/unreachable")
	token, refreshed, err := ts.EnsureFresh(context.Background(), integration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refreshed {
		t.Fatalf("expected no refresh for a valid token")
	}
	if token != "still-good" {
		t.Fatalf("unexpected token: %q", token)
	}
}

func TestEnsureFresh_RefreshesAndPersists(t *testing.T) {
	gdb, log := newTestDB(t)
	integrationRepo := repos.NewIntegrationRepo(gdb, log)
	integration := seedIntegration(t, integrationRepo, &types.Integration{
		AccessToken:    "expired",
		RefreshToken:   "refresh-1",
		TokenExpiresAt: time.Now().Add(-time.Hour),
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("bad token request: %v", err)
		}
		if got := r.Form.Get("refresh_token"); got != "refresh-1" {
			t.Fatalf("unexpected refresh token: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	ts := NewTokenService(gdb, log, integrationRepo, "cid", "secret", srv.URL)
	token, refreshed, err := ts.EnsureFresh(context.Background(), integration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !refreshed {
		t.Fatalf("expected a refresh")
	}
	if token != "fresh-token" {
		t.Fatalf("unexpected token: %q", token)
	}

	stored, err := integrationRepo.GetByUserIDs(context.Background(), nil, []uuid.UUID{integration.UserID})
	if err != nil || len(stored) == 0 {
		t.Fatalf("failed to reload integration: %v", err)
	}
	if stored[0].AccessToken != "fresh-token" {
		t.Fatalf("refreshed token not persisted: %q", stored[0].AccessToken)
	}
	if stored[0].RefreshToken != "refresh-1" {
		t.Fatalf("refresh token must never rotate, got %q", stored[0].RefreshToken)
	}
	if !stored[0].TokenExpiresAt.After(time.Now().Add(30 * time.Minute)) {
		t.Fatalf("expiry not persisted: %v", stored[0].TokenExpiresAt)
	}
}

func TestEnsureFresh_FailureSurfacesErrTokenRefresh(t *testing.T) {
	gdb, log := newTestDB(t)
	integrationRepo := repos.NewIntegrationRepo(gdb, log)
	integration := seedIntegration(t, integrationRepo, &types.Integration{
		AccessToken:    "expired",
		RefreshToken:   "revoked",
		TokenExpiresAt: time.Now().Add(-time.Hour),
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer srv.Close()

	ts := NewTokenService(gdb, log, integrationRepo, "cid", "secret", srv.URL)
	_, _, err := ts.EnsureFresh(context.Background(), integration)
	if !errors.Is(err, ErrTokenRefresh) {
		t.Fatalf("expected ErrTokenRefresh, got %v", err)
	}
}

func TestEnsureFresh_NoRefreshTokenFails(t *testing.T) {
	gdb, log := newTestDB(t)
	integrationRepo := repos.NewIntegrationRepo(gdb, log)
	integration := seedIntegration(t, integrationRepo, &types.Integration{
		TokenExpiresAt: time.Now().Add(-time.Hour),
	})

	ts := NewTokenService(gdb, log, integrationRepo, "cid", "secret", "http://127.0.0.1:0/unreachable")
	_, _, err := ts.EnsureFresh(context.Background(), integration)
	if !errors.Is(err, ErrTokenRefresh) {
		t.Fatalf("expected ErrTokenRefresh, got %v", err)
	}
}
