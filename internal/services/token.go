package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/repos"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

// ErrTokenRefresh marks an OAuth refresh failure. It is fatal to a sync run:
// the caller must mark the integration errored and abort.
var ErrTokenRefresh = errors.New("auth refresh failed")

// Refresh slightly before the recorded expiry so a token doesn't die mid-run.
const tokenExpirySlack = 60 * time.Second

type TokenService interface {
	EnsureFresh(ctx context.Context, integration *types.Integration) (string, bool, error)
}

type tokenService struct {
	db              *gorm.DB
	log             *logger.Logger
	integrationRepo repos.IntegrationRepo
	conf            *oauth2.Config
	now             func() time.Time
}

// NewTokenService wires the Google OAuth refresh grant. tokenURL is only
// overridden by tests; empty means the real Google endpoint.
func NewTokenService(db *gorm.DB, log *logger.Logger, integrationRepo repos.IntegrationRepo, clientID, clientSecret, tokenURL string) TokenService {
	serviceLog := log.With("service", "TokenService")
	endpoint := google.Endpoint
	if tokenURL != "" {
		endpoint = oauth2.Endpoint{TokenURL: tokenURL}
	}
	return &tokenService{
		db:              db,
		log:             serviceLog,
		integrationRepo: integrationRepo,
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
		},
		now: time.Now,
	}
}

// EnsureFresh returns a usable access token for the integration, refreshing
// and persisting it when the stored one has expired. The refresh token is
// never rotated; only the access token and its expiry change.
func (ts *tokenService) EnsureFresh(ctx context.Context, integration *types.Integration) (string, bool, error) {
	if integration == nil {
		return "", false, fmt.Errorf("%w: no integration", ErrTokenRefresh)
	}

	if integration.AccessToken != "" && integration.TokenExpiresAt.After(ts.now().Add(tokenExpirySlack)) {
		return integration.AccessToken, false, nil
	}

	if integration.RefreshToken == "" {
		return "", false, fmt.Errorf("%w: integration has no refresh token", ErrTokenRefresh)
	}

	src := ts.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: integration.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		ts.log.Error("OAuth token refresh failed", "integration_id", integration.ID, "error", err)
		return "", false, fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}

	if err := ts.integrationRepo.UpdateFields(ctx, nil, integration.ID, map[string]interface{}{
		"access_token":     tok.AccessToken,
		"token_expires_at": tok.Expiry,
	}); err != nil {
		return "", false, fmt.Errorf("%w: persisting refreshed token: %v", ErrTokenRefresh, err)
	}

	integration.AccessToken = tok.AccessToken
	integration.TokenExpiresAt = tok.Expiry
	ts.log.Info("Refreshed classroom access token", "integration_id", integration.ID)
	return tok.AccessToken, true, nil
}
