package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/gradebridge-backend/internal/repos"
	"github.com/yungbote/gradebridge-backend/internal/requestdata"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

func TestAuthRoundTrip(t *testing.T) {
	gdb, log := newTestDB(t)
	userRepo := repos.NewUserRepo(gdb, log)
	profileRepo := repos.NewProfileRepo(gdb, log)
	as := NewAuthService(gdb, log, userRepo, profileRepo, "test-secret", time.Hour)

	user := &types.User{
		Email:     "Teacher@Example.com",
		Password:  "hunter22",
		FirstName: "Pat",
		LastName:  "Rivera",
	}
	if err := as.RegisterUser(context.Background(), user); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Registration creates a teacher profile.
	profiles, err := profileRepo.GetByUserIDs(context.Background(), nil, []uuid.UUID{user.ID})
	if err != nil || len(profiles) != 1 {
		t.Fatalf("profile missing: %v", err)
	}
	if profiles[0].Role != types.RoleTeacher {
		t.Fatalf("expected teacher role, got %q", profiles[0].Role)
	}

	token, err := as.LoginUser(context.Background(), "teacher@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	ctx, err := as.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("token validation failed: %v", err)
	}
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID != user.ID {
		t.Fatalf("unexpected request data: %+v", rd)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	gdb, log := newTestDB(t)
	userRepo := repos.NewUserRepo(gdb, log)
	profileRepo := repos.NewProfileRepo(gdb, log)
	as := NewAuthService(gdb, log, userRepo, profileRepo, "test-secret", time.Hour)

	user := &types.User{Email: "t@example.com", Password: "correct"}
	if err := as.RegisterUser(context.Background(), user); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := as.LoginUser(context.Background(), "t@example.com", "wrong"); err == nil {
		t.Fatalf("expected login failure")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	gdb, log := newTestDB(t)
	userRepo := repos.NewUserRepo(gdb, log)
	profileRepo := repos.NewProfileRepo(gdb, log)
	as := NewAuthService(gdb, log, userRepo, profileRepo, "test-secret", time.Hour)

	if err := as.RegisterUser(context.Background(), &types.User{Email: "dup@example.com", Password: "a"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := as.RegisterUser(context.Background(), &types.User{Email: "dup@example.com", Password: "b"}); err == nil {
		t.Fatalf("expected duplicate email rejection")
	}
}
