package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	classroom "google.golang.org/api/classroom/v1"
	"gorm.io/gorm"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/repos"
	"github.com/yungbote/gradebridge-backend/internal/types"
)

// ErrCourseOwnedElsewhere means the external course already belongs to a
// different local user. The course is skipped, never reassigned.
var ErrCourseOwnedElsewhere = errors.New("course already owned by another user")

// ExternalStudent is the identity material the resolver needs, regardless of
// whether it came from a roster entry or a user profile lookup.
type ExternalStudent struct {
	ExternalUserID string
	Email          string
	FirstName      string
	LastName       string
	FullName       string
}

type IdentityService interface {
	ResolveStudent(ctx context.Context, student ExternalStudent, ownerID uuid.UUID) (uuid.UUID, error)
	ResolveCourseOwnership(ctx context.Context, extCourse *classroom.Course, ownerID uuid.UUID) (uuid.UUID, bool, error)
}

type identityService struct {
	db          *gorm.DB
	log         *logger.Logger
	userRepo    repos.UserRepo
	profileRepo repos.ProfileRepo
	courseRepo  repos.CourseRepo
}

func NewIdentityService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, profileRepo repos.ProfileRepo, courseRepo repos.CourseRepo) IdentityService {
	serviceLog := log.With("service", "IdentityService")
	return &identityService{
		db:          db,
		log:         serviceLog,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		courseRepo:  courseRepo,
	}
}

// ResolveStudent maps an external classroom user to a local account id,
// provisioning a brand-new account on first sight. Resolution order:
//  1. profile matched by external user id
//  2. existing account matched by email
//  3. fresh account with a random unusable password
func (is *identityService) ResolveStudent(ctx context.Context, student ExternalStudent, ownerID uuid.UUID) (uuid.UUID, error) {
	if student.ExternalUserID == "" {
		return uuid.Nil, fmt.Errorf("external user id is required to resolve a student")
	}

	profiles, err := is.profileRepo.GetByExternalUserIDs(ctx, nil, []string{student.ExternalUserID})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up profile by external id: %w", err)
	}
	if len(profiles) > 0 {
		profile := profiles[0]
		fields := map[string]interface{}{}
		if name := student.displayName(); name != "" && profile.FullName != name {
			fields["full_name"] = name
		}
		if student.Email != "" && profile.ExternalEmail != student.Email {
			fields["external_email"] = student.Email
		}
		if len(fields) > 0 {
			if err := is.profileRepo.UpdateFields(ctx, nil, profile.ID, fields); err != nil {
				is.log.Warn("Failed to refresh resolved profile", "profile_id", profile.ID, "error", err)
			}
		}
		return profile.UserID, nil
	}

	if student.Email != "" {
		users, err := is.userRepo.GetByEmails(ctx, nil, []string{student.Email})
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to look up account by email: %w", err)
		}
		if len(users) > 0 {
			return is.adoptExistingAccount(ctx, users[0], student, ownerID)
		}
	}

	return is.provisionStudent(ctx, student)
}

// adoptExistingAccount attaches external identity to an account that matched
// by email. The syncing owner's own account keeps its role; any other
// account is marked as a student.
func (is *identityService) adoptExistingAccount(ctx context.Context, user *types.User, student ExternalStudent, ownerID uuid.UUID) (uuid.UUID, error) {
	profiles, err := is.profileRepo.GetByUserIDs(ctx, nil, []uuid.UUID{user.ID})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up profile for matched account: %w", err)
	}

	if len(profiles) == 0 {
		role := types.RoleStudent
		if user.ID == ownerID {
			role = types.RoleTeacher
		}
		profile := &types.Profile{
			ID:             uuid.New(),
			UserID:         user.ID,
			Role:           role,
			FullName:       student.displayName(),
			ExternalUserID: student.ExternalUserID,
			ExternalEmail:  student.Email,
		}
		if _, err := is.profileRepo.Create(ctx, nil, []*types.Profile{profile}); err != nil {
			return uuid.Nil, fmt.Errorf("failed to create profile for matched account: %w", err)
		}
		return user.ID, nil
	}

	profile := profiles[0]
	fields := map[string]interface{}{
		"external_user_id": student.ExternalUserID,
	}
	if student.Email != "" {
		fields["external_email"] = student.Email
	}
	if user.ID != ownerID && profile.Role != types.RoleStudent {
		fields["role"] = types.RoleStudent
	}
	if err := is.profileRepo.UpdateFields(ctx, nil, profile.ID, fields); err != nil {
		return uuid.Nil, fmt.Errorf("failed to attach external identity: %w", err)
	}
	return user.ID, nil
}

// provisionStudent creates the local login identity and its profile in one
// transaction. No database trigger is involved; the profile write is
// explicit.
func (is *identityService) provisionStudent(ctx context.Context, student ExternalStudent) (uuid.UUID, error) {
	email := student.Email
	if email == "" {
		email = fmt.Sprintf("student_%s@classroom.local", student.ExternalUserID)
	}

	// Random one-time password; nobody ever logs in with it.
	hashed, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash provisional password: %w", err)
	}

	name := student.displayName()
	if name == "" {
		name = "Student"
	}

	user := &types.User{
		ID:            uuid.New(),
		Email:         email,
		Password:      string(hashed),
		FirstName:     student.FirstName,
		LastName:      student.LastName,
		EmailVerified: true,
	}

	txErr := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := is.userRepo.Create(ctx, tx, []*types.User{user}); err != nil {
			return fmt.Errorf("failed to create student account: %w", err)
		}
		profile := &types.Profile{
			ID:             uuid.New(),
			UserID:         user.ID,
			Role:           types.RoleStudent,
			FullName:       name,
			ExternalUserID: student.ExternalUserID,
			ExternalEmail:  student.Email,
		}
		if _, err := is.profileRepo.Create(ctx, tx, []*types.Profile{profile}); err != nil {
			return fmt.Errorf("failed to create student profile: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return uuid.Nil, txErr
	}

	is.log.Info("Provisioned new student account", "external_user_id", student.ExternalUserID)
	return user.ID, nil
}

// ResolveCourseOwnership maps an external course to a local course row under
// the syncing owner. A course claimed by a different owner is never stolen.
// The bool result reports whether the local row was newly created.
func (is *identityService) ResolveCourseOwnership(ctx context.Context, extCourse *classroom.Course, ownerID uuid.UUID) (uuid.UUID, bool, error) {
	if extCourse == nil || extCourse.Id == "" {
		return uuid.Nil, false, fmt.Errorf("external course id is required")
	}

	existing, err := is.courseRepo.GetByExternalIDs(ctx, nil, []string{extCourse.Id})
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to look up course by external id: %w", err)
	}

	isNew := len(existing) == 0
	course := &types.Course{
		OwnerID:          ownerID,
		ExternalCourseID: extCourse.Id,
		Name:             extCourse.Name,
		Section:          extCourse.Section,
		Description:      extCourse.Description,
		Room:             extCourse.Room,
		EnrollmentCode:   extCourse.EnrollmentCode,
		AlternateLink:    extCourse.AlternateLink,
		IsActive:         extCourse.CourseState == "ACTIVE",
	}
	if isNew {
		course.ID = uuid.New()
	} else {
		if existing[0].OwnerID != ownerID {
			return uuid.Nil, false, ErrCourseOwnedElsewhere
		}
		course.ID = existing[0].ID
	}

	if err := is.courseRepo.Upsert(ctx, nil, course); err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to upsert course %s: %w", extCourse.Id, err)
	}
	return course.ID, isNew, nil
}

func (es ExternalStudent) displayName() string {
	if es.FullName != "" {
		return es.FullName
	}
	return strings.TrimSpace(es.FirstName + " " + es.LastName)
}
