package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/tokokita/api/internal/domain"
	"github.com/tokokita/api/internal/repositories"
)

var (
	// ErrUserInvalidInput signals the caller provided invalid data.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates no profile exists for the user.
	ErrUserNotFound = errors.New("user: not found")
)

// UserServiceDeps bundles collaborators required to construct a UserService.
type UserServiceDeps struct {
	Users  repositories.UserRepository
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type userService struct {
	users  repositories.UserRepository
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewUserService wires dependencies into a concrete UserService implementation.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &userService{
		users:  deps.Users,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return domain.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return domain.User{}, fmt.Errorf("user: load: %w", err)
	}
	return user, nil
}

// SyncProfile upserts the profile asserted by the identity token. The
// customer role is assumed when the token carries none; an existing role is
// never downgraded by a token without one.
func (s *userService) SyncProfile(ctx context.Context, cmd SyncProfileCommand) (domain.User, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}

	role := cmd.Role
	createdAt := s.clock()
	existing, err := s.users.FindByID(ctx, userID)
	switch {
	case err == nil:
		createdAt = existing.CreatedAt
		if role == "" {
			role = existing.Role
		}
	case isNotFound(err):
		if role == "" {
			role = domain.RoleCustomer
		}
	default:
		return domain.User{}, fmt.Errorf("user: load: %w", err)
	}

	user := domain.User{
		ID:        userID,
		Name:      strings.TrimSpace(cmd.Name),
		Email:     strings.TrimSpace(cmd.Email),
		Role:      role,
		CreatedAt: createdAt,
	}
	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("user: save: %w", err)
	}

	s.logger(ctx, "user.profile.synced", map[string]any{
		"user": saved.ID,
		"role": string(saved.Role),
	})
	return saved, nil
}
