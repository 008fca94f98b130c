package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/repository"
)

// UserService manages the volunteer directory.
type UserService struct {
	users repository.UserStore
}

// NewUserService constructs a UserService.
func NewUserService(users repository.UserStore) *UserService {
	return &UserService{users: users}
}

// CreateUser adds an active volunteer. Role defaults to user and quota to
// DefaultMonthlyQuota.
func (s *UserService) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	u := &model.User{
		Username:          strings.TrimSpace(req.Username),
		Role:              strings.ToLower(strings.TrimSpace(req.Role)),
		MonthlyQuota:      model.DefaultMonthlyQuota,
		CompanionEligible: req.CompanionEligible,
		Active:            true,
	}
	if u.Username == "" {
		return nil, invalid(KindInvalidUserData, "username is required")
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if req.MonthlyQuota != nil {
		u.MonthlyQuota = *req.MonthlyQuota
	}
	if err := validateUser(u); err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUser returns a single volunteer.
func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.User(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns every volunteer ordered by username.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser applies a partial update. Lowering a quota does not evict the
// user from slots already held.
func (s *UserService) UpdateUser(ctx context.Context, id int64, patch model.UpdateUserRequest) (*model.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Role != nil {
		u.Role = strings.ToLower(strings.TrimSpace(*patch.Role))
	}
	if patch.MonthlyQuota != nil {
		u.MonthlyQuota = *patch.MonthlyQuota
	}
	if patch.CompanionEligible != nil {
		u.CompanionEligible = *patch.CompanionEligible
	}
	if patch.Active != nil {
		u.Active = *patch.Active
	}
	if err := validateUser(u); err != nil {
		return nil, err
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func validateUser(u *model.User) error {
	if u.Role != model.RoleAdmin && u.Role != model.RoleUser {
		return invalid(KindInvalidUserData, "role must be %q or %q", model.RoleAdmin, model.RoleUser)
	}
	if u.MonthlyQuota < 0 {
		return invalid(KindInvalidUserData, "monthly_quota cannot be negative")
	}
	return nil
}
