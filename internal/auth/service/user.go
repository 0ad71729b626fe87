package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/store"
	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/cryptox"
	"github.com/eduflowhub/eduflow/pkg/idx"
	"github.com/eduflowhub/eduflow/pkg/slogx"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type ListUsersInput struct {
	Role   domain.Role
	Status domain.Status
	Search string
	Page   int // 1-based
	Limit  int
}

type UserPage struct {
	Users []domain.User `json:"users"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Avatar   string
}

// UserUpdate is an administrative partial update.
type UserUpdate struct {
	Name   *string
	Email  *string
	Avatar *string
	Status *domain.Status
}

// UserService is the administrative side of account management.
type UserService struct {
	Store     store.Store
	Passwords cryptox.PasswordHasher
	Now       func() time.Time
}

func (s *UserService) ListUsers(ctx context.Context, in ListUsersInput) (UserPage, error) {
	page := max(in.Page, 1)
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	filter := domain.UserFilter{
		Role:   in.Role,
		Status: in.Status,
		Search: strings.TrimSpace(in.Search),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	users, err := s.Store.Users().List(ctx, filter)
	if err != nil {
		return UserPage{}, apperr.Internal(err)
	}
	total, err := s.Store.Users().Count(ctx, filter)
	if err != nil {
		return UserPage{}, apperr.Internal(err)
	}
	if users == nil {
		users = []domain.User{}
	}

	return UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().FindByID(ctx, id)
	if err != nil {
		return domain.User{}, userLookupError(err)
	}
	return u, nil
}

// CreateUser adds an account on an administrator's behalf. It starts ACTIVE
// and verified.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	if !in.Role.Valid() {
		return domain.User{}, apperr.Validation(map[string]string{"role": "must be student, teacher or admin"})
	}

	email := domain.NormalizeEmail(in.Email)
	if _, err := s.Store.Users().FindByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, apperr.Internal(err)
	}

	hash, err := s.Passwords.Hash(in.Password)
	if err != nil {
		return domain.User{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	now := s.now()
	u := domain.User{
		ID:              idx.NewAt(now).String(),
		Name:            strings.TrimSpace(in.Name),
		Email:           email,
		PasswordHash:    hash,
		Avatar:          strings.TrimSpace(in.Avatar),
		Role:            in.Role,
		Status:          domain.StatusActive,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, apperr.Internal(err)
	}

	slogx.FromContext(ctx).Info("user created by admin",
		slog.String("user_id", u.ID),
		slog.String("role", string(u.Role)),
	)
	return public(u), nil
}

// UpdateUser applies an administrative update. Setting status ACTIVE also
// marks the email verified.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UserUpdate) (domain.User, error) {
	if in.Status != nil && !in.Status.Valid() {
		return domain.User{}, apperr.Validation(map[string]string{"status": "unknown status"})
	}

	patch := domain.UserPatch{
		Name:   trimmed(in.Name),
		Email:  in.Email,
		Avatar: trimmed(in.Avatar),
		Status: in.Status,
	}
	if patch.Empty() {
		return s.GetUser(ctx, id)
	}
	if err := ensureEmailFree(ctx, s.Store.Users(), id, patch.Email); err != nil {
		return domain.User{}, err
	}

	u, err := s.Store.Users().UpdateFields(ctx, id, patch)
	if err != nil {
		return domain.User{}, updateError(err)
	}
	return u, nil
}

func (s *UserService) UpdateUserStatus(ctx context.Context, id string, status domain.Status) (domain.User, error) {
	u, err := s.UpdateUser(ctx, id, UserUpdate{Status: &status})
	if err != nil {
		return domain.User{}, err
	}
	slogx.FromContext(ctx).Info("user status changed",
		slog.String("user_id", id),
		slog.String("status", string(status)),
	)
	return u, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.Store.Users().Delete(ctx, id); err != nil {
		return userLookupError(err)
	}
	slogx.FromContext(ctx).Info("user deleted", slog.String("user_id", id))
	return nil
}

func (s *UserService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
