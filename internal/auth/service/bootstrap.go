package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/store"
	"github.com/eduflowhub/eduflow/pkg/slogx"
)

var ErrBootstrapIncomplete = errors.New("bootstrap admin needs both an email and a password")

// BootstrapService creates the first administrator of an empty database.
type BootstrapService struct {
	Users *UserService

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// EnsureAdmin creates the configured administrator when no user exists yet.
// It reports whether an account was created. Without configuration it does
// nothing.
func (s *BootstrapService) EnsureAdmin(ctx context.Context) (bool, error) {
	l := slogx.FromContext(ctx)

	if s.AdminEmail == "" && s.AdminPassword == "" {
		return false, nil
	}
	if s.AdminEmail == "" || s.AdminPassword == "" {
		return false, ErrBootstrapIncomplete
	}

	// 1. Only an empty database is bootstrapped
	empty, err := s.Users.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	if !empty {
		l.Debug("users exist, skipping admin bootstrap")
		return false, nil
	}

	// 2. Create the administrator
	name := s.AdminName
	if name == "" {
		name = "Administrator"
	}
	u, err := s.Users.CreateUser(ctx, CreateUserInput{
		Name:     name,
		Email:    s.AdminEmail,
		Password: s.AdminPassword,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) || errors.Is(err, ErrEmailTaken) {
			return false, nil // another replica won
		}
		return false, err
	}

	l.Info("bootstrapped admin user", slog.String("admin_user_id", u.ID))
	return true, nil
}
