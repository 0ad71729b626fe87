package service

import (
	"context"
	"testing"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/stretchr/testify/require"
)

func TestLoginWithGoogle(t *testing.T) {
	ctx := context.Background()

	profile := domain.GoogleProfile{
		Subject:       "google-123",
		Email:         "Lan@Gmail.com",
		EmailVerified: true,
		Name:          "Lan",
		Picture:       "https://lh3.googleusercontent.com/lan",
	}

	t.Run("first sign in creates an active student", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.auth.LoginWithGoogle(ctx, profile)
		require.NoError(t, err)
		require.Equal(t, "lan@gmail.com", res.User.Email)
		require.Equal(t, domain.RoleStudent, res.User.Role)
		require.Equal(t, domain.StatusActive, res.User.Status)
		require.True(t, res.User.IsEmailVerified)
		require.Equal(t, profile.Picture, res.User.Avatar)
		require.Empty(t, res.User.PasswordHash)

		again, err := f.auth.LoginWithGoogle(ctx, profile)
		require.NoError(t, err)
		require.Equal(t, res.User.ID, again.User.ID)

		// Only the newest session's refresh token is valid.
		_, err = f.auth.RefreshToken(ctx, res.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
		_, err = f.auth.RefreshToken(ctx, again.Tokens.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("claims an unverified registration", func(t *testing.T) {
		f := newFixture(t)
		squatter, err := f.auth.Register(ctx, RegisterInput{
			Name:     "Squatter",
			Email:    "lan@gmail.com",
			Password: password,
			Role:     domain.RoleTeacher,
		})
		require.NoError(t, err)
		pendingCode := f.mailer.lastCode(t, "lan@gmail.com")

		res, err := f.auth.LoginWithGoogle(ctx, profile)
		require.NoError(t, err)
		require.Equal(t, squatter.User.ID, res.User.ID)
		require.Equal(t, domain.StatusActive, res.User.Status)
		require.Equal(t, domain.RoleStudent, res.User.Role)
		require.True(t, res.User.IsEmailVerified)

		linked, err := f.store.Users().FindByGoogleID(ctx, "google-123")
		require.NoError(t, err)
		require.Equal(t, squatter.User.ID, linked.ID)
		require.Equal(t, profile.Picture, linked.Avatar)

		// Nothing the registrant held still opens the account.
		_, err = f.auth.Login(ctx, "lan@gmail.com", password)
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = f.auth.RefreshToken(ctx, squatter.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
		_, err = f.auth.VerifyEmail(ctx, pendingCode)
		require.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("links a verified account and keeps its password", func(t *testing.T) {
		f := newFixture(t)
		owner := activeUser(t, f, "lan@gmail.com")

		res, err := f.auth.LoginWithGoogle(ctx, profile)
		require.NoError(t, err)
		require.Equal(t, owner.User.ID, res.User.ID)
		require.Equal(t, owner.User.Role, res.User.Role)

		_, err = f.auth.Login(ctx, "lan@gmail.com", password)
		require.NoError(t, err)
	})

	t.Run("linked account set back to pending is reactivated", func(t *testing.T) {
		f := newFixture(t)
		first, err := f.auth.LoginWithGoogle(ctx, profile)
		require.NoError(t, err)
		_, err = f.users.UpdateUserStatus(ctx, first.User.ID, domain.StatusPending)
		require.NoError(t, err)

		res, err := f.auth.LoginWithGoogle(ctx, profile)
		require.NoError(t, err)
		require.Equal(t, domain.StatusActive, res.User.Status)
	})

	t.Run("suspended account is refused", func(t *testing.T) {
		f := newFixture(t)
		reg := register(t, f, "lan@gmail.com")
		_, err := f.users.UpdateUserStatus(ctx, reg.User.ID, domain.StatusSuspended)
		require.NoError(t, err)

		_, err = f.auth.LoginWithGoogle(ctx, profile)
		require.ErrorIs(t, err, ErrAccountInactive)

		u, err := f.store.Users().FindByEmail(ctx, "lan@gmail.com")
		require.NoError(t, err)
		require.Empty(t, u.GoogleID, "a refused sign in links nothing")
	})

	t.Run("unverified google email", func(t *testing.T) {
		f := newFixture(t)
		p := profile
		p.EmailVerified = false
		_, err := f.auth.LoginWithGoogle(ctx, p)
		require.ErrorIs(t, err, ErrGoogleEmailUnverified)
	})

	t.Run("incomplete profile", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.auth.LoginWithGoogle(ctx, domain.GoogleProfile{Email: "x@y.z", EmailVerified: true})
		require.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	})
}
