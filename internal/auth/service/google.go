package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/store"
	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/cryptox"
	"github.com/eduflowhub/eduflow/pkg/idx"
	"github.com/eduflowhub/eduflow/pkg/slogx"
)

var (
	ErrGoogleProfile         = apperr.BadRequest(apperr.CodeBadRequest, "Google account did not return an id and email")
	ErrGoogleEmailUnverified = apperr.Forbidden(apperr.CodeEmailNotVerified, "Google account email is not verified")
)

// LoginWithGoogle signs in the account linked to the Google subject,
// linking or creating one by email on first use. Google has verified the
// address, so a PENDING account reached this way is activated. An account
// whose address was never verified is claimed: whoever registered it did
// not prove they own the mailbox, so their password, role and sessions are
// discarded.
func (s *AuthService) LoginWithGoogle(ctx context.Context, p domain.GoogleProfile) (AuthResult, error) {
	l := slogx.FromContext(ctx)

	if strings.TrimSpace(p.Subject) == "" || strings.TrimSpace(p.Email) == "" {
		return AuthResult{}, ErrGoogleProfile
	}
	if !p.EmailVerified {
		return AuthResult{}, ErrGoogleEmailUnverified
	}

	u, err := s.findOrLinkGoogle(ctx, p)
	if err != nil {
		return AuthResult{}, err
	}

	if !u.CanLogin() {
		return AuthResult{}, ErrAccountInactive
	}

	pair, fingerprint, err := s.Tokens.IssuePair(u)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}
	if err := s.Store.Users().UpdateRefreshToken(ctx, u.ID, &fingerprint); err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	l.Info("user logged in with google", slog.String("user_id", u.ID))
	return AuthResult{User: public(u), Tokens: pair}, nil
}

func (s *AuthService) findOrLinkGoogle(ctx context.Context, p domain.GoogleProfile) (domain.User, error) {
	users := s.Store.Users()

	// 1. Already linked
	u, err := users.FindByGoogleID(ctx, p.Subject)
	if err == nil {
		if u.CanLogin() {
			return u, nil
		}
		return s.linkGoogle(ctx, u, p)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, apperr.Internal(err)
	}

	// 2. Existing password account with the same email
	u, err = users.FindByEmail(ctx, p.Email)
	if err == nil {
		return s.linkGoogle(ctx, u, p)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, apperr.Internal(err)
	}

	// 3. New account
	hash, err := s.unknownPassword()
	if err != nil {
		return domain.User{}, err
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name, _, _ = strings.Cut(p.Email, "@")
	}

	now := s.now()
	u = domain.User{
		ID:              idx.NewAt(now).String(),
		Name:            name,
		Email:           domain.NormalizeEmail(p.Email),
		PasswordHash:    hash,
		Avatar:          p.Picture,
		GoogleID:        p.Subject,
		Role:            domain.RoleStudent,
		Status:          domain.StatusActive,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, apperr.Internal(err)
	}
	return public(u), nil
}

// linkGoogle attaches the Google subject to an existing account found by
// email. Suspended and deactivated accounts are refused before anything
// changes.
func (s *AuthService) linkGoogle(ctx context.Context, u domain.User, p domain.GoogleProfile) (domain.User, error) {
	if u.Status == domain.StatusInactive || u.Status == domain.StatusSuspended {
		return domain.User{}, ErrAccountInactive
	}

	claim := !u.IsEmailVerified
	var hash string
	if claim {
		var err error
		if hash, err = s.unknownPassword(); err != nil {
			return domain.User{}, err
		}
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		users := tx.Users()
		if claim {
			if err := users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
				return err
			}
			student := domain.RoleStudent
			if _, err := users.UpdateFields(ctx, u.ID, domain.UserPatch{Role: &student}); err != nil {
				return err
			}
			if err := users.UpdateRefreshToken(ctx, u.ID, nil); err != nil {
				return err
			}
		}
		if err := users.LinkGoogleAccount(ctx, u.ID, p.Subject, p.Picture); err != nil {
			return err
		}
		if claim || u.Status == domain.StatusPending {
			return users.MarkEmailVerified(ctx, u.ID)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, updateError(err)
	}

	if claim {
		slogx.FromContext(ctx).Warn("unverified account claimed by google sign in",
			slog.String("user_id", u.ID),
			slog.String("previous_role", string(u.Role)),
		)
	}

	linked, err := s.Store.Users().FindByID(ctx, u.ID)
	if err != nil {
		return domain.User{}, userLookupError(err)
	}
	return linked, nil
}

// unknownPassword hashes a random password nobody is told, leaving Google
// as the only way in.
func (s *AuthService) unknownPassword() (string, error) {
	random, err := cryptox.GeneratePassword()
	if err != nil {
		return "", apperr.Internal(err)
	}
	hash, err := s.Passwords.Hash(random)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return hash, nil
}
