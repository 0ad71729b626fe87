package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/store"
	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/cryptox"
	"github.com/eduflowhub/eduflow/pkg/idx"
	"github.com/eduflowhub/eduflow/pkg/slogx"
)

var (
	ErrEmailTaken         = apperr.Conflict(apperr.CodeEmailInUse, "Email already in use")
	ErrInvalidCredentials = apperr.Unauthorized(apperr.CodeInvalidCredentials, "Invalid email or password")
	ErrEmailNotVerified   = apperr.Forbidden(apperr.CodeEmailNotVerified, "Please verify your email before logging in")
	ErrAccountInactive    = apperr.Forbidden(apperr.CodeAccountInactive, "Account is not active")
	ErrInvalidRefresh     = apperr.Unauthorized(apperr.CodeInvalidRefreshToken, "Invalid refresh token")
	ErrUserNotFound       = apperr.NotFound("User not found")
	ErrWrongPassword      = apperr.Unauthorized(apperr.CodeInvalidPassword, "Current password is incorrect")
	ErrInvalidCode        = apperr.BadRequest(apperr.CodeInvalidVerificationCode, "Invalid or expired verification code")
	ErrAlreadyVerified    = apperr.BadRequest(apperr.CodeEmailAlreadyVerified, "Email is already verified")
	ErrRoleNotAllowed     = apperr.Forbidden(apperr.CodeRoleNotAllowed, "This role cannot be chosen at registration")
)

// Mailer delivers account emails. Implementations must not log the code.
type Mailer interface {
	SendVerification(ctx context.Context, email, name, code string) error
	SendPasswordChanged(ctx context.Context, email, name string) error
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role // empty means STUDENT
}

// ProfileUpdate is what a user may change about themselves.
type ProfileUpdate struct {
	Name   *string
	Email  *string
	Avatar *string
}

// AuthResult is returned by every operation that starts a session.
type AuthResult struct {
	User   domain.User      `json:"user"`
	Tokens domain.TokenPair `json:"tokens"`
}

// AuthService coordinates the credential store, token issuance and
// verification codes. Every method returns *apperr.Error values or
// apperr.Internal wrapped causes.
type AuthService struct {
	Store     store.Store
	Tokens    *TokenService
	Codes     VerificationCodes
	Mailer    Mailer
	Passwords cryptox.PasswordHasher
	Now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Register creates a PENDING account, mails a verification code and hands
// out a token pair. A mail failure fails the call but keeps the account, so
// the user can ask for another code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	l := slogx.FromContext(ctx)

	role := in.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if role == domain.RoleAdmin {
		return AuthResult{}, ErrRoleNotAllowed
	}
	if !role.Valid() {
		return AuthResult{}, apperr.Validation(map[string]string{"role": "must be student or teacher"})
	}

	email := domain.NormalizeEmail(in.Email)
	if _, err := s.Store.Users().FindByEmail(ctx, email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return AuthResult{}, apperr.Internal(err)
	}

	hash, err := s.Passwords.Hash(in.Password)
	if err != nil {
		return AuthResult{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	code, err := s.Codes.Generate()
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	now := s.now()
	u := domain.User{
		ID:                    idx.NewAt(now).String(),
		Name:                  strings.TrimSpace(in.Name),
		Email:                 email,
		PasswordHash:          hash,
		Role:                  role,
		Status:                domain.StatusPending,
		VerificationCode:      code.Digest,
		VerificationExpiresAt: &code.ExpiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	pair, fingerprint, err := s.Tokens.IssuePair(u)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}
	u.RefreshToken = fingerprint

	// The refresh fingerprint goes in with the row: one write.
	if err := s.Store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, apperr.Internal(err)
	}

	if err := s.Mailer.SendVerification(ctx, u.Email, u.Name, code.Code); err != nil {
		l.Error("failed to send verification email",
			slog.String("user_id", u.ID),
			slog.Any("error", err),
		)
		return AuthResult{}, apperr.Internal(fmt.Errorf("send verification email: %w", err))
	}

	l.Info("user registered", slog.String("user_id", u.ID), slog.String("role", string(u.Role)))
	return AuthResult{User: public(u), Tokens: pair}, nil
}

// Login never tells an unknown email from a wrong password: both take a
// full hash comparison and fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().FindByEmailWithPassword(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		_ = cryptox.VerifyPassword(password, s.dummy())
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("stored password hash unusable", slog.String("user_id", u.ID), slog.Any("error", err))
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	if !u.CanLogin() {
		return AuthResult{}, loginRefusal(u)
	}

	pair, fingerprint, err := s.Tokens.IssuePair(u)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}
	if err := s.Store.Users().UpdateRefreshToken(ctx, u.ID, &fingerprint); err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	// Move old hashes to the current algorithm/cost while we hold the plaintext.
	if s.Passwords.NeedsRehash(u.PasswordHash) {
		if hash, err := s.Passwords.Hash(password); err == nil {
			if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
				l.Warn("failed to upgrade password hash", slog.String("user_id", u.ID), slog.Any("error", err))
			}
		}
	}

	l.Info("user logged in", slog.String("user_id", u.ID))
	return AuthResult{User: public(u), Tokens: pair}, nil
}

// dummy is a hash of the configured algorithm and cost, compared against
// when the email is unknown.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.Passwords.Hash("not-a-real-password-0")
		if err != nil {
			h = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z6dU4VQ3yQz6oYj8p2G2QY1e"
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// RefreshToken exchanges the current refresh token for a new pair. The
// stored fingerprint is swapped in one conditional update, so of two
// concurrent calls with the same token exactly one wins.
func (s *AuthService) RefreshToken(ctx context.Context, token string) (domain.TokenPair, error) {
	claims, err := s.Tokens.VerifyRefresh(token)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidRefresh.WithCause(err)
	}

	u, err := s.Store.Users().FindByIDWithRefreshToken(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.TokenPair{}, ErrInvalidRefresh
	}
	if err != nil {
		return domain.TokenPair{}, apperr.Internal(err)
	}

	presented := FingerprintRefreshToken(token)
	if u.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(u.RefreshToken), []byte(presented)) != 1 {
		slogx.FromContext(ctx).Warn("refresh token replay or stale token", slog.String("user_id", u.ID))
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	if u.Status == domain.StatusInactive || u.Status == domain.StatusSuspended {
		return domain.TokenPair{}, ErrAccountInactive
	}

	pair, next, err := s.Tokens.IssuePair(u)
	if err != nil {
		return domain.TokenPair{}, apperr.Internal(err)
	}

	switch err := s.Store.Users().RotateRefreshToken(ctx, u.ID, presented, next); {
	case errors.Is(err, store.ErrStale):
		return domain.TokenPair{}, ErrInvalidRefresh
	case err != nil:
		return domain.TokenPair{}, apperr.Internal(err)
	}

	return pair, nil
}

// Logout drops the stored refresh token. Unknown users are not an error.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	err := s.Store.Users().UpdateRefreshToken(ctx, userID, nil)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperr.Internal(err)
	}
	return nil
}

func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, userLookupError(err)
	}
	return u, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (domain.User, error) {
	patch := domain.UserPatch{Name: trimmed(in.Name), Email: in.Email, Avatar: trimmed(in.Avatar)}
	if patch.Empty() {
		return s.GetCurrentUser(ctx, userID)
	}
	if err := ensureEmailFree(ctx, s.Store.Users(), userID, patch.Email); err != nil {
		return domain.User{}, err
	}

	u, err := s.Store.Users().UpdateFields(ctx, userID, patch)
	if err != nil {
		return domain.User{}, updateError(err)
	}
	return u, nil
}

// ChangePassword also ends every session: the stored refresh token is
// cleared in the same transaction as the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().FindByIDWithPassword(ctx, userID)
	if err != nil {
		return userLookupError(err)
	}
	if err := cryptox.VerifyPassword(current, u.PasswordHash); err != nil {
		return ErrWrongPassword
	}

	hash, err := s.Passwords.Hash(next)
	if err != nil {
		return apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		return tx.Users().UpdateRefreshToken(ctx, userID, nil)
	})
	if err != nil {
		return updateError(err)
	}

	// Best effort; the password is already changed.
	if err := s.Mailer.SendPasswordChanged(ctx, u.Email, u.Name); err != nil {
		l.Warn("failed to send password changed email", slog.String("user_id", userID), slog.Any("error", err))
	}

	l.Info("password changed", slog.String("user_id", userID))
	return nil
}

// VerifyEmail spends code and verifies its owner. Wrong, expired and
// already spent codes are the same error. A PENDING account becomes ACTIVE;
// an account an administrator suspended or deactivated stays that way.
func (s *AuthService) VerifyEmail(ctx context.Context, code string) (domain.User, error) {
	u, err := s.Store.Users().ConsumeVerificationCode(ctx, s.Codes.Hash(code), s.now())
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrInvalidCode
	}
	if err != nil {
		return domain.User{}, apperr.Internal(err)
	}

	slogx.FromContext(ctx).Info("email verified",
		slog.String("user_id", u.ID),
		slog.String("status", string(u.Status)),
	)
	return u, nil
}

// ResendVerificationEmail replaces any outstanding code with a new one.
func (s *AuthService) ResendVerificationEmail(ctx context.Context, email string) error {
	u, err := s.Store.Users().FindByEmail(ctx, email)
	if err != nil {
		return userLookupError(err)
	}
	if u.IsEmailVerified {
		return ErrAlreadyVerified
	}

	code, err := s.Codes.Generate()
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.Store.Users().UpdateVerificationCode(ctx, u.ID, code.Digest, code.ExpiresAt); err != nil {
		return updateError(err)
	}

	if err := s.Mailer.SendVerification(ctx, u.Email, u.Name, code.Code); err != nil {
		slogx.FromContext(ctx).Error("failed to send verification email",
			slog.String("user_id", u.ID),
			slog.Any("error", err),
		)
		return apperr.Internal(fmt.Errorf("send verification email: %w", err))
	}
	return nil
}

// ensureEmailFree fails with ErrEmailTaken when email belongs to someone
// other than userID. The unique index still catches races.
func ensureEmailFree(ctx context.Context, users store.Users, userID string, email *string) error {
	if email == nil {
		return nil
	}
	other, err := users.FindByEmail(ctx, *email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return apperr.Internal(err)
	case other.ID != userID:
		return ErrEmailTaken
	}
	return nil
}

// loginRefusal names why an account that passed the password check may not
// start a session.
func loginRefusal(u domain.User) error {
	if !u.IsEmailVerified {
		return ErrEmailNotVerified
	}
	return ErrAccountInactive
}

func userLookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return apperr.Internal(err)
}

func updateError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrEmailTaken
	default:
		return apperr.Internal(err)
	}
}

// public strips everything a caller must never see.
func public(u domain.User) domain.User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	u.VerificationCode = ""
	u.VerificationExpiresAt = nil
	return u
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
