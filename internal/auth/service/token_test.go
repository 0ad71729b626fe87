package service

import (
	"strings"
	"testing"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService_Secrets(t *testing.T) {
	_, err := NewTokenService(TokenConfig{AccessSecret: "short", RefreshSecret: testRefreshSecret})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)

	_, err = NewTokenService(TokenConfig{AccessSecret: testAccessSecret, RefreshSecret: strings.Repeat("r", 31)})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)

	s, err := NewTokenService(TokenConfig{AccessSecret: testAccessSecret, RefreshSecret: testRefreshSecret})
	require.NoError(t, err)
	require.Equal(t, jwtx.DefaultAccessTokenTTL, s.AccessTTL())
}

func TestTokenService(t *testing.T) {
	c := newClock()
	s, err := NewTokenService(TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Issuer:        "eduflow",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Now:           c.Now,
	})
	require.NoError(t, err)

	u := domain.User{ID: "01HUSER", Email: "mai@eduflow.com", Role: domain.RoleTeacher}
	pair, fingerprint, err := s.IssuePair(u)
	require.NoError(t, err)
	require.Equal(t, FingerprintRefreshToken(pair.RefreshToken), fingerprint)
	require.NotEqual(t, pair.RefreshToken, fingerprint)

	t.Run("claims round trip", func(t *testing.T) {
		claims, err := s.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "01HUSER", claims.UserID)
		require.Equal(t, "mai@eduflow.com", claims.Email)
		require.Equal(t, "TEACHER", claims.Role)

		claims, err = s.VerifyRefresh(pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, "01HUSER", claims.UserID)
	})

	t.Run("kinds do not cross", func(t *testing.T) {
		_, err := s.VerifyAccess(pair.RefreshToken)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
		_, err = s.VerifyRefresh(pair.AccessToken)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})

	t.Run("two pairs in the same instant differ", func(t *testing.T) {
		again, _, err := s.IssuePair(u)
		require.NoError(t, err)
		require.NotEqual(t, pair.AccessToken, again.AccessToken)
		require.NotEqual(t, pair.RefreshToken, again.RefreshToken)
	})

	t.Run("access expires before refresh", func(t *testing.T) {
		c.Advance(15 * time.Minute)
		_, err := s.Verify(pair.AccessToken)
		require.ErrorIs(t, err, jwtx.ErrExpired)

		_, err = s.VerifyRefresh(pair.RefreshToken)
		require.NoError(t, err)
	})
}

func TestVerificationCodes(t *testing.T) {
	c := newClock()
	codes := VerificationCodes{Now: c.Now}

	seen := map[string]bool{}
	for range 50 {
		vc, err := codes.Generate()
		require.NoError(t, err)
		require.Len(t, vc.Code, VerificationCodeDigits)
		require.GreaterOrEqual(t, vc.Code, "10000")
		require.LessOrEqual(t, vc.Code, "99999")
		require.Equal(t, codes.Hash(vc.Code), vc.Digest)
		require.Len(t, vc.Digest, 64)
		require.Equal(t, c.Now().Add(DefaultVerificationTTL), vc.ExpiresAt)
		seen[vc.Code] = true
	}
	require.Greater(t, len(seen), 1)

	require.Equal(t, codes.Hash("12345"), codes.Hash(" 12345\n"))
	require.NotEqual(t, codes.Hash("12345"), codes.Hash("12346"))

	custom := VerificationCodes{Now: c.Now, TTL: time.Minute}
	vc, err := custom.Generate()
	require.NoError(t, err)
	require.Equal(t, c.Now().Add(time.Minute), vc.ExpiresAt)
}
