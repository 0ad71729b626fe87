package authsdk

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// refreshBuffer refreshes this long before the access token expires.
const refreshBuffer = 30 * time.Second

var ErrNoRefreshToken = errors.New("authsdk: access token expired and no refresh token available")

// Session is an authenticated caller. Its methods refresh the access token
// when it is about to expire; since refresh tokens rotate, a Session must
// not be copied between processes.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(client *SDKClient, t Tokens) *Session {
	s := &Session{client: client}
	s.setTokens(t)
	return s
}

// caller holds s.mu or owns s exclusively
func (s *Session) setTokens(t Tokens) {
	s.accessToken = t.AccessToken
	s.refreshToken = t.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(t.ExpiresIn)*time.Second - refreshBuffer)
}

// getValidToken returns a valid access token, refreshing if needed.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	t, err := s.client.RefreshToken(ctx, s.refreshToken)
	if err != nil {
		return "", err
	}
	s.setTokens(*t)
	return s.accessToken, nil
}

// Refresh rotates the token pair now, regardless of expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken == "" {
		return ErrNoRefreshToken
	}
	t, err := s.client.RefreshToken(ctx, s.refreshToken)
	if err != nil {
		return err
	}
	s.setTokens(*t)
	return nil
}

// Logout revokes the refresh token server side and forgets both tokens.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	if _, err := decodeData[struct{}](resp, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken, s.refreshToken, s.expiresAt = "", "", time.Time{}
	s.mu.Unlock()
	return nil
}

// AccessToken returns the current access token without checking expiry.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}
