package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the EduFlow Hub auth service. It performs the
// public operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client for the service at baseURL, e.g.
// "http://localhost:8080".
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a pending account. The returned tokens are usable right
// away; logging in again requires a verified email.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", req)
	if err != nil {
		return nil, err
	}
	out, err := decodeData[AuthResponse](resp, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token pair.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", req)
	if err != nil {
		return nil, err
	}
	out, err := decodeData[AuthResponse](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateWithPassword logs in and wraps the tokens in a Session.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, email, password string) (*Session, error) {
	out, err := c.Login(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return newSession(c, out.Tokens), nil
}

// RefreshToken rotates a refresh token. The old one stops working.
func (c *SDKClient) RefreshToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh-token",
		RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	out, err := decodeData[Tokens](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyEmail consumes a 5-digit verification code and returns the now
// active user.
func (c *SDKClient) VerifyEmail(ctx context.Context, code string) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/verify-email", VerifyEmailRequest{Code: code})
	if err != nil {
		return nil, err
	}
	out, err := decodeData[User](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendVerification mails a fresh code, invalidating the previous one.
func (c *SDKClient) ResendVerification(ctx context.Context, email string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/resend-verification",
		ResendVerificationRequest{Email: email})
	if err != nil {
		return err
	}
	_, err = decodeData[struct{}](resp, http.StatusOK)
	return err
}

// NewSessionFromTokens wraps tokens obtained elsewhere, e.g. from Register
// or the Google callback.
func (c *SDKClient) NewSessionFromTokens(t Tokens) *Session {
	return newSession(c, t)
}
