package service

import (
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/pkg/cryptox"
	"github.com/eduflowhub/eduflow/pkg/jwtx"
)

// Identity is the payload carried by both token kinds.
type Identity struct {
	UserID string
	Email  string
	Role   domain.Role
}

func identityOf(u domain.User) Identity {
	return Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// TokenService issues and verifies access and refresh tokens. It holds
// nothing but secret material and is safe for concurrent use.
type TokenService struct {
	access     *jwtx.HS256
	refresh    *jwtx.HS256
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService returns jwtx.ErrWeakSecret when either secret is shorter
// than jwtx.MinSecretLength.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	access, err := jwtx.NewHS256(cfg.AccessSecret, jwtx.TypeAccess,
		jwtx.WithIssuer(cfg.Issuer), jwtx.WithClock(cfg.Now))
	if err != nil {
		return nil, err
	}
	refresh, err := jwtx.NewHS256(cfg.RefreshSecret, jwtx.TypeRefresh,
		jwtx.WithIssuer(cfg.Issuer), jwtx.WithClock(cfg.Now))
	if err != nil {
		return nil, err
	}

	return &TokenService{
		access:     access,
		refresh:    refresh,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

func (s *TokenService) IssueAccessToken(id Identity) (string, error) {
	return s.access.Sign(s.claims(id, s.accessTTL))
}

func (s *TokenService) IssueRefreshToken(id Identity) (string, error) {
	return s.refresh.Sign(s.claims(id, s.refreshTTL))
}

func (s *TokenService) claims(id Identity, ttl time.Duration) jwtx.Claims {
	return jwtx.NewClaims(id.UserID, id.Email, string(id.Role), "", s.issuer, ttl, s.now().UTC())
}

// IssuePair signs a fresh access/refresh pair for u and returns the
// fingerprint under which the refresh token is to be stored.
func (s *TokenService) IssuePair(u domain.User) (domain.TokenPair, string, error) {
	id := identityOf(u)

	access, err := s.IssueAccessToken(id)
	if err != nil {
		return domain.TokenPair{}, "", err
	}
	refresh, err := s.IssueRefreshToken(id)
	if err != nil {
		return domain.TokenPair{}, "", err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL / time.Second),
	}, FingerprintRefreshToken(refresh), nil
}

// VerifyAccess returns jwtx.ErrExpired or an error wrapping
// jwtx.ErrInvalidToken.
func (s *TokenService) VerifyAccess(token string) (*jwtx.Claims, error) {
	return s.access.Verify(token)
}

func (s *TokenService) VerifyRefresh(token string) (*jwtx.Claims, error) {
	return s.refresh.Verify(token)
}

// Verify makes TokenService usable as an access token verifier for the
// authentication middleware.
func (s *TokenService) Verify(token string) (*jwtx.Claims, error) {
	return s.VerifyAccess(token)
}

func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// FingerprintRefreshToken is the value persisted in place of a refresh token.
func FingerprintRefreshToken(token string) string {
	return cryptox.FingerprintToken(token)
}
