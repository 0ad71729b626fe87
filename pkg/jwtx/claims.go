package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Services override them from configuration.
const (
	// DefaultAccessTokenTTL is short so a leaked access token is of limited use.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the lifetime of the single refresh token a
	// user may hold.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenType distinguishes access tokens from refresh tokens. The two are
// signed with different secrets, the type claim is a second line so a token
// can never be replayed as the other kind if secrets were ever shared.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Claims carried by both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims

	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	Type   TokenType `json:"typ"`
}

// NewClaims builds claims for the given principal. Subject mirrors UserID so
// generic JWT tooling can read it.
func NewClaims(userID, email, role string, typ TokenType, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   typ,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two
// tokens minted for the same user in the same second still differ.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateType checks the typ claim.
func (c *Claims) ValidateType(expected TokenType) error {
	if c.Type != expected {
		return ErrWrongType
	}
	return nil
}

// ValidateExpiryAt ensures the token hasn't expired (exp) and isn't used
// before nbf, relative to now.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateExpiry is ValidateExpiryAt with the wall clock and no leeway.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryAt(time.Now().UTC(), 0)
}
