package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted, in bytes.
const MinSecretLength = 32

var (
	ErrWeakSecret = errors.New("jwtx: secret must be at least 32 characters")

	// ErrInvalidToken covers every reason a token cannot be trusted other
	// than expiry: malformed input, bad signature, wrong algorithm, wrong
	// issuer or wrong token type. The specific reason is wrapped alongside.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrWrongType    = errors.New("jwtx: wrong token type")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// HS256 signs and verifies one kind of token with one shared secret.
type HS256 struct {
	secret []byte
	typ    TokenType
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// Option configures an HS256.
type Option func(*HS256)

// WithIssuer requires the iss claim to match on verification.
func WithIssuer(issuer string) Option { return func(h *HS256) { h.issuer = issuer } }

// WithLeeway tolerates small clock skew on exp and nbf.
func WithLeeway(d time.Duration) Option { return func(h *HS256) { h.leeway = d } }

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option { return func(h *HS256) { h.now = now } }

// NewHS256 returns a signer/verifier bound to a token type. Secrets shorter
// than MinSecretLength are rejected.
func NewHS256(secret string, typ TokenType, opts ...Option) (*HS256, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	h := &HS256{
		secret: []byte(secret),
		typ:    typ,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Type returns the token type this instance signs and accepts.
func (h *HS256) Type() TokenType { return h.typ }

// Sign stamps the token type and issuer onto claims and signs them.
func (h *HS256) Sign(c Claims) (string, error) {
	c.Type = h.typ
	if c.Issuer == "" {
		c.Issuer = h.issuer
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := tok.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}

// Verify checks signature, algorithm, issuer, type and expiry. It returns
// ErrExpired for a well-signed token past exp and an error wrapping
// ErrInvalidToken for anything else.
func (h *HS256) Verify(tokenStr string) (*Claims, error) {
	// Time based claims are checked below against h.now so tests can move
	// the clock; the parser only handles structure and signature.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return h.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMalformed)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrInvalidSig)
		default:
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrInvalidClaim)
	}

	if err := claims.ValidateIssuer(h.issuer); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := claims.ValidateType(h.typ); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrInvalidClaim)
	}

	switch err := claims.ValidateExpiryAt(h.now().UTC(), h.leeway); {
	case errors.Is(err, ErrExpired):
		return nil, ErrExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}
