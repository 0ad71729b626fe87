package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/jwtx"
	"github.com/eduflowhub/eduflow/pkg/slogx"
)

// TokenVerifier verifies an access token. *jwtx.HS256 satisfies it.
type TokenVerifier interface {
	Verify(token string) (*jwtx.Claims, error)
}

var (
	ErrMissingToken = apperr.Unauthorized(apperr.CodeMissingToken, "access token is required")
	ErrTokenExpired = apperr.Unauthorized(apperr.CodeTokenExpired, "access token has expired")
	ErrInvalidToken = apperr.Unauthorized(apperr.CodeInvalidToken, "access token is invalid")
)

// Authenticate requires a valid bearer access token and attaches the
// Principal it carries to the request context. The store is not consulted.
func Authenticate(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, r, ErrMissingToken)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					writeBearerError(w, r, ErrTokenExpired)
					return
				}
				slogx.FromContext(r.Context()).Debug("access token rejected", slog.Any("error", err))
				writeBearerError(w, r, ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithClaims(r, claims)))
		})
	}
}

// OptionalAuthenticate attaches a Principal when a valid token is present
// and otherwise lets the request through anonymously.
func OptionalAuthenticate(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := bearerToken(r); ok {
				if claims, err := v.Verify(raw); err == nil {
					r = r.WithContext(contextWithClaims(r, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, raw, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func contextWithClaims(r *http.Request, c *jwtx.Claims) context.Context {
	ctx := WithPrincipal(r.Context(), Principal{
		UserID: c.UserID,
		Email:  c.Email,
		Role:   c.Role,
	})
	return slogx.WithUser(ctx, c.UserID, c.Role)
}

// RFC 6750 challenge plus the JSON error envelope.
func writeBearerError(w http.ResponseWriter, r *http.Request, err *apperr.Error) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+err.Message+`"`)
	apperr.Write(w, r, err)
}
