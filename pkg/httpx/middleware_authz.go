package httpx

import (
	"net/http"

	"github.com/eduflowhub/eduflow/pkg/apperr"
)

// AdminRole bypasses ownership checks in RequireOwnerOrAdmin.
const AdminRole = "ADMIN"

var (
	ErrNotAuthenticated = apperr.Unauthorized(apperr.CodeNotAuthenticated, "authentication required")
	ErrInsufficientRole = apperr.Forbidden(apperr.CodeInsufficientPermission, "you do not have permission to perform this action")
)

// Authorize requires the principal's role to be one of roles. It must run
// after Authenticate.
func Authorize(roles ...string) Middleware {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				apperr.Write(w, r, ErrNotAuthenticated)
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				apperr.Write(w, r, ErrInsufficientRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnerOrAdmin lets the request through when the path value named
// param equals the principal's user id, or the principal is an admin.
func RequireOwnerOrAdmin(param string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				apperr.Write(w, r, ErrNotAuthenticated)
				return
			}
			if p.Role != AdminRole && r.PathValue(param) != p.UserID {
				apperr.Write(w, r, ErrInsufficientRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
