package http

import (
	"net/http"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/httpx"
)

type validator interface {
	Validate() map[string]string
}

// decodeValid decodes a JSON body into dst and runs its field validation.
func decodeValid(w http.ResponseWriter, r *http.Request, dst validator) error {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		return err
	}
	if errs := dst.Validate(); errs != nil {
		return apperr.Validation(errs)
	}
	return nil
}

// principal returns the caller attached by Authenticate. Routes using it are
// always behind Authenticate, so a miss is a wiring bug.
func principal(r *http.Request) (httpx.Principal, error) {
	p, ok := httpx.PrincipalFrom(r.Context())
	if !ok {
		return httpx.Principal{}, httpx.ErrNotAuthenticated
	}
	return p, nil
}

// optionalStatus parses a status that already passed DTO validation.
func optionalStatus(s *string) (*domain.Status, error) {
	if s == nil {
		return nil, nil
	}
	st, err := domain.ParseStatus(*s)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"status": err.Error()})
	}
	return &st, nil
}
