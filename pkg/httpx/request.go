package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/eduflowhub/eduflow/pkg/apperr"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

var ErrBadJSON = apperr.BadRequest(apperr.CodeBadRequest, "request body must be valid JSON")

// DecodeJSON decodes the request body into dst, rejecting trailing data and
// bodies over MaxBodyBytes. Unknown fields are ignored.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBadJSON.WithMessage("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return ErrBadJSON.WithMessage("request body is required")
		}
		return ErrBadJSON.WithCause(err)
	}
	if dec.More() {
		return ErrBadJSON.WithMessage("request body must contain a single JSON object")
	}
	return nil
}

// KeyExtractor derives the bucket key for rate limiting and lockouts. An
// empty key means the request cannot be attributed.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the client address: the first X-Forwarded-For
// entry, then X-Real-IP, then RemoteAddr. Header values that are not IP
// addresses are ignored. The service is expected to sit behind a proxy
// that overwrites these headers.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserIDKeyExtractor returns the authenticated user's id, or "".
func UserIDKeyExtractor(r *http.Request) string {
	if p, ok := PrincipalFrom(r.Context()); ok {
		return p.UserID
	}
	return ""
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// JSONFieldKeyExtractor reads a top-level string field from a JSON body and
// restores the body for the handler. Use it to key limits on the submitted
// email address.
func JSONFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return ""
		}
		s, _ := m[field].(string)
		return strings.ToLower(strings.TrimSpace(s))
	}
}
