package httpx

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/limiter"
	"github.com/eduflowhub/eduflow/pkg/slogx"
)

// LockoutConfig bounds repeated failures per key.
type LockoutConfig struct {
	// Name namespaces the counter keys, e.g. "login".
	Name string
	// MaxFailures within Window before further attempts are rejected.
	MaxFailures int
	Window      time.Duration
}

// FailureLockout counts failed attempts per key and rejects the key with 429
// once MaxFailures is reached inside Window. Every attempt reserves a slot
// before the handler runs, so concurrent attempts cannot slip past the limit
// together. A 400, 401 or 403 keeps the slot, any 2xx resets the key and
// any other status gives the slot back. Backend errors fail open so an
// outage does not block every login.
func FailureLockout(counter limiter.Counter, cfg LockoutConfig, keyExtractor KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyExtractor(r)
			if key == "" || cfg.MaxFailures <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			key = cfg.Name + ":" + key

			n, err := counter.Incr(ctx, key, cfg.Window)
			if err != nil {
				log.Warn("lockout: counter unavailable", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			if n > int64(cfg.MaxFailures) {
				if err := counter.Release(ctx, key); err != nil {
					log.Warn("lockout: release", slog.Any("error", err))
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				log.Warn("lockout: too many failures", slog.String("lockout", cfg.Name))
				apperr.Write(w, r, apperr.TooManyRequests("too many failed attempts, please try again later"))
				return
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			switch {
			case sw.status == http.StatusBadRequest ||
				sw.status == http.StatusUnauthorized ||
				sw.status == http.StatusForbidden:
			case sw.status >= 200 && sw.status < 300:
				if err := counter.Reset(ctx, key); err != nil {
					log.Warn("lockout: reset", slog.Any("error", err))
				}
			default:
				if err := counter.Release(ctx, key); err != nil {
					log.Warn("lockout: release", slog.Any("error", err))
				}
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
