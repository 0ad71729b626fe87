package http

import (
	"context"
	"net/http"
	"time"

	"github.com/eduflowhub/eduflow/pkg/authsdk"
	"github.com/eduflowhub/eduflow/pkg/httpx"
)

// Pinger is a dependency readyz can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func healthBody(status string, startTime time.Time, version string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(startTime).Truncate(time.Second).String(),
		Version: version,
	}
}

// LivezHandler godoc
//
//	@Summary		Liveness Check Endpoint
//	@Description	Reports that the auth process is up; never touches the database
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthBody("ok", startTime, version))
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe reporting the database and the shared limiter backend
//	@Description	The limiter check reads "disabled" when counters are in-process only
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, db Pinger, limiter Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{Database: "ok", Limiter: "disabled"}
		status, code := "ok", http.StatusOK

		if err := db.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}

		// Lockout fails open, so a limiter outage degrades but does not
		// take the service out of rotation.
		if limiter != nil {
			checks.Limiter = "ok"
			if err := limiter.Ping(r.Context()); err != nil {
				checks.Limiter = "error: " + err.Error()
				status = "degraded"
			}
		}

		body := healthBody(status, startTime, version)
		body.Checks = checks
		httpx.WriteJSON(w, code, body)
	}
}
