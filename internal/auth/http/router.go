package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/service"
	"github.com/eduflowhub/eduflow/pkg/httpx"
	"github.com/eduflowhub/eduflow/pkg/limiter"
	"github.com/eduflowhub/eduflow/pkg/slogx"

	_ "github.com/eduflowhub/eduflow/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	db Pinger

	AuthService *service.AuthService
	UserService *service.UserService

	// Failures counts login and verification failures for the lockout.
	Failures limiter.Counter
	Lockout  LockoutConfig

	// Google is nil when Google sign-in is not configured.
	Google             GoogleProvider
	SecureCookies      bool
	RequestTimeout     time.Duration
	LimiterHealthCheck Pinger
}

// LockoutConfig bounds failed attempts per email (login) or per IP
// (verification).
type LockoutConfig struct {
	MaxFailures int
	Window      time.Duration
}

func NewRouter(buildVersion string, db Pinger, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		db:           db,
		logger:       logger,
		Lockout:      LockoutConfig{MaxFailures: 5, Window: 15 * time.Minute},
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	if r.RequestTimeout > 0 {
		r.middlewares = append(r.middlewares, httpx.Timeout(r.RequestTimeout))
	}
	if r.Failures == nil {
		r.Failures = limiter.NewMemory()
	}

	r.registerAuth()
	r.registerGoogle()
	r.registerProfile()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			EduFlow Hub Auth API
//	@version		1.0.0
//	@description	Authentication and authorization core of the EduFlow Hub platform.
//	@description
//	@description				Access and refresh tokens are HS256 JWTs signed with separate secrets.
//	@description				Every JSON response uses the {success, message, data} envelope; errors carry a stable code.
//
//	@contact.name				EduFlow Hub Team
//	@contact.url				https://github.com/eduflowhub/eduflow
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authenticate() httpx.Middleware {
	return httpx.Authenticate(r.AuthService.Tokens)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService}

	// POST /register - strict limit by IP (account creation sends email)
	r.Mux.Handle("POST /api/v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /login - strict limit by IP + email, and a failure lockout per
	// IP + email that survives restarts when the counter is Redis backed.
	// Keying on the caller too keeps a stranger from locking an owner out.
	r.Mux.Handle("POST /api/v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
			httpx.FailureLockout(r.Failures, httpx.LockoutConfig{
				Name:        "login",
				MaxFailures: r.Lockout.MaxFailures,
				Window:      r.Lockout.Window,
			}, httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.JSONFieldKeyExtractor("email"))),
		),
	)

	r.Mux.Handle("POST /api/v1/auth/refresh-token",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /verify-email - codes are only 5 digits, so wrong guesses lock
	// the caller's IP out
	r.Mux.Handle("POST /api/v1/auth/verify-email",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyEmail),
			httpx.RateLimitByIP(httpx.StrictLimit),
			httpx.FailureLockout(r.Failures, httpx.LockoutConfig{
				Name:        "verify",
				MaxFailures: r.Lockout.MaxFailures,
				Window:      r.Lockout.Window,
			}, httpx.IPKeyExtractor),
		),
	)

	r.Mux.Handle("POST /api/v1/auth/resend-verification",
		httpx.Chain(http.HandlerFunc(h.HandleResendVerification),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("POST /api/v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.authenticate(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /api/v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.authenticate(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerGoogle() {
	if r.Google == nil {
		return
	}
	h := &GoogleHandler{Auth: r.AuthService, Provider: r.Google, SecureCookie: r.SecureCookies}

	r.Mux.Handle("GET /api/v1/auth/google",
		httpx.Chain(http.HandlerFunc(h.HandleStart),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /api/v1/auth/google/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerProfile() {
	h := &ProfileHandler{Auth: r.AuthService}

	r.Mux.Handle("GET /api/v1/profile",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			r.authenticate(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PUT /api/v1/profile",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			r.authenticate(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	// PUT /profile/change-password - strict, it checks the current password
	r.Mux.Handle("PUT /api/v1/profile/change-password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			r.authenticate(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Users: r.UserService}

	admin := string(domain.RoleAdmin)
	staff := []string{admin, string(domain.RoleTeacher)}

	r.Mux.Handle("GET /api/v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authenticate(),
			httpx.Authorize(staff...),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /api/v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			r.authenticate(),
			httpx.RequireOwnerOrAdmin("id"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			r.authenticate(),
			httpx.Authorize(admin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PUT /api/v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			r.authenticate(),
			httpx.Authorize(admin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /api/v1/users/{id}/status",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateStatus),
			r.authenticate(),
			httpx.Authorize(admin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /api/v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			r.authenticate(),
			httpx.Authorize(admin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.db, r.LimiterHealthCheck),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
