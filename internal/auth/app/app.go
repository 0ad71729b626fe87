package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	httpapi "github.com/eduflowhub/eduflow/internal/auth/http"
	"github.com/eduflowhub/eduflow/internal/auth/mail"
	"github.com/eduflowhub/eduflow/internal/auth/service"
	"github.com/eduflowhub/eduflow/internal/auth/store"
	"github.com/eduflowhub/eduflow/internal/auth/store/drivers/postgres"
	"github.com/eduflowhub/eduflow/internal/auth/store/drivers/sqlite"
	"github.com/eduflowhub/eduflow/pkg/cryptox"
	"github.com/eduflowhub/eduflow/pkg/limiter"
	"github.com/eduflowhub/eduflow/pkg/mailx"
	"github.com/eduflowhub/eduflow/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application is the wired auth service: one store, one failure counter,
// one mail sender and the HTTP server in front of them.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	failures limiter.Counter
	redis    *limiter.Redis // nil unless REDIS_URL is set
	sender   mailx.Sender

	tokenService        *service.TokenService
	authService         *service.AuthService
	userService         *service.UserService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
}

// New opens every backend, migrates the schema and ensures the bootstrap
// admin exists. Nothing listens until Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "eduflow-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Pepper only applies to argon2id hashes
	cryptox.SetPepperPath(app.cfg.PepperFile)
	if strings.EqualFold(cfg.PasswordAlgorithm, cryptox.AlgorithmArgon2id) {
		if err := cryptox.LoadPepper(); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initLimiter(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initMail(ctx); err != nil {
		_ = app.closeBackends()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.closeBackends()
		return nil, err
	}
	if _, err := app.bootstrapService.EnsureAdmin(slogx.WithContext(ctx, app.logger)); err != nil {
		_ = app.closeBackends()
		return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run serves until ctx is cancelled or the listener fails, then shuts down
// within ShutdownGracePeriod.
func (app *Application) Run(ctx context.Context) error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"driver", app.cfg.DatabaseDriver,
		"mail", app.cfg.MailProvider,
		"google", app.cfg.GoogleEnabled(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.closeBackends()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown requested", "cause", context.Cause(ctx))
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests for up to ShutdownGracePeriod, then
// force-closes what is left and releases the backends.
func (app *Application) Shutdown() error {
	app.logger.Info("draining auth service", "grace", app.cfg.ShutdownGracePeriod)

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	var errs []error
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Warn("drain timed out, closing connections", "error", err)
		errs = append(errs, app.server.Close())
	}
	app.housekeepingService.Stop()
	errs = append(errs, app.closeBackends())

	if err := errors.Join(errs...); err != nil {
		return err
	}
	app.logger.Info("auth service stopped")
	return nil
}

// closeBackends closes redis before the store; both are attempted.
func (app *Application) closeBackends() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := app.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// OpenStore opens the store selected by cfg.DatabaseDriver and brings its
// schema up to date.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

// initLimiter picks the failure counter backend. Without Redis the counts
// live in this process and reset on restart.
func (app *Application) initLimiter(ctx context.Context) error {
	if app.cfg.RedisURL == "" {
		app.failures = limiter.NewMemory()
		app.logger.Info("failure lockout uses in-memory counters")
		return nil
	}

	r, err := limiter.NewRedisFromURL(ctx, app.cfg.RedisURL, "eduflow:lockout:")
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redis = r
	app.failures = r
	app.logger.Info("failure lockout uses redis")
	return nil
}

func (app *Application) initMail(ctx context.Context) error {
	from := mailx.From{Name: app.cfg.EmailFromName, Address: app.cfg.EmailFrom}

	switch app.cfg.MailProvider {
	case MailSMTP:
		app.sender = mailx.NewSMTP(app.cfg.SMTPHost, app.cfg.SMTPPort, app.cfg.SMTPUsername, app.cfg.SMTPPassword, from)
	case MailSES:
		ses, err := mailx.NewSES(ctx, mailx.SESConfig{Region: app.cfg.AWSRegion}, from)
		if err != nil {
			return fmt.Errorf("failed to initialize ses: %w", err)
		}
		app.sender = ses
	default:
		if app.cfg.Env == "prod" {
			app.logger.Warn("MAIL_PROVIDER=log in prod: verification codes will not be delivered")
		}
		app.sender = mailx.Log{}
	}
	return nil
}

func (app *Application) initServices() error {
	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  app.cfg.AccessSecret,
		RefreshSecret: app.cfg.RefreshSecret,
		Issuer:        app.cfg.Issuer,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tokens: %w", err)
	}
	app.tokenService = tokens

	passwords := cryptox.PasswordHasher{
		Algorithm:  app.cfg.PasswordAlgorithm,
		BcryptCost: app.cfg.BcryptRounds,
	}
	codes := service.VerificationCodes{TTL: service.DefaultVerificationTTL}

	app.authService = &service.AuthService{
		Store:     app.db,
		Tokens:    tokens,
		Codes:     codes,
		Passwords: passwords,
		Mailer: &mail.Mailer{
			Sender:    app.sender,
			AppName:   app.cfg.AppName,
			ClientURL: app.cfg.ClientURL,
			CodeTTL:   service.DefaultVerificationTTL,
		},
	}
	app.userService = &service.UserService{Store: app.db, Passwords: passwords}
	app.bootstrapService = &service.BootstrapService{
		Users:         app.userService,
		AdminName:     app.cfg.BootstrapAdminName,
		AdminEmail:    app.cfg.BootstrapAdminEmail,
		AdminPassword: app.cfg.BootstrapAdminPassword,
	}

	var sweepers []service.Sweeper
	if mem, ok := app.failures.(*limiter.Memory); ok {
		sweepers = append(sweepers, mem)
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		sweepers...,
	)
	return nil
}

// initHTTP builds the router. Cookies are Secure everywhere except dev,
// where the Google callback runs over plain http.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.AuthService = app.authService
	router.UserService = app.userService
	router.Failures = app.failures
	router.Lockout = httpapi.LockoutConfig{
		MaxFailures: app.cfg.LoginMaxFailures,
		Window:      app.cfg.LoginLockoutWindow,
	}
	router.RequestTimeout = app.cfg.StoreTimeout
	router.SecureCookies = app.cfg.Env != "dev"
	if app.redis != nil {
		router.LimiterHealthCheck = app.redis
	}
	if app.cfg.GoogleEnabled() {
		router.Google = httpapi.NewGoogleOAuth(app.cfg.GoogleClientID, app.cfg.GoogleClientSecret, app.cfg.GoogleCallbackURL)
	}
	router.ApplyRoutes()

	app.server = &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(app.cfg.Port)),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelWarn),
	}
}
