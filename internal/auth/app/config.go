package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eduflowhub/eduflow/pkg/cryptox"
	"github.com/eduflowhub/eduflow/pkg/jwtx"
	"gopkg.in/yaml.v2"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	MailLog  = "log"
	MailSMTP = "smtp"
	MailSES  = "ses"
)

var (
	ErrSecretTooShort   = fmt.Errorf("JWT secrets must be at least %d characters", jwtx.MinSecretLength)
	ErrSecretsEqual     = errors.New("JWT access and refresh secrets must differ")
	ErrUnknownDriver    = errors.New("AUTH_DATABASE_DRIVER must be sqlite or postgres")
	ErrMissingDSN       = errors.New("AUTH_DATABASE_URL is required for the postgres driver")
	ErrUnknownMail      = errors.New("MAIL_PROVIDER must be log, smtp or ses")
	ErrMissingSMTPHost  = errors.New("SMTP_HOST is required for the smtp mail provider")
	ErrGoogleIncomplete = errors.New("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_CALLBACK_URL must be set together")
)

type Config struct {
	Env       string `yaml:"env"`        // dev, staging, prod (default: dev)
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error (default: info)
	LogFormat string `yaml:"log_format"` // json, text (default: json)
	Port      int    `yaml:"port"`       // default: 8080

	AppName   string `yaml:"app_name"`   // shown in emails (default: EduFlow Hub)
	ClientURL string `yaml:"client_url"` // frontend base URL linked from emails
	Issuer    string `yaml:"issuer"`

	AccessSecret  string        `yaml:"jwt_access_secret"`  // Required, >= 32 chars
	RefreshSecret string        `yaml:"jwt_refresh_secret"` // Required, >= 32 chars, differs from access
	AccessTTL     time.Duration `yaml:"jwt_access_expiry"`  // default: 15m
	RefreshTTL    time.Duration `yaml:"jwt_refresh_expiry"` // default: 7d

	PasswordAlgorithm string `yaml:"password_algorithm"` // bcrypt (default) or argon2id
	BcryptRounds      int    `yaml:"bcrypt_rounds"`      // default: 10
	PepperFile        string `yaml:"pepper_file"`        // argon2id only (default: ./pepper)

	DatabaseDriver string        `yaml:"database_driver"` // sqlite (default) or postgres
	DatabaseFile   string        `yaml:"database_file"`   // sqlite path (default: auth.db)
	DatabaseURL    string        `yaml:"database_url"`    // postgres DSN
	StoreTimeout   time.Duration `yaml:"store_timeout"`   // per-request deadline (default: 10s)

	RedisURL           string        `yaml:"redis_url"` // Optional: shares lockout counters between instances
	LoginMaxFailures   int           `yaml:"login_max_failures"`
	LoginLockoutWindow time.Duration `yaml:"login_lockout_window"`

	MailProvider  string `yaml:"mail_provider"` // log (default), smtp, ses
	EmailFrom     string `yaml:"email_from"`
	EmailFromName string `yaml:"email_from_name"`
	SMTPHost      string `yaml:"smtp_host"`
	SMTPPort      int    `yaml:"smtp_port"`
	SMTPUsername  string `yaml:"smtp_username"`
	SMTPPassword  string `yaml:"smtp_password"`
	AWSRegion     string `yaml:"aws_region"`

	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	GoogleCallbackURL  string `yaml:"google_callback_url"`

	BootstrapAdminName     string `yaml:"bootstrap_admin_name"`
	BootstrapAdminEmail    string `yaml:"bootstrap_admin_email"`
	BootstrapAdminPassword string `yaml:"bootstrap_admin_password"`

	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"` // default: 15m
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"` // default: 10s
}

func defaultConfig() Config {
	return Config{
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		AppName:              "EduFlow Hub",
		ClientURL:            "http://localhost:3000",
		Issuer:               "eduflow-auth",
		AccessTTL:            jwtx.DefaultAccessTokenTTL,
		RefreshTTL:           jwtx.DefaultRefreshTokenTTL,
		PasswordAlgorithm:    cryptox.AlgorithmBcrypt,
		BcryptRounds:         cryptox.DefaultBcryptCost,
		PepperFile:           "pepper",
		DatabaseDriver:       DriverSQLite,
		DatabaseFile:         "auth.db",
		StoreTimeout:         10 * time.Second,
		LoginMaxFailures:     5,
		LoginLockoutWindow:   15 * time.Minute,
		MailProvider:         MailLog,
		EmailFrom:            "no-reply@eduflow.com",
		EmailFromName:        "EduFlow Hub",
		SMTPPort:             587,
		HousekeepingInterval: 15 * time.Minute,
		ShutdownGracePeriod:  10 * time.Second,
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by AUTH_CONFIG_FILE if any, then the environment.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("AUTH_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = Config{
		Env:       getEnvOrDefault("ENV", cfg.Env),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", cfg.LogLevel),
		LogFormat: getEnvOrDefault("LOG_FORMAT", cfg.LogFormat),
		Port:      getEnvIntOrDefault("PORT", cfg.Port),

		AppName:   getEnvOrDefault("APP_NAME", cfg.AppName),
		ClientURL: getEnvOrDefault("CLIENT_URL", cfg.ClientURL),
		Issuer:    getEnvOrDefault("AUTH_ISSUER", cfg.Issuer),

		AccessSecret:  getEnvOrDefault("JWT_ACCESS_SECRET", cfg.AccessSecret),
		RefreshSecret: getEnvOrDefault("JWT_REFRESH_SECRET", cfg.RefreshSecret),
		AccessTTL:     getEnvDurationOrDefault("JWT_ACCESS_EXPIRY", cfg.AccessTTL),
		RefreshTTL:    getEnvDurationOrDefault("JWT_REFRESH_EXPIRY", cfg.RefreshTTL),

		PasswordAlgorithm: getEnvOrDefault("PASSWORD_ALGORITHM", cfg.PasswordAlgorithm),
		BcryptRounds:      getEnvIntOrDefault("BCRYPT_ROUNDS", cfg.BcryptRounds),
		PepperFile:        getEnvOrDefault("AUTH_PEPPER_FILE", cfg.PepperFile),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("AUTH_DATABASE_DRIVER", cfg.DatabaseDriver)),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", cfg.DatabaseFile),
		DatabaseURL:    getEnvOrDefault("AUTH_DATABASE_URL", cfg.DatabaseURL),
		StoreTimeout:   getEnvDurationOrDefault("AUTH_STORE_TIMEOUT", cfg.StoreTimeout),

		RedisURL:           getEnvOrDefault("REDIS_URL", cfg.RedisURL),
		LoginMaxFailures:   getEnvIntOrDefault("LOGIN_MAX_FAILURES", cfg.LoginMaxFailures),
		LoginLockoutWindow: getEnvDurationOrDefault("LOGIN_LOCKOUT_WINDOW", cfg.LoginLockoutWindow),

		MailProvider:  strings.ToLower(getEnvOrDefault("MAIL_PROVIDER", cfg.MailProvider)),
		EmailFrom:     getEnvOrDefault("EMAIL_FROM", cfg.EmailFrom),
		EmailFromName: getEnvOrDefault("EMAIL_FROM_NAME", cfg.EmailFromName),
		SMTPHost:      getEnvOrDefault("SMTP_HOST", cfg.SMTPHost),
		SMTPPort:      getEnvIntOrDefault("SMTP_PORT", cfg.SMTPPort),
		SMTPUsername:  getEnvOrDefault("SMTP_USERNAME", cfg.SMTPUsername),
		SMTPPassword:  getEnvOrDefault("SMTP_PASSWORD", cfg.SMTPPassword),
		AWSRegion:     getEnvOrDefault("AWS_REGION", cfg.AWSRegion),

		GoogleClientID:     getEnvOrDefault("GOOGLE_CLIENT_ID", cfg.GoogleClientID),
		GoogleClientSecret: getEnvOrDefault("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret),
		GoogleCallbackURL:  getEnvOrDefault("GOOGLE_CALLBACK_URL", cfg.GoogleCallbackURL),

		BootstrapAdminName:     getEnvOrDefault("BOOTSTRAP_ADMIN_NAME", cfg.BootstrapAdminName),
		BootstrapAdminEmail:    getEnvOrDefault("BOOTSTRAP_ADMIN_EMAIL", cfg.BootstrapAdminEmail),
		BootstrapAdminPassword: getEnvOrDefault("BOOTSTRAP_ADMIN_PASSWORD", cfg.BootstrapAdminPassword),

		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod),
	}

	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// Validate refuses to start with settings that would weaken authentication
// or fail on the first request.
func (c Config) Validate() error {
	var errs []error

	if len(c.AccessSecret) < jwtx.MinSecretLength || len(c.RefreshSecret) < jwtx.MinSecretLength {
		errs = append(errs, ErrSecretTooShort)
	} else if c.AccessSecret == c.RefreshSecret {
		errs = append(errs, ErrSecretsEqual)
	}

	hasher := cryptox.PasswordHasher{Algorithm: c.PasswordAlgorithm, BcryptCost: c.BcryptRounds}
	if err := hasher.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, ErrMissingDSN)
		}
	default:
		errs = append(errs, ErrUnknownDriver)
	}

	switch c.MailProvider {
	case MailLog, MailSES:
	case MailSMTP:
		if c.SMTPHost == "" {
			errs = append(errs, ErrMissingSMTPHost)
		}
	default:
		errs = append(errs, ErrUnknownMail)
	}

	google := []string{c.GoogleClientID, c.GoogleClientSecret, c.GoogleCallbackURL}
	set := 0
	for _, v := range google {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(google) {
		errs = append(errs, ErrGoogleIncomplete)
	}

	return errors.Join(errs...)
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c Config) GoogleEnabled() bool { return c.GoogleClientID != "" }

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// "7d" style, as used for refresh token expiry
	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
