package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aliuyar1234/tasktally/internal/db"
	"github.com/aliuyar1234/tasktally/internal/validation"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string
	BaseURL  string

	DBDSN       string
	DBMaxConns  int
	DBMinConns  int
	DBSlowQuery time.Duration

	JWTSecret string

	LogLevel string

	RateLimitRPM      int
	LoginRateLimitRPM int
	MaxBodyBytes      int64
	CORSOrigins       []string

	SessionDays int

	DefaultCurrency  string
	DueSoonThreshold time.Duration
	DueSoonSchedule  string

	RetentionSchedule         string
	NotificationRetentionDays int
	AuditRetentionDays        int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("TT_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("TT_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("TT_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("TT_HTTP_ADDR", ":8080")

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("TT_BASE_URL")), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("TT_BASE_URL is required")
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("TT_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("TT_DB_DSN is required")
	}

	var err error
	if cfg.DBMaxConns, err = getEnvIntOrDefault("TT_DB_MAX_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.DBMinConns, err = getEnvIntOrDefault("TT_DB_MIN_CONNS", 2); err != nil {
		return nil, err
	}
	if cfg.DBMaxConns <= 0 || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("TT_DB_MIN_CONNS must be between 0 and TT_DB_MAX_CONNS (got: %d, %d)", cfg.DBMinConns, cfg.DBMaxConns)
	}
	slowMS, err := getEnvIntOrDefault("TT_DB_SLOW_QUERY_MS", 250)
	if err != nil {
		return nil, err
	}
	if slowMS < 0 {
		return nil, fmt.Errorf("TT_DB_SLOW_QUERY_MS must not be negative (got: %d)", slowMS)
	}
	cfg.DBSlowQuery = time.Duration(slowMS) * time.Millisecond

	cfg.JWTSecret = os.Getenv("TT_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("TT_JWT_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("TT_JWT_SECRET must be at least 32 characters (currently %d)", len(cfg.JWTSecret))
	}

	cfg.LogLevel = getEnvOrDefault("TT_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("TT_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	cfg.RateLimitRPM, err = getEnvIntOrDefault("TT_RATE_LIMIT_RPM", 120)
	if err != nil {
		return nil, err
	}
	cfg.LoginRateLimitRPM, err = getEnvIntOrDefault("TT_LOGIN_RATE_LIMIT_RPM", 10)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM <= 0 || cfg.LoginRateLimitRPM <= 0 {
		return nil, fmt.Errorf("TT_RATE_LIMIT_RPM and TT_LOGIN_RATE_LIMIT_RPM must be positive")
	}

	cfg.MaxBodyBytes, err = getEnvInt64OrDefault("TT_MAX_BODY_BYTES", 1*1024*1024)
	if err != nil {
		return nil, err
	}

	if origins := strings.TrimSpace(os.Getenv("TT_CORS_ORIGINS")); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	} else {
		cfg.CORSOrigins = []string{cfg.BaseURL}
	}

	cfg.SessionDays, err = getEnvIntOrDefault("TT_SESSION_DAYS", 7)
	if err != nil {
		return nil, err
	}

	cfg.DefaultCurrency, err = validation.NormalizeCurrency(getEnvOrDefault("TT_DEFAULT_CURRENCY", "PHP"))
	if err != nil {
		return nil, fmt.Errorf("TT_DEFAULT_CURRENCY: %w", err)
	}

	dueSoonHours, err := getEnvIntOrDefault("TT_DUE_SOON_HOURS", 24)
	if err != nil {
		return nil, err
	}
	if dueSoonHours <= 0 || dueSoonHours > 24*30 {
		return nil, fmt.Errorf("TT_DUE_SOON_HOURS must be between 1 and 720 (got: %d)", dueSoonHours)
	}
	cfg.DueSoonThreshold = time.Duration(dueSoonHours) * time.Hour

	if cfg.DueSoonSchedule, err = getEnvSchedule("TT_DUE_SOON_SCHEDULE", "*/15 * * * *"); err != nil {
		return nil, err
	}
	if cfg.RetentionSchedule, err = getEnvSchedule("TT_RETENTION_SCHEDULE", "30 3 * * *"); err != nil {
		return nil, err
	}

	cfg.NotificationRetentionDays, err = getEnvIntOrDefault("TT_NOTIFICATION_RETENTION_DAYS", 90)
	if err != nil {
		return nil, err
	}
	cfg.AuditRetentionDays, err = getEnvIntOrDefault("TT_AUDIT_RETENTION_DAYS", 0)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// PoolOptions returns the database pool sizing.
func (c *Config) PoolOptions() db.PoolOptions {
	return db.PoolOptions{
		MaxConns:  int32(c.DBMaxConns),
		MinConns:  int32(c.DBMinConns),
		SlowQuery: c.DBSlowQuery,
	}
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	return map[string]string{
		"TT_ENV":                         c.Env,
		"TT_HTTP_ADDR":                   c.HTTPAddr,
		"TT_BASE_URL":                    c.BaseURL,
		"TT_DB_DSN":                      redactDSN(c.DBDSN),
		"TT_DB_MAX_CONNS":                strconv.Itoa(c.DBMaxConns),
		"TT_DB_MIN_CONNS":                strconv.Itoa(c.DBMinConns),
		"TT_DB_SLOW_QUERY_MS":            strconv.FormatInt(c.DBSlowQuery.Milliseconds(), 10),
		"TT_JWT_SECRET":                  "[REDACTED]",
		"TT_LOG_LEVEL":                   c.LogLevel,
		"TT_RATE_LIMIT_RPM":              strconv.Itoa(c.RateLimitRPM),
		"TT_LOGIN_RATE_LIMIT_RPM":        strconv.Itoa(c.LoginRateLimitRPM),
		"TT_MAX_BODY_BYTES":              strconv.FormatInt(c.MaxBodyBytes, 10),
		"TT_CORS_ORIGINS":                strings.Join(c.CORSOrigins, ","),
		"TT_SESSION_DAYS":                strconv.Itoa(c.SessionDays),
		"TT_DEFAULT_CURRENCY":            c.DefaultCurrency,
		"TT_DUE_SOON_HOURS":              strconv.Itoa(int(c.DueSoonThreshold / time.Hour)),
		"TT_DUE_SOON_SCHEDULE":           c.DueSoonSchedule,
		"TT_RETENTION_SCHEDULE":          c.RetentionSchedule,
		"TT_NOTIFICATION_RETENTION_DAYS": strconv.Itoa(c.NotificationRetentionDays),
		"TT_AUDIT_RETENTION_DAYS":        strconv.Itoa(c.AuditRetentionDays),
	}
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}

func getEnvInt64OrDefault(key string, defaultValue int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}

// getEnvSchedule reads a standard five-field cron expression
func getEnvSchedule(key, defaultValue string) (string, error) {
	value := getEnvOrDefault(key, defaultValue)
	if _, err := cron.ParseStandard(value); err != nil {
		return "", fmt.Errorf("%s must be a cron expression (got: %q): %w", key, value, err)
	}
	return value, nil
}
