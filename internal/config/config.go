// Package config resolves command configuration from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joonyo2/yugwan/internal/types"
	"github.com/pkg/errors"
)

const (
	envVar            = "YUGWAN_ENV"
	hostVar           = "YUGWAN_HOST"
	baseURLVar        = "YUGWAN_BASE_URL"
	sessionBackendVar = "YUGWAN_SESSION_BACKEND"
	sessionFileVar    = "YUGWAN_SESSION_FILE"
	sqliteDSNVar      = "YUGWAN_SQLITE_DSN"
	redisAddrVar      = "YUGWAN_REDIS_ADDR"
	redisPasswordVar  = "YUGWAN_REDIS_PASSWORD"
	namespaceVar      = "YUGWAN_NAMESPACE"
	timeoutVar        = "YUGWAN_TIMEOUT"
	rateLimitVar      = "YUGWAN_RATE_LIMIT"
	maxRetriesVar     = "YUGWAN_MAX_RETRIES"
	logLevelVar       = "LOG_LEVEL"
	logFormatVar      = "LOG_FORMAT"
	sentryDSNVar      = "SENTRY_DSN"
)

// Session backend names
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the resolved configuration of a command
type Config struct {
	Environment    types.Environment
	BaseURL        string
	SessionBackend string
	SessionFile    string
	SQLiteDSN      string
	RedisAddr      string
	RedisPassword  string
	Namespace      string
	Timeout        time.Duration
	// RateLimit is requests per second; zero disables limiting
	RateLimit  float64
	MaxRetries int
	LogLevel   string
	LogFormat  string
	SentryDSN  string
}

// GetEnv returns the value of envVar or defaultValue when unset or empty
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// Load reads the configuration once
func Load() (*Config, error) {
	cfg := &Config{
		SessionBackend: strings.ToLower(GetEnv(sessionBackendVar, BackendFile)),
		SessionFile:    GetEnv(sessionFileVar, DefaultSessionFile()),
		SQLiteDSN:      GetEnv(sqliteDSNVar, "yugwan-session.db"),
		RedisAddr:      GetEnv(redisAddrVar, "localhost:6379"),
		RedisPassword:  GetEnv(redisPasswordVar, ""),
		Namespace:      GetEnv(namespaceVar, "default"),
		LogLevel:       GetEnv(logLevelVar, "warn"),
		LogFormat:      GetEnv(logFormatVar, "console"),
		SentryDSN:      GetEnv(sentryDSNVar, ""),
	}

	// an explicit environment wins over one derived from the host
	switch {
	case os.Getenv(envVar) != "":
		cfg.Environment = types.ParseEnvironment(os.Getenv(envVar))
	case os.Getenv(hostVar) != "":
		cfg.Environment = types.EnvironmentForHost(os.Getenv(hostVar))
	default:
		cfg.Environment = types.EnvironmentProduction
	}
	cfg.BaseURL = GetEnv(baseURLVar, cfg.Environment.BaseURL())

	switch cfg.SessionBackend {
	case BackendMemory, BackendFile, BackendSQLite, BackendRedis:
	default:
		return nil, errors.Errorf("%s: unknown session backend %q", sessionBackendVar, cfg.SessionBackend)
	}

	if raw := os.Getenv(timeoutVar); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout < 0 {
			return nil, errors.Errorf("%s: invalid duration %q", timeoutVar, raw)
		}
		cfg.Timeout = timeout
	}

	if raw := os.Getenv(rateLimitVar); raw != "" {
		limit, err := strconv.ParseFloat(raw, 64)
		if err != nil || limit < 0 {
			return nil, errors.Errorf("%s: invalid rate %q", rateLimitVar, raw)
		}
		cfg.RateLimit = limit
	}

	if raw := os.Getenv(maxRetriesVar); raw != "" {
		retries, err := strconv.Atoi(raw)
		if err != nil || retries < 0 {
			return nil, errors.Errorf("%s: invalid count %q", maxRetriesVar, raw)
		}
		cfg.MaxRetries = retries
	}

	return cfg, nil
}

// DefaultSessionFile is the session document under the user's config dir
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "yugwan", "session.json")
}
