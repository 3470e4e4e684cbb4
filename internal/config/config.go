package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/storage"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	Timezone string

	// Storage
	DataBackend string
	SQLitePath  string
	PostgresDSN string
	MongoURI    string
	MongoDB     string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Assistant: Gemini direto ou o agent HTTP
	GeminiAPIKey         string
	GeminiModel          string
	AgentAPIURL          string
	ForecastHistoryLimit int

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Session
	SessionSecret string
	SessionTTL    time.Duration

	// Events
	AMQPURL      string
	AMQPExchange string

	// Dashboard
	TopCategories    int
	UpcomingLimit    int
	ProjectionMonths int
}

const devSessionSecret = "financas-dev-secret-change-me"

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "America/Sao_Paulo"),

		DataBackend: strings.ToLower(getEnv("DATA_BACKEND", storage.BackendSQLite)),
		SQLitePath:  getEnv("SQLITE_PATH", "financas.db"),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		MongoURI:    getEnv("MONGO_URI", ""),
		MongoDB:     getEnv("MONGO_DB", "financas"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		GeminiAPIKey:         getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AgentAPIURL:          getEnv("AGENT_API_URL", ""),
		ForecastHistoryLimit: getEnvInt("FORECAST_HISTORY_LIMIT", 50),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		CacheTTL: getEnvDuration("CACHE_TTL", 10*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SessionSecret: getEnv("SESSION_SECRET", devSessionSecret),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financas.ledger"),

		TopCategories:    getEnvInt("TOP_CATEGORIES", 8),
		UpcomingLimit:    getEnvInt("UPCOMING_LIMIT", 5),
		ProjectionMonths: getEnvInt("PROJECTION_MONTHS", 6),
	}
}

// Location resolves Timezone. Validate reports a bad name; here it falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UsesDevSecret reports whether sessions are signed with the built-in secret.
func (c *Config) UsesDevSecret() bool {
	return c.SessionSecret == devSessionSecret
}

// Validate checks every setting and returns all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}

	switch c.DataBackend {
	case storage.BackendMemory:
	case storage.BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	case storage.BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	case storage.BackendMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo backend"))
		}
	case storage.BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATA_BACKEND %q is not one of memory, sqlite, postgres, mongo, supabase", c.DataBackend))
	}

	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET must not be empty"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.ForecastHistoryLimit <= 0 {
		errs = append(errs, errors.New("FORECAST_HISTORY_LIMIT must be positive"))
	}
	if c.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("MAX_CONCURRENCY must be positive"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("MAX_RETRIES must not be negative"))
	}
	if c.TopCategories <= 0 || c.UpcomingLimit <= 0 || c.ProjectionMonths <= 0 {
		errs = append(errs, errors.New("TOP_CATEGORIES, UPCOMING_LIMIT and PROJECTION_MONTHS must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
