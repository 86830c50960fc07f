package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type AppConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Port           string

	DatabaseDriver   string
	DatabasePath     string
	DatabaseURL      string
	DBConnectRetries int
	DBConnectBackoff time.Duration
	SQLLog           bool

	CORSOrigins []string

	RateLimitEnabled bool
	RateLimitConfigs map[string]RateLimitConfig

	EnforceHTTPS bool

	OTLPEndpoint string
	MetricsPort  string
	LokiURL      string

	// Location decides which calendar day is "today" for date filters.
	Location *time.Location
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func GetDefaultConfig() *AppConfig {
	return &AppConfig{
		ServiceName:    "taskapp",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Port:           "8080",

		DatabaseDriver:   DriverSQLite,
		DatabasePath:     "tasks.db",
		DBConnectRetries: 5,
		DBConnectBackoff: 2 * time.Second,

		CORSOrigins: []string{"*"},

		RateLimitEnabled: true,
		RateLimitConfigs: map[string]RateLimitConfig{
			"GET /tasks": {
				Requests: 100,
				Window:   time.Minute,
			},
			"POST /tasks": {
				Requests: 30,
				Window:   time.Minute,
			},
			"POST /tasks/import": {
				Requests: 5,
				Window:   time.Minute,
			},
			"GET /tasks/export": {
				Requests: 10,
				Window:   time.Minute,
			},
		},
		EnforceHTTPS: false,

		OTLPEndpoint: "localhost:4317",
		MetricsPort:  "9091",

		Location: time.Local,
	}
}

// Load reads an optional .env file (or the given files) into the process
// environment and builds the configuration from it on top of the defaults.
func Load(envFiles ...string) (*AppConfig, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	return FromEnv(os.LookupEnv)
}

// FromEnv builds the configuration from a lookup function, so tests can feed
// a map instead of the process environment.
func FromEnv(lookup func(string) (string, bool)) (*AppConfig, error) {
	cfg := GetDefaultConfig()
	env := envReader{lookup: lookup}

	cfg.Port = env.getString("PORT", cfg.Port)
	cfg.Environment = env.getString("APP_ENV", cfg.Environment)

	if mode, _ := lookup("GIN_MODE"); mode == "release" {
		cfg.Environment = "production"
		cfg.EnforceHTTPS = true
	}

	cfg.DatabaseDriver = strings.ToLower(env.getString("DATABASE_DRIVER", cfg.DatabaseDriver))
	cfg.DatabasePath = env.getString("DATABASE_PATH", cfg.DatabasePath)
	cfg.DatabaseURL = env.getString("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBConnectRetries = env.getInt("DB_CONNECT_RETRIES", cfg.DBConnectRetries)
	cfg.DBConnectBackoff = env.getDuration("DB_CONNECT_BACKOFF", cfg.DBConnectBackoff)
	cfg.SQLLog = env.getBool("SQL_LOG", cfg.SQLLog)

	if origins, ok := lookup("CORS_ORIGINS"); ok && strings.TrimSpace(origins) != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	cfg.EnforceHTTPS = env.getBool("ENFORCE_HTTPS", cfg.EnforceHTTPS)
	cfg.RateLimitEnabled = env.getBool("RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)

	cfg.OTLPEndpoint = env.getString("OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.MetricsPort = env.getString("METRICS_PORT", cfg.MetricsPort)
	cfg.LokiURL = env.getString("LOKI_URL", cfg.LokiURL)

	if tz, ok := lookup("TIMEZONE"); ok && tz != "" {
		loc, err := time.LoadLocation(tz)

		if err != nil {
			env.errs = append(env.errs, fmt.Errorf("TIMEZONE: %w", err))
		} else {
			cfg.Location = loc
		}
	}

	switch cfg.DatabaseDriver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		env.errs = append(env.errs, fmt.Errorf("DATABASE_DRIVER: unsupported driver %q", cfg.DatabaseDriver))
	}

	if cfg.DatabaseDriver == DriverPostgres && cfg.DatabaseURL == "" {
		env.errs = append(env.errs, errors.New("DATABASE_URL is required for the postgres driver"))
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Now returns the current time in the configured location.
func (c *AppConfig) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}

	return time.Now().In(c.Location)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) getString(key, fallback string) string {
	if value, ok := e.lookup(key); ok && value != "" {
		return value
	}

	return fallback
}

func (e *envReader) getInt(key string, fallback int) int {
	value, ok := e.lookup(key)

	if !ok || value == "" {
		return fallback
	}

	n, err := strconv.Atoi(value)

	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}

	return n
}

func (e *envReader) getBool(key string, fallback bool) bool {
	value, ok := e.lookup(key)

	if !ok || value == "" {
		return fallback
	}

	b, err := strconv.ParseBool(value)

	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}

	return b
}

// getDuration accepts Go durations ("500ms") and plain seconds ("2").
func (e *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := e.lookup(key)

	if !ok || value == "" {
		return fallback
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}

	d, err := time.ParseDuration(value)

	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}

	return d
}

func splitList(value string) []string {
	var out []string

	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
