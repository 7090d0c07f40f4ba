// Package config provides application configuration loaded from an optional
// TOML file and environment variables, with defaults and validation. It
// centralizes settings such as server timeouts, logging, the database
// backend, rate limiting, the AI provider, and observability.
//
// Precedence (lowest to highest): built-in defaults, the TOML file named by
// CONFIG_FILE (if it exists), environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tbourn/go-documind-backend/internal/utils"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `toml:"enable_hsts"`
	HSTSMaxAge time.Duration `toml:"hsts_max_age"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `toml:"enabled"`      // OTEL_ENABLED
	Endpoint    string  `toml:"endpoint"`     // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    `toml:"insecure"`     // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  `toml:"service_name"` // OTEL_SERVICE_NAME
	SampleRatio float64 `toml:"sample_ratio"` // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AIConfig selects and configures the text generator behind the assistance endpoint.
type AIConfig struct {
	Provider string        `toml:"provider"` // template|openai
	BaseURL  string        `toml:"base_url"` // OpenAI-compatible API root
	APIKey   string        `toml:"api_key"`
	Model    string        `toml:"model"`
	Timeout  time.Duration `toml:"timeout"`
}

// DemoConfig describes the single stand-in user seeded in place of auth.
type DemoConfig struct {
	Email string `toml:"email"`
	Name  string `toml:"name"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `toml:"port"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
	ReadHeaderTimeout time.Duration `toml:"read_header_timeout"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	IdleTimeout       time.Duration `toml:"idle_timeout"`
	MaxHeaderBytes    int           `toml:"max_header_bytes"`
	GinMode           string        `toml:"gin_mode"` // debug|release|test

	// Logging / Docs
	LogLevel       string `toml:"log_level"` // debug|info|warn|error|fatal|panic
	LogPretty      bool   `toml:"log_pretty"`
	SwaggerEnabled bool   `toml:"swagger_enabled"`
	APIBasePath    string `toml:"api_base_path"`

	// Store
	DBDriver    string `toml:"db_driver"`    // sqlite|postgres
	DBPath      string `toml:"db_path"`      // SQLite path
	DatabaseURL string `toml:"database_url"` // Postgres DSN

	// Documents
	EnforceUpdateOwnership bool `toml:"enforce_update_ownership"`

	// Rate limiting
	RateRPS   float64 `toml:"rate_rps"`   // tokens per second (>= 0)
	RateBurst int     `toml:"rate_burst"` // bucket size (>= 1)
	RedisAddr string  `toml:"redis_addr"` // shared limiter when set
	// RateAssistCost is how many tokens one assistance request consumes.
	RateAssistCost int `toml:"rate_assist_cost"`

	// Web protection
	CORS     CORSConfig     `toml:"cors"`
	Security SecurityConfig `toml:"security"`

	// Idempotency
	IdempotencyTTL time.Duration `toml:"idempotency_ttl"`

	AI   AIConfig   `toml:"ai"`
	Demo DemoConfig `toml:"demo"`

	// Observability
	OTEL OTELConfig `toml:"otel"`
}

// Defaults returns the built-in configuration before any file or env overlay.
func Defaults() Config {
	return Config{
		Port:              "8080",
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		GinMode:           "release",

		LogLevel:    "info",
		APIBasePath: "/api/v1",

		DBDriver: "sqlite",
		DBPath:   "documind.db",

		RateRPS:        5.0,
		RateBurst:      10,
		RateAssistCost: 3,

		Security: SecurityConfig{
			HSTSMaxAge: 180 * 24 * time.Hour,
		},

		IdempotencyTTL: 24 * time.Hour,

		AI: AIConfig{
			Provider: "template",
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
			Timeout:  60 * time.Second,
		},
		Demo: DemoConfig{
			Email: "demo@documind.local",
			Name:  "Demo User",
		},

		OTEL: OTELConfig{
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "documind-backend",
			SampleRatio: 1.0,
		},
	}
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from the optional TOML file and environment
// variables, applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Defaults()

	if path := getenv("CONFIG_FILE", ""); path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("decode config file: %w", err)
			}
		}
	}

	// Server
	cfg.Port = getenv("PORT", cfg.Port)
	cfg.ReadTimeout = getdur("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.ReadHeaderTimeout = getdur("READ_HEADER_TIMEOUT", cfg.ReadHeaderTimeout)
	cfg.WriteTimeout = getdur("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.IdleTimeout = getdur("IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.MaxHeaderBytes = getint("MAX_HEADER_BYTES", cfg.MaxHeaderBytes)
	cfg.GinMode = strings.ToLower(getenv("GIN_MODE", cfg.GinMode))

	// Logging / Docs
	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogPretty = getbool("LOG_PRETTY", cfg.LogPretty)
	cfg.SwaggerEnabled = getbool("SWAGGER_ENABLED", cfg.SwaggerEnabled)
	cfg.APIBasePath = normalizeBasePath(getenv("API_BASE_PATH", cfg.APIBasePath))

	// Store
	cfg.DBDriver = strings.ToLower(getenv("DB_DRIVER", cfg.DBDriver))
	cfg.DBPath = getenv("DB_PATH", cfg.DBPath)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.EnforceUpdateOwnership = getbool("ENFORCE_UPDATE_OWNERSHIP", cfg.EnforceUpdateOwnership)

	// Rate limiting
	cfg.RateRPS = getfloat("RATE_RPS", cfg.RateRPS)
	cfg.RateBurst = getint("RATE_BURST", cfg.RateBurst)
	cfg.RateAssistCost = getint("RATE_ASSIST_COST", cfg.RateAssistCost)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)

	// Web protection
	if v := getenv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		cfg.CORS.AllowedOrigins = splitCSV(v)
	}
	cfg.Security.EnableHSTS = getbool("ENABLE_HSTS", cfg.Security.EnableHSTS)
	cfg.Security.HSTSMaxAge = getdur("HSTS_MAX_AGE", cfg.Security.HSTSMaxAge)

	cfg.IdempotencyTTL = getdur("IDEMPOTENCY_TTL", cfg.IdempotencyTTL)

	// AI
	cfg.AI.Provider = strings.ToLower(getenv("AI_PROVIDER", cfg.AI.Provider))
	cfg.AI.BaseURL = getenv("AI_BASE_URL", cfg.AI.BaseURL)
	cfg.AI.APIKey = getenv("AI_API_KEY", cfg.AI.APIKey)
	cfg.AI.Model = getenv("AI_MODEL", cfg.AI.Model)
	cfg.AI.Timeout = getdur("AI_TIMEOUT", cfg.AI.Timeout)

	cfg.Demo.Email = getenv("DEMO_USER_EMAIL", cfg.Demo.Email)
	cfg.Demo.Name = getenv("DEMO_USER_NAME", cfg.Demo.Name)

	// Observability (OpenTelemetry)
	cfg.OTEL.Enabled = getbool("OTEL_ENABLED", cfg.OTEL.Enabled)
	cfg.OTEL.Endpoint = getenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTEL.Endpoint)
	cfg.OTEL.Insecure = getbool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OTEL.Insecure)
	cfg.OTEL.ServiceName = getenv("OTEL_SERVICE_NAME", cfg.OTEL.ServiceName)
	cfg.OTEL.SampleRatio = getfloat("OTEL_TRACES_SAMPLER_ARG", cfg.OTEL.SampleRatio)

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (cfg Config) Validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("DATABASE_URL must not be empty when DB_DRIVER=postgres")
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.RateAssistCost < 1 {
		return errors.New("RATE_ASSIST_COST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	switch cfg.AI.Provider {
	case "template":
	case "openai":
		if strings.TrimSpace(cfg.AI.APIKey) == "" {
			return errors.New("AI_API_KEY must be set when AI_PROVIDER=openai")
		}
	default:
		return errors.New("AI_PROVIDER must be one of: template, openai")
	}
	if cfg.AI.Timeout <= 0 {
		return errors.New("AI_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.Demo.Email) == "" {
		return errors.New("DEMO_USER_EMAIL must not be empty")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (cfg Config) Addr() string { return ":" + cfg.Port }

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	return utils.AtoiDefault(os.Getenv(k), def)
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
