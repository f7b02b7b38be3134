package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir      string        `mapstructure:"MIGRATIONS_DIR"`
	AuthJWTSecret      string        `mapstructure:"AUTH_JWT_SECRET"`
	AuthJWKSURL        string        `mapstructure:"AUTH_JWKS_URL"`
	AuthIssuer         string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience       string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit          string        `mapstructure:"BODY_LIMIT"`
	GuestStorePath     string        `mapstructure:"GUEST_STORE_PATH"`
	GuestRetentionDays int           `mapstructure:"GUEST_RETENTION_DAYS"`
	AttemptTTL         time.Duration `mapstructure:"ATTEMPT_TTL"`
	LLMBaseURL         string        `mapstructure:"LLM_BASE_URL"`
	LLMAPIKey          string        `mapstructure:"LLM_API_KEY"`
	LLMModel           string        `mapstructure:"LLM_MODEL"`
	LLMTimeout         time.Duration `mapstructure:"LLM_TIMEOUT"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LogFile            string        `mapstructure:"LOG_FILE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"AUTH_JWT_SECRET", "AUTH_JWKS_URL", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"GUEST_STORE_PATH", "GUEST_RETENTION_DAYS", "ATTEMPT_TTL",
	"LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL", "LLM_TIMEOUT",
	"LOG_LEVEL", "LOG_FILE",
}

// Load reads the environment, then an optional .env file in the working
// directory. Environment variables win.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("BODY_LIMIT", "256K")
	v.SetDefault("GUEST_STORE_PATH", "data/guests.db")
	v.SetDefault("GUEST_RETENTION_DAYS", 180)
	v.SetDefault("ATTEMPT_TTL", "2h")
	v.SetDefault("LLM_BASE_URL", "https://api.openai.com")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env file is fine
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Decoded slices keep the spaces around commas
	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HasDatabase reports whether signed-in users can be served. Without a
// database only guests are.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasUserAuth reports whether bearer tokens can be verified.
func (c *Config) HasUserAuth() bool {
	return c.AuthJWTSecret != "" || c.AuthJWKSURL != "" || c.AuthIssuer != ""
}

// AnalysisEnabled reports whether AI analysis is configured.
func (c *Config) AnalysisEnabled() bool {
	return c.LLMAPIKey != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("PORT must be a port number, got %q", c.Port)
	}
	switch c.Env {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENV must be development, staging or production, got %q", c.Env)
	}

	if c.HasDatabase() && !c.HasUserAuth() && !c.IsDev() {
		return fmt.Errorf("DATABASE_URL is set but no AUTH_JWT_SECRET, AUTH_JWKS_URL or AUTH_ISSUER; " +
			"signed-in users could never be verified")
	}
	if c.AuthJWTSecret != "" && len(c.AuthJWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.DBMinConns < 0 || c.DBMaxConns < 1 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) and DB_MAX_CONNS (%d) are inconsistent", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst == 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive when RATE_LIMIT_RPS is set")
	}
	if c.GuestStorePath == "" {
		return fmt.Errorf("GUEST_STORE_PATH is required")
	}
	if c.GuestRetentionDays < 1 {
		return fmt.Errorf("GUEST_RETENTION_DAYS must be at least 1, got %d", c.GuestRetentionDays)
	}
	if c.AttemptTTL <= 0 {
		return fmt.Errorf("ATTEMPT_TTL must be positive")
	}
	if c.AnalysisEnabled() && c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.RequestTimeout > 0 && c.AnalysisEnabled() && c.RequestTimeout <= c.LLMTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed LLM_TIMEOUT (%s)", c.RequestTimeout, c.LLMTimeout)
	}
	return nil
}
