// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// JWTSecret signs and verifies bearer tokens (HS256). Required.
	JWTSecret string

	// TokenTTL is the lifetime of issued tokens. Defaults to 24h.
	TokenTTL time.Duration

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// RedisURL selects Redis for the response cache and visitor preferences.
	// Empty keeps both in process memory.
	RedisURL string

	// DemoAuth mounts POST /api/auth/demo, which issues tokens without
	// credentials. Never enable outside development.
	DemoAuth bool

	TravelerFeePct float64
	GuideFeePct    float64

	// HoldTTL is how long a pending reservation holds its slots.
	HoldTTL time.Duration
	// HoldSweepSchedule is the cron spec of the hold expiry job.
	HoldSweepSchedule string

	CacheTTL       time.Duration
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set and any
// optional ones that do not parse.
func Load() (Config, error) {
	var p parser
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigins:       splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisURL:          os.Getenv("REDIS_URL"),
		DemoAuth:          p.bool("DEMO_AUTH", false),
		TokenTTL:          p.duration("TOKEN_TTL", 24*time.Hour),
		TravelerFeePct:    p.percent("TRAVELER_FEE_PCT", 10),
		GuideFeePct:       p.percent("GUIDE_FEE_PCT", 15),
		HoldTTL:           p.duration("HOLD_TTL", 30*time.Minute),
		HoldSweepSchedule: p.schedule("HOLD_SWEEP_SCHEDULE", "@every 1m"),
		CacheTTL:          p.duration("CACHE_TTL", 5*time.Minute),
		MaxBodyBytes:      int64(p.positiveInt("MAX_BODY_BYTES", 1<<20)),
		RateLimitRPS:      p.positiveFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:    p.positiveInt("RATE_LIMIT_BURST", 40),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(p.invalid, "; "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parser reads typed optional variables and collects every parse failure so
// they can be reported together.
type parser struct {
	invalid []string
}

func (p *parser) fail(key, v, want string) {
	p.invalid = append(p.invalid, fmt.Sprintf("%s=%q (want %s)", key, v, want))
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, "true or false")
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.fail(key, v, "a positive duration such as 30m")
		return fallback
	}
	return d
}

func (p *parser) percent(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 100 {
		p.fail(key, v, "a number between 0 and 100")
		return fallback
	}
	return f
}

func (p *parser) positiveFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		p.fail(key, v, "a positive number")
		return fallback
	}
	return f
}

func (p *parser) positiveInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		p.fail(key, v, "a positive integer")
		return fallback
	}
	return n
}

func (p *parser) schedule(key, fallback string) string {
	v := getEnv(key, fallback)
	if _, err := cron.ParseStandard(v); err != nil {
		p.fail(key, v, "a cron spec such as @every 1m")
		return fallback
	}
	return v
}
