// Package config builds the immutable service configuration from the
// environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DefaultJolpicaURL = "https://api.jolpi.ca/ergast/f1"
	DefaultOpenF1URL  = "https://api.openf1.org/v1"
)

// Config is constructed once at startup and passed to the components that
// need it. Its fields are not modified afterwards.
type Config struct {
	ListenAddr         string
	CORSOrigins        []string
	CacheDir           string
	CacheDSN           string
	CacheTTL           time.Duration
	CachePruneSchedule string
	CacheWarmSchedule  string
	LogLevel           slog.Level
	Workers            int
	HTTPTimeout        time.Duration
	JolpicaBaseURL     string
	OpenF1BaseURL      string
	RateLimit          int
	RateLimitWindow    time.Duration
	// RateLimitExempt holds Authorization header values that bypass the limit.
	RateLimitExempt    []string
}

// Load reads envFile (when it exists) into the process environment and then
// builds a Config from it.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return Config{}, errors.Wrapf(err, "loading %s", envFile)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}
	cfg := Config{
		ListenAddr:         p.str("LISTEN_ADDR", ":8000"),
		CORSOrigins:        p.list("CORS_ORIGINS", []string{"*"}),
		CacheDir:           p.str("CACHE_DIR", "f1_cache"),
		CacheDSN:           p.str("CACHE_DSN", ""),
		CacheTTL:           p.duration("CACHE_TTL", 24*time.Hour),
		CachePruneSchedule: p.str("CACHE_PRUNE_SCHEDULE", "@hourly"),
		CacheWarmSchedule:  p.str("CACHE_WARM_SCHEDULE", ""),
		LogLevel:           p.level("LOG_LEVEL", slog.LevelInfo),
		Workers:            p.integer("WORKERS", 8),
		HTTPTimeout:        p.duration("HTTP_TIMEOUT", 30*time.Second),
		JolpicaBaseURL:     strings.TrimRight(p.str("JOLPICA_BASE_URL", DefaultJolpicaURL), "/"),
		OpenF1BaseURL:      strings.TrimRight(p.str("OPENF1_BASE_URL", DefaultOpenF1URL), "/"),
		RateLimit:          p.integer("RATE_LIMIT", 0),
		RateLimitWindow:    p.duration("RATE_LIMIT_WINDOW", 5*time.Minute),
		RateLimitExempt:    p.list("RATE_LIMIT_EXEMPT_KEYS", nil),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.Workers < 1 {
		return Config{}, fmt.Errorf("WORKERS must be at least 1, got %d", cfg.Workers)
	}
	if cfg.RateLimit < 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT must not be negative, got %d", cfg.RateLimit)
	}
	return cfg, nil
}

// CacheDriver names the database/sql driver backing the response cache.
func (c Config) CacheDriver() string {
	if strings.HasPrefix(c.CacheDSN, "postgres://") || strings.HasPrefix(c.CacheDSN, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// parser keeps the first error so FromEnv can read every key in one pass.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) list(key string, def []string) []string {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
		p.fail(key, v, err)
		return def
	}
	return l
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = errors.Wrapf(err, "invalid %s %q", key, value)
	}
}
