// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// Site identity
	SiteURL      string // public origin of this frontend, used for share links
	SiteTitle    string
	SiteSubtitle string

	// Content API. The internal URLs are reachable from this server only;
	// the public ones from browsers.
	ContentAPIURL    string
	PublicAPIURL     string
	InternalMediaURL string
	PublicMediaURL   string
	HTTPTimeout      time.Duration

	// Feed behaviour
	PageSize           int
	ObserverThreshold  float64
	ObserverRootMargin string
	FeedSessionTTL     time.Duration
	FeedSessionMax     int

	// Caching
	CacheTTL time.Duration

	// Valkey (Redis-compatible cache). Disabled when ValkeyHost is empty.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Extra hosts the image proxy may fetch from.
	ImageRemoteHosts []string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. A .env file (ENV_FILE, default ".env")
// is read first when present; real environment variables win over it.
// Returns an error if a value is malformed or critical values are missing
// in production mode.
func Load() (*Config, error) {
	if err := loadDotEnv(envOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	apiURL := strings.TrimRight(envOrDefault("CONTENT_API_URL", "http://localhost:8000/api/v1"), "/")
	publicAPI := strings.TrimRight(envOrDefault("PUBLIC_API_URL", apiURL), "/")

	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		SiteURL:      strings.TrimRight(envOrDefault("SITE_URL", "http://localhost:8080"), "/"),
		SiteTitle:    envOrDefault("SITE_TITLE", "Inkwell"),
		SiteSubtitle: envOrDefault("SITE_SUBTITLE", "Stories, notes and ideas"),

		ContentAPIURL:    apiURL,
		PublicAPIURL:     publicAPI,
		InternalMediaURL: strings.TrimRight(envOrDefault("INTERNAL_MEDIA_URL", mediaRoot(apiURL)), "/"),
		PublicMediaURL:   strings.TrimRight(envOrDefault("PUBLIC_MEDIA_URL", mediaRoot(publicAPI)), "/"),

		ObserverRootMargin: envOrDefault("OBSERVER_ROOT_MARGIN", "0px"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		ImageRemoteHosts: splitList(os.Getenv("IMAGE_REMOTE_HOSTS")),
	}

	var err error
	if cfg.PageSize, err = envInt("PAGE_SIZE", 9); err != nil {
		return nil, err
	}
	if cfg.FeedSessionMax, err = envInt("FEED_SESSION_MAX", 10000); err != nil {
		return nil, err
	}
	if cfg.ObserverThreshold, err = envFloat("OBSERVER_THRESHOLD", 0.2); err != nil {
		return nil, err
	}
	if cfg.FeedSessionTTL, err = envDuration("FEED_SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = envDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Env == "production" {
		if os.Getenv("SITE_URL") == "" {
			return nil, fmt.Errorf("SITE_URL must be set in production")
		}
		if os.Getenv("CONTENT_API_URL") == "" {
			return nil, fmt.Errorf("CONTENT_API_URL must be set in production")
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 100, got %d", c.PageSize)
	}
	if c.ObserverThreshold < 0 || c.ObserverThreshold > 1 {
		return fmt.Errorf("OBSERVER_THRESHOLD must be in [0, 1], got %v", c.ObserverThreshold)
	}
	for name, raw := range map[string]string{
		"CONTENT_API_URL":    c.ContentAPIURL,
		"PUBLIC_API_URL":     c.PublicAPIURL,
		"INTERNAL_MEDIA_URL": c.InternalMediaURL,
		"PUBLIC_MEDIA_URL":   c.PublicMediaURL,
		"SITE_URL":           c.SiteURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
		}
	}
	return nil
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ValkeyEnabled reports whether a Valkey host is configured.
func (c *Config) ValkeyEnabled() bool {
	return c.ValkeyHost != ""
}

// mediaRoot strips a trailing /api/vN path so media URLs default to the
// API's origin.
func mediaRoot(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return apiURL
	}
	return u.Scheme + "://" + u.Host
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
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
