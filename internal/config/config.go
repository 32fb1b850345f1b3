// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Content    ContentConfig    `mapstructure:"content"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	GCS        GCSConfig        `mapstructure:"gcs"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Revalidate RevalidateConfig `mapstructure:"revalidate"`
	Audit      AuditConfig      `mapstructure:"audit"`
	CMS        CMSConfig        `mapstructure:"cms"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig holds the single publishing credential.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// RateLimitConfig governs the fixed-window publish limiter.
type RateLimitConfig struct {
	Requests      int `mapstructure:"requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// ContentConfig sets where documents live and how they are exposed.
type ContentConfig struct {
	// Provider selects the content store backend: github, gcs, or memory.
	Provider string `mapstructure:"provider"`
	// Dir is the content directory in the remote store.
	Dir string `mapstructure:"dir"`
	// PublicBasePath prefixes article slugs to form public paths.
	PublicBasePath string `mapstructure:"public_base_path"`
	// ListingPath is the public path of the article listing page.
	ListingPath string `mapstructure:"listing_path"`
	// SiteURL is the absolute site origin used in the sitemap.
	SiteURL string `mapstructure:"site_url"`
	// MaxBodyBytes caps publish request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// GitHubConfig configures the GitHub contents store.
type GitHubConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	Owner   string `mapstructure:"owner"`
	Repo    string `mapstructure:"repo"`
	Branch  string `mapstructure:"branch"`
}

// GCSConfig configures the Cloud Storage store.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// RetryConfig bounds retries of the upsert's version read.
type RetryConfig struct {
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// RevalidateConfig selects how cache invalidation is signalled.
type RevalidateConfig struct {
	// Provider is one of webhook, pubsub, or noop.
	Provider   string `mapstructure:"provider"`
	WebhookURL string `mapstructure:"webhook_url"`
	Secret     string `mapstructure:"secret"`
	ProjectID  string `mapstructure:"project_id"`
	TopicID    string `mapstructure:"topic_id"`
}

// AuditConfig selects the publish audit store.
type AuditConfig struct {
	// Provider is one of postgres or noop.
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
}

// CMSConfig controls the reverse proxy to the local headless CMS server.
type CMSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTENTAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("content.provider", "memory")
	v.SetDefault("content.dir", "content/articles")
	v.SetDefault("content.public_base_path", "/")
	v.SetDefault("content.listing_path", "/blog")
	v.SetDefault("content.site_url", "https://serpapis.com")
	v.SetDefault("content.max_body_bytes", 1<<20)
	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.branch", "main")
	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.backoff_initial_ms", 250)
	v.SetDefault("retry.backoff_max_ms", 2000)
	v.SetDefault("revalidate.provider", "noop")
	v.SetDefault("audit.provider", "noop")
	v.SetDefault("cms.enabled", false)
	v.SetDefault("cms.url", "http://localhost:4001")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate_limit.requests must be > 0")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate_limit.window_seconds must be > 0")
	}
	if c.Content.MaxBodyBytes <= 0 {
		return fmt.Errorf("content.max_body_bytes must be > 0")
	}
	switch c.Content.Provider {
	case "github", "gcs", "memory":
	default:
		return fmt.Errorf("content.provider must be github, gcs, or memory")
	}
	switch c.Revalidate.Provider {
	case "webhook", "pubsub", "noop":
	default:
		return fmt.Errorf("revalidate.provider must be webhook, pubsub, or noop")
	}
	switch c.Audit.Provider {
	case "postgres", "noop":
	default:
		return fmt.Errorf("audit.provider must be postgres or noop")
	}
	return nil
}

// RateWindow returns the limiter window as a duration.
func (c Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// ServerTimeout returns the per-request timeout as a duration.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// BackoffInitial returns the initial read-retry backoff as a duration.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.Retry.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the read-retry backoff ceiling as a duration.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.Retry.BackoffMaxMs) * time.Millisecond
}

// PublicPath returns the public URL path for a slug.
func (c Config) PublicPath(slug string) string {
	base := strings.TrimSuffix(c.Content.PublicBasePath, "/")
	return base + "/" + slug
}
