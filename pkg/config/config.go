package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for site-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (keys, session secret) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Remote structured store (CRUD backend of record)
	Remote RemoteConfig `yaml:"remote"`

	// Local fallback cache
	Cache CacheConfig `yaml:"cache"`

	// Cross-context synchronization
	Sync SyncConfig `yaml:"sync"`

	// Administrator authentication
	Auth AuthConfig `yaml:"auth"`
}

// RemoteConfig addresses the remote structured store. A missing or
// placeholder URL/key is a recognized signal meaning "treat as unreachable",
// not an error to surface.
type RemoteConfig struct {
	// URL is the project base URL, e.g. https://abcdef.supabase.co
	URL string `yaml:"url" env:"REMOTE_STORE_URL" env-default:""`

	// Key is the project access key. Secret - not in YAML.
	Key string `yaml:"-" env:"REMOTE_STORE_KEY"`

	// Bucket is the public storage bucket for uploaded images.
	Bucket string `yaml:"bucket" env:"REMOTE_STORE_BUCKET" env-default:"images"`

	// TimeoutSeconds is the per-request timeout for remote calls.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"REMOTE_STORE_TIMEOUT_SECONDS" env-default:"30"`
}

// placeholderMarkers are substrings that identify template credentials that
// were never replaced with real project values.
var placeholderMarkers = []string{"YOUR_", "your-project-ref", "your-anon-key"}

// Configured reports whether real remote credentials are present.
func (r *RemoteConfig) Configured() bool {
	if r.URL == "" || r.Key == "" {
		return false
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(r.URL, marker) || strings.Contains(r.Key, marker) {
			return false
		}
	}
	return true
}

// Timeout returns the per-request timeout as a duration.
func (r *RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// CacheConfig holds the durable fallback cache settings.
type CacheConfig struct {
	// Path is the sqlite file backing the cache. Shared by every context on
	// the same host.
	Path string `yaml:"path" env:"CACHE_PATH" env-default:"site-engine-cache.db"`
}

// SyncConfig holds the sync broadcaster settings.
type SyncConfig struct {
	// PollSeconds is the periodic re-pull interval.
	PollSeconds int `yaml:"poll_seconds" env:"SYNC_POLL_SECONDS" env-default:"300"`

	// SlotKey is the well-known key carrying the cross-context envelope.
	SlotKey string `yaml:"slot_key" env:"SYNC_SLOT_KEY" env-default:"site_admin_update"`

	// Redis carries the cross-context signal. Optional: with no redis the
	// broadcaster still converges through polling.
	RedisAddr     string `yaml:"redis_addr" env:"SYNC_REDIS_ADDR" env-default:""`
	RedisPassword string `yaml:"-" env:"SYNC_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"SYNC_REDIS_DB" env-default:"0"`
}

// PollInterval returns the poll period as a duration.
func (s *SyncConfig) PollInterval() time.Duration {
	return time.Duration(s.PollSeconds) * time.Second
}

// AuthConfig holds administrator authentication settings.
type AuthConfig struct {
	// FallbackUsersStr is a comma-separated list of email=password pairs
	// accepted when the remote identity provider is unreachable.
	FallbackUsersStr string `yaml:"-" env:"AUTH_FALLBACK_USERS" env-default:""`

	// FallbackUsers is the parsed map from FallbackUsersStr.
	FallbackUsers map[string]string `yaml:"-"`

	// SessionSecret signs fallback session tokens and the admin cookie.
	// Secret - not in YAML.
	SessionSecret string `yaml:"-" env:"AUTH_SESSION_SECRET"`

	// SessionTTLHours is the fallback session lifetime.
	SessionTTLHours int `yaml:"session_ttl_hours" env:"AUTH_SESSION_TTL_HOURS" env-default:"24"`
}

// SessionTTL returns the fallback session lifetime as a duration.
func (a *AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLHours) * time.Hour
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. A missing config.yaml is fine: everything has an env tag
// or a default.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.Auth.FallbackUsers = parseFallbackUsers(cfg.Auth.FallbackUsersStr)

	return cfg, nil
}

// parseFallbackUsers parses the fallback user string into a map.
// Format: "email1=password1,email2=password2"
func parseFallbackUsers(value string) map[string]string {
	users := make(map[string]string)
	if value == "" {
		return users
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			users[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return users
}
