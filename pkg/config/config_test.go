package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Version)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 300, cfg.Sync.PollSeconds)
	assert.Equal(t, 24, cfg.Auth.SessionTTLHours)
	assert.Equal(t, "site_admin_update", cfg.Sync.SlotKey)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })

	raw, err := yaml.Marshal(map[string]any{
		"port": "9999",
		"sync": map[string]any{"poll_seconds": 60},
		"remote": map[string]any{
			"url":    "https://abcdef.example.co",
			"bucket": "media",
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), raw, 0o644))

	cfg, err := Load("dev")
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 60, cfg.Sync.PollSeconds)
	assert.Equal(t, "media", cfg.Remote.Bucket)
}

func TestRemoteConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  RemoteConfig
		want bool
	}{
		{"empty url", RemoteConfig{Key: "real-key-value"}, false},
		{"empty key", RemoteConfig{URL: "https://abcdef.example.co"}, false},
		{"placeholder url", RemoteConfig{URL: "YOUR_PROJECT_URL", Key: "real-key-value"}, false},
		{"placeholder ref", RemoteConfig{URL: "https://your-project-ref.example.co", Key: "k"}, false},
		{"placeholder key", RemoteConfig{URL: "https://abcdef.example.co", Key: "your-anon-key"}, false},
		{"configured", RemoteConfig{URL: "https://abcdef.example.co", Key: "eyJhbGciOiJIUzI1NiJ9"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Configured())
		})
	}
}

func TestParseFallbackUsers(t *testing.T) {
	users := parseFallbackUsers("admin@example.com=secret1, demo@example.com=secret2")
	assert.Equal(t, map[string]string{
		"admin@example.com": "secret1",
		"demo@example.com":  "secret2",
	}, users)

	assert.Empty(t, parseFallbackUsers(""))
	assert.Empty(t, parseFallbackUsers("malformed"))
}
