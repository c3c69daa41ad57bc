package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/techpost/internal/auth/federation"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_CONFIG_FILE", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
issuer: file-issuer
access_ttl: 5m
refresh_ttl: 48h
revocation_backend: valkey
valkey:
  address: cache:6379
  key_prefix: "tp:"
oauth:
  google:
    client_id: gid
    client_secret: gsecret
    redirect_url: https://example.test/login/oauth2/code/google
port: 9000
`), 0600))

	t.Setenv("AUTH_ISSUER", "env-issuer")
	t.Setenv("VALKEY_DB", "3")
	t.Setenv("AUTH_COOKIE_SECURE", "true")
	t.Setenv("AUTH_OAUTH_KAKAO_CLIENT_ID", "kid")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "env-issuer", cfg.Issuer)
	require.Equal(t, 5*time.Minute, cfg.AccessTTL)
	require.Equal(t, 48*time.Hour, cfg.RefreshTTL)
	require.Equal(t, BackendValkey, cfg.RevocationBackend)
	require.Equal(t, ValkeyConfig{Address: "cache:6379", DB: 3, KeyPrefix: "tp:"}, cfg.Valkey)
	require.True(t, cfg.CookieSecure)
	require.Equal(t, 9000, cfg.Port)

	require.Equal(t, "gid", cfg.OAuth[federation.Google].ClientID)
	require.Equal(t, "kid", cfg.OAuth[federation.Kakao].ClientID)
	require.NotContains(t, cfg.OAuth, federation.Naver)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestGetEnvDurationOrDefault(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Hour},
		{"90s", 90 * time.Second},
		{"15", 15 * time.Minute},
		{"soon", time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			require.Equal(t, tt.want, getEnvDurationOrDefault("TEST_DURATION", time.Hour))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty issuer", func(c *Config) { c.Issuer = "" }},
		{"negative ttl", func(c *Config) { c.AccessTTL = -time.Second }},
		{"no store timeout", func(c *Config) { c.StoreTimeout = 0 }},
		{"unknown backend", func(c *Config) { c.RevocationBackend = "etcd" }},
		{"valkey without address", func(c *Config) {
			c.RevocationBackend = BackendValkey
			c.Valkey.Address = ""
		}},
		{"unknown provider", func(c *Config) {
			c.OAuth = map[string]federation.ProviderConfig{"github": {ClientID: "x"}}
		}},
		{"bad port", func(c *Config) { c.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
