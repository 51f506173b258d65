package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		API:      APIConfig{BaseURL: "http://backend:8000/api/"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, 60, cfg.Telegram.LongPollTimeoutSeconds)
	assert.Equal(t, 4, cfg.Telegram.Workers)
	assert.Equal(t, "http://backend:8000/api", cfg.API.BaseURL)
	assert.Equal(t, AuthModeChatID, cfg.API.AuthMode)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "1000000", cfg.MaxAmount().String())
	assert.Equal(t, StateDriverMemory, cfg.State.Driver)
	assert.Equal(t, 24*time.Hour, cfg.State.TTL)
	assert.Equal(t, 10*time.Minute, cfg.State.SweepInterval)
}

func TestNormalizeNoExpiry(t *testing.T) {
	cfg := validConfig()
	cfg.State.NoExpiry = true
	cfg.State.TTL = time.Hour
	require.NoError(t, Normalize(cfg))
	assert.Zero(t, cfg.State.TTL)
}

func TestNormalizeWebhookDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "Webhook"
	cfg.Webhook.URL = "https://bot.example.com"
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
	assert.Equal(t, ":8080", cfg.Webhook.Listen)
	assert.Equal(t, "/telegram/webhook", cfg.Webhook.Path)
}

func TestNormalizeErrors(t *testing.T) {
	cases := map[string]func(*Config){
		"missing token":       func(c *Config) { c.Telegram.Token = "" },
		"missing base url":    func(c *Config) { c.API.BaseURL = " " },
		"bad run mode":        func(c *Config) { c.Telegram.RunMode = "carrier-pigeon" },
		"webhook without url": func(c *Config) { c.Telegram.RunMode = RunModeWebhook },
		"bad auth mode":       func(c *Config) { c.API.AuthMode = "cookie" },
		"bad max amount":      func(c *Config) { c.Limits.MaxAmount = "-5" },
		"bad state driver":    func(c *Config) { c.State.Driver = "redis" },
		"supabase without key": func(c *Config) {
			c.State.Driver = StateDriverSupabase
			c.Supabase.URL = "https://x.supabase.co"
		},
		"postgres without host": func(c *Config) { c.State.Driver = StateDriverPostgres },
		"negative ttl":          func(c *Config) { c.State.TTL = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, Normalize(cfg))
		})
	}
}

func TestLoadConfigYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
telegram:
  token: "from-yaml"
api:
  base_url: "http://backend/api"
  auth_mode: token
limits:
  max_amount: "5000"
state:
  driver: postgres
database:
  host: db
  name: bot
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("TELEGRAM_TOKEN", "from-env")
	chdir(t, dir)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, AuthModeToken, cfg.API.AuthMode)
	assert.Equal(t, "5000", cfg.MaxAmount().String())
	assert.Equal(t, "postgres://:@db:5432/bot?sslmode=disable", cfg.Database.DSN())
}

func TestLoadConfigMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
