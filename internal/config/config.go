package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"

	// AuthModeChatID identifies the caller by a chat_id query parameter.
	AuthModeChatID = "chat_id"
	// AuthModeToken identifies the caller by the bearer token obtained at login.
	AuthModeToken = "token"

	StateDriverMemory   = "memory"
	StateDriverSupabase = "supabase"
	StateDriverPostgres = "postgres"
)

type TelegramConfig struct {
	Token                  string `yaml:"token" envconfig:"TELEGRAM_TOKEN"`
	RunMode                string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	LongPollTimeoutSeconds int    `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// Workers is the number of dispatch shards; updates of one user always land on the same shard.
	Workers int `yaml:"workers" envconfig:"TELEGRAM_WORKERS"`
}

type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Path   string `yaml:"path" envconfig:"WEBHOOK_PATH"`
}

type APIConfig struct {
	BaseURL  string        `yaml:"base_url" envconfig:"API_BASE_URL"`
	AuthMode string        `yaml:"auth_mode" envconfig:"API_AUTH_MODE"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"API_TIMEOUT"`
}

type LimitsConfig struct {
	MaxAmount string `yaml:"max_amount" envconfig:"MAX_AMOUNT"`
}

type StateConfig struct {
	Driver string `yaml:"driver" envconfig:"STATE_DRIVER"`
	// TTL expires abandoned conversations. NoExpiry keeps them forever.
	TTL           time.Duration `yaml:"ttl" envconfig:"STATE_TTL"`
	NoExpiry      bool          `yaml:"no_expiry" envconfig:"STATE_NO_EXPIRY"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"STATE_SWEEP_INTERVAL"`
}

type SupabaseConfig struct {
	URL   string `yaml:"url" envconfig:"SUPABASE_URL"`
	Key   string `yaml:"key" envconfig:"SUPABASE_KEY"`
	Table string `yaml:"table" envconfig:"SUPABASE_STATE_TABLE"`
}

type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// DSN returns a lib/pq URL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	API      APIConfig      `yaml:"api"`
	Limits   LimitsConfig   `yaml:"limits"`
	State    StateConfig    `yaml:"state"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoadConfig reads .env (if present), then the optional YAML file at path,
// then environment overrides, and finally normalizes the result.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MaxAmount returns the parsed amount ceiling.
func (c *Config) MaxAmount() decimal.Decimal {
	return decimal.RequireFromString(c.Limits.MaxAmount)
}

// Normalize validates required fields and fills in defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			cfg.Webhook.Listen = ":8080"
		}
		if cfg.Webhook.Path == "" {
			cfg.Webhook.Path = "/telegram/webhook"
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
		if cfg.Telegram.LongPollTimeoutSeconds == 0 {
			cfg.Telegram.LongPollTimeoutSeconds = 60
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	if cfg.Telegram.Workers <= 0 {
		cfg.Telegram.Workers = 4
	}

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	am := strings.ToLower(strings.TrimSpace(cfg.API.AuthMode))
	switch am {
	case "":
		am = AuthModeChatID
	case AuthModeChatID, AuthModeToken:
	default:
		return fmt.Errorf("invalid api.auth_mode %q; allowed: chat_id, token", cfg.API.AuthMode)
	}
	cfg.API.AuthMode = am
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = 10 * time.Second
	}

	if strings.TrimSpace(cfg.Limits.MaxAmount) == "" {
		cfg.Limits.MaxAmount = "1000000"
	}
	ceiling, err := decimal.NewFromString(cfg.Limits.MaxAmount)
	if err != nil || !ceiling.IsPositive() {
		return fmt.Errorf("limits.max_amount must be a positive number, got %q", cfg.Limits.MaxAmount)
	}

	drv := strings.ToLower(strings.TrimSpace(cfg.State.Driver))
	switch drv {
	case "":
		drv = StateDriverMemory
	case StateDriverMemory:
	case StateDriverSupabase:
		if cfg.Supabase.URL == "" || cfg.Supabase.Key == "" {
			return fmt.Errorf("supabase.url and supabase.key are required for state.driver 'supabase'")
		}
		if cfg.Supabase.Table == "" {
			cfg.Supabase.Table = "user_states"
		}
	case StateDriverPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for state.driver 'postgres'")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 10
		}
	default:
		return fmt.Errorf("invalid state.driver %q; allowed: memory, supabase, postgres", cfg.State.Driver)
	}
	cfg.State.Driver = drv
	switch {
	case cfg.State.NoExpiry:
		cfg.State.TTL = 0
	case cfg.State.TTL < 0:
		return fmt.Errorf("state.ttl must be >= 0")
	case cfg.State.TTL == 0:
		cfg.State.TTL = 24 * time.Hour
	}
	if cfg.State.SweepInterval <= 0 {
		cfg.State.SweepInterval = 10 * time.Minute
	}
	return nil
}
