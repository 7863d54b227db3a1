// Package config loads bot configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// TelegramConfig holds Telegram transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"TELEGRAM_BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook listener settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// APIConfig describes how to reach the Kuberan backend API.
type APIConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"API_BASE_URL"`
	InternalSecret string `yaml:"internal_secret" envconfig:"BOT_INTERNAL_SECRET"`
	// RequestTimeoutSeconds bounds regular read/write calls.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" envconfig:"API_REQUEST_TIMEOUT_SECONDS"`
	// ActivityTimeoutSeconds bounds the fire-and-forget activity call.
	ActivityTimeoutSeconds int `yaml:"activity_timeout_seconds" envconfig:"API_ACTIVITY_TIMEOUT_SECONDS"`
}

// SessionConfig controls conversation session lifetimes.
type SessionConfig struct {
	TransactionTimeoutSeconds int `yaml:"transaction_timeout_seconds" envconfig:"SESSION_TRANSACTION_TIMEOUT_SECONDS"`
	LinkTimeoutSeconds        int `yaml:"link_timeout_seconds" envconfig:"SESSION_LINK_TIMEOUT_SECONDS"`
	SweepIntervalSeconds      int `yaml:"sweep_interval_seconds" envconfig:"SESSION_SWEEP_INTERVAL_SECONDS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// Config aggregates all bot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	API      APIConfig      `yaml:"api"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
// The file may be absent; env-only configuration is valid.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case os.IsNotExist(err):
			// fall through to env-only config
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
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

// Normalize validates required configuration fields and applies defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.API.InternalSecret == "" {
		return fmt.Errorf("api.internal_secret is required")
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://api:8080"
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

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
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.API.RequestTimeoutSeconds <= 0 {
		cfg.API.RequestTimeoutSeconds = 10
	}
	if cfg.API.ActivityTimeoutSeconds <= 0 {
		cfg.API.ActivityTimeoutSeconds = 5
	}
	if cfg.Session.TransactionTimeoutSeconds <= 0 {
		cfg.Session.TransactionTimeoutSeconds = 300
	}
	if cfg.Session.LinkTimeoutSeconds <= 0 {
		cfg.Session.LinkTimeoutSeconds = 120
	}
	if cfg.Session.SweepIntervalSeconds <= 0 {
		cfg.Session.SweepIntervalSeconds = 30
	}
	return nil
}
