package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
api:
  internal_secret: "s3cret"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("run mode = %q, want longpoll", cfg.Telegram.RunMode)
	}
	if cfg.API.BaseURL != "http://api:8080" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.RequestTimeoutSeconds != 10 || cfg.API.ActivityTimeoutSeconds != 5 {
		t.Errorf("api timeouts = %d/%d", cfg.API.RequestTimeoutSeconds, cfg.API.ActivityTimeoutSeconds)
	}
	if cfg.Session.TransactionTimeoutSeconds != 300 || cfg.Session.LinkTimeoutSeconds != 120 {
		t.Errorf("session timeouts = %d/%d", cfg.Session.TransactionTimeoutSeconds, cfg.Session.LinkTimeoutSeconds)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	path := writeConfig(t, `
api:
  internal_secret: "s3cret"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNormalizeTrimsBaseURL(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t"},
		API:      APIConfig{BaseURL: "http://localhost:8080/", InternalSecret: "s"},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
}

func TestNormalizeWebhookValidation(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t", RunMode: "webhook"},
		API:      APIConfig{InternalSecret: "s"},
	}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for webhook mode without url")
	}

	cfg.Webhook = WebhookConfig{URL: "https://bot.example.com", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}

func TestNormalizeRejectsUnknownRunMode(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"},
		API:      APIConfig{InternalSecret: "s"},
	}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unknown run mode")
	}
}
