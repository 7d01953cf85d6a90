package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected default base URL %q", cfg.Server.BaseURL)
	}
	if cfg.Log == nil || cfg.Log.Level != "info" {
		t.Fatalf("expected default log config, got %+v", cfg.Log)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	original := &Config{
		Server: ServerConfig{BaseURL: "http://example.com:9000", APIKey: "k1"},
		Log:    &LogConfig{Level: "debug"},
	}
	if err := SaveConfig(original, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.BaseURL != "http://example.com:9000" {
		t.Fatalf("unexpected base URL %q", cfg.Server.BaseURL)
	}
	if cfg.Server.APIKey != "k1" {
		t.Fatalf("unexpected api key %q", cfg.Server.APIKey)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level %q", cfg.Log.Level)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveConfig(&Config{Server: ServerConfig{BaseURL: "http://file.example"}}, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	t.Setenv("DATACHAT_BASE_URL", "http://env.example")
	t.Setenv("DATACHAT_API_KEY", "env-key")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.BaseURL != "http://env.example" {
		t.Fatalf("env must override file, got %q", cfg.Server.BaseURL)
	}
	if cfg.Server.APIKey != "env-key" {
		t.Fatalf("env api key not applied, got %q", cfg.Server.APIKey)
	}
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for malformed config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
