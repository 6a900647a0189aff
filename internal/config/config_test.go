package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("storage type = %q, want memory", cfg.Storage.Type)
	}
	if cfg.AI.OrderParseTimeout != 30*time.Second {
		t.Errorf("order parse timeout = %v, want 30s", cfg.AI.OrderParseTimeout)
	}
	if cfg.Intent.Threshold != 0.6 {
		t.Errorf("threshold = %v, want 0.6", cfg.Intent.Threshold)
	}
	if cfg.History.MaxTurns != 10 {
		t.Errorf("history max turns = %d, want 10", cfg.History.MaxTurns)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VENTA_SERVER__PORT", "9000")
	t.Setenv("VENTA_AI__BASE_URL", "http://localhost:11434/v1")
	t.Setenv("VENTA_INTENT__THRESHOLD", "0.75")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.AI.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("ai base url = %q", cfg.AI.BaseURL)
	}
	if cfg.Intent.Threshold != 0.75 {
		t.Errorf("threshold = %v, want 0.75", cfg.Intent.Threshold)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  port: 7070\nstorage:\n  type: sqlite\n  sqlite:\n    path: /tmp/sessions.db\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.SQLite.Path != "/tmp/sessions.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("VENTA_SERVER__PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want env to win over file", cfg.Server.Port)
	}
}
