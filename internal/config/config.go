// Package config loads runtime configuration from an optional YAML file
// overlaid with VENTA_-prefixed environment variables. Double underscores
// in env names become nesting: VENTA_SERVER__PORT -> server.port.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	AI        AIConfig        `koanf:"ai"`
	Commerce  CommerceConfig  `koanf:"commerce"`
	Transport TransportConfig `koanf:"transport"`
	Intent    IntentConfig    `koanf:"intent"`
	History   HistoryConfig   `koanf:"history"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type AIConfig struct {
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model"`
	OrderParseTimeout time.Duration `koanf:"order_parse_timeout"`
	GenerateTimeout   time.Duration `koanf:"generate_timeout"`
	ClassifyTimeout   time.Duration `koanf:"classify_timeout"`
}

type CommerceConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
}

type TransportConfig struct {
	WebhookURL string `koanf:"webhook_url"`
	APIKey     string `koanf:"api_key"`
}

type IntentConfig struct {
	Threshold    float64 `koanf:"threshold"`
	ContextBonus float64 `koanf:"context_bonus"`
}

type HistoryConfig struct {
	MaxTurns  int `koanf:"max_turns"`
	MaxTokens int `koanf:"max_tokens"`
}

// defaults applied before file and env overlays.
var defaults = map[string]any{
	"server.port":            8080,
	"server.request_timeout": "60s",
	"storage.type":           "memory",
	"storage.sqlite.path":    "ventabot.db",
	"ai.model":               "llama3",
	"ai.order_parse_timeout": "30s",
	"ai.generate_timeout":    "20s",
	"ai.classify_timeout":    "10s",
	"intent.threshold":       0.6,
	"intent.context_bonus":   0.3,
	"history.max_turns":      10,
	"history.max_tokens":     1024,
}

// Load reads configuration. path may be empty to skip the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, v := range defaults {
		k.Set(key, v)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("VENTA_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "VENTA_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
