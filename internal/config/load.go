package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads the config file at path and applies defaults and
// environment overrides. API keys can be supplied via ANTHROPIC_API_KEY,
// OPENAI_API_KEY and LINQ_API_KEY instead of the file, so the file can
// be committed without secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Anthropic.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required (config or ANTHROPIC_API_KEY)")
	}
	if cfg.Linq.APIKey == "" {
		return nil, fmt.Errorf("linq API key is required (config or LINQ_API_KEY)")
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("LINQ_API_KEY"); v != "" {
		cfg.Linq.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Anthropic.Model == "" {
		cfg.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Anthropic.QuickModel == "" {
		cfg.Anthropic.QuickModel = "claude-3-5-haiku-20241022"
	}
	if cfg.Anthropic.MaxTokens == 0 {
		cfg.Anthropic.MaxTokens = 1024
	}
	if cfg.OpenAI.ImageModel == "" {
		cfg.OpenAI.ImageModel = "dall-e-3"
	}
	if cfg.Memory.DBPath == "" {
		cfg.Memory.DBPath = "bluebridge.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
