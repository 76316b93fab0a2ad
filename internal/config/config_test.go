package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `{
		"anthropic": {"apiKey": "sk-ant-test"},
		"linq": {"apiKey": "linq-test"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":3000" {
		t.Errorf("default addr: expected :3000, got %q", cfg.Server.Addr)
	}
	if cfg.Anthropic.Model != "claude-sonnet-4-20250514" {
		t.Errorf("default model: got %q", cfg.Anthropic.Model)
	}
	if cfg.Anthropic.QuickModel != "claude-3-5-haiku-20241022" {
		t.Errorf("default quick model: got %q", cfg.Anthropic.QuickModel)
	}
	if cfg.Anthropic.MaxTokens != 1024 {
		t.Errorf("default max tokens: got %d", cfg.Anthropic.MaxTokens)
	}
	if cfg.OpenAI.ImageModel != "dall-e-3" {
		t.Errorf("default image model: got %q", cfg.OpenAI.ImageModel)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default log level: got %q", cfg.Log.Level)
	}
}

func TestLoad_MissingAnthropicKey(t *testing.T) {
	path := writeConfig(t, `{"linq": {"apiKey": "linq-test"}}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing anthropic key, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"anthropic": {"apiKey": "from-file"},
		"linq": {"apiKey": "from-file"}
	}`)

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	t.Setenv("PORT", "8080")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Anthropic.APIKey != "from-env" {
		t.Errorf("expected env override, got %q", cfg.Anthropic.APIKey)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected :8080 from PORT, got %q", cfg.Server.Addr)
	}
}

func TestLoad_BadJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}
