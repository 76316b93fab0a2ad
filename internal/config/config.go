// Package config handles loading and validation of the bluebridge
// configuration file.
package config

// Config is the full bridge configuration, loaded from a JSON file.
// API keys may also come from the environment (see Load).
type Config struct {
	Server    ServerConfig    `json:"server"`
	Anthropic AnthropicConfig `json:"anthropic"`
	OpenAI    OpenAIConfig    `json:"openai"`
	Linq      LinqConfig      `json:"linq"`
	Memory    MemoryConfig    `json:"memory"`
	Log       LogConfig       `json:"log"`
}

// ServerConfig controls the webhook HTTP listener.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// AnthropicConfig selects the models used for the main turn and the
// cheap follow-up calls (triage, effect filler text).
type AnthropicConfig struct {
	APIKey     string `json:"apiKey"`
	Model      string `json:"model"`      // main conversational model
	QuickModel string `json:"quickModel"` // triage + filler-text model
	MaxTokens  int    `json:"maxTokens"`
}

// OpenAIConfig holds credentials for Whisper transcription and
// DALL-E image generation.
type OpenAIConfig struct {
	APIKey     string `json:"apiKey"`
	ImageModel string `json:"imageModel"`
}

// LinqConfig holds credentials for the Linq Blue messaging API.
type LinqConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseURL"`
}

// MemoryConfig controls conversation and profile persistence.
type MemoryConfig struct {
	DBPath string `json:"dbPath"` // SQLite database path
}

// LogConfig controls process-wide logging.
type LogConfig struct {
	Level string `json:"level"` // debug, info, warn, error
}
