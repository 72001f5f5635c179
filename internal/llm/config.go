package llm

import (
	"os"
	"strconv"
)

// Config holds configuration for the chat-completions client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	ProxyURL    string
	TimeoutMs   int
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns a Config with sensible defaults. A low temperature
// keeps plan generation close to deterministic.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		TimeoutMs:   30000,
		MaxTokens:   4096,
		Temperature: 0.2,
	}
}

// LoadConfig reads client configuration from environment variables,
// falling back to defaults for any unset values. An empty OPENAI_API_KEY
// leaves the client disabled and forces the deterministic planner.
func LoadConfig() Config {
	cfg := DefaultConfig()

	cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("OPENAI_PROXY"); v != "" {
		cfg.ProxyURL = v
	}
	if v := os.Getenv("OPENAI_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 2 {
			cfg.Temperature = f
		}
	}

	return cfg
}

// Enabled reports whether an API key is configured.
func (c Config) Enabled() bool {
	return c.APIKey != ""
}
