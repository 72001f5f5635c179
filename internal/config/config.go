// Package config loads process-level configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings for the bot process. LLM client settings live in
// the llm package and are loaded separately.
type Config struct {
	BotToken      string
	DBPath        string
	SweepInterval time.Duration
	LogLevel      slog.Level
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		DBPath:        "focusbot.db",
		SweepInterval: 30 * time.Second,
		LogLevel:      slog.LevelInfo,
	}
}

// Load reads configuration from environment variables, falling back to
// defaults for any unset values.
func Load() Config {
	cfg := Default()

	cfg.BotToken = os.Getenv("BOT_TOKEN")
	if v := os.Getenv("FOCUSBOT_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SWEEP_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SweepInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLevel(v)
	}

	return cfg
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
