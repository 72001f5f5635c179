package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("FOCUSBOT_DB", "")
	t.Setenv("SWEEP_INTERVAL_SEC", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()

	assert.Equal(t, "focusbot.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "tok123")
	t.Setenv("FOCUSBOT_DB", "/tmp/test.db")
	t.Setenv("SWEEP_INTERVAL_SEC", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, "tok123", cfg.BotToken)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.SweepInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_IgnoresBadInterval(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL_SEC", "soon")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
