package db

import (
	"database/sql"
	"fmt"
)

// migrations are executed in order on every startup. Every statement is
// written to be re-runnable (CREATE ... IF NOT EXISTS).
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id              TEXT PRIMARY KEY,
		active_category      TEXT NOT NULL DEFAULT '',
		onboarding_completed INTEGER NOT NULL DEFAULT 0,
		onboarding_answers   TEXT NOT NULL DEFAULT '{}',
		onboarding_done_at   TEXT,
		constraints_json     TEXT NOT NULL DEFAULT '{}',
		plan_json            TEXT,
		days_done            INTEGER NOT NULL DEFAULT 0,
		last_checkin         TEXT,
		streak_current       INTEGER NOT NULL DEFAULT 0,
		streak_best          INTEGER NOT NULL DEFAULT 0,
		completion_rate      REAL NOT NULL DEFAULT 0,
		fail_reasons         TEXT NOT NULL DEFAULT '[]',
		preferences_json     TEXT NOT NULL DEFAULT '{}',
		settings_json        TEXT NOT NULL DEFAULT '{}',
		total_sessions       INTEGER NOT NULL DEFAULT 0,
		total_minutes        INTEGER NOT NULL DEFAULT 0,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS focus_sessions (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		type              TEXT NOT NULL CHECK (type IN ('work','short_break','long_break')),
		status            TEXT NOT NULL CHECK (status IN ('active','paused','completed','cancelled')),
		duration_minutes  INTEGER NOT NULL,
		completed_minutes INTEGER NOT NULL DEFAULT 0,
		started_at        TEXT NOT NULL,
		paused_at         TEXT,
		resumed_at        TEXT,
		ended_at          TEXT,
		ends_at           TEXT NOT NULL,
		auto_start_break  INTEGER NOT NULL DEFAULT 0,
		version           INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_focus_sessions_user_status
		ON focus_sessions (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_focus_sessions_status
		ON focus_sessions (status)`,

	`CREATE TABLE IF NOT EXISTS pomodoro_sessions (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		status           TEXT NOT NULL CHECK (status IN ('active','done','notified')),
		ends_at          TEXT NOT NULL,
		last_notified_at TEXT,
		updated_at       TEXT NOT NULL,
		version          INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pomodoro_sessions_status_ends
		ON pomodoro_sessions (status, ends_at)`,
}

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
