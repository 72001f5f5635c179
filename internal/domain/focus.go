package domain

import (
	"fmt"
	"time"
)

// Duration bounds per session type, in minutes.
const (
	WorkMinMinutes       = 5
	WorkMaxMinutes       = 120
	ShortBreakMinMinutes = 3
	ShortBreakMaxMinutes = 30
	LongBreakMinMinutes  = 10
	LongBreakMaxMinutes  = 60
)

// FocusSession is a timed work or break interval with a lifecycle that
// survives process restarts.
type FocusSession struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	Type            SessionType   `json:"type"`
	Status          SessionStatus `json:"status"`
	DurationMinutes int           `json:"duration_minutes"`
	CompletedMinutes int          `json:"completed_minutes"`
	StartedAt       time.Time     `json:"started_at"`
	PausedAt        *time.Time    `json:"paused_at,omitempty"`
	ResumedAt       *time.Time    `json:"resumed_at,omitempty"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
	EndsAt          time.Time     `json:"ends_at"`
	AutoStartBreak  bool          `json:"auto_start_break"`
	Version         int           `json:"version"`
}

// InFlight reports whether the session still occupies the user's single
// active slot.
func (s *FocusSession) InFlight() bool {
	return s.Status == SessionActive || s.Status == SessionPaused
}

// DurationBounds returns the allowed [min, max] duration for a session type.
func DurationBounds(t SessionType) (min, max int) {
	switch t {
	case SessionShortBreak:
		return ShortBreakMinMinutes, ShortBreakMaxMinutes
	case SessionLongBreak:
		return LongBreakMinMinutes, LongBreakMaxMinutes
	default:
		return WorkMinMinutes, WorkMaxMinutes
	}
}

// DefaultDuration returns the default duration for a session type when the
// user has no stored settings.
func DefaultDuration(t SessionType) int {
	switch t {
	case SessionShortBreak:
		return 5
	case SessionLongBreak:
		return 15
	default:
		return 25
	}
}

// ValidateDuration checks a requested duration against the per-type bounds.
func ValidateDuration(t SessionType, minutes int) error {
	min, max := DurationBounds(t)
	if minutes < min || minutes > max {
		return fmt.Errorf("%s duration %d outside [%d, %d] minutes", t, minutes, min, max)
	}
	return nil
}

// SweepRecord is the write-ahead expiry marker for a focus session: a
// projection small enough for the sweeper to make progress without loading
// the full session.
type SweepRecord struct {
	ID             string      `json:"id"` // "{user_id}_{epoch(ends_at)}"
	UserID         string      `json:"user_id"`
	Status         SweepStatus `json:"status"`
	EndsAt         time.Time   `json:"ends_at"`
	LastNotifiedAt *time.Time  `json:"last_notified_at,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Version        int         `json:"version"`
}

// SweepRecordID builds the deterministic expiry record key for a session.
func SweepRecordID(userID string, endsAt time.Time) string {
	return fmt.Sprintf("%s_%d", userID, endsAt.UTC().Unix())
}

// PomodoroSettings are the user-tunable focus timer durations.
type PomodoroSettings struct {
	WorkDuration   int  `json:"work_duration"`
	ShortBreak     int  `json:"short_break"`
	LongBreak      int  `json:"long_break"`
	SoundEnabled   bool `json:"sound_enabled"`
	AutoStartBreak bool `json:"auto_start_break"`
}

// DefaultPomodoroSettings returns the classic 25/5/15 configuration.
func DefaultPomodoroSettings() PomodoroSettings {
	return PomodoroSettings{
		WorkDuration:   25,
		ShortBreak:     5,
		LongBreak:      15,
		SoundEnabled:   true,
		AutoStartBreak: false,
	}
}
