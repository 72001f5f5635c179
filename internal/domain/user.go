package domain

import "time"

// UserProfile is the per-user document keyed by the external user id.
type UserProfile struct {
	UserID         string      `json:"user_id"`
	ActiveCategory Category    `json:"active_category,omitempty"`
	Onboarding     Onboarding  `json:"onboarding"`
	Constraints    Constraints `json:"constraints"`
	Plan           *Plan       `json:"plan,omitempty"`
	Progress       Progress    `json:"progress"`
	Preferences    Preferences `json:"preferences"`
	Stats          FocusStats  `json:"stats"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Onboarding holds the guided-onboarding state and free-form answers.
type Onboarding struct {
	Completed   bool              `json:"completed"`
	Answers     map[string]string `json:"answers,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Constraints are the hard scheduling rules a plan must respect.
type Constraints struct {
	DailyMinutes     int      `json:"daily_minutes,omitempty"`
	WorkingDays      []string `json:"working_days,omitempty"`
	NoStudyAfter     string   `json:"no_study_after,omitempty"` // "HH:MM"
	Blackout         []string `json:"blackout,omitempty"`       // "HH:MM-HH:MM"
	WeekdaysOnly     bool     `json:"weekdays_only,omitempty"`
	SessionsPerDay   int      `json:"sessions_per_day,omitempty"` // 0 means unspecified
	PlanDurationDays int      `json:"plan_duration_days,omitempty"`

	// PerCategory carries category-specific overrides; open for forward
	// compatibility, validated at the input boundary.
	PerCategory map[Category]map[string]string `json:"per_category,omitempty"`
}

// Progress tracks plan execution over time.
type Progress struct {
	DaysDone       int        `json:"days_done"`
	LastCheckin    *time.Time `json:"last_checkin,omitempty"`
	StreakCurrent  int        `json:"streak_current"`
	StreakBest     int        `json:"streak_best"`
	CompletionRate float64    `json:"completion_rate"`
	FailReasons    []string   `json:"fail_reasons,omitempty"`
}

// Preferences are user display and reminder settings.
type Preferences struct {
	Theme        Theme  `json:"theme,omitempty"`
	Language     string `json:"language,omitempty"`
	ReminderTime string `json:"reminder_time,omitempty"`
}

// FocusStats aggregates completed focus work across all sessions.
type FocusStats struct {
	TotalSessions int `json:"total_sessions"`
	TotalMinutes  int `json:"total_minutes"`
}
