package domain

// Category identifies the kind of goal a user is working toward.
type Category string

const (
	CategoryExam   Category = "exam"
	CategorySkill  Category = "skill"
	CategoryHabit  Category = "habit"
	CategoryHealth Category = "health"
	CategoryTime   Category = "time"
)

// ValidCategories is the canonical set of accepted category strings.
var ValidCategories = map[Category]bool{
	CategoryExam: true, CategorySkill: true, CategoryHabit: true,
	CategoryHealth: true, CategoryTime: true,
}

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

type SessionType string

const (
	SessionWork       SessionType = "work"
	SessionShortBreak SessionType = "short_break"
	SessionLongBreak  SessionType = "long_break"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// SweepStatus tracks the expiry record of a focus session as it moves
// through the sweeper's at-most-once notification protocol.
type SweepStatus string

const (
	SweepActive   SweepStatus = "active"
	SweepDone     SweepStatus = "done"
	SweepNotified SweepStatus = "notified"
)

type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)
