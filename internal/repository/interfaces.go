package repository

import (
	"context"
	"time"

	"github.com/avelichko/focusbot/internal/domain"
)

type UserRepo interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	// GetOrCreate returns the stored profile, creating an empty one on first contact.
	GetOrCreate(ctx context.Context, userID string) (*domain.UserProfile, error)
	Upsert(ctx context.Context, p *domain.UserProfile) error
	// ReplacePlan deletes any stored plan, writes the new one, and resets
	// progress counters in a single transaction.
	ReplacePlan(ctx context.Context, userID string, plan *domain.Plan) error
	GetPlan(ctx context.Context, userID string) (*domain.Plan, error)
	// IncrementStats atomically adds to the focus counters.
	IncrementStats(ctx context.Context, userID string, sessions, minutes int) error
	GetSettings(ctx context.Context, userID string) (domain.PomodoroSettings, error)
	SaveSettings(ctx context.Context, userID string, s domain.PomodoroSettings) error
}

type FocusSessionRepo interface {
	Create(ctx context.Context, s *domain.FocusSession) error
	GetByID(ctx context.Context, id string) (*domain.FocusSession, error)
	// GetInFlight returns the user's single active or paused session, or ErrNotFound.
	GetInFlight(ctx context.Context, userID string) (*domain.FocusSession, error)
	// GetByEndsAt returns the user's latest session ending at the given instant.
	GetByEndsAt(ctx context.Context, userID string, endsAt time.Time) (*domain.FocusSession, error)
	Update(ctx context.Context, s *domain.FocusSession) error
	ListByStatus(ctx context.Context, status domain.SessionStatus) ([]*domain.FocusSession, error)
	// CountCompletedWork counts the user's completed work sessions that ended at or after since.
	CountCompletedWork(ctx context.Context, userID string, since time.Time) (int, error)
}

type SweepRepo interface {
	Upsert(ctx context.Context, rec *domain.SweepRecord) error
	Get(ctx context.Context, id string) (*domain.SweepRecord, error)
	Update(ctx context.Context, rec *domain.SweepRecord) error
	// ListExpired returns up to limit records with status=active and ends_at <= now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.SweepRecord, error)
}
