package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avelichko/focusbot/internal/domain"
	"github.com/avelichko/focusbot/internal/repository"
)

// Service errors exposed to command handlers.
var (
	ErrAlreadyActive = errors.New("a focus session is already in flight")
	ErrNoSession     = errors.New("no focus session in flight")
	ErrAlreadyPaused = errors.New("session is already paused")
	ErrNotPaused     = errors.New("session is not paused")
)

// Notifier delivers session lifecycle messages to the user. Implemented by
// the bot transport; failures are logged and never block state transitions.
type Notifier interface {
	SessionCompleted(ctx context.Context, userID string, s *domain.FocusSession) error
	// SessionTick refreshes the user's countdown, at most once per minute.
	SessionTick(ctx context.Context, userID string, s *domain.FocusSession, remainingMinutes int) error
}

// SessionInfo is the status snapshot returned to the user.
type SessionInfo struct {
	Session          *domain.FocusSession
	ElapsedMinutes   int
	RemainingMinutes int
}

// Service drives the focus session lifecycle: persistence, the in-process
// timer, expiry records for the sweeper, and break chaining.
type Service struct {
	sessions repository.FocusSessionRepo
	users    repository.UserRepo
	sweeps   repository.SweepRepo
	sched    *Scheduler
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	tick     time.Duration
}

// NewService wires a Service. The notifier may be nil.
func NewService(sessions repository.FocusSessionRepo, users repository.UserRepo, sweeps repository.SweepRepo, sched *Scheduler, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions: sessions,
		users:    users,
		sweeps:   sweeps,
		sched:    sched,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		tick:     time.Minute,
	}
}

// Start begins a new session of the given type. A zero duration takes the
// per-type duration from the user's stored settings. Only one active or
// paused session per user is allowed.
func (s *Service) Start(ctx context.Context, userID string, sessionType domain.SessionType, durationMinutes int) (*domain.FocusSession, error) {
	settings, err := s.users.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if durationMinutes == 0 {
		durationMinutes = settingsDuration(settings, sessionType)
	}
	if err := domain.ValidateDuration(sessionType, durationMinutes); err != nil {
		return nil, err
	}

	if existing, err := s.sessions.GetInFlight(ctx, userID); err == nil && existing != nil {
		return existing, ErrAlreadyActive
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking in-flight session: %w", err)
	}

	now := s.now().UTC()
	session := &domain.FocusSession{
		ID:              uuid.New().String(),
		UserID:          userID,
		Type:            sessionType,
		Status:          domain.SessionActive,
		DurationMinutes: durationMinutes,
		StartedAt:       now,
		EndsAt:          now.Add(time.Duration(durationMinutes) * time.Minute),
		AutoStartBreak:  settings.AutoStartBreak && sessionType == domain.SessionWork,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	if err := s.upsertSweep(ctx, session); err != nil {
		// The in-process timer still fires; the record only backs restarts.
		s.logger.Warn("writing expiry record failed", "user_id", userID, "error", err)
	}

	if err := s.sched.Start(session.ID, userID, durationMinutes, s.onTimerComplete, s.tickFunc(session), s.tick); err != nil {
		s.logger.Warn("scheduling timer failed", "session_id", session.ID, "error", err)
	}

	s.logger.Info("focus session started",
		"user_id", userID, "session_id", session.ID,
		"type", sessionType, "duration", durationMinutes)
	return session, nil
}

// Pause suspends the in-flight session, banking the minutes elapsed so far.
func (s *Service) Pause(ctx context.Context, userID string) (*domain.FocusSession, error) {
	session, err := s.inFlight(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionPaused {
		return session, ErrAlreadyPaused
	}

	elapsed, err := s.sched.Pause(session.ID)
	if err != nil && !errors.Is(err, ErrTimerNotFound) {
		return nil, fmt.Errorf("pausing timer: %w", err)
	}

	now := s.now().UTC()
	session.Status = domain.SessionPaused
	session.PausedAt = &now
	session.CompletedMinutes += elapsed
	if session.CompletedMinutes > session.DurationMinutes {
		session.CompletedMinutes = session.DurationMinutes
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting pause: %w", err)
	}
	s.retireSweep(ctx, session)

	s.logger.Info("focus session paused",
		"user_id", userID, "session_id", session.ID, "completed", session.CompletedMinutes)
	return session, nil
}

// Resume continues a paused session with a fresh timer counting the
// remaining minutes. A session paused past its full duration completes
// immediately.
func (s *Service) Resume(ctx context.Context, userID string) (*domain.FocusSession, error) {
	session, err := s.inFlight(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionPaused {
		return session, ErrNotPaused
	}

	remaining := session.DurationMinutes - session.CompletedMinutes
	if remaining <= 0 {
		if _, err := s.sched.Stop(session.ID); err != nil && !errors.Is(err, ErrTimerNotFound) {
			s.logger.Warn("dropping paused timer failed", "session_id", session.ID, "error", err)
		}
		if err := s.finalize(ctx, session, domain.SessionCompleted); err != nil {
			return nil, err
		}
		return session, nil
	}

	now := s.now().UTC()
	session.Status = domain.SessionActive
	session.ResumedAt = &now
	session.EndsAt = now.Add(time.Duration(remaining) * time.Minute)
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting resume: %w", err)
	}
	if err := s.upsertSweep(ctx, session); err != nil {
		s.logger.Warn("writing expiry record failed", "user_id", userID, "error", err)
	}

	if err := s.sched.Resume(session.ID, userID, remaining, s.onTimerComplete, s.tickFunc(session), s.tick); err != nil {
		s.logger.Warn("rescheduling timer failed", "session_id", session.ID, "error", err)
	}

	s.logger.Info("focus session resumed",
		"user_id", userID, "session_id", session.ID, "remaining", remaining)
	return session, nil
}

// Stop ends the in-flight session early. With completed=false it is
// cancelled and its minutes never reach the stats; with completed=true the
// session finalizes as completed, crediting the minutes done so far.
func (s *Service) Stop(ctx context.Context, userID string, completed bool) (*domain.FocusSession, error) {
	session, err := s.inFlight(ctx, userID)
	if err != nil {
		return nil, err
	}

	elapsed, err := s.sched.Stop(session.ID)
	if err != nil && !errors.Is(err, ErrTimerNotFound) {
		return nil, fmt.Errorf("stopping timer: %w", err)
	}
	// A paused session already banked its elapsed minutes at pause time;
	// the idle timer still reports them, so only an active session credits.
	if session.Status == domain.SessionActive {
		session.CompletedMinutes += elapsed
		if session.CompletedMinutes > session.DurationMinutes {
			session.CompletedMinutes = session.DurationMinutes
		}
	}

	status := domain.SessionCancelled
	if completed {
		status = domain.SessionCompleted
	}
	if err := s.finalize(ctx, session, status); err != nil {
		return nil, err
	}
	return session, nil
}

// Info returns the current session with elapsed and remaining minutes.
func (s *Service) Info(ctx context.Context, userID string) (*SessionInfo, error) {
	session, err := s.inFlight(ctx, userID)
	if err != nil {
		return nil, err
	}

	elapsed := session.CompletedMinutes
	if session.Status == domain.SessionActive {
		if rem, err := s.sched.Remaining(session.ID); err == nil {
			elapsed = session.DurationMinutes - rem
		}
	}
	remaining := session.DurationMinutes - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return &SessionInfo{Session: session, ElapsedMinutes: elapsed, RemainingMinutes: remaining}, nil
}

// RestoreActiveSessions reconciles persisted sessions with the empty timer
// registry after a restart: expired actives finalize, live actives get a
// timer for their remaining minutes, paused sessions wait for resume.
func (s *Service) RestoreActiveSessions(ctx context.Context) error {
	active, err := s.sessions.ListByStatus(ctx, domain.SessionActive)
	if err != nil {
		return fmt.Errorf("listing active sessions: %w", err)
	}

	now := s.now().UTC()
	restored, finalized := 0, 0
	for _, session := range active {
		if !session.EndsAt.After(now) {
			session.CompletedMinutes = session.DurationMinutes
			if err := s.finalize(ctx, session, domain.SessionCompleted); err != nil {
				s.logger.Warn("finalizing expired session failed",
					"session_id", session.ID, "error", err)
				continue
			}
			s.notifyCompleted(ctx, session)
			finalized++
			continue
		}

		remaining := int(session.EndsAt.Sub(now) / time.Minute)
		if remaining < 1 {
			remaining = 1
		}
		if err := s.sched.Start(session.ID, session.UserID, remaining, s.onTimerComplete, s.tickFunc(session), s.tick); err != nil {
			s.logger.Warn("restoring timer failed", "session_id", session.ID, "error", err)
			continue
		}
		restored++
	}

	s.logger.Info("active sessions restored", "restored", restored, "finalized", finalized)
	return nil
}

// onTimerComplete runs on the timer goroutine when a session's clock runs
// out. Every step degrades to a log line so one user's failure cannot stall
// the scheduler.
func (s *Service) onTimerComplete(sessionID, userID string, totalMinutes int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		s.logger.Warn("loading completed session failed", "session_id", sessionID, "error", err)
		return
	}
	if !session.InFlight() {
		// The sweeper or a concurrent stop got there first.
		return
	}

	session.CompletedMinutes = session.DurationMinutes
	if err := s.finalize(ctx, session, domain.SessionCompleted); err != nil {
		s.logger.Warn("finalizing session failed", "session_id", sessionID, "error", err)
		return
	}

	s.notifyCompleted(ctx, session)

	if session.Type == domain.SessionWork && session.AutoStartBreak {
		s.startChainedBreak(ctx, session)
	}
}

// finalize moves a session to a terminal status, retires its expiry record,
// and on completed work sessions bumps the user's stats.
func (s *Service) finalize(ctx context.Context, session *domain.FocusSession, status domain.SessionStatus) error {
	now := s.now().UTC()
	session.Status = status
	session.EndedAt = &now
	if err := s.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("persisting %s session: %w", status, err)
	}
	s.retireSweep(ctx, session)

	if status == domain.SessionCompleted && session.Type == domain.SessionWork {
		if err := s.users.IncrementStats(ctx, session.UserID, 1, session.CompletedMinutes); err != nil {
			s.logger.Warn("incrementing focus stats failed",
				"user_id", session.UserID, "error", err)
		}
	}

	s.logger.Info("focus session finalized",
		"user_id", session.UserID, "session_id", session.ID,
		"status", status, "completed", session.CompletedMinutes)
	return nil
}

// startChainedBreak opens the follow-up break after a completed work
// session. Every fourth completed work session of the day earns the long
// break. The chained break never auto-starts another session.
func (s *Service) startChainedBreak(ctx context.Context, work *domain.FocusSession) {
	settings, err := s.users.GetSettings(ctx, work.UserID)
	if err != nil {
		s.logger.Warn("loading settings for break failed", "user_id", work.UserID, "error", err)
		settings = domain.DefaultPomodoroSettings()
	}

	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := s.sessions.CountCompletedWork(ctx, work.UserID, dayStart)
	if err != nil {
		s.logger.Warn("counting work sessions failed", "user_id", work.UserID, "error", err)
		count = 1
	}

	breakType := domain.SessionShortBreak
	duration := settings.ShortBreak
	if count > 0 && count%4 == 0 {
		breakType = domain.SessionLongBreak
		duration = settings.LongBreak
	}
	if err := domain.ValidateDuration(breakType, duration); err != nil {
		duration = domain.DefaultDuration(breakType)
	}

	session := &domain.FocusSession{
		ID:              uuid.New().String(),
		UserID:          work.UserID,
		Type:            breakType,
		Status:          domain.SessionActive,
		DurationMinutes: duration,
		StartedAt:       now,
		EndsAt:          now.Add(time.Duration(duration) * time.Minute),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Warn("creating chained break failed", "user_id", work.UserID, "error", err)
		return
	}
	if err := s.upsertSweep(ctx, session); err != nil {
		s.logger.Warn("writing expiry record failed", "user_id", work.UserID, "error", err)
	}
	if err := s.sched.Start(session.ID, work.UserID, duration, s.onTimerComplete, s.tickFunc(session), s.tick); err != nil {
		s.logger.Warn("scheduling break timer failed", "session_id", session.ID, "error", err)
	}

	s.logger.Info("chained break started",
		"user_id", work.UserID, "session_id", session.ID,
		"type", breakType, "duration", duration, "work_today", count)
}

func (s *Service) inFlight(ctx context.Context, userID string) (*domain.FocusSession, error) {
	session, err := s.sessions.GetInFlight(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading in-flight session: %w", err)
	}
	return session, nil
}

func (s *Service) upsertSweep(ctx context.Context, session *domain.FocusSession) error {
	return s.sweeps.Upsert(ctx, &domain.SweepRecord{
		ID:        domain.SweepRecordID(session.UserID, session.EndsAt),
		UserID:    session.UserID,
		Status:    domain.SweepActive,
		EndsAt:    session.EndsAt,
		UpdatedAt: s.now().UTC(),
		Version:   1,
	})
}

// retireSweep marks the session's expiry record done so the sweeper skips it.
func (s *Service) retireSweep(ctx context.Context, session *domain.FocusSession) {
	id := domain.SweepRecordID(session.UserID, session.EndsAt)
	rec, err := s.sweeps.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("loading expiry record failed", "record_id", id, "error", err)
		}
		return
	}
	if rec.Status != domain.SweepActive {
		return
	}
	rec.Status = domain.SweepDone
	rec.Version++
	rec.UpdatedAt = s.now().UTC()
	if err := s.sweeps.Update(ctx, rec); err != nil {
		s.logger.Warn("retiring expiry record failed", "record_id", id, "error", err)
	}
}

// tickFunc builds the per-minute callback that refreshes the user's
// countdown. Runs on the timer goroutine, so delivery failures only log.
func (s *Service) tickFunc(session *domain.FocusSession) TickFunc {
	if s.notifier == nil {
		return nil
	}
	snapshot := *session
	return func(sessionID, userID string, remaining int) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.SessionTick(ctx, userID, &snapshot, remaining); err != nil {
			s.logger.Debug("tick notification failed",
				"user_id", userID, "session_id", sessionID, "error", err)
		}
	}
}

func (s *Service) notifyCompleted(ctx context.Context, session *domain.FocusSession) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SessionCompleted(ctx, session.UserID, session); err != nil {
		s.logger.Warn("completion notification failed",
			"user_id", session.UserID, "session_id", session.ID, "error", err)
	}
}

func settingsDuration(settings domain.PomodoroSettings, t domain.SessionType) int {
	switch t {
	case domain.SessionShortBreak:
		return settings.ShortBreak
	case domain.SessionLongBreak:
		return settings.LongBreak
	default:
		return settings.WorkDuration
	}
}
