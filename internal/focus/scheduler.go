package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Scheduler errors.
var (
	ErrTimerExists   = errors.New("timer already registered for session")
	ErrTimerNotFound = errors.New("no timer registered for session")
)

// TimerState is the lifecycle state of a registered timer.
type TimerState string

const (
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
	TimerStopped TimerState = "stopped"
)

// CompleteFunc is invoked exactly once when a timer reaches its duration.
type CompleteFunc func(sessionID, userID string, totalMinutes int)

// TickFunc is invoked at most once per elapsed minute with the remaining time.
type TickFunc func(sessionID, userID string, remainingMinutes int)

// timerInfo is the registry entry for one running timer. State fields are
// guarded by the scheduler mutex; the timer goroutine is the only writer of
// elapsedMinutes while running.
type timerInfo struct {
	userID         string
	totalMinutes   int
	elapsedMinutes int
	state          TimerState
	startedAt      time.Time
	tickInterval   time.Duration
	onComplete     CompleteFunc
	onTick         TickFunc
	cancel         context.CancelFunc
	done           chan struct{}
}

// Scheduler owns an in-process registry of focus timers, one goroutine per
// timer. External code interacts only through its API; a resume replaces the
// whole entry instead of mutating a running timer.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*timerInfo
	logger *slog.Logger

	now       func() time.Time
	minute    time.Duration // shrunk in tests
	pausePoll time.Duration

	monitorCancel context.CancelFunc
	monitorDone   chan struct{}
}

// NewScheduler creates a Scheduler and starts its garbage-collection monitor.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return newScheduler(logger, time.Minute, time.Second, 30*time.Second)
}

func newScheduler(logger *slog.Logger, minute, pausePoll, monitorEvery time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		timers:        make(map[string]*timerInfo),
		logger:        logger,
		now:           time.Now,
		minute:        minute,
		pausePoll:     pausePoll,
		monitorCancel: cancel,
		monitorDone:   make(chan struct{}),
	}
	go s.monitor(ctx, monitorEvery)
	return s
}

// Start registers and launches a timer for a session. Fails when the session
// already has a timer.
func (s *Scheduler) Start(sessionID, userID string, durationMinutes int, onComplete CompleteFunc, onTick TickFunc, tickInterval time.Duration) error {
	if durationMinutes < 1 {
		return fmt.Errorf("duration %d must be at least 1 minute", durationMinutes)
	}
	// Between one second and one minute in production units.
	if min := s.minute / 60; tickInterval < min {
		tickInterval = min
	}
	if tickInterval > s.minute {
		tickInterval = s.minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[sessionID]; ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrTimerExists)
	}

	ctx, cancel := context.WithCancel(context.Background())
	info := &timerInfo{
		userID:       userID,
		totalMinutes: durationMinutes,
		state:        TimerRunning,
		startedAt:    s.now(),
		tickInterval: tickInterval,
		onComplete:   onComplete,
		onTick:       onTick,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	s.timers[sessionID] = info
	go s.run(ctx, sessionID, info)
	return nil
}

// Pause flips the timer to paused and returns the elapsed minutes. The
// goroutine observes the state and idles without accruing time.
func (s *Scheduler) Pause(sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.timers[sessionID]
	if !ok {
		return 0, fmt.Errorf("session %s: %w", sessionID, ErrTimerNotFound)
	}
	info.state = TimerPaused
	return info.elapsedMinutes, nil
}

// Resume replaces any prior entry with a fresh timer counting down the
// remaining minutes.
func (s *Scheduler) Resume(sessionID, userID string, remainingMinutes int, onComplete CompleteFunc, onTick TickFunc, tickInterval time.Duration) error {
	s.removeAndCancel(sessionID)
	return s.Start(sessionID, userID, remainingMinutes, onComplete, onTick, tickInterval)
}

// Stop cancels the timer, waits for its goroutine to exit, unregisters it,
// and returns the elapsed minutes.
func (s *Scheduler) Stop(sessionID string) (int, error) {
	s.mu.Lock()
	info, ok := s.timers[sessionID]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("session %s: %w", sessionID, ErrTimerNotFound)
	}
	elapsed := info.elapsedMinutes
	info.state = TimerStopped
	info.cancel()
	delete(s.timers, sessionID)
	s.mu.Unlock()

	<-info.done
	return elapsed, nil
}

// Remaining returns the minutes left on a timer.
func (s *Scheduler) Remaining(sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.timers[sessionID]
	if !ok {
		return 0, fmt.Errorf("session %s: %w", sessionID, ErrTimerNotFound)
	}
	remaining := info.totalMinutes - info.elapsedMinutes
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// State returns the lifecycle state of a timer.
func (s *Scheduler) State(sessionID string) (TimerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.timers[sessionID]
	if !ok {
		return "", fmt.Errorf("session %s: %w", sessionID, ErrTimerNotFound)
	}
	return info.state, nil
}

// ActiveCount returns the number of registered timers.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ActiveIDs returns the session ids of all registered timers.
func (s *Scheduler) ActiveIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	return ids
}

// Close cancels all timers and the monitor.
func (s *Scheduler) Close() {
	s.mu.Lock()
	var dones []chan struct{}
	for id, info := range s.timers {
		info.state = TimerStopped
		info.cancel()
		dones = append(dones, info.done)
		delete(s.timers, id)
	}
	s.mu.Unlock()

	for _, done := range dones {
		<-done
	}
	s.monitorCancel()
	<-s.monitorDone
}

func (s *Scheduler) removeAndCancel(sessionID string) {
	s.mu.Lock()
	info, ok := s.timers[sessionID]
	if ok {
		info.state = TimerStopped
		info.cancel()
		delete(s.timers, sessionID)
	}
	s.mu.Unlock()
	if ok {
		<-info.done
	}
}

// run is the per-timer loop. Elapsed time is recomputed from the wall clock
// at minute resolution after each interval, which is robust to sleep drift.
func (s *Scheduler) run(ctx context.Context, sessionID string, info *timerInfo) {
	defer close(info.done)

	for {
		s.mu.Lock()
		state := info.state
		s.mu.Unlock()

		wait := info.tickInterval
		if state == TimerPaused {
			wait = s.pausePoll
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		s.mu.Lock()
		if info.state == TimerStopped {
			s.mu.Unlock()
			return
		}
		if info.state == TimerPaused {
			s.mu.Unlock()
			continue
		}

		elapsed := int(s.now().Sub(info.startedAt) / s.minute)
		ticked := elapsed > info.elapsedMinutes
		info.elapsedMinutes = elapsed

		if elapsed >= info.totalMinutes {
			info.state = TimerStopped
			info.elapsedMinutes = info.totalMinutes
			delete(s.timers, sessionID)
			onComplete := info.onComplete
			userID := info.userID
			total := info.totalMinutes
			s.mu.Unlock()

			if onComplete != nil {
				onComplete(sessionID, userID, total)
			}
			return
		}

		onTick := info.onTick
		remaining := info.totalMinutes - elapsed
		userID := info.userID
		s.mu.Unlock()

		// At most one tick per whole minute boundary.
		if ticked && onTick != nil {
			onTick(sessionID, userID, remaining)
		}
	}
}

// monitor garbage-collects entries whose goroutine finished without
// unregistering, e.g. after a panicking callback.
func (s *Scheduler) monitor(ctx context.Context, every time.Duration) {
	defer close(s.monitorDone)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		for id, info := range s.timers {
			select {
			case <-info.done:
				s.logger.Warn("garbage-collecting finished timer", "session_id", id)
				delete(s.timers, id)
			default:
			}
		}
		s.mu.Unlock()
	}
}
