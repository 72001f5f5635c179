package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelichko/focusbot/internal/db"
	"github.com/avelichko/focusbot/internal/domain"
	"github.com/avelichko/focusbot/internal/repository"
)

const (
	sweepBatchSize       = 50
	defaultSweepInterval = 30 * time.Second
)

// Sweeper is the durable backstop for session expiry: it finalizes sessions
// whose expiry record has passed, regardless of whether the in-process timer
// survived. Each record is settled in its own transaction so one bad record
// cannot block the batch.
type Sweeper struct {
	uow      db.UnitOfWork
	sweeps   repository.SweepRepo
	sched    *Scheduler
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	interval time.Duration
	batch    int
}

// NewSweeper wires a Sweeper. The notifier may be nil.
func NewSweeper(uow db.UnitOfWork, sweeps repository.SweepRepo, sched *Scheduler, notifier Notifier, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		uow:      uow,
		sweeps:   sweeps,
		sched:    sched,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		interval: interval,
		batch:    sweepBatchSize,
	}
}

// Run sweeps once immediately, then on every interval until the context is
// cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	w.SweepOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce drains all currently expired records in batches.
func (w *Sweeper) SweepOnce(ctx context.Context) {
	total := 0
	for {
		if ctx.Err() != nil {
			return
		}
		batch, err := w.sweeps.ListExpired(ctx, w.now().UTC(), w.batch)
		if err != nil {
			w.logger.Warn("listing expired records failed", "error", err)
			return
		}
		if len(batch) == 0 {
			break
		}

		for _, rec := range batch {
			if ctx.Err() != nil {
				return
			}
			if err := w.settle(ctx, rec.ID); err != nil {
				w.logger.Warn("settling expired record failed",
					"record_id", rec.ID, "error", err)
				continue
			}
			total++
		}
		if len(batch) < w.batch {
			break
		}
	}
	if total > 0 {
		w.logger.Info("sweep pass finished", "settled", total)
	}
}

// settle flips one expiry record active -> done in a transaction, finalizing
// the backing session and bumping stats in the same commit. The notification
// goes out only after the commit; if it fails, the record is reset to active
// so the next pass retries delivery against an already-settled session.
func (w *Sweeper) settle(ctx context.Context, recordID string) error {
	var settled *domain.SweepRecord
	var completed *domain.FocusSession

	err := w.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		sweeps := repository.NewSQLiteSweepRepo(tx)
		sessions := repository.NewSQLiteFocusSessionRepo(tx)
		users := repository.NewSQLiteUserRepo(tx)

		rec, err := sweeps.Get(ctx, recordID)
		if err != nil {
			return fmt.Errorf("re-reading record: %w", err)
		}
		// Another pass or an in-process completion may have settled it between
		// listing and locking.
		if rec.Status != domain.SweepActive || rec.EndsAt.After(w.now().UTC()) {
			return nil
		}

		session, err := sessions.GetByEndsAt(ctx, rec.UserID, rec.EndsAt)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// Orphan record; nothing to finalize or announce.
		case err != nil:
			return fmt.Errorf("loading session: %w", err)
		case session.InFlight():
			now := w.now().UTC()
			session.Status = domain.SessionCompleted
			session.CompletedMinutes = session.DurationMinutes
			session.EndedAt = &now
			if err := sessions.Update(ctx, session); err != nil {
				return fmt.Errorf("completing session: %w", err)
			}
			if session.Type == domain.SessionWork {
				if err := users.IncrementStats(ctx, session.UserID, 1, session.CompletedMinutes); err != nil {
					return fmt.Errorf("incrementing stats: %w", err)
				}
			}
			completed = session
		case session.Status == domain.SessionCompleted:
			// Finalized elsewhere but the record is still active, so the
			// notification is still owed (e.g. a re-armed delivery retry).
			completed = session
		}

		rec.Status = domain.SweepDone
		rec.Version++
		rec.UpdatedAt = w.now().UTC()
		if err := sweeps.Update(ctx, rec); err != nil {
			return fmt.Errorf("marking record done: %w", err)
		}
		settled = rec
		return nil
	})
	if err != nil || settled == nil {
		return err
	}

	if completed != nil && w.sched != nil {
		// Drop any timer the in-process scheduler still holds for it.
		if _, err := w.sched.Stop(completed.ID); err != nil && !errors.Is(err, ErrTimerNotFound) {
			w.logger.Warn("dropping stale timer failed", "session_id", completed.ID, "error", err)
		}
	}

	w.deliver(ctx, settled, completed)
	return nil
}

// deliver sends the expiry notification and records the outcome. Failure
// re-arms the record for the next pass.
func (w *Sweeper) deliver(ctx context.Context, rec *domain.SweepRecord, session *domain.FocusSession) {
	if w.notifier == nil || session == nil {
		return
	}

	if err := w.notifier.SessionCompleted(ctx, rec.UserID, session); err != nil {
		w.logger.Warn("expiry notification failed, re-arming record",
			"record_id", rec.ID, "error", err)
		rec.Status = domain.SweepActive
		rec.Version++
		rec.UpdatedAt = w.now().UTC()
		if err := w.sweeps.Update(ctx, rec); err != nil {
			w.logger.Warn("re-arming record failed", "record_id", rec.ID, "error", err)
		}
		return
	}

	now := w.now().UTC()
	rec.Status = domain.SweepNotified
	rec.Version++
	rec.LastNotifiedAt = &now
	rec.UpdatedAt = now
	if err := w.sweeps.Update(ctx, rec); err != nil {
		w.logger.Warn("marking record notified failed", "record_id", rec.ID, "error", err)
	}
}
