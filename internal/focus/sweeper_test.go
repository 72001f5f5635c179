package focus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/focusbot/internal/domain"
	"github.com/avelichko/focusbot/internal/repository"
	"github.com/avelichko/focusbot/internal/testutil"
)

type sweeperFixture struct {
	sweeper  *Sweeper
	users    repository.UserRepo
	sessions repository.FocusSessionRepo
	sweeps   repository.SweepRepo
	notifier *fakeNotifier
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	users := repository.NewSQLiteUserRepo(database)
	sessions := repository.NewSQLiteFocusSessionRepo(database)
	sweeps := repository.NewSQLiteSweepRepo(database)
	notifier := newFakeNotifier()

	sweeper := NewSweeper(testutil.NewTestUoW(database), sweeps, testScheduler(t), notifier, time.Minute, nil)

	_, err := users.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)

	return &sweeperFixture{sweeper: sweeper, users: users, sessions: sessions, sweeps: sweeps, notifier: notifier}
}

// seedSession stores an active session and its expiry record with the given
// deadline.
func (f *sweeperFixture) seedSession(t *testing.T, id string, endsAt time.Time) *domain.FocusSession {
	t.Helper()
	ctx := context.Background()
	session := &domain.FocusSession{
		ID: id, UserID: "u1", Type: domain.SessionWork,
		Status: domain.SessionActive, DurationMinutes: 25,
		StartedAt: endsAt.Add(-25 * time.Minute),
		EndsAt:    endsAt,
		Version:   1,
	}
	require.NoError(t, f.sessions.Create(ctx, session))
	require.NoError(t, f.sweeps.Upsert(ctx, &domain.SweepRecord{
		ID:        domain.SweepRecordID("u1", endsAt),
		UserID:    "u1",
		Status:    domain.SweepActive,
		EndsAt:    endsAt,
		UpdatedAt: endsAt,
		Version:   1,
	}))
	return session
}

func TestSweeper_SettlesExpiredSession(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()
	endsAt := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)
	session := f.seedSession(t, "s1", endsAt)

	f.sweeper.SweepOnce(ctx)

	got, err := f.sessions.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, got.Status)
	assert.Equal(t, 25, got.CompletedMinutes)
	require.NotNil(t, got.EndedAt)

	rec, err := f.sweeps.Get(ctx, domain.SweepRecordID("u1", endsAt))
	require.NoError(t, err)
	assert.Equal(t, domain.SweepNotified, rec.Status)
	require.NotNil(t, rec.LastNotifiedAt)

	profile, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.Stats.TotalSessions)
	assert.Equal(t, 25, profile.Stats.TotalMinutes)

	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, session.ID, f.notifier.calls[0].ID)
}

func TestSweeper_SecondPassIsIdempotent(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()
	endsAt := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)
	f.seedSession(t, "s1", endsAt)

	f.sweeper.SweepOnce(ctx)
	f.sweeper.SweepOnce(ctx)

	profile, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.Stats.TotalSessions)
	assert.Equal(t, 1, f.notifier.count())
}

func TestSweeper_NotifyFailureReArmsRecord(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()
	endsAt := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)
	f.seedSession(t, "s1", endsAt)
	f.notifier.err = errors.New("chat unreachable")

	f.sweeper.SweepOnce(ctx)

	// The session settled, but the record is armed for a delivery retry.
	got, err := f.sessions.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, got.Status)

	rec, err := f.sweeps.Get(ctx, domain.SweepRecordID("u1", endsAt))
	require.NoError(t, err)
	assert.Equal(t, domain.SweepActive, rec.Status)
	assert.Nil(t, rec.LastNotifiedAt)

	// Next pass only re-delivers; stats are not double-counted.
	f.notifier.err = nil
	f.sweeper.SweepOnce(ctx)

	rec, err = f.sweeps.Get(ctx, domain.SweepRecordID("u1", endsAt))
	require.NoError(t, err)
	assert.Equal(t, domain.SweepNotified, rec.Status)
	assert.Equal(t, 1, f.notifier.count())

	profile, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.Stats.TotalSessions)
}

func TestSweeper_IgnoresFutureRecords(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()
	endsAt := time.Now().UTC().Add(10 * time.Minute).Truncate(time.Second)
	f.seedSession(t, "s1", endsAt)

	f.sweeper.SweepOnce(ctx)

	got, err := f.sessions.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, got.Status)
	assert.Equal(t, 0, f.notifier.count())
}

func TestSweeper_OrphanRecordRetiredQuietly(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()
	endsAt := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)
	require.NoError(t, f.sweeps.Upsert(ctx, &domain.SweepRecord{
		ID:        domain.SweepRecordID("u1", endsAt),
		UserID:    "u1",
		Status:    domain.SweepActive,
		EndsAt:    endsAt,
		UpdatedAt: endsAt,
		Version:   1,
	}))

	f.sweeper.SweepOnce(ctx)

	rec, err := f.sweeps.Get(ctx, domain.SweepRecordID("u1", endsAt))
	require.NoError(t, err)
	assert.Equal(t, domain.SweepDone, rec.Status)
	assert.Equal(t, 0, f.notifier.count())
}

func TestSweeper_CancelledSessionNotAnnounced(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()
	endsAt := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)
	session := f.seedSession(t, "s1", endsAt)

	session.Status = domain.SessionCancelled
	require.NoError(t, f.sessions.Update(ctx, session))

	f.sweeper.SweepOnce(ctx)

	rec, err := f.sweeps.Get(ctx, domain.SweepRecordID("u1", endsAt))
	require.NoError(t, err)
	assert.Equal(t, domain.SweepDone, rec.Status)
	assert.Equal(t, 0, f.notifier.count())

	profile, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, profile.Stats.TotalSessions)
}

func TestSweeper_DrainsAcrossBatches(t *testing.T) {
	f := newSweeperFixture(t)
	f.sweeper.batch = 2
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	for i := 0; i < 5; i++ {
		f.seedUserSession(t, i, base.Add(time.Duration(i)*time.Minute))
	}

	f.sweeper.SweepOnce(ctx)

	assert.Equal(t, 5, f.notifier.count())
}

// seedUserSession seeds an expired session for a distinct user so each one
// has its own in-flight slot.
func (f *sweeperFixture) seedUserSession(t *testing.T, i int, endsAt time.Time) {
	t.Helper()
	ctx := context.Background()
	userID := string(rune('a' + i))
	_, err := f.users.GetOrCreate(ctx, userID)
	require.NoError(t, err)

	session := &domain.FocusSession{
		ID: "s-" + userID, UserID: userID, Type: domain.SessionWork,
		Status: domain.SessionActive, DurationMinutes: 25,
		StartedAt: endsAt.Add(-25 * time.Minute),
		EndsAt:    endsAt,
		Version:   1,
	}
	require.NoError(t, f.sessions.Create(ctx, session))
	require.NoError(t, f.sweeps.Upsert(ctx, &domain.SweepRecord{
		ID:        domain.SweepRecordID(userID, endsAt),
		UserID:    userID,
		Status:    domain.SweepActive,
		EndsAt:    endsAt,
		UpdatedAt: endsAt,
		Version:   1,
	}))
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	f := newSweeperFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
