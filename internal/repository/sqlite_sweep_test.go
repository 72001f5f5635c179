package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/focusbot/internal/domain"
	"github.com/avelichko/focusbot/internal/testutil"
)

func newSweepRecord(userID string, endsAt time.Time) *domain.SweepRecord {
	return &domain.SweepRecord{
		ID:        domain.SweepRecordID(userID, endsAt),
		UserID:    userID,
		Status:    domain.SweepActive,
		EndsAt:    endsAt,
		UpdatedAt: endsAt,
		Version:   1,
	}
}

func TestSweepRepo_UpsertAndGet(t *testing.T) {
	repo := NewSQLiteSweepRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	endsAt := time.Date(2026, 3, 1, 9, 25, 0, 0, time.UTC)

	rec := newSweepRecord("u1", endsAt)
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SweepActive, got.Status)
	assert.Equal(t, endsAt, got.EndsAt)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepRepo_UpsertIsIdempotent(t *testing.T) {
	repo := NewSQLiteSweepRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	endsAt := time.Date(2026, 3, 1, 9, 25, 0, 0, time.UTC)

	rec := newSweepRecord("u1", endsAt)
	require.NoError(t, repo.Upsert(ctx, rec))

	// A second start against the same ends_at reuses the same key.
	rec.Version = 2
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestSweepRepo_UpdateMissing(t *testing.T) {
	repo := NewSQLiteSweepRepo(testutil.NewTestDB(t))
	rec := newSweepRecord("ghost", time.Now().UTC())

	err := repo.Update(context.Background(), rec)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepRepo_ListExpired(t *testing.T) {
	repo := NewSQLiteSweepRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	past := newSweepRecord("u1", now.Add(-5*time.Minute))
	boundary := newSweepRecord("u2", now)
	future := newSweepRecord("u3", now.Add(5*time.Minute))
	done := newSweepRecord("u4", now.Add(-10*time.Minute))
	done.Status = domain.SweepDone

	for _, rec := range []*domain.SweepRecord{past, boundary, future, done} {
		require.NoError(t, repo.Upsert(ctx, rec))
	}

	expired, err := repo.ListExpired(ctx, now, 50)
	require.NoError(t, err)
	require.Len(t, expired, 2)

	ids := []string{expired[0].ID, expired[1].ID}
	assert.Contains(t, ids, past.ID)
	assert.Contains(t, ids, boundary.ID)
}

func TestSweepRepo_ListExpiredHonorsLimit(t *testing.T) {
	repo := NewSQLiteSweepRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := newSweepRecord("u"+string(rune('a'+i)), now.Add(-time.Duration(i+1)*time.Minute))
		require.NoError(t, repo.Upsert(ctx, rec))
	}

	expired, err := repo.ListExpired(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, expired, 3)
}

func TestSweepRepo_StatusTransitions(t *testing.T) {
	repo := NewSQLiteSweepRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	endsAt := time.Date(2026, 3, 1, 9, 25, 0, 0, time.UTC)

	rec := newSweepRecord("u1", endsAt)
	require.NoError(t, repo.Upsert(ctx, rec))

	rec.Status = domain.SweepDone
	rec.Version++
	require.NoError(t, repo.Update(ctx, rec))

	notifiedAt := endsAt.Add(time.Minute)
	rec.Status = domain.SweepNotified
	rec.LastNotifiedAt = &notifiedAt
	rec.Version++
	require.NoError(t, repo.Update(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SweepNotified, got.Status)
	assert.Equal(t, 3, got.Version)
	require.NotNil(t, got.LastNotifiedAt)
	assert.Equal(t, notifiedAt.Unix(), got.LastNotifiedAt.Unix())

	// Done and notified records never show up as expired.
	expired, err := repo.ListExpired(ctx, endsAt.Add(time.Hour), 50)
	require.NoError(t, err)
	assert.Empty(t, expired)
}
