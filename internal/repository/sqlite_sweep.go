package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avelichko/focusbot/internal/db"
	"github.com/avelichko/focusbot/internal/domain"
)

// SQLiteSweepRepo implements SweepRepo over the pomodoro_sessions table.
type SQLiteSweepRepo struct {
	db db.DBTX
}

// NewSQLiteSweepRepo creates a new SQLiteSweepRepo.
func NewSQLiteSweepRepo(conn db.DBTX) *SQLiteSweepRepo {
	return &SQLiteSweepRepo{db: conn}
}

func (r *SQLiteSweepRepo) Upsert(ctx context.Context, rec *domain.SweepRecord) error {
	query := `INSERT INTO pomodoro_sessions (id, user_id, status, ends_at, last_notified_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			ends_at = excluded.ends_at,
			last_notified_at = excluded.last_notified_at,
			updated_at = excluded.updated_at,
			version = excluded.version`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		string(rec.Status),
		rec.EndsAt.UTC().Format(time.RFC3339),
		nullableTimeToString(rec.LastNotifiedAt),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
		rec.Version,
	)
	if err != nil {
		return fmt.Errorf("upserting sweep record: %w", err)
	}
	return nil
}

func (r *SQLiteSweepRepo) Get(ctx context.Context, id string) (*domain.SweepRecord, error) {
	query := `SELECT id, user_id, status, ends_at, last_notified_at, updated_at, version
		FROM pomodoro_sessions WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	var rec domain.SweepRecord
	var status, endsAtStr, updatedAtStr string
	var lastNotified sql.NullString

	err := row.Scan(&rec.ID, &rec.UserID, &status, &endsAtStr, &lastNotified, &updatedAtStr, &rec.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sweep record: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning sweep record: %w", err)
	}

	rec.Status = domain.SweepStatus(status)
	rec.LastNotifiedAt = parseNullableTime(lastNotified)
	if rec.EndsAt, err = time.Parse(time.RFC3339, endsAtStr); err != nil {
		return nil, fmt.Errorf("parsing ends_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &rec, nil
}

func (r *SQLiteSweepRepo) Update(ctx context.Context, rec *domain.SweepRecord) error {
	query := `UPDATE pomodoro_sessions SET
			status = ?, last_notified_at = ?, updated_at = ?, version = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(rec.Status),
		nullableTimeToString(rec.LastNotifiedAt),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
		rec.Version,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating sweep record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating sweep record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sweep record %s: %w", rec.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteSweepRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.SweepRecord, error) {
	query := `SELECT id, user_id, status, ends_at, last_notified_at, updated_at, version
		FROM pomodoro_sessions
		WHERE status = 'active' AND ends_at <= ?
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, now.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("listing expired sweep records: %w", err)
	}
	defer rows.Close()

	var recs []*domain.SweepRecord
	for rows.Next() {
		var rec domain.SweepRecord
		var status, endsAtStr, updatedAtStr string
		var lastNotified sql.NullString

		if err := rows.Scan(&rec.ID, &rec.UserID, &status, &endsAtStr, &lastNotified, &updatedAtStr, &rec.Version); err != nil {
			return nil, fmt.Errorf("scanning sweep record row: %w", err)
		}
		rec.Status = domain.SweepStatus(status)
		rec.LastNotifiedAt = parseNullableTime(lastNotified)
		if rec.EndsAt, err = time.Parse(time.RFC3339, endsAtStr); err != nil {
			return nil, fmt.Errorf("parsing ends_at: %w", err)
		}
		if rec.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sweep records: %w", err)
	}
	return recs, nil
}
