package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avelichko/focusbot/internal/db"
	"github.com/avelichko/focusbot/internal/domain"
)

// SQLiteFocusSessionRepo implements FocusSessionRepo using a SQLite database.
type SQLiteFocusSessionRepo struct {
	db db.DBTX
}

// NewSQLiteFocusSessionRepo creates a new SQLiteFocusSessionRepo.
func NewSQLiteFocusSessionRepo(conn db.DBTX) *SQLiteFocusSessionRepo {
	return &SQLiteFocusSessionRepo{db: conn}
}

const focusColumns = `id, user_id, type, status, duration_minutes, completed_minutes,
	started_at, paused_at, resumed_at, ended_at, ends_at, auto_start_break, version`

func (r *SQLiteFocusSessionRepo) Create(ctx context.Context, s *domain.FocusSession) error {
	query := `INSERT INTO focus_sessions (` + focusColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		string(s.Type),
		string(s.Status),
		s.DurationMinutes,
		s.CompletedMinutes,
		s.StartedAt.UTC().Format(time.RFC3339),
		nullableTimeToString(s.PausedAt),
		nullableTimeToString(s.ResumedAt),
		nullableTimeToString(s.EndedAt),
		s.EndsAt.UTC().Format(time.RFC3339),
		boolToInt(s.AutoStartBreak),
		s.Version,
	)
	if err != nil {
		return fmt.Errorf("inserting focus session: %w", err)
	}
	return nil
}

func (r *SQLiteFocusSessionRepo) GetByID(ctx context.Context, id string) (*domain.FocusSession, error) {
	query := `SELECT ` + focusColumns + ` FROM focus_sessions WHERE id = ?`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteFocusSessionRepo) GetInFlight(ctx context.Context, userID string) (*domain.FocusSession, error) {
	query := `SELECT ` + focusColumns + ` FROM focus_sessions
		WHERE user_id = ? AND status IN ('active', 'paused')
		ORDER BY started_at DESC LIMIT 1`
	return r.scanSession(r.db.QueryRowContext(ctx, query, userID))
}

// GetByEndsAt finds the user's most recent session scheduled to end at the
// given instant. The sweeper uses it to re-associate expiry records with
// their sessions.
func (r *SQLiteFocusSessionRepo) GetByEndsAt(ctx context.Context, userID string, endsAt time.Time) (*domain.FocusSession, error) {
	query := `SELECT ` + focusColumns + ` FROM focus_sessions
		WHERE user_id = ? AND ends_at = ?
		ORDER BY started_at DESC LIMIT 1`
	return r.scanSession(r.db.QueryRowContext(ctx, query, userID, endsAt.UTC().Format(time.RFC3339)))
}

func (r *SQLiteFocusSessionRepo) Update(ctx context.Context, s *domain.FocusSession) error {
	s.Version++
	query := `UPDATE focus_sessions SET
			status = ?, completed_minutes = ?, paused_at = ?, resumed_at = ?,
			ended_at = ?, ends_at = ?, auto_start_break = ?, version = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(s.Status),
		s.CompletedMinutes,
		nullableTimeToString(s.PausedAt),
		nullableTimeToString(s.ResumedAt),
		nullableTimeToString(s.EndedAt),
		s.EndsAt.UTC().Format(time.RFC3339),
		boolToInt(s.AutoStartBreak),
		s.Version,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating focus session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating focus session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("focus session %s: %w", s.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteFocusSessionRepo) ListByStatus(ctx context.Context, status domain.SessionStatus) ([]*domain.FocusSession, error) {
	query := `SELECT ` + focusColumns + ` FROM focus_sessions
		WHERE status = ? ORDER BY started_at`
	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing focus sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.FocusSession
	for rows.Next() {
		s, err := r.scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating focus sessions: %w", err)
	}
	return sessions, nil
}

func (r *SQLiteFocusSessionRepo) CountCompletedWork(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM focus_sessions
		WHERE user_id = ? AND type = 'work' AND status = 'completed' AND ended_at >= ?`
	var n int
	err := r.db.QueryRowContext(ctx, query, userID, since.UTC().Format(time.RFC3339)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting completed work sessions: %w", err)
	}
	return n, nil
}

func (r *SQLiteFocusSessionRepo) scanSession(row *sql.Row) (*domain.FocusSession, error) {
	var s domain.FocusSession
	var sType, sStatus, startedAtStr, endsAtStr string
	var pausedAt, resumedAt, endedAt sql.NullString
	var autoBreak int

	err := row.Scan(
		&s.ID, &s.UserID, &sType, &sStatus, &s.DurationMinutes, &s.CompletedMinutes,
		&startedAtStr, &pausedAt, &resumedAt, &endedAt, &endsAtStr, &autoBreak, &s.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("focus session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning focus session: %w", err)
	}
	return r.populate(&s, sType, sStatus, startedAtStr, endsAtStr, pausedAt, resumedAt, endedAt, autoBreak)
}

func (r *SQLiteFocusSessionRepo) scanSessionRow(rows *sql.Rows) (*domain.FocusSession, error) {
	var s domain.FocusSession
	var sType, sStatus, startedAtStr, endsAtStr string
	var pausedAt, resumedAt, endedAt sql.NullString
	var autoBreak int

	err := rows.Scan(
		&s.ID, &s.UserID, &sType, &sStatus, &s.DurationMinutes, &s.CompletedMinutes,
		&startedAtStr, &pausedAt, &resumedAt, &endedAt, &endsAtStr, &autoBreak, &s.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning focus session row: %w", err)
	}
	return r.populate(&s, sType, sStatus, startedAtStr, endsAtStr, pausedAt, resumedAt, endedAt, autoBreak)
}

func (r *SQLiteFocusSessionRepo) populate(s *domain.FocusSession, sType, sStatus, startedAtStr, endsAtStr string, pausedAt, resumedAt, endedAt sql.NullString, autoBreak int) (*domain.FocusSession, error) {
	s.Type = domain.SessionType(sType)
	s.Status = domain.SessionStatus(sStatus)
	s.PausedAt = parseNullableTime(pausedAt)
	s.ResumedAt = parseNullableTime(resumedAt)
	s.EndedAt = parseNullableTime(endedAt)
	s.AutoStartBreak = intToBool(autoBreak)

	var err error
	if s.StartedAt, err = time.Parse(time.RFC3339, startedAtStr); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if s.EndsAt, err = time.Parse(time.RFC3339, endsAtStr); err != nil {
		return nil, fmt.Errorf("parsing ends_at: %w", err)
	}
	return s, nil
}
