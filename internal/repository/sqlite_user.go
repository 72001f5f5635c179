package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avelichko/focusbot/internal/db"
	"github.com/avelichko/focusbot/internal/domain"
)

// SQLiteUserRepo implements UserRepo over the users table. Nested maps
// (answers, constraints, plan, preferences) are stored as JSON columns;
// counters are plain integer columns mutated with atomic increments.
type SQLiteUserRepo struct {
	db db.DBTX
}

// NewSQLiteUserRepo creates a new SQLiteUserRepo. Pass a *sql.Tx-backed DBTX
// to compose the repo into a transaction.
func NewSQLiteUserRepo(conn db.DBTX) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: conn}
}

const userColumns = `user_id, active_category, onboarding_completed, onboarding_answers,
	onboarding_done_at, constraints_json, plan_json, days_done, last_checkin,
	streak_current, streak_best, completion_rate, fail_reasons, preferences_json,
	total_sessions, total_minutes, created_at, updated_at`

func (r *SQLiteUserRepo) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	return r.scanUser(row)
}

func (r *SQLiteUserRepo) GetOrCreate(ctx context.Context, userID string) (*domain.UserProfile, error) {
	p, err := r.Get(ctx, userID)
	if err == nil {
		return p, nil
	}

	now := time.Now().UTC()
	p = &domain.UserProfile{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLiteUserRepo) Upsert(ctx context.Context, p *domain.UserProfile) error {
	answers, err := json.Marshal(orEmptyMap(p.Onboarding.Answers))
	if err != nil {
		return fmt.Errorf("marshaling answers: %w", err)
	}
	constraints, err := json.Marshal(p.Constraints)
	if err != nil {
		return fmt.Errorf("marshaling constraints: %w", err)
	}
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return fmt.Errorf("marshaling preferences: %w", err)
	}
	failReasons, err := json.Marshal(orEmptySlice(p.Progress.FailReasons))
	if err != nil {
		return fmt.Errorf("marshaling fail reasons: %w", err)
	}

	var planJSON interface{}
	if p.Plan != nil {
		data, err := json.Marshal(p.Plan)
		if err != nil {
			return fmt.Errorf("marshaling plan: %w", err)
		}
		planJSON = string(data)
	}

	query := `INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			active_category = excluded.active_category,
			onboarding_completed = excluded.onboarding_completed,
			onboarding_answers = excluded.onboarding_answers,
			onboarding_done_at = excluded.onboarding_done_at,
			constraints_json = excluded.constraints_json,
			plan_json = excluded.plan_json,
			days_done = excluded.days_done,
			last_checkin = excluded.last_checkin,
			streak_current = excluded.streak_current,
			streak_best = excluded.streak_best,
			completion_rate = excluded.completion_rate,
			fail_reasons = excluded.fail_reasons,
			preferences_json = excluded.preferences_json,
			updated_at = excluded.updated_at`
	_, err = r.db.ExecContext(ctx, query,
		p.UserID,
		string(p.ActiveCategory),
		boolToInt(p.Onboarding.Completed),
		string(answers),
		nullableTimeToString(p.Onboarding.CompletedAt),
		string(constraints),
		planJSON,
		p.Progress.DaysDone,
		nullableTimeToString(p.Progress.LastCheckin),
		p.Progress.StreakCurrent,
		p.Progress.StreakBest,
		p.Progress.CompletionRate,
		string(failReasons),
		string(prefs),
		p.Stats.TotalSessions,
		p.Stats.TotalMinutes,
		p.CreatedAt.UTC().Format(time.RFC3339),
		p.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepo) ReplacePlan(ctx context.Context, userID string, plan *domain.Plan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	// Old plan is overwritten and progress reset in one statement, so a
	// confirmed regeneration never leaves stale counters behind.
	query := `UPDATE users SET
			plan_json = ?,
			active_category = ?,
			days_done = 0,
			streak_current = 0,
			completion_rate = 0,
			fail_reasons = '[]',
			updated_at = ?
		WHERE user_id = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(data),
		string(plan.Type),
		time.Now().UTC().Format(time.RFC3339),
		userID,
	)
	if err != nil {
		return fmt.Errorf("replacing plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replacing plan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteUserRepo) GetPlan(ctx context.Context, userID string) (*domain.Plan, error) {
	query := `SELECT plan_json FROM users WHERE user_id = ?`
	var planJSON sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&planJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading plan: %w", err)
	}
	if !planJSON.Valid || planJSON.String == "" {
		return nil, fmt.Errorf("plan for user %s: %w", userID, ErrNotFound)
	}
	var plan domain.Plan
	if err := json.Unmarshal([]byte(planJSON.String), &plan); err != nil {
		return nil, fmt.Errorf("unmarshaling plan: %w", err)
	}
	return &plan, nil
}

func (r *SQLiteUserRepo) IncrementStats(ctx context.Context, userID string, sessions, minutes int) error {
	query := `UPDATE users SET
			total_sessions = total_sessions + ?,
			total_minutes = total_minutes + ?,
			updated_at = ?
		WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, query, sessions, minutes,
		time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return fmt.Errorf("incrementing stats: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepo) GetSettings(ctx context.Context, userID string) (domain.PomodoroSettings, error) {
	query := `SELECT settings_json FROM users WHERE user_id = ?`
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.DefaultPomodoroSettings(), nil
		}
		return domain.PomodoroSettings{}, fmt.Errorf("loading settings: %w", err)
	}
	if !raw.Valid || raw.String == "" || raw.String == "{}" {
		return domain.DefaultPomodoroSettings(), nil
	}
	var s domain.PomodoroSettings
	if err := json.Unmarshal([]byte(raw.String), &s); err != nil {
		return domain.PomodoroSettings{}, fmt.Errorf("unmarshaling settings: %w", err)
	}
	return s, nil
}

func (r *SQLiteUserRepo) SaveSettings(ctx context.Context, userID string, s domain.PomodoroSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	query := `UPDATE users SET settings_json = ?, updated_at = ? WHERE user_id = ?`
	res, err := r.db.ExecContext(ctx, query, string(data),
		time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// scanUser scans a full user row.
func (r *SQLiteUserRepo) scanUser(row *sql.Row) (*domain.UserProfile, error) {
	var p domain.UserProfile
	var (
		category                              string
		onboardingCompleted                   int
		answersRaw, constraintsRaw, prefsRaw  string
		failReasonsRaw                        string
		planRaw, doneAt, lastCheckin          sql.NullString
		createdAtStr, updatedAtStr            string
	)

	err := row.Scan(
		&p.UserID, &category, &onboardingCompleted, &answersRaw,
		&doneAt, &constraintsRaw, &planRaw, &p.Progress.DaysDone, &lastCheckin,
		&p.Progress.StreakCurrent, &p.Progress.StreakBest, &p.Progress.CompletionRate,
		&failReasonsRaw, &prefsRaw,
		&p.Stats.TotalSessions, &p.Stats.TotalMinutes,
		&createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	p.ActiveCategory = domain.Category(category)
	p.Onboarding.Completed = intToBool(onboardingCompleted)
	p.Onboarding.CompletedAt = parseNullableTime(doneAt)
	p.Progress.LastCheckin = parseNullableTime(lastCheckin)

	if err := json.Unmarshal([]byte(answersRaw), &p.Onboarding.Answers); err != nil {
		return nil, fmt.Errorf("unmarshaling answers: %w", err)
	}
	if err := json.Unmarshal([]byte(constraintsRaw), &p.Constraints); err != nil {
		return nil, fmt.Errorf("unmarshaling constraints: %w", err)
	}
	if err := json.Unmarshal([]byte(prefsRaw), &p.Preferences); err != nil {
		return nil, fmt.Errorf("unmarshaling preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(failReasonsRaw), &p.Progress.FailReasons); err != nil {
		return nil, fmt.Errorf("unmarshaling fail reasons: %w", err)
	}
	if planRaw.Valid && planRaw.String != "" {
		var plan domain.Plan
		if err := json.Unmarshal([]byte(planRaw.String), &plan); err != nil {
			return nil, fmt.Errorf("unmarshaling plan: %w", err)
		}
		p.Plan = &plan
	}

	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &p, nil
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
