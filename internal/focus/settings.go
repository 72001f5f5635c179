package focus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/avelichko/focusbot/internal/domain"
)

// ApplySettings merges user-supplied key/value updates into the stored
// pomodoro settings after bounds-checking. Unknown keys are ignored so old
// clients can send fields this version no longer knows.
func ApplySettings(current domain.PomodoroSettings, updates map[string]string) (domain.PomodoroSettings, error) {
	out := current
	for key, raw := range updates {
		switch key {
		case "work_duration":
			n, err := parseBounded(key, raw, domain.WorkMinMinutes, domain.WorkMaxMinutes)
			if err != nil {
				return current, err
			}
			out.WorkDuration = n
		case "short_break":
			n, err := parseBounded(key, raw, domain.ShortBreakMinMinutes, domain.ShortBreakMaxMinutes)
			if err != nil {
				return current, err
			}
			out.ShortBreak = n
		case "long_break":
			n, err := parseBounded(key, raw, domain.LongBreakMinMinutes, domain.LongBreakMaxMinutes)
			if err != nil {
				return current, err
			}
			out.LongBreak = n
		case "sound_enabled":
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return current, fmt.Errorf("sound_enabled: %q is not a boolean", raw)
			}
			out.SoundEnabled = b
		case "auto_start_break":
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return current, fmt.Errorf("auto_start_break: %q is not a boolean", raw)
			}
			out.AutoStartBreak = b
		}
	}
	return out, nil
}

func parseBounded(key, raw string, min, max int) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%s: %d outside [%d, %d] minutes", key, n, min, max)
	}
	return n, nil
}

// UpdateSettings validates and persists settings changes for a user. The
// profile row is created on first contact so the save has a row to update.
func (s *Service) UpdateSettings(ctx context.Context, userID string, updates map[string]string) (domain.PomodoroSettings, error) {
	if _, err := s.users.GetOrCreate(ctx, userID); err != nil {
		return domain.PomodoroSettings{}, fmt.Errorf("loading profile: %w", err)
	}
	current, err := s.users.GetSettings(ctx, userID)
	if err != nil {
		return domain.PomodoroSettings{}, fmt.Errorf("loading settings: %w", err)
	}
	next, err := ApplySettings(current, updates)
	if err != nil {
		return domain.PomodoroSettings{}, err
	}
	if err := s.users.SaveSettings(ctx, userID, next); err != nil {
		return domain.PomodoroSettings{}, fmt.Errorf("saving settings: %w", err)
	}
	s.logger.Info("pomodoro settings updated", "user_id", userID)
	return next, nil
}

// Settings returns the user's pomodoro settings, defaults included.
func (s *Service) Settings(ctx context.Context, userID string) (domain.PomodoroSettings, error) {
	return s.users.GetSettings(ctx, userID)
}
