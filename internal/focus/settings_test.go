package focus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/focusbot/internal/domain"
)

func TestApplySettings_UpdatesDurations(t *testing.T) {
	got, err := ApplySettings(domain.DefaultPomodoroSettings(), map[string]string{
		"work_duration": "45",
		"short_break":   "10",
		"long_break":    "20",
	})

	require.NoError(t, err)
	assert.Equal(t, 45, got.WorkDuration)
	assert.Equal(t, 10, got.ShortBreak)
	assert.Equal(t, 20, got.LongBreak)
}

func TestApplySettings_Booleans(t *testing.T) {
	got, err := ApplySettings(domain.DefaultPomodoroSettings(), map[string]string{
		"sound_enabled":    "false",
		"auto_start_break": "true",
	})

	require.NoError(t, err)
	assert.False(t, got.SoundEnabled)
	assert.True(t, got.AutoStartBreak)

	_, err = ApplySettings(domain.DefaultPomodoroSettings(), map[string]string{
		"sound_enabled": "да",
	})
	assert.Error(t, err)
}

func TestApplySettings_RejectsOutOfBounds(t *testing.T) {
	current := domain.DefaultPomodoroSettings()

	cases := map[string]string{
		"work_duration": "4",   // below 5
		"short_break":   "31",  // above 30
		"long_break":    "120", // above 60
	}
	for key, raw := range cases {
		got, err := ApplySettings(current, map[string]string{key: raw})
		assert.Error(t, err, key)
		// A failed update leaves the settings untouched.
		assert.Equal(t, current, got, key)
	}
}

func TestApplySettings_RejectsNonNumeric(t *testing.T) {
	current := domain.DefaultPomodoroSettings()

	got, err := ApplySettings(current, map[string]string{"work_duration": "forty"})

	assert.Error(t, err)
	assert.Equal(t, current, got)
}

func TestApplySettings_IgnoresUnknownKeys(t *testing.T) {
	got, err := ApplySettings(domain.DefaultPomodoroSettings(), map[string]string{
		"theme":         "dark",
		"work_duration": "30",
	})

	require.NoError(t, err)
	assert.Equal(t, 30, got.WorkDuration)
}

func TestService_UpdateSettingsPersists(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	updated, err := f.svc.UpdateSettings(ctx, "u1", map[string]string{
		"work_duration":    "50",
		"auto_start_break": "true",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, updated.WorkDuration)

	stored, err := f.svc.Settings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, stored.WorkDuration)
	assert.True(t, stored.AutoStartBreak)

	// A started work session now picks up the new default duration.
	session, err := f.svc.Start(ctx, "u1", domain.SessionWork, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, session.DurationMinutes)
}

func TestService_UpdateSettingsCreatesProfileOnFirstContact(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	// "u2" has no profile row yet; the update must create one instead of
	// failing the settings save.
	updated, err := f.svc.UpdateSettings(ctx, "u2", map[string]string{"work_duration": "30"})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.WorkDuration)

	stored, err := f.svc.Settings(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 30, stored.WorkDuration)
}

func TestService_UpdateSettingsRejectsInvalid(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateSettings(ctx, "u1", map[string]string{"short_break": "1"})
	assert.Error(t, err)

	stored, err := f.svc.Settings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPomodoroSettings(), stored)
}
