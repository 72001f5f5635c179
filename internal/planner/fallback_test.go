package planner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/focusbot/internal/domain"
)

// monday is a fixed start date so weekday-dependent behavior is stable.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func TestDeterministicPlan_AlwaysValid(t *testing.T) {
	c := domain.Constraints{DailyMinutes: 120, NoStudyAfter: "21:00"}

	plan := DeterministicPlan(domain.CategorySkill, c, 14, monday)

	require.NoError(t, plan.Validate())
	assert.Equal(t, 14, plan.HorizonDays)
	assert.NotEmpty(t, plan.Days)
	assert.NotEmpty(t, plan.Checkpoints)
}

func TestDeterministicPlan_SatisfiesOwnConstraints(t *testing.T) {
	c := domain.Constraints{
		DailyMinutes: 120,
		NoStudyAfter: "22:00",
		Blackout:     []string{"12:00-13:00"},
	}

	pj, _ := deterministicDays(domain.CategorySkill, c, 10, monday)

	ok, violations := CheckConstraints(pj, c)
	assert.True(t, ok, "violations: %v", violations)
}

func TestDeterministicPlan_WeekdaysOnly(t *testing.T) {
	c := domain.Constraints{DailyMinutes: 90, WeekdaysOnly: true}

	plan := DeterministicPlan(domain.CategorySkill, c, 7, monday)

	require.NoError(t, plan.Validate())
	// Days 6 and 7 are Saturday and Sunday.
	require.Len(t, plan.BufferDays, 2)
	assert.Equal(t, 6, plan.BufferDays[0].DayNumber)
	assert.Equal(t, 7, plan.BufferDays[1].DayNumber)
	assert.Empty(t, plan.TasksForDay(6))
	assert.Empty(t, plan.TasksForDay(7))
	assert.NotEmpty(t, plan.TasksForDay(5))
}

func TestDeterministicPlan_SessionsPerDay(t *testing.T) {
	c := domain.Constraints{DailyMinutes: 120, SessionsPerDay: 3}

	pj, _ := deterministicDays(domain.CategorySkill, c, 5, monday)

	require.Len(t, pj.Days, 5)
	for _, d := range pj.Days {
		assert.Len(t, d.Tasks, 3, "day %d", d.Day)
	}
}

func TestDeterministicPlan_DerivedSlotCount(t *testing.T) {
	// 160 minutes / 40 = 4 slots; 70 minutes clamps up to the 2-slot floor.
	pj, _ := deterministicDays(domain.CategorySkill, domain.Constraints{DailyMinutes: 160}, 1, monday)
	require.Len(t, pj.Days, 1)
	assert.Len(t, pj.Days[0].Tasks, 4)

	pj, _ = deterministicDays(domain.CategorySkill, domain.Constraints{DailyMinutes: 70}, 1, monday)
	require.Len(t, pj.Days, 1)
	assert.Len(t, pj.Days[0].Tasks, 2)
}

func TestDeterministicPlan_CurfewBeforeStartLeavesDayEmpty(t *testing.T) {
	c := domain.Constraints{DailyMinutes: 120, NoStudyAfter: "08:00"}

	plan := DeterministicPlan(domain.CategorySkill, c, 5, monday)

	require.NoError(t, plan.Validate())
	assert.Empty(t, plan.Days)
}

func TestDeterministicPlan_ZeroBudgetLeavesDaysEmpty(t *testing.T) {
	plan := DeterministicPlan(domain.CategorySkill, domain.Constraints{}, 5, monday)

	require.NoError(t, plan.Validate())
	assert.Empty(t, plan.Days)
}

func TestDeterministicPlan_HealthRestBuffersCapped(t *testing.T) {
	c := domain.Constraints{DailyMinutes: 90}

	plan := DeterministicPlan(domain.CategoryHealth, c, 15, monday)

	require.NoError(t, plan.Validate())
	// The 5-day intensity cycle rests on days 3, 8, 13; only two become buffers.
	require.Len(t, plan.BufferDays, 2)
	assert.Equal(t, 3, plan.BufferDays[0].DayNumber)
	assert.Equal(t, 8, plan.BufferDays[1].DayNumber)
	assert.NotEmpty(t, plan.TasksForDay(13))
}

func TestDeterministicPlan_ExamMockDay(t *testing.T) {
	c := domain.Constraints{DailyMinutes: 120}

	pj, _ := deterministicDays(domain.CategoryExam, c, 7, monday)

	var day7 *PlanDay
	for i := range pj.Days {
		if pj.Days[i].Day == 7 {
			day7 = &pj.Days[i]
		}
	}
	require.NotNil(t, day7)
	assert.True(t, strings.Contains(day7.Tasks[0].Activity, "Пробный экзамен"))
}

func TestDeterministicPlan_HabitUsesAnchorSlots(t *testing.T) {
	c := domain.Constraints{DailyMinutes: 60, SessionsPerDay: 2}

	pj, _ := deterministicDays(domain.CategoryHabit, c, 1, monday)

	require.Len(t, pj.Days, 1)
	require.Len(t, pj.Days[0].Tasks, 2)
	assert.Equal(t, "07:00", pj.Days[0].Tasks[0].Time)
	assert.Equal(t, "12:00", pj.Days[0].Tasks[1].Time)
}

func TestDeterministicPlan_SessionsPerDayUnderTightCurfew(t *testing.T) {
	c := domain.Constraints{
		DailyMinutes:   120,
		SessionsPerDay: 3,
		NoStudyAfter:   "09:30",
	}

	pj, _ := deterministicDays(domain.CategorySkill, c, 5, monday)

	require.NotEmpty(t, pj.Days)
	for _, d := range pj.Days {
		require.Len(t, d.Tasks, 3, "day %d", d.Day)
		for _, task := range d.Tasks {
			assert.Less(t, task.Time, "09:30", "day %d", d.Day)
		}
	}
	ok, violations := CheckConstraints(pj, c)
	assert.True(t, ok, "violations: %v", violations)
}

func TestDeterministicPlan_SessionsPerDayDropsImpossibleDays(t *testing.T) {
	// Curfew before the earliest start leaves no valid slot; the day must be
	// dropped rather than emitted with fewer tasks than required.
	c := domain.Constraints{DailyMinutes: 120, SessionsPerDay: 3, NoStudyAfter: "08:00"}

	pj, _ := deterministicDays(domain.CategorySkill, c, 5, monday)

	assert.Empty(t, pj.Days)
	ok, violations := CheckConstraints(pj, c)
	assert.True(t, ok, "violations: %v", violations)
}

func TestDeterministicPlan_AdjacentBlackoutsAllStepped(t *testing.T) {
	// Stepping past the first window lands inside the second even though it
	// appears later in the list.
	c := domain.Constraints{
		DailyMinutes:   120,
		SessionsPerDay: 3,
		Blackout:       []string{"13:00-14:00", "08:00-13:00"},
	}

	pj, _ := deterministicDays(domain.CategorySkill, c, 3, monday)

	require.NotEmpty(t, pj.Days)
	for _, d := range pj.Days {
		require.Len(t, d.Tasks, 3, "day %d", d.Day)
		for _, task := range d.Tasks {
			assert.GreaterOrEqual(t, task.Time, "14:00", "day %d", d.Day)
		}
	}
	ok, violations := CheckConstraints(pj, c)
	assert.True(t, ok, "violations: %v", violations)
}

func TestDeterministicPlan_BlackoutShiftsSlots(t *testing.T) {
	c := domain.Constraints{DailyMinutes: 80, Blackout: []string{"08:00-10:00"}}

	pj, _ := deterministicDays(domain.CategorySkill, c, 1, monday)

	require.Len(t, pj.Days, 1)
	for _, task := range pj.Days[0].Tasks {
		assert.GreaterOrEqual(t, task.Time, "10:00")
	}
}
