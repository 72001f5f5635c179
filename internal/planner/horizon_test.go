package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avelichko/focusbot/internal/domain"
)

var today = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func TestEstimateHorizon_DeadlineWins(t *testing.T) {
	answers := map[string]string{"deadline": "2026-01-15", "level": "новичок"}

	got := EstimateHorizon(domain.CategoryExam, answers, domain.Constraints{}, today)

	assert.Equal(t, 10, got)
}

func TestEstimateHorizon_DeadlineClamped(t *testing.T) {
	farOut := map[string]string{"deadline": "2026-06-01"}
	assert.Equal(t, DefaultMaxHorizon, EstimateHorizon(domain.CategoryExam, farOut, domain.Constraints{}, today))

	tomorrow := map[string]string{"deadline": "2026-01-06"}
	assert.Equal(t, 1, EstimateHorizon(domain.CategoryExam, tomorrow, domain.Constraints{}, today))
}

func TestEstimateHorizon_ExplicitAnswer(t *testing.T) {
	answers := map[string]string{"horizon_days": "12"}

	got := EstimateHorizon(domain.CategorySkill, answers, domain.Constraints{}, today)

	assert.Equal(t, 12, got)
}

func TestEstimateHorizon_ConstraintDuration(t *testing.T) {
	got := EstimateHorizon(domain.CategorySkill, nil, domain.Constraints{PlanDurationDays: 20}, today)

	assert.Equal(t, 20, got)
}

func TestEstimateHorizon_CategoryLevelTable(t *testing.T) {
	cases := []struct {
		category domain.Category
		level    string
		want     int
	}{
		{domain.CategoryExam, "новичок", 21},
		{domain.CategoryExam, "intermediate", 14},
		{domain.CategorySkill, "продвинутый", 14},
		{domain.CategoryTime, "новичок", 7},
		{domain.CategoryHabit, "эксперт", 21},
	}
	for _, tc := range cases {
		got := EstimateHorizon(tc.category, map[string]string{"level": tc.level}, domain.Constraints{}, today)
		assert.Equal(t, tc.want, got, "%s/%s", tc.category, tc.level)
	}
}

func TestEstimateHorizon_UnrecognizedLevelFallsBack(t *testing.T) {
	// Without a usable level answer the table is skipped entirely, so skill
	// plans do not silently become 30-day beginner plans.
	for _, lvl := range []string{"", "кое-что умею", "pro"} {
		got := EstimateHorizon(domain.CategorySkill, map[string]string{"level": lvl}, domain.Constraints{}, today)
		assert.Equal(t, DefaultHorizon, got, "level %q", lvl)
	}
}

func TestEstimateHorizon_UnknownCategoryFallsBack(t *testing.T) {
	got := EstimateHorizon(domain.Category("unknown"), nil, domain.Constraints{}, today)

	assert.Equal(t, DefaultHorizon, got)
}

func TestEstimateHorizon_MalformedDeadlineIgnored(t *testing.T) {
	answers := map[string]string{"deadline": "в мае", "level": "новичок"}

	got := EstimateHorizon(domain.CategoryExam, answers, domain.Constraints{}, today)

	assert.Equal(t, 21, got)
}
