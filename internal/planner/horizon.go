package planner

import (
	"strconv"
	"strings"
	"time"

	"github.com/avelichko/focusbot/internal/domain"
)

const (
	// DefaultMaxHorizon caps estimated horizons; the hard domain bound of
	// 90 days only applies to explicitly stored plans.
	DefaultMaxHorizon = 30

	// DefaultHorizon is used when nothing else gives a signal.
	DefaultHorizon = 15
)

// Level is a normalized proficiency level.
type level string

const (
	levelBeginner     level = "beginner"
	levelIntermediate level = "intermediate"
	levelAdvanced     level = "advanced"
	levelExpert       level = "expert"
)

// horizonTable maps category and normalized level to a plan length.
var horizonTable = map[domain.Category]map[level]int{
	domain.CategoryExam: {
		levelBeginner: 21, levelIntermediate: 14, levelAdvanced: 10, levelExpert: 10,
	},
	domain.CategorySkill: {
		levelBeginner: 30, levelIntermediate: 21, levelAdvanced: 14, levelExpert: 14,
	},
	domain.CategoryHabit: {
		levelBeginner: 21, levelIntermediate: 21, levelAdvanced: 21, levelExpert: 21,
	},
	domain.CategoryHealth: {
		levelBeginner: 14, levelIntermediate: 21, levelAdvanced: 21, levelExpert: 21,
	},
	domain.CategoryTime: {
		levelBeginner: 7, levelIntermediate: 14, levelAdvanced: 14, levelExpert: 14,
	},
}

// EstimateHorizon derives the plan length in days. Priority: deadline from
// answers, explicit horizon from answers or constraints, category and level
// table, then the default.
func EstimateHorizon(category domain.Category, answers map[string]string, c domain.Constraints, today time.Time) int {
	if deadline, ok := answers["deadline"]; ok && deadline != "" {
		if d, err := time.Parse("2006-01-02", deadline); err == nil {
			days := int(d.Sub(today.Truncate(24*time.Hour)).Hours() / 24)
			return clampHorizon(days)
		}
	}

	if v, ok := answers["horizon_days"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return clampHorizon(n)
		}
	}
	if c.PlanDurationDays > 0 {
		return clampHorizon(c.PlanDurationDays)
	}

	if lvl, ok := normalizeLevel(answers["level"]); ok {
		if byLevel, ok := horizonTable[category]; ok {
			if n, ok := byLevel[lvl]; ok {
				return n
			}
		}
	}

	return DefaultHorizon
}

// normalizeLevel matches free-form level answers by substring, accepting
// both Russian and English spellings. An empty or unrecognized answer
// reports ok=false so the caller falls back to the default horizon.
func normalizeLevel(s string) (level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "нович") || strings.Contains(s, "beginner"):
		return levelBeginner, true
	case strings.Contains(s, "сред") || strings.Contains(s, "intermediate"):
		return levelIntermediate, true
	case strings.Contains(s, "продвин") || strings.Contains(s, "advanced"):
		return levelAdvanced, true
	case strings.Contains(s, "экспер") || strings.Contains(s, "expert"):
		return levelExpert, true
	default:
		return "", false
	}
}

func clampHorizon(days int) int {
	if days < 1 {
		return 1
	}
	if days > DefaultMaxHorizon {
		return DefaultMaxHorizon
	}
	return days
}
