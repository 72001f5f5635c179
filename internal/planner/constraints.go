package planner

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/avelichko/focusbot/internal/domain"
)

// minutesRe extracts an explicit duration from activity text, e.g.
// "Практика 45 мин" or "reading 30 min".
var minutesRe = regexp.MustCompile(`(\d+)\s*(?:мин|min)`)

// defaultTaskMinutes is assumed when an activity carries no explicit duration.
const defaultTaskMinutes = 30

// CheckConstraints verifies parsed plan JSON against the user's hard
// scheduling rules. Error messages reference day numbers and offending
// values so a rectify prompt can localize fixes.
func CheckConstraints(p *PlanJSON, c domain.Constraints) (bool, []string) {
	var errs []string

	noStudyAfter, hasCurfew := parseClock(c.NoStudyAfter)
	blackouts := parseBlackouts(c.Blackout)

	for _, d := range p.Days {
		if c.SessionsPerDay > 0 && len(d.Tasks) != c.SessionsPerDay {
			errs = append(errs, fmt.Sprintf("day %d: %d tasks, expected exactly %d",
				d.Day, len(d.Tasks), c.SessionsPerDay))
		}

		total := 0
		for _, t := range d.Tasks {
			total += taskMinutes(t.Activity)
		}
		if total > c.DailyMinutes {
			errs = append(errs, fmt.Sprintf("day %d: %d total minutes exceeds daily limit %d",
				d.Day, total, c.DailyMinutes))
		}

		for _, t := range d.Tasks {
			start, ok := parseClock(t.Time)
			if !ok {
				errs = append(errs, fmt.Sprintf("day %d: task time %q is not HH:MM", d.Day, t.Time))
				continue
			}
			if hasCurfew && start >= noStudyAfter {
				errs = append(errs, fmt.Sprintf("day %d: task at %s is not before no_study_after %s",
					d.Day, t.Time, c.NoStudyAfter))
			}
			for _, w := range blackouts {
				if start >= w.from && start < w.to {
					errs = append(errs, fmt.Sprintf("day %d: task at %s falls inside blackout %s",
						d.Day, t.Time, w.label))
				}
			}
		}
	}

	return len(errs) == 0, errs
}

// taskMinutes extracts the task duration from activity text, defaulting to
// 30 when no explicit duration is present.
func taskMinutes(activity string) int {
	m := minutesRe.FindStringSubmatch(activity)
	if m == nil {
		return defaultTaskMinutes
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return defaultTaskMinutes
	}
	return n
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, bool) {
	if !timeRe.MatchString(s) {
		return 0, false
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	return h*60 + m, true
}

type blackoutWindow struct {
	from, to int
	label    string
}

var blackoutRe = regexp.MustCompile(`^(\d{2}:\d{2})-(\d{2}:\d{2})$`)

// parseBlackouts converts "HH:MM-HH:MM" strings, silently dropping
// malformed windows (they were validated at the input boundary).
func parseBlackouts(windows []string) []blackoutWindow {
	var out []blackoutWindow
	for _, w := range windows {
		m := blackoutRe.FindStringSubmatch(w)
		if m == nil {
			continue
		}
		from, okFrom := parseClock(m[1])
		to, okTo := parseClock(m[2])
		if !okFrom || !okTo || to <= from {
			continue
		}
		out = append(out, blackoutWindow{from: from, to: to, label: w})
	}
	return out
}
