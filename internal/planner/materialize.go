package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/avelichko/focusbot/internal/domain"
)

// rangeRe matches an explicit HH:MM-HH:MM range in activity or time text.
var rangeRe = regexp.MustCompile(`([01]\d|2[0-3]):([0-5]\d)\s*[-–]\s*([01]\d|2[0-3]):([0-5]\d)`)

const (
	maxInferredMinutes = 240
	maxTitleLen        = 100
)

// MaterializePlan turns validated plan JSON into the persisted Plan model.
// Days beyond the horizon are dropped; checkpoints follow the deterministic
// cadence when the source provided none.
func MaterializePlan(category domain.Category, pj *PlanJSON, horizon int, buffers []domain.BufferDay, now time.Time) *domain.Plan {
	plan := &domain.Plan{
		ID:          uuid.New().String(),
		Type:        category,
		HorizonDays: horizon,
		BufferDays:  buffers,
		CreatedAt:   now.UTC(),
	}

	for _, d := range pj.Days {
		if d.Day < 1 || d.Day > horizon {
			continue
		}
		for i, t := range d.Tasks {
			priority := 2
			if i == 0 {
				priority = 1
			}
			plan.Days = append(plan.Days, domain.DayTask{
				ID:              uuid.New().String(),
				DayNumber:       d.Day,
				Title:           truncateTitle(t.Activity),
				Description:     fmt.Sprintf("%s %s", t.Time, t.Activity),
				DurationMinutes: inferDuration(t),
				Priority:        priority,
				Status:          domain.TaskPending,
			})
		}
	}

	plan.Checkpoints = generateCheckpoints(category, horizon, buffers)
	return plan
}

// inferDuration extracts the task duration: an explicit HH:MM-HH:MM range
// bounded to (0, 240], then an explicit "N мин"/"N min" marker, then 30.
func inferDuration(t PlanTask) int {
	for _, text := range []string{t.Activity, t.Time} {
		m := rangeRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		fromH, _ := strconv.Atoi(m[1])
		fromM, _ := strconv.Atoi(m[2])
		toH, _ := strconv.Atoi(m[3])
		toM, _ := strconv.Atoi(m[4])
		minutes := (toH*60 + toM) - (fromH*60 + fromM)
		if minutes > 0 && minutes <= maxInferredMinutes {
			return minutes
		}
	}
	if m := minutesRe.FindStringSubmatch(t.Activity); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n <= maxInferredMinutes {
			return n
		}
	}
	return defaultTaskMinutes
}

// generateCheckpoints emits a milestone every 5 days (every 4 for exam),
// shifting forward off buffer days.
func generateCheckpoints(category domain.Category, horizon int, buffers []domain.BufferDay) []domain.Checkpoint {
	cadence := 5
	if category == domain.CategoryExam {
		cadence = 4
	}

	bufferSet := make(map[int]bool, len(buffers))
	for _, b := range buffers {
		bufferSet[b.DayNumber] = true
	}

	var checkpoints []domain.Checkpoint
	for day := cadence; day <= horizon; day += cadence {
		target := day
		for target <= horizon && bufferSet[target] {
			target++
		}
		if target > horizon {
			break
		}
		checkpoints = append(checkpoints, domain.Checkpoint{
			ID:        uuid.New().String(),
			DayNumber: target,
			Title:     fmt.Sprintf("Контрольная точка: день %d", target),
			Criteria: []string{
				"Все задачи предыдущих дней закрыты или перенесены",
				"Прогресс соответствует ожиданиям",
			},
			Status: domain.TaskPending,
		})
	}
	return checkpoints
}

func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTitleLen {
		return s
	}
	return string(runes[:maxTitleLen-1]) + "…"
}
