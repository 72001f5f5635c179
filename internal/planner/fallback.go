package planner

import (
	"fmt"
	"time"

	"github.com/avelichko/focusbot/internal/domain"
)

// Rule-based plan generation used whenever the LLM is unavailable or
// non-compliant. Always produces a constraint-satisfying plan.

const (
	weekdayStartHour = 8
	weekendStartHour = 9
	slotGapMinutes   = 15
	maxBufferDays    = 2
)

// DeterministicPlan synthesizes a plan without any LLM. The result satisfies
// the same constraints and structural invariants as an accepted LLM plan.
func DeterministicPlan(category domain.Category, c domain.Constraints, horizon int, start time.Time) *domain.Plan {
	pj, buffers := deterministicDays(category, c, horizon, start)
	return MaterializePlan(category, pj, horizon, buffers, start)
}

// deterministicDays builds the day/task skeleton plus buffer-day metadata.
func deterministicDays(category domain.Category, c domain.Constraints, horizon int, start time.Time) (*PlanJSON, []domain.BufferDay) {
	pj := &PlanJSON{}
	var buffers []domain.BufferDay
	restBuffers := 0

	for day := 1; day <= horizon; day++ {
		date := start.AddDate(0, 0, day-1)
		weekend := date.Weekday() == time.Saturday || date.Weekday() == time.Sunday

		if c.WeekdaysOnly && weekend {
			buffers = append(buffers, domain.BufferDay{
				DayNumber:  day,
				Reason:     "выходной день",
				Activities: []string{"Прогулка и отдых", "Короткий обзор недели без занятий"},
			})
			continue
		}

		// Health rest days become buffer days while the cap allows;
		// later rest days downgrade to a light session instead.
		intensity := healthIntensity(day)
		if category == domain.CategoryHealth && intensity == "rest" && restBuffers < maxBufferDays {
			restBuffers++
			buffers = append(buffers, domain.BufferDay{
				DayNumber:  day,
				Reason:     "день восстановления",
				Activities: []string{"Растяжка 15 мин", "Лёгкая прогулка"},
			})
			continue
		}

		tasks := daySlots(category, c, day, weekend)
		if len(tasks) == 0 {
			// Nothing fits (zero budget or curfew before start). The day is
			// still part of the horizon, just without scheduled work.
			continue
		}
		pj.Days = append(pj.Days, PlanDay{Day: day, Tasks: tasks})
	}

	return pj, buffers
}

// daySlots fills one day with timed tasks within the daily budget, keeping
// every start outside blackout windows and before the curfew. When the
// constraints fix a session count the day gets exactly that many tasks or
// none at all; otherwise 2-4 slots derived from the budget, as many as fit.
func daySlots(category domain.Category, c domain.Constraints, day int, weekend bool) []PlanTask {
	count := c.SessionsPerDay
	exact := count > 0
	if !exact {
		count = c.DailyMinutes / 40
		if count < 2 {
			count = 2
		}
		if count > 4 {
			count = 4
		}
	}
	perTask := c.DailyMinutes / count
	if perTask < 1 {
		return nil
	}
	if perTask > 60 {
		perTask = 60
	}

	limit := 24 * 60
	if curfew, ok := parseClock(c.NoStudyAfter); ok && curfew < limit {
		limit = curfew
	}
	blackouts := parseBlackouts(c.Blackout)

	startHour := weekdayStartHour
	if weekend {
		startHour = weekendStartHour
	}

	times := anchorTimes(category, count, blackouts, limit)
	if times == nil {
		times = packedTimes(startHour*60, count, perTask+slotGapMinutes, exact, blackouts, limit)
	}
	if times == nil {
		return nil
	}

	tasks := make([]PlanTask, 0, len(times))
	for i, t := range times {
		tasks = append(tasks, PlanTask{
			Time:     fmt.Sprintf("%02d:%02d", t/60, t%60),
			Activity: fmt.Sprintf("%s — %d мин", activityTitle(category, day, i), perTask),
		})
	}
	return tasks
}

// anchorTimes places habit and time sessions on their fixed daily anchors,
// shifted past blackout windows. Returns nil when the anchors cannot supply
// count valid starts, so the caller packs slots sequentially instead.
func anchorTimes(category domain.Category, count int, blackouts []blackoutWindow, limit int) []int {
	var anchors []int
	switch category {
	case domain.CategoryHabit:
		// Morning ritual, plan-B slot, anti-trigger check, evening review.
		anchors = []int{7 * 60, 12 * 60, 14 * 60, 20 * 60}
	case domain.CategoryTime:
		// Productivity peaks.
		anchors = []int{9 * 60, 11 * 60, 14 * 60, 16 * 60}
	default:
		return nil
	}

	times := make([]int, 0, count)
	for _, a := range anchors {
		if len(times) == count {
			break
		}
		t := stepPastBlackouts(a, blackouts)
		if t < limit {
			times = append(times, t)
		}
	}
	if len(times) < count {
		return nil
	}
	return times
}

// packedTimes lays out count start times from start onward. In exact mode it
// shrinks the slot gap, down to zero, until all count starts fit before
// limit, and gives up with nil when even that fails; otherwise it keeps the
// preferred gap and returns however many starts fit.
func packedTimes(start, count, prefStep int, exact bool, blackouts []blackoutWindow, limit int) []int {
	minStep := prefStep
	if exact {
		minStep = 0
	}
	for step := prefStep; step >= minStep; step-- {
		times := make([]int, 0, count)
		t := start
		for len(times) < count {
			t = stepPastBlackouts(t, blackouts)
			if t >= limit {
				break
			}
			times = append(times, t)
			t += step
		}
		if len(times) == count {
			return times
		}
		if !exact {
			if len(times) == 0 {
				return nil
			}
			return times
		}
	}
	return nil
}

// stepPastBlackouts moves t to the end of whichever blackout window covers
// it, repeating until t lands outside every window.
func stepPastBlackouts(t int, blackouts []blackoutWindow) int {
	for moved := true; moved; {
		moved = false
		for _, w := range blackouts {
			if t >= w.from && t < w.to {
				t = w.to
				moved = true
			}
		}
	}
	return t
}

var (
	examCycle  = []string{"Повторение теории", "Практические задания", "Сложные задачи", "Мини-тест"}
	skillCycle = []string{"Теория", "Практика", "Работа над проектом", "Разбор и повторение"}
	habitSlots = []string{"Утренний ритуал", "Запасной слот привычки", "Работа с триггерами", "Вечерняя отметка"}
	timeSlots  = []string{"Приоритетная задача дня", "Глубокая работа", "Разбор входящих", "Планирование завтра"}
	healthCycl = []string{"light", "medium", "rest", "medium", "light"}
)

func activityTitle(category domain.Category, day, slot int) string {
	switch category {
	case domain.CategoryExam:
		// Every 7th day swaps in a partial mock exam.
		if day%7 == 0 && slot == 0 {
			return "Пробный экзамен (сокращённый)"
		}
		return examCycle[(day+slot)%len(examCycle)]
	case domain.CategorySkill:
		return skillCycle[(day-1)%len(skillCycle)]
	case domain.CategoryHabit:
		return habitSlots[slot%len(habitSlots)]
	case domain.CategoryHealth:
		switch healthIntensity(day) {
		case "light":
			return "Лёгкая тренировка"
		default:
			return "Тренировка средней интенсивности"
		}
	case domain.CategoryTime:
		return timeSlots[slot%len(timeSlots)]
	default:
		return "Занятие по плану"
	}
}

func healthIntensity(day int) string {
	return healthCycl[(day-1)%len(healthCycl)]
}
