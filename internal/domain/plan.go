package domain

import (
	"fmt"
	"time"
)

// MaxHorizonDays bounds how far out a plan may extend.
const MaxHorizonDays = 90

// Plan is an ordered set of day tasks plus checkpoints generated for a
// user, category, and horizon.
type Plan struct {
	ID          string      `json:"id"`
	Type        Category    `json:"type"`
	HorizonDays int         `json:"horizon_days"`
	Days        []DayTask   `json:"days"`
	Checkpoints []Checkpoint `json:"checkpoints,omitempty"`
	BufferDays  []BufferDay  `json:"buffer_days,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// DayTask is a single scheduled activity on a specific day within a plan.
type DayTask struct {
	ID              string     `json:"id"`
	DayNumber       int        `json:"day_number"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Priority        int        `json:"priority"`
	Status          TaskStatus `json:"status"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Checkpoint is a periodic milestone used to evaluate progress.
type Checkpoint struct {
	ID        string     `json:"id"`
	DayNumber int        `json:"day_number"`
	Title     string     `json:"title"`
	Criteria  []string   `json:"criteria,omitempty"`
	Status    TaskStatus `json:"status"`
}

// BufferDay is a deliberately light or recovery day with no primary tasks.
type BufferDay struct {
	DayNumber  int      `json:"day_number"`
	Reason     string   `json:"reason"`
	Activities []string `json:"activities,omitempty"`
}

// Validate checks the structural invariants of a plan: horizon bounds,
// day numbers within the horizon, contiguous task days starting at 1,
// and no checkpoint falling on a buffer day.
func (p *Plan) Validate() error {
	if p.HorizonDays < 1 || p.HorizonDays > MaxHorizonDays {
		return fmt.Errorf("horizon_days %d out of range [1, %d]", p.HorizonDays, MaxHorizonDays)
	}

	taskDays := make(map[int]bool)
	for _, t := range p.Days {
		if t.DayNumber < 1 || t.DayNumber > p.HorizonDays {
			return fmt.Errorf("task %q day_number %d outside horizon %d", t.Title, t.DayNumber, p.HorizonDays)
		}
		if t.DurationMinutes < 1 {
			return fmt.Errorf("task %q has non-positive duration", t.Title)
		}
		if t.Priority < 1 || t.Priority > 3 {
			return fmt.Errorf("task %q priority %d out of range [1,3]", t.Title, t.Priority)
		}
		taskDays[t.DayNumber] = true
	}

	bufferDays := make(map[int]bool)
	for _, b := range p.BufferDays {
		if b.DayNumber < 1 || b.DayNumber > p.HorizonDays {
			return fmt.Errorf("buffer day_number %d outside horizon %d", b.DayNumber, p.HorizonDays)
		}
		bufferDays[b.DayNumber] = true
	}

	// Task days must be contiguous from 1, skipping buffer days.
	want := 1
	for want <= p.HorizonDays {
		if bufferDays[want] {
			want++
			continue
		}
		if !taskDays[want] {
			break
		}
		want++
	}
	for day := range taskDays {
		if day >= want {
			return fmt.Errorf("task days are not contiguous: day %d present but day %d missing", day, want)
		}
	}

	for _, c := range p.Checkpoints {
		if c.DayNumber < 1 || c.DayNumber > p.HorizonDays {
			return fmt.Errorf("checkpoint %q day_number %d outside horizon %d", c.Title, c.DayNumber, p.HorizonDays)
		}
		if bufferDays[c.DayNumber] {
			return fmt.Errorf("checkpoint %q falls on buffer day %d", c.Title, c.DayNumber)
		}
	}

	return nil
}

// TasksForDay returns the tasks scheduled on the given day, in plan order.
func (p *Plan) TasksForDay(day int) []DayTask {
	var out []DayTask
	for _, t := range p.Days {
		if t.DayNumber == day {
			out = append(out, t)
		}
	}
	return out
}
