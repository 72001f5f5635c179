package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// PlanJSON is the shape the model is asked to produce: a list of days, each
// with at least one timed task.
type PlanJSON struct {
	Days []PlanDay `json:"days"`
}

type PlanDay struct {
	Day   int        `json:"day"`
	Tasks []PlanTask `json:"tasks"`
}

type PlanTask struct {
	Time     string `json:"time"`
	Activity string `json:"activity"`
}

var timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

const maxActivityLen = 300

// Validate checks the structural schema of untrusted plan JSON: day numbers,
// task presence, HH:MM times, and activity length.
func (p *PlanJSON) Validate() error {
	if len(p.Days) == 0 {
		return fmt.Errorf("plan has no days")
	}
	for i, d := range p.Days {
		if d.Day < 1 {
			return fmt.Errorf("days[%d]: day number %d must be >= 1", i, d.Day)
		}
		if len(d.Tasks) == 0 {
			return fmt.Errorf("day %d has no tasks", d.Day)
		}
		for j, t := range d.Tasks {
			if !timeRe.MatchString(t.Time) {
				return fmt.Errorf("day %d task %d: time %q is not HH:MM", d.Day, j, t.Time)
			}
			if len(t.Activity) == 0 || len(t.Activity) > maxActivityLen {
				return fmt.Errorf("day %d task %d: activity length %d outside 1..%d", d.Day, j, len(t.Activity), maxActivityLen)
			}
		}
	}
	return nil
}

// PlanResponseSchema is the strict JSON schema sent with json_schema mode.
var PlanResponseSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"days": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"day": {"type": "integer", "minimum": 1},
					"tasks": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"properties": {
								"time": {"type": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"},
								"activity": {"type": "string", "minLength": 1, "maxLength": 300}
							},
							"required": ["time", "activity"],
							"additionalProperties": false
						}
					}
				},
				"required": ["day", "tasks"],
				"additionalProperties": false
			}
		}
	},
	"required": ["days"],
	"additionalProperties": false
}`)
