// Package onboarding defines the per-category question packs and validates
// answers at the input boundary, before they reach plan generation.
package onboarding

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/avelichko/focusbot/internal/domain"
)

//go:embed questions/pack.yaml
var questionPackBytes []byte

// Question is a single onboarding prompt with its validation rules.
type Question struct {
	Key      string `yaml:"key"`
	Prompt   string `yaml:"prompt"`
	Required bool   `yaml:"required"`
	Kind     string `yaml:"kind"` // "", "date", "minutes"
	Min      int    `yaml:"min"`
	Max      int    `yaml:"max"`
}

// Pack holds the question lists per category.
type Pack struct {
	Categories map[domain.Category][]Question `yaml:"categories"`
}

// LoadPack parses the embedded question pack.
func LoadPack() (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(questionPackBytes, &p); err != nil {
		return nil, fmt.Errorf("parsing question pack: %w", err)
	}
	for _, cat := range []domain.Category{
		domain.CategoryExam, domain.CategorySkill, domain.CategoryHabit,
		domain.CategoryHealth, domain.CategoryTime,
	} {
		if len(p.Categories[cat]) == 0 {
			return nil, fmt.Errorf("question pack has no questions for %s", cat)
		}
	}
	return &p, nil
}

// Questions returns the ordered question list for a category.
func (p *Pack) Questions(category domain.Category) ([]Question, error) {
	qs, ok := p.Categories[category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	return qs, nil
}

// ValidateAnswers checks the collected answers against the category's
// questions: required keys present, dates parse and lie in the future,
// numeric answers inside their ranges. Extra keys are rejected so typos do
// not silently vanish into the profile.
func (p *Pack) ValidateAnswers(category domain.Category, answers map[string]string) error {
	qs, err := p.Questions(category)
	if err != nil {
		return err
	}

	known := make(map[string]Question, len(qs))
	for _, q := range qs {
		known[q.Key] = q
	}
	for key := range answers {
		if _, ok := known[key]; !ok {
			return fmt.Errorf("unexpected answer key %q for category %s", key, category)
		}
	}

	for _, q := range qs {
		raw, ok := answers[q.Key]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			if q.Required {
				return fmt.Errorf("answer %q is required", q.Key)
			}
			continue
		}

		switch q.Kind {
		case "date":
			d, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fmt.Errorf("answer %q: %q is not a date (want YYYY-MM-DD)", q.Key, raw)
			}
			if d.Before(time.Now().UTC().Truncate(24 * time.Hour)) {
				return fmt.Errorf("answer %q: date %s is in the past", q.Key, raw)
			}
		case "minutes":
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("answer %q: %q is not a number", q.Key, raw)
			}
			if n < q.Min || n > q.Max {
				return fmt.Errorf("answer %q: %d outside [%d, %d]", q.Key, n, q.Min, q.Max)
			}
		}
	}
	return nil
}

// BuildConstraints derives scheduling constraints from validated answers,
// leaving fields the user did not mention at their zero value.
func BuildConstraints(answers map[string]string) domain.Constraints {
	var c domain.Constraints
	if raw, ok := answers["daily_minutes"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
			c.DailyMinutes = n
		}
	}
	return c
}
