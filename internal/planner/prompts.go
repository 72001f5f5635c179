package planner

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/avelichko/focusbot/internal/domain"
)

//go:embed prompts/pack.yaml
var promptPackBytes []byte

// maxRectifyViolations bounds how many validation errors are echoed back to
// the model; beyond that the signal drowns in noise.
const maxRectifyViolations = 5

// PromptPack holds the bundled prompt templates, loaded once at startup.
type PromptPack struct {
	System              string `yaml:"system"`
	UserTemplate        string `yaml:"user_template"`
	DayCountInstruction string `yaml:"day_count_instruction"`
	Rectify             string `yaml:"rectify"`
}

// LoadPromptPack parses the embedded prompt pack.
func LoadPromptPack() (*PromptPack, error) {
	var p PromptPack
	if err := yaml.Unmarshal(promptPackBytes, &p); err != nil {
		return nil, fmt.Errorf("parsing prompt pack: %w", err)
	}
	if p.System == "" || p.UserTemplate == "" || p.Rectify == "" {
		return nil, fmt.Errorf("prompt pack is missing required templates")
	}
	return &p, nil
}

// PromptInput carries everything the user prompt is assembled from.
type PromptInput struct {
	Category    domain.Category
	Answers     map[string]string
	Constraints domain.Constraints
	Preferences domain.Preferences
	StartDate   time.Time
	HorizonDays int
}

// BuildUserPrompt fills the user template and appends the exact day-count
// instruction.
func (p *PromptPack) BuildUserPrompt(in PromptInput) string {
	prefs, err := json.MarshalIndent(in.Preferences, "", "  ")
	if err != nil {
		prefs = []byte("{}")
	}

	sessions := "not specified"
	if in.Constraints.SessionsPerDay > 0 {
		sessions = strconv.Itoa(in.Constraints.SessionsPerDay)
	}
	curfew := in.Constraints.NoStudyAfter
	if curfew == "" {
		curfew = "none"
	}
	blackout := "none"
	if len(in.Constraints.Blackout) > 0 {
		blackout = strings.Join(in.Constraints.Blackout, ", ")
	}
	deadline := in.Answers["deadline"]
	if deadline == "" {
		deadline = "none"
	}

	r := strings.NewReplacer(
		"{category}", string(in.Category),
		"{goal}", in.Answers["goal"],
		"{level}", in.Answers["level"],
		"{start_date}", in.StartDate.Format("2006-01-02"),
		"{deadline}", deadline,
		"{daily_minutes}", strconv.Itoa(in.Constraints.DailyMinutes),
		"{sessions_per_day}", sessions,
		"{no_study_after}", curfew,
		"{blackout}", blackout,
		"{weekdays_only}", strconv.FormatBool(in.Constraints.WeekdaysOnly),
		"{preferences}", string(prefs),
	)
	prompt := r.Replace(p.UserTemplate)

	days := in.HorizonDays
	if days > DefaultMaxHorizon {
		days = DefaultMaxHorizon
	}
	dayCount := strings.ReplaceAll(p.DayCountInstruction, "{days}", strconv.Itoa(days))

	return prompt + "\n" + dayCount
}

// BuildRectifyPrompt injects the top validation errors and the previous plan
// into the rectify template, on top of the original request.
func (p *PromptPack) BuildRectifyPrompt(in PromptInput, violations []string, previousPlan string) string {
	if len(violations) > maxRectifyViolations {
		violations = violations[:maxRectifyViolations]
	}
	var list strings.Builder
	for _, v := range violations {
		list.WriteString("- ")
		list.WriteString(v)
		list.WriteString("\n")
	}

	r := strings.NewReplacer(
		"{violations}", strings.TrimRight(list.String(), "\n"),
		"{previous_plan}", previousPlan,
	)
	return p.BuildUserPrompt(in) + "\n" + r.Replace(p.Rectify)
}
