package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/avelichko/focusbot/internal/domain"
	"github.com/avelichko/focusbot/internal/llm"
)

// GenerateRequest carries the onboarding profile and hard constraints a plan
// is generated from.
type GenerateRequest struct {
	UserID      string
	Category    domain.Category
	Answers     map[string]string
	Constraints domain.Constraints
	Preferences domain.Preferences
	StartDate   time.Time // zero value means today
}

// Generator orchestrates the plan pipeline: horizon estimation, prompt
// assembly, LLM generation, repair, validation, one rectify round, and the
// deterministic fallback.
type Generator struct {
	client  llm.Client
	prompts *PromptPack
	logger  *slog.Logger
	now     func() time.Time
}

// NewGenerator creates a Generator. The client may be disabled; generation
// then always takes the deterministic path.
func NewGenerator(client llm.Client, prompts *PromptPack, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:  client,
		prompts: prompts,
		logger:  logger,
		now:     time.Now,
	}
}

// GeneratePlan is a total function: it always returns a valid plan. LLM
// failures of any kind degrade to the deterministic planner.
func (g *Generator) GeneratePlan(ctx context.Context, req GenerateRequest) *domain.Plan {
	start := req.StartDate
	if start.IsZero() {
		start = g.now().UTC()
	}
	horizon := EstimateHorizon(req.Category, req.Answers, req.Constraints, start)

	if g.client == nil || !g.client.Enabled() {
		g.logger.Info("llm disabled, using deterministic planner",
			"user_id", req.UserID, "category", req.Category, "horizon", horizon)
		return DeterministicPlan(req.Category, req.Constraints, horizon, start)
	}

	in := PromptInput{
		Category:    req.Category,
		Answers:     req.Answers,
		Constraints: req.Constraints,
		Preferences: req.Preferences,
		StartDate:   start,
		HorizonDays: horizon,
	}
	userPrompt := g.prompts.BuildUserPrompt(in)

	pj, raw, ok := g.generateAndParse(ctx, userPrompt, horizon)
	if !ok {
		g.logger.Warn("llm plan unusable, falling back",
			"user_id", req.UserID, "category", req.Category)
		return DeterministicPlan(req.Category, req.Constraints, horizon, start)
	}

	if valid, violations := CheckConstraints(pj, req.Constraints); !valid {
		g.logger.Info("plan violates constraints, issuing rectify",
			"user_id", req.UserID, "violations", len(violations))

		pj, ok = g.rectify(ctx, in, horizon, violations, raw)
		if !ok {
			return DeterministicPlan(req.Category, req.Constraints, horizon, start)
		}
	}

	plan := MaterializePlan(req.Category, pj, horizon, nil, start)
	if err := plan.Validate(); err != nil {
		g.logger.Warn("materialized plan invalid, falling back",
			"user_id", req.UserID, "error", err)
		return DeterministicPlan(req.Category, req.Constraints, horizon, start)
	}
	return plan
}

// generateAndParse runs attempt 1 with a strict schema and, only when the
// output cannot be repaired into valid plan JSON, attempt 2 without one.
// Each attempt allows a single truncation continuation inside the client.
func (g *Generator) generateAndParse(ctx context.Context, userPrompt string, horizon int) (*PlanJSON, string, bool) {
	res, err := g.client.GenerateJSON(ctx, llm.JSONRequest{
		Op:                  "plan",
		SystemPrompt:        g.prompts.System,
		UserPrompt:          userPrompt,
		Schema:              PlanResponseSchema,
		SchemaName:          "plan",
		ContinueIfTruncated: true,
		TotalDays:           horizon,
	})
	if err != nil {
		g.logger.Warn("llm plan call failed", "error", err)
		return nil, "", false
	}

	if pj, err := parseAndValidate(res.Text); err == nil {
		return pj, res.Text, true
	} else {
		g.logger.Debug("attempt 1 did not parse", "error", err)
	}

	res, err = g.client.GenerateJSON(ctx, llm.JSONRequest{
		Op:                  "plan_retry",
		SystemPrompt:        g.prompts.System,
		UserPrompt:          userPrompt,
		ContinueIfTruncated: true,
		TotalDays:           horizon,
	})
	if err != nil {
		g.logger.Warn("llm retry call failed", "error", err)
		return nil, "", false
	}

	pj, err := parseAndValidate(res.Text)
	if err != nil {
		g.logger.Debug("attempt 2 did not parse", "error", err)
		return nil, "", false
	}
	return pj, res.Text, true
}

// rectify issues the single allowed repair round against explicit violation
// messages. The rectified plan must parse and satisfy constraints outright.
func (g *Generator) rectify(ctx context.Context, in PromptInput, horizon int, violations []string, previousPlan string) (*PlanJSON, bool) {
	res, err := g.client.GenerateJSON(ctx, llm.JSONRequest{
		Op:                  "rectify",
		SystemPrompt:        g.prompts.System,
		UserPrompt:          g.prompts.BuildRectifyPrompt(in, violations, previousPlan),
		Schema:              PlanResponseSchema,
		SchemaName:          "plan",
		ContinueIfTruncated: true,
		TotalDays:           horizon,
	})
	if err != nil {
		g.logger.Warn("rectify call failed", "error", err)
		return nil, false
	}

	pj, err := parseAndValidate(res.Text)
	if err != nil {
		g.logger.Debug("rectified plan did not parse", "error", err)
		return nil, false
	}
	if ok, still := CheckConstraints(pj, in.Constraints); !ok {
		g.logger.Info("rectified plan still violates constraints", "violations", len(still))
		return nil, false
	}
	return pj, true
}

func parseAndValidate(text string) (*PlanJSON, error) {
	pj, err := ParsePlanJSON(text)
	if err != nil {
		return nil, err
	}
	if err := pj.Validate(); err != nil {
		return nil, err
	}
	return pj, nil
}
