// Package planner implements Planner.Plan, SPEC_FULL §4.5: an LLM-primary
// task decomposition into 1-10 atomic PlanSteps, with a heuristic
// punctuation-split fallback when no LLM is configured or the LLM path
// fails schema validation.
package planner

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/llmutil"
)

const planTimeout = 30 * time.Second

// Planner decomposes a free-form task into a Plan.
type Planner struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

// New returns a Planner bound to llm, which may be nil.
func New(llm schemas.LLMClient, logger *zap.Logger) *Planner {
	return &Planner{llm: llm, logger: logger.Named("planner")}
}

const planSystemPrompt = `You decompose a browser-automation task into atomic steps.
Classify the task's strategy as exactly one of: "Simple Action", "Deep Research", "Transactional".
Mentally simulate the target site, then emit 1 to 10 atomic steps.
Respond with a single JSON object: {"strategy": "...", "steps": [{"id": "...", "title": "...", "description": "...", "needsAuth": bool}]}.
Mark needsAuth true for any step that requires login, MFA, OTP, or a password.
Respond with JSON only, no commentary.`

// Plan implements §4.5.
func (p *Planner) Plan(ctx context.Context, task string) (schemas.Plan, error) {
	reason := "no LLM configured"
	if p.llm != nil {
		if plan, ok := p.planViaLLM(ctx, task); ok {
			return plan, nil
		}
		reason = "LLM plan unavailable"
	}
	return heuristicPlan(task, reason), nil
}

func (p *Planner) planViaLLM(ctx context.Context, task string) (schemas.Plan, bool) {
	callCtx, cancel := context.WithTimeout(ctx, planTimeout)
	defer cancel()

	resp, err := p.llm.Generate(callCtx, schemas.GenerationRequest{
		Tier:         schemas.TierPowerful,
		SystemPrompt: planSystemPrompt,
		UserPrompt:   "TASK: " + task,
		Options:      schemas.GenerationOptions{Temperature: 0.3, JSONMode: true},
	})
	if err != nil {
		p.logger.Warn("plan LLM call failed, falling back to heuristic", zap.Error(err))
		return schemas.Plan{}, false
	}

	var plan schemas.Plan
	if err := llmutil.UnmarshalJSON(resp.Text, &plan); err != nil {
		p.logger.Debug("plan response failed to parse", zap.Error(err), zap.String("raw", resp.Text))
		return schemas.Plan{}, false
	}
	if err := plan.Validate(); err != nil {
		p.logger.Debug("plan response failed schema validation", zap.Error(err))
		return schemas.Plan{}, false
	}
	return plan, true
}

var (
	splitPattern = regexp.MustCompile(`(?i)\bthen\b|,|;|\.|\n`)
	authPattern  = regexp.MustCompile(`(?i)login|sign in|password`)
)

// heuristicPlan implements the fallback: split on then|,|.;|\n, keep up to
// 10 parts, flag auth steps, strategy "System Offline: <reason>".
func heuristicPlan(task, reason string) schemas.Plan {
	parts := splitPattern.Split(task, -1)

	steps := make([]schemas.PlanStep, 0, len(parts))
	for i, part := range parts {
		title := strings.TrimSpace(part)
		if title == "" {
			continue
		}
		steps = append(steps, schemas.PlanStep{
			ID:        "step-" + strconv.Itoa(i+1),
			Title:     title,
			NeedsAuth: authPattern.MatchString(title),
		})
		if len(steps) == 10 {
			break
		}
	}
	if len(steps) == 0 {
		steps = []schemas.PlanStep{{ID: "step-1", Title: strings.TrimSpace(task)}}
	}

	return schemas.Plan{
		Strategy: schemas.Strategy(fmt.Sprintf("%s: %s", schemas.StrategySystemOffline, reason)),
		Steps:    steps,
	}
}
