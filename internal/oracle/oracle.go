// Package oracle implements the DecisionOracle: the LLM-primary,
// heuristic-fallback decision path described in SPEC_FULL §4.4, plus the
// lightweight semantic scroll-visibility check the controller's auto-scroll
// gate consults (§4.6 step 3a).
package oracle

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/llmutil"
	"github.com/kestrel-run/pilot/internal/memory"
)

const (
	decideTimeout    = 30 * time.Second
	semanticTimeout  = 10 * time.Second
	decideTemp       = 0.2
	maxRegionsInPrompt = 60
	maxTextSnippet   = 2000
)

// Oracle is the DecisionOracle. A nil LLM means the LLM path is skipped
// entirely and only heuristics run (no API key configured).
type Oracle struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

// New returns an Oracle bound to llm, which may be nil.
func New(llm schemas.LLMClient, logger *zap.Logger) *Oracle {
	return &Oracle{llm: llm, logger: logger.Named("oracle")}
}

// Decide implements §4.4's contract: decide(task, step, regions, feedback,
// history) → Decision | nil. A nil return means "fall through to
// heuristics", except on step 1 where an LLM HTTP failure surfaces as an
// ASK_USER Decision instead (the special failure policy).
func (o *Oracle) Decide(ctx context.Context, task string, step int, regions []schemas.Region, feedback schemas.Feedback, history []memory.Entry) (*schemas.Decision, error) {
	if o.llm == nil {
		return o.heuristic(task, regions, feedback)
	}

	decision, httpErr := o.decideViaLLM(ctx, task, step, regions, feedback, history)
	if decision != nil {
		return decision, nil
	}
	if httpErr != nil && step == 1 {
		return &schemas.Decision{
			Action:     schemas.Action{Type: schemas.ActionAskUser, Message: fmt.Sprintf("LLM call failed: %v", httpErr)},
			Reasoning:  "first-step LLM failure surfaced directly rather than silently falling back",
			Confidence: schemas.DefaultConfidence,
		}, nil
	}
	return o.heuristic(task, regions, feedback)
}

// decideViaLLM returns (decision, nil) on success, (nil, nil) on a
// schema/parse failure (silent fallback), or (nil, err) when the LLM call
// itself failed (the step-1 special case needs to distinguish these).
func (o *Oracle) decideViaLLM(ctx context.Context, task string, step int, regions []schemas.Region, feedback schemas.Feedback, history []memory.Entry) (*schemas.Decision, error) {
	callCtx, cancel := context.WithTimeout(ctx, decideTimeout)
	defer cancel()

	prompt := buildDecidePrompt(task, step, regions, feedback, history)
	resp, err := o.llm.Generate(callCtx, schemas.GenerationRequest{
		Tier:         schemas.TierPowerful,
		SystemPrompt: decideSystemPrompt,
		UserPrompt:   prompt,
		Options:      schemas.GenerationOptions{Temperature: decideTemp, JSONMode: true},
	})
	if err != nil {
		o.logger.Warn("decide LLM call failed", zap.Error(err))
		return nil, err
	}

	var decision schemas.Decision
	if err := llmutil.UnmarshalJSON(resp.Text, &decision); err != nil {
		o.logger.Debug("decide response failed to parse", zap.Error(err), zap.String("raw", resp.Text))
		return nil, nil
	}
	repairDecision(&decision)
	if err := decision.Validate(); err != nil {
		o.logger.Debug("decide response failed schema validation", zap.Error(err))
		return nil, nil
	}
	return &decision, nil
}

// repairDecision auto-patches the two fields the untrusted-output policy
// allows to default rather than fail parsing outright.
func repairDecision(d *schemas.Decision) {
	if d.Confidence == 0 {
		d.Confidence = schemas.DefaultConfidence
	}
	if strings.TrimSpace(d.Reasoning) == "" {
		d.Reasoning = schemas.DefaultReasoning
	}
}

const decideSystemPrompt = `You control a web browser one action at a time. Respond with a single JSON object matching:
{"action": {"type": "...", ...variant fields...}, "reasoning": "...", "confidence": 0.0-1.0}
Allowed action types: VISION_CLICK, VISION_FILL, DOM_CLICK, DOM_FILL, KEY_PRESS, SCROLL, WAIT, ASK_USER, CONFIRM, DONE.
Values must come from the task text, never invented. Any action touching a password, payment, or MFA/OTP field must be ASK_USER instead.
If the feedback shows new elements appeared, your previous action likely succeeded; do not repeat it.
If state did not change and nothing new appeared, try a materially different approach.
Respond with JSON only, no commentary.`

func buildDecidePrompt(task string, step int, regions []schemas.Region, feedback schemas.Feedback, history []memory.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TASK: %s\nSTEP: %d\n\n", task, step)

	if len(history) > 0 {
		b.WriteString("RECENT HISTORY:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "- %s\n", h.Summary)
		}
		b.WriteString("\n")
	}

	if feedback.LastAction != nil {
		fmt.Fprintf(&b, "LAST ACTION: %s\n", feedback.LastAction.Type)
	}
	if feedback.LastOutcome != nil {
		fmt.Fprintf(&b, "STATE CHANGED: %v\n", feedback.LastOutcome.StateChanged)
	}
	if feedback.RegionDiff != nil {
		fmt.Fprintf(&b, "APPEARED: %v\nDISAPPEARED: %v\n", feedback.RegionDiff.Appeared, feedback.RegionDiff.Disappeared)
	}
	b.WriteString("\n")

	b.WriteString("REGIONS:\n")
	for _, r := range prioritizeRegions(regions) {
		fmt.Fprintf(&b, "- id=%s role=%s label=%q href=%q\n", r.ID, r.Role, r.Label, r.Href)
	}
	return b.String()
}

// prioritizeRegions orders inputs first, then content links, then
// everything else, capped at 60, per §4.4.
func prioritizeRegions(regions []schemas.Region) []schemas.Region {
	var inputs, links, other []schemas.Region
	for _, r := range regions {
		switch {
		case r.IsInput():
			inputs = append(inputs, r)
		case r.Role == schemas.RoleLink && r.Href != "":
			links = append(links, r)
		default:
			other = append(other, r)
		}
	}
	ordered := append(append(inputs, links...), other...)
	if len(ordered) > maxRegionsInPrompt {
		ordered = ordered[:maxRegionsInPrompt]
	}
	return ordered
}

var (
	searchURLPattern = regexp.MustCompile(`(?i)search|results|[?&](q|query)=`)
)

// heuristic is the fallback ladder used when the LLM path is unavailable
// or returned nil.
func (o *Oracle) heuristic(task string, regions []schemas.Region, feedback schemas.Feedback) (*schemas.Decision, error) {
	lowerTask := strings.ToLower(task)

	clickables := clickableRegions(regions)

	if strings.Contains(lowerTask, "click") && strings.Contains(lowerTask, "first link") {
		for _, r := range clickables {
			if r.Role == schemas.RoleLink {
				return decisionOf(schemas.Action{Type: schemas.ActionVisionClick, RegionID: r.ID}, 0.8, "heuristic: first link match"), nil
			}
		}
	}

	if strings.Contains(lowerTask, "click") {
		if r, ok := labelSubstringMatch(lowerTask, clickables); ok {
			return decisionOf(schemas.Action{Type: schemas.ActionVisionClick, RegionID: r.ID}, 0.7, "heuristic: label substring match"), nil
		}
		if len(clickables) > 0 {
			return decisionOf(schemas.Action{Type: schemas.ActionVisionClick, RegionID: clickables[0].ID}, 0.5, "heuristic: first clickable"), nil
		}
	}

	return nil, fmt.Errorf("heuristic: no applicable rule, caller should consult consecutiveFailures ladder")
}

// HeuristicURLSatisfiesStep implements §4.4's "current URL already
// satisfies the step objective" check.
func HeuristicURLSatisfiesStep(task, currentURL string) bool {
	lowerTask, lowerURL := strings.ToLower(task), strings.ToLower(currentURL)
	if strings.Contains(lowerTask, "navigate to google") && strings.Contains(lowerURL, "google.com") {
		return true
	}
	if strings.Contains(lowerTask, "search") && searchURLPattern.MatchString(lowerURL) {
		return true
	}
	return false
}

// HeuristicRetryLadder implements the graduated consecutiveFailures ladder:
// 0→SCROLL down, 1→WAIT 2000ms, 2→DONE.
func HeuristicRetryLadder(consecutiveFailures int) schemas.Decision {
	switch consecutiveFailures {
	case 0:
		return *decisionOf(schemas.Action{Type: schemas.ActionScroll, Direction: schemas.ScrollDown}, 0.4, "heuristic: retry ladder scroll")
	case 1:
		return *decisionOf(schemas.Action{Type: schemas.ActionWait, DurationMs: 2000}, 0.4, "heuristic: retry ladder wait")
	default:
		return *decisionOf(schemas.Action{Type: schemas.ActionDone, Reason: "no further heuristic options"}, 0.4, "heuristic: retry ladder exhausted")
	}
}

func decisionOf(a schemas.Action, confidence float64, reasoning string) *schemas.Decision {
	return &schemas.Decision{Action: a, Confidence: confidence, Reasoning: reasoning}
}

func clickableRegions(regions []schemas.Region) []schemas.Region {
	var out []schemas.Region
	for _, r := range regions {
		if r.Role == schemas.RoleButton || r.Role == schemas.RoleLink {
			out = append(out, r)
		}
	}
	return out
}

func labelSubstringMatch(lowerTask string, clickables []schemas.Region) (schemas.Region, bool) {
	for _, r := range clickables {
		if strings.Contains(lowerTask, strings.ToLower(r.Label)) {
			return r, true
		}
	}
	return schemas.Region{}, false
}

// IsContentSemanticallyVisible runs the §4.6 step-3a lightweight
// visibility oracle: a short, low-temperature YES/NO LLM call. On failure
// or when no LLM is configured, it treats the answer as YES (skip the
// scroll gate) rather than blocking the loop.
func (o *Oracle) IsContentSemanticallyVisible(ctx context.Context, stepObjective, visibleText string, labels []string) bool {
	if o.llm == nil {
		return true
	}
	callCtx, cancel := context.WithTimeout(ctx, semanticTimeout)
	defer cancel()

	prompt := fmt.Sprintf("Step objective: %s\n\nVisible text: %s\n\nInteractive labels: %s\n\nIs the visible content semantically relevant to the step objective? Answer YES or NO only.",
		stepObjective, truncate(visibleText, maxTextSnippet), strings.Join(labels, ", "))

	resp, err := o.llm.Generate(callCtx, schemas.GenerationRequest{
		Tier:       schemas.TierFast,
		UserPrompt: prompt,
		Options:    schemas.GenerationOptions{Temperature: 0},
	})
	if err != nil {
		o.logger.Debug("semantic visibility check failed, defaulting to YES", zap.Error(err))
		return true
	}
	return strings.Contains(strings.ToUpper(resp.Text), "YES")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// CurrentStepObjective extracts the step objective per §4.6 step 3a: the
// text following a "CURRENT STEP:" marker, or the first 200 chars of task.
func CurrentStepObjective(task string) string {
	const marker = "CURRENT STEP:"
	if idx := strings.Index(task, marker); idx != -1 {
		rest := strings.TrimSpace(task[idx+len(marker):])
		if nl := strings.IndexByte(rest, '\n'); nl != -1 {
			rest = rest[:nl]
		}
		return rest
	}
	return truncate(task, 200)
}
