// Package controller implements AgentController, the OBSERVE → DECIDE →
// ACT → VERIFY main loop described in SPEC_FULL §4.6. It wires together
// the BrowserGateway, ElementCatalogue, Guardrails, DecisionOracle, and
// SessionMemory built by the sibling packages.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/browser"
	"github.com/kestrel-run/pilot/internal/catalogue"
	"github.com/kestrel-run/pilot/internal/config"
	"github.com/kestrel-run/pilot/internal/guardrails"
	"github.com/kestrel-run/pilot/internal/memory"
	"github.com/kestrel-run/pilot/internal/oracle"
	"github.com/kestrel-run/pilot/internal/verifier"
)

// Controller owns one session's OBSERVE/DECIDE/ACT/VERIFY loop.
type Controller struct {
	gw      browser.Gateway
	cat     *catalogue.Catalogue
	oracle  *oracle.Oracle
	history memory.HistoryStore
	cfg     config.Config
	logger  *zap.Logger

	// viewportHeight feeds the auto-scroll gate's bottom-reached geometry;
	// ScrollGeometry only reports scrollY/scrollHeight.
	viewportHeight int

	// semanticCheckLimiter throttles the auto-scroll gate's LLM
	// visibility check so a long run of scroll iterations can't burst
	// one call per loop iteration against the model API.
	semanticCheckLimiter *rate.Limiter

	state *schemas.ControllerState
}

// semanticCheckRate caps the auto-scroll gate's semantic visibility check
// to one call per second; bursts of one keep the first check in a fresh
// session immediate.
const semanticCheckRate = time.Second

// New returns a Controller for one browser session.
func New(gw browser.Gateway, cat *catalogue.Catalogue, orc *oracle.Oracle, history memory.HistoryStore, cfg config.Config, viewportHeight int, logger *zap.Logger) *Controller {
	return &Controller{
		gw:                   gw,
		cat:                  cat,
		oracle:               orc,
		history:              history,
		cfg:                  cfg,
		viewportHeight:       viewportHeight,
		semanticCheckLimiter: rate.NewLimiter(rate.Every(semanticCheckRate), 1),
		logger:               logger.Named("controller"),
		state:                schemas.NewControllerState(),
	}
}

func notify(onStep schemas.OnStepFunc, snapshot schemas.SessionSnapshot) {
	if onStep != nil {
		onStep(snapshot)
	}
}

// RunLoop drives the control loop until it completes, pauses, or exhausts
// its step budget.
func (c *Controller) RunLoop(ctx context.Context, sessionID, task string, onStep schemas.OnStepFunc, opts schemas.RunLoopOptions) (schemas.RunLoopResult, error) {
	maxSteps := c.cfg.Controller.MaxSteps
	if maxSteps <= 0 {
		maxSteps = schemas.MaxSteps
	}
	if c.state.Scroll.MaxAutoScrolls == 0 {
		c.state.Scroll.MaxAutoScrolls = c.cfg.Controller.MaxAutoScrolls
	}
	if opts.ResetStepCount {
		maxScrolls := c.state.Scroll.MaxAutoScrolls
		c.state = schemas.NewControllerState()
		c.state.Scroll.MaxAutoScrolls = maxScrolls
	}

	for {
		if c.state.StepCount >= maxSteps {
			return schemas.RunLoopResult{Completed: false, Reason: "Max steps reached"}, nil
		}
		if err := ctx.Err(); err != nil {
			return schemas.RunLoopResult{}, err
		}
		c.state.StepCount++

		result, cont, err := c.iterate(ctx, sessionID, task, onStep)
		if err != nil {
			return schemas.RunLoopResult{}, err
		}
		if cont {
			continue
		}
		return result, nil
	}
}

// iterate runs one OBSERVE..VERIFY pass. cont=true means "re-enter the
// loop without returning to the caller" (the auto-scroll gate's
// re-observe, a guardrail-skip, or a dispatched action after VERIFY).
func (c *Controller) iterate(ctx context.Context, sessionID, task string, onStep schemas.OnStepFunc) (schemas.RunLoopResult, bool, error) {
	// 1. OBSERVE
	regions, err := c.cat.Scan(ctx, c.gw)
	if err != nil {
		return schemas.RunLoopResult{}, false, fmt.Errorf("observe: %w", err)
	}
	currentLabels := labelsFromRegions(regions)
	regionDiff := schemas.DiffRegionLabels(c.state.PreviousRegionLabels, currentLabels)
	c.state.PreviousRegionLabels = currentLabels

	page, err := c.gw.Snapshot(ctx)
	if err != nil {
		return schemas.RunLoopResult{}, false, fmt.Errorf("observe: %w", err)
	}
	notify(onStep, schemas.SessionSnapshot{Phase: schemas.PhaseObserve, Step: c.state.StepCount, Regions: regions})

	// 2. URL-change detection
	if page.URL != c.state.LastURL {
		c.state.Scroll.Reset()
		c.state.ConsecutiveFailures = 0
		c.state.LastURL = page.URL
	}

	// 3. Pre-LLM auto-scroll gate
	scrolled, err := c.autoScrollGate(ctx, task, page, regions)
	if err != nil {
		return schemas.RunLoopResult{}, false, fmt.Errorf("auto-scroll gate: %w", err)
	}
	if scrolled {
		return schemas.RunLoopResult{}, true, nil
	}

	// 4. DECIDE
	feedback := schemas.Feedback{LastAction: c.state.LastAction, LastOutcome: c.state.LastOutcome, RegionDiff: &regionDiff}
	recent, _ := c.history.Recent(ctx, sessionID, 5)
	decision, decErr := c.oracle.Decide(ctx, task, c.state.StepCount, regions, feedback, recent)
	if decErr != nil {
		decision = c.fallbackDecision(task, page.URL)
	}
	if err := decision.Validate(); err != nil {
		return schemas.RunLoopResult{Completed: false, Reason: err.Error()}, false, nil
	}
	notify(onStep, schemas.SessionSnapshot{Phase: schemas.PhaseDecide, Step: c.state.StepCount, Action: &decision.Action, Decision: decision, Feedback: &feedback})

	action := decision.Action
	switch action.Type {
	case schemas.ActionDone:
		return schemas.RunLoopResult{Completed: true, Reason: action.Reason}, false, nil
	case schemas.ActionConfirm:
		return schemas.RunLoopResult{Completed: false, PendingAction: &action, PauseKind: schemas.PauseConfirm, Reason: action.Message}, false, nil
	case schemas.ActionAskUser:
		return schemas.RunLoopResult{Completed: false, PendingAction: &action, PauseKind: schemas.PauseAskUser, Reason: action.Message}, false, nil
	}

	// 5. Oscillation detection
	label := resolveActionLabel(c.cat, action)
	key := action.Key(label)
	if key == c.state.LastActionKey {
		c.state.RepeatedActionCount++
	} else {
		c.state.LastActionKey = key
		c.state.RepeatedActionCount = 0
	}
	if c.state.RepeatedActionCount >= schemas.OscillationThreshold {
		return schemas.RunLoopResult{
			Completed:           false,
			Reason:              fmt.Sprintf("%s repeated %d times in a row", action.Type, c.state.RepeatedActionCount+1),
			PendingAction:       &action,
			PauseKind:           schemas.PauseConfirm,
			StepCompletionCheck: true,
		}, false, nil
	}

	// 6. Guardrails
	verdict := guardrails.Evaluate(action, label, c.cfg.Guardrails)
	if verdict.Pause() {
		return schemas.RunLoopResult{Completed: false, PendingAction: &action, PauseKind: schemas.PauseConfirm, Reason: verdict.Reason}, false, nil
	}
	if verdict.Skip() {
		c.logger.Info("action skipped due to guardrail", zap.String("reason", verdict.Reason))
		return schemas.RunLoopResult{}, true, nil
	}

	// 7. ACT
	if err := ctx.Err(); err != nil {
		return schemas.RunLoopResult{}, false, err
	}
	before := verifier.Snapshot{URL: page.URL, Title: page.Title, Text: page.Text}
	actErr := c.dispatch(ctx, action)
	notify(onStep, schemas.SessionSnapshot{Phase: schemas.PhaseAct, Step: c.state.StepCount, Action: &action})

	var outcome schemas.Outcome
	var summary string
	if actErr != nil && !errors.Is(actErr, schemas.ErrStaleElement) && !errors.Is(actErr, schemas.ErrNotVisible) && !errors.Is(actErr, schemas.ErrNavigationDestroyed) {
		return schemas.RunLoopResult{}, false, fmt.Errorf("act: %w", actErr)
	}
	if actErr != nil && (errors.Is(actErr, schemas.ErrStaleElement) || errors.Is(actErr, schemas.ErrNotVisible)) {
		outcome = schemas.Outcome{StateChanged: false, URLBefore: page.URL, URLAfter: page.URL, TitleBefore: page.Title, TitleAfter: page.Title}
		summary = fmt.Sprintf("%s failed: %v", action.Type, actErr)
	} else {
		// 8. VERIFY
		after, verr := c.gw.Snapshot(ctx)
		if verr != nil {
			if !errors.Is(verr, schemas.ErrNavigationDestroyed) {
				c.logger.Debug("verify snapshot failed, treating as navigation context destroyed", zap.Error(verr))
			}
			after = browser.PageState{URL: page.URL}
		}
		outcome, summary = verifier.Verify(action, before, verifier.Snapshot{URL: after.URL, Title: after.Title, Text: after.Text})
	}

	if outcome.StateChanged {
		c.state.ConsecutiveFailures = 0
	} else {
		c.state.ConsecutiveFailures++
	}
	c.state.LastAction = &action
	c.state.LastOutcome = &outcome

	if err := c.history.Append(ctx, sessionID, memory.Entry{
		Step:      c.state.StepCount,
		Action:    action,
		Outcome:   outcome,
		Summary:   summary,
		Timestamp: time.Now(),
	}); err != nil {
		c.logger.Warn("history append failed", zap.Error(err))
	}

	notify(onStep, schemas.SessionSnapshot{Phase: schemas.PhaseVerify, Step: c.state.StepCount, Action: &action, Feedback: &schemas.Feedback{LastAction: &action, LastOutcome: &outcome}})
	return schemas.RunLoopResult{}, true, nil
}

// fallbackDecision applies the two heuristic rules the stateless Oracle
// cannot: URL-already-satisfies-step, then the graduated retry ladder.
func (c *Controller) fallbackDecision(task, currentURL string) *schemas.Decision {
	if oracle.HeuristicURLSatisfiesStep(oracle.CurrentStepObjective(task), currentURL) {
		return &schemas.Decision{
			Action:     schemas.Action{Type: schemas.ActionDone, Reason: "heuristic: current URL already satisfies step objective"},
			Confidence: 0.6,
			Reasoning:  "heuristic: URL satisfies step",
		}
	}
	d := oracle.HeuristicRetryLadder(c.state.ConsecutiveFailures)
	return &d
}

// ExecuteAction performs a one-shot dispatch, bypassing the loop. Used by
// the host orchestrator to resume a session after a CONFIRM/ASK_USER pause.
func (c *Controller) ExecuteAction(ctx context.Context, sessionID string, action schemas.Action) (schemas.Outcome, error) {
	if err := action.Validate(); err != nil {
		return schemas.Outcome{}, err
	}
	if action.IsControllerOwned() {
		return schemas.Outcome{}, fmt.Errorf("controller: %s is controller-owned, not directly dispatchable", action.Type)
	}

	before, err := c.gw.Snapshot(ctx)
	if err != nil {
		return schemas.Outcome{}, fmt.Errorf("execute action: %w", err)
	}

	actErr := c.dispatch(ctx, action)
	if actErr != nil && !errors.Is(actErr, schemas.ErrNavigationDestroyed) {
		if errors.Is(actErr, schemas.ErrStaleElement) || errors.Is(actErr, schemas.ErrNotVisible) {
			outcome := schemas.Outcome{StateChanged: false}
			c.state.LastAction, c.state.LastOutcome = &action, &outcome
			return outcome, nil
		}
		return schemas.Outcome{}, fmt.Errorf("execute action: %w", actErr)
	}

	after, err := c.gw.Snapshot(ctx)
	if err != nil {
		after = before
	}
	outcome := schemas.ComputeOutcome(before.URL, after.URL, before.Title, after.Title, before.Text, after.Text)
	c.state.LastAction, c.state.LastOutcome = &action, &outcome

	if err := c.history.Append(ctx, sessionID, memory.Entry{
		Step:      c.state.StepCount,
		Action:    action,
		Outcome:   outcome,
		Summary:   "resumed after pause",
		Timestamp: time.Now(),
	}); err != nil {
		c.logger.Warn("history append failed", zap.Error(err))
	}
	return outcome, nil
}

func labelsFromRegions(regions []schemas.Region) []string {
	labels := make([]string, len(regions))
	for i, r := range regions {
		labels[i] = r.Label
	}
	return labels
}

// resolveActionLabel resolves an action's target label for guardrails and
// oscillation keying: via regionId lookup, or the concatenated name and
// selector text when there is no regionId.
func resolveActionLabel(cat *catalogue.Catalogue, action schemas.Action) string {
	if action.RegionID != "" {
		return cat.Label(action.RegionID)
	}
	label := action.Name
	if action.Selector != "" {
		if label != "" {
			label += " "
		}
		label += action.Selector
	}
	return label
}
