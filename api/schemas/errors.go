package schemas

import "errors"

// Sentinel errors for the core's error kinds. Hosts should use
// errors.Is/errors.As against these rather than matching error strings.
// The controller reports step-budget exhaustion, oscillation and guardrail
// verdicts through RunLoopResult; it does not return ErrBudgetExhausted,
// ErrOscillationDetected, ErrGuardrailDenied or ErrGuardrailNeedsConfirm.
var (
	// ErrStaleElement means an Action referenced a Region.id that is no
	// longer present in the current ElementStore (it belongs to an
	// earlier scan).
	ErrStaleElement = errors.New("region id is stale: not present in current scan")

	// ErrNotVisible means the target element has no usable bounding box
	// (it is hidden, detached, or has zero area).
	ErrNotVisible = errors.New("element is not visible")

	// ErrNavigationDestroyed is raised when the execution context is torn
	// down mid-call because a navigation occurred. It is expected during
	// link clicks and is never fatal.
	ErrNavigationDestroyed = errors.New("navigation context destroyed")

	// ErrSchemaInvalid means an LLM response failed validation against
	// the Decision or Plan schema.
	ErrSchemaInvalid = errors.New("response failed schema validation")

	// ErrGuardrailDenied means Guardrails rejected an action outright.
	ErrGuardrailDenied = errors.New("action denied by guardrails")

	// ErrGuardrailNeedsConfirm means Guardrails requires explicit human
	// approval before the action may be dispatched.
	ErrGuardrailNeedsConfirm = errors.New("action requires confirmation")

	// ErrLLMUnavailable means the DecisionOracle's LLM path could not
	// produce a usable Decision (network failure, timeout, or parse
	// failure after retries).
	ErrLLMUnavailable = errors.New("llm decision path unavailable")

	// ErrBudgetExhausted means the controller reached MAX_STEPS.
	ErrBudgetExhausted = errors.New("step budget exhausted")

	// ErrOscillationDetected means the same action key repeated three
	// times in a row.
	ErrOscillationDetected = errors.New("oscillation detected")
)
