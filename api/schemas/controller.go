package schemas

// StepPhase names the four phases the controller reports through onStep.
type StepPhase string

const (
	PhaseObserve StepPhase = "OBSERVE"
	PhaseDecide  StepPhase = "DECIDE"
	PhaseAct     StepPhase = "ACT"
	PhaseVerify  StepPhase = "VERIFY"
)

// PauseKind distinguishes why a loop paused instead of terminating.
type PauseKind string

const (
	PauseConfirm  PauseKind = "CONFIRM"
	PauseAskUser  PauseKind = "ASK_USER"
)

// MaxSteps and MaxAutoScrolls are the controller's budget constants (§3,
// §6 configuration surface).
const (
	MaxSteps       = 50
	MaxAutoScrolls = 5
	// OscillationThreshold is the repeat count (3rd identical attempt)
	// that triggers a pause, per §4.6 step 5 / P4.
	OscillationThreshold = 2
)

// ScrollState tracks the auto-scroll gate's progress for one session,
// reset on URL change (I4).
type ScrollState struct {
	ScrollCount      int
	MaxAutoScrolls   int
	ContentVisible   bool
	BottomReached    bool
	LastScrollY      float64
	LastScrollHeight float64
}

// Reset clears scroll tracking, per I4 (URL-change reset) and the
// session-start case.
func (s *ScrollState) Reset() {
	*s = ScrollState{MaxAutoScrolls: s.MaxAutoScrolls}
	if s.MaxAutoScrolls == 0 {
		s.MaxAutoScrolls = MaxAutoScrolls
	}
}

// ControllerState is the per-session state threaded across loop
// iterations (§3 ControllerState).
type ControllerState struct {
	StepCount            int
	LastAction           *Action
	LastOutcome          *Outcome
	PreviousRegionLabels []string
	LastActionKey        string
	RepeatedActionCount  int
	Scroll               ScrollState
	LastURL              string
	ConsecutiveFailures  int
}

// NewControllerState returns a freshly initialised state for a new
// session.
func NewControllerState() *ControllerState {
	return &ControllerState{
		Scroll: ScrollState{MaxAutoScrolls: MaxAutoScrolls},
	}
}

// RunLoopOptions configures one RunLoop invocation.
type RunLoopOptions struct {
	// ResetStepCount controls whether resuming a paused session (via a
	// fresh RunLoop call after executeAction) grants a new MAX_STEPS
	// budget. Default chosen by this implementation: false — see
	// DESIGN.md Open Question (a).
	ResetStepCount bool
}

// RunLoopResult is the terminal state of one RunLoop invocation.
type RunLoopResult struct {
	Completed           bool
	Reason              string
	PendingAction        *Action
	PauseKind            PauseKind
	StepCompletionCheck  bool
}

// SessionSnapshot is the data surfaced to a host's onStep callback (and,
// by extension, any transport layer streaming progress to a UI).
type SessionSnapshot struct {
	Phase    StepPhase
	Message  string
	Action   *Action
	Step     int
	Regions  []Region
	Decision *Decision
	Feedback *Feedback
}

// OnStepFunc is the host-supplied progress callback.
type OnStepFunc func(snapshot SessionSnapshot)
