package schemas

import (
	"fmt"
)

// ActionType enumerates the grammar the core ACT phase understands.
// Unknown values must be rejected at validation time, never dispatched.
type ActionType string

const (
	ActionVisionClick ActionType = "VISION_CLICK"
	ActionVisionFill  ActionType = "VISION_FILL"
	ActionDOMClick    ActionType = "DOM_CLICK"
	ActionDOMFill     ActionType = "DOM_FILL"
	ActionKeyPress    ActionType = "KEY_PRESS"
	ActionScroll      ActionType = "SCROLL"
	ActionWait        ActionType = "WAIT"
	ActionAskUser     ActionType = "ASK_USER"
	ActionConfirm     ActionType = "CONFIRM"
	ActionDone        ActionType = "DONE"
)

// ScrollDirection is the only two-valued enum in the grammar.
type ScrollDirection string

const (
	ScrollUp   ScrollDirection = "up"
	ScrollDown ScrollDirection = "down"
)

// WaitUntil names the load-state an explicit WAIT may block on.
type WaitUntil string

const (
	WaitUntilLoad              WaitUntil = "load"
	WaitUntilDOMContentLoaded  WaitUntil = "domcontentloaded"
	WaitUntilNetworkIdle       WaitUntil = "networkidle"
)

// Action is a tagged sum over the ten action variants in §3. Only the
// fields relevant to Type are meaningful; Validate enforces the
// per-variant constraints (exactly-one-target for fills, at-least-one
// for clicks, non-empty fill values).
type Action struct {
	Type ActionType `json:"type"`

	RegionID    string `json:"regionId,omitempty"`
	Selector    string `json:"selector,omitempty"`
	Role        Role   `json:"role,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	Value string `json:"value,omitempty"`

	KeyName string `json:"key,omitempty"`

	Direction ScrollDirection `json:"direction,omitempty"`
	Amount    int             `json:"amount,omitempty"`

	DurationMs int       `json:"duration,omitempty"`
	Until      WaitUntil `json:"until,omitempty"`

	Message  string `json:"message,omitempty"`
	ActionID string `json:"actionId,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// hasClickTarget reports whether at least one of the three click target
// specifications (regionId, selector, role+name) is present.
func (a Action) hasClickTarget() bool {
	if a.RegionID != "" || a.Selector != "" {
		return true
	}
	return a.Role != "" && a.Name != ""
}

// hasExactlyOneFillTarget reports whether exactly one target
// specification was supplied, per the §3 fill constraint.
func (a Action) hasExactlyOneFillTarget() bool {
	count := 0
	if a.RegionID != "" {
		count++
	}
	if a.Selector != "" {
		count++
	}
	if a.Role != "" && a.Name != "" {
		count++
	}
	return count == 1
}

// Validate enforces the structural invariants in §3: fill actions need
// exactly one target and a non-empty value; click actions need at least
// one target; SCROLL/WAIT/ASK_USER/CONFIRM/DONE/KEY_PRESS carry their own
// minimal requirements. An unknown Type is always an error.
func (a Action) Validate() error {
	switch a.Type {
	case ActionVisionClick, ActionDOMClick:
		if !a.hasClickTarget() {
			return fmt.Errorf("%w: click action requires regionId, selector, or role+name", ErrSchemaInvalid)
		}
	case ActionVisionFill, ActionDOMFill:
		if !a.hasExactlyOneFillTarget() {
			return fmt.Errorf("%w: fill action requires exactly one of regionId, selector, role+name", ErrSchemaInvalid)
		}
		if a.Value == "" {
			return fmt.Errorf("%w: fill action requires a non-empty value", ErrSchemaInvalid)
		}
	case ActionKeyPress:
		if a.KeyName == "" {
			return fmt.Errorf("%w: key press requires a key", ErrSchemaInvalid)
		}
	case ActionScroll:
		if a.Direction != ScrollUp && a.Direction != ScrollDown {
			return fmt.Errorf("%w: scroll requires direction up or down", ErrSchemaInvalid)
		}
	case ActionWait:
		// duration and until are both optional; ACT falls back to 1000ms.
	case ActionAskUser, ActionConfirm:
		if a.Message == "" {
			return fmt.Errorf("%w: %s requires a message", ErrSchemaInvalid, a.Type)
		}
	case ActionDone:
		// reason is optional.
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrSchemaInvalid, a.Type)
	}
	return nil
}

// IsControllerOwned reports whether the action must never reach ACT's
// BrowserGateway dispatch (I5, P7).
func (a Action) IsControllerOwned() bool {
	switch a.Type {
	case ActionDone, ActionAskUser, ActionConfirm:
		return true
	default:
		return false
	}
}

// Key returns the action-key used for oscillation detection:
// "type:resolvedLabel". An empty label is valid (e.g. WAIT, SCROLL).
func (a Action) Key(resolvedLabel string) string {
	return string(a.Type) + ":" + resolvedLabel
}
