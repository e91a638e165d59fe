// Package verifier implements the VERIFY phase (SPEC_FULL §4.7): a
// deterministic before/after comparison with no LLM call, producing the
// Outcome and a short prose summary for SessionMemory.
package verifier

import (
	"fmt"

	"github.com/kestrel-run/pilot/api/schemas"
)

// Snapshot is the minimal before/after state VERIFY compares.
type Snapshot struct {
	URL   string
	Title string
	Text  string
}

// Verify computes the Outcome between two snapshots, plus a
// human-readable summary for memory.Entry.Summary. The region-level
// appeared/disappeared diff is a separate, OBSERVE-phase computation
// (SPEC_FULL §4.6 step 1) surfaced to the next DECIDE via Feedback, not
// recomputed here.
func Verify(action schemas.Action, before, after Snapshot) (schemas.Outcome, string) {
	outcome := schemas.ComputeOutcome(before.URL, after.URL, before.Title, after.Title, before.Text, after.Text)
	return outcome, summarize(action, outcome)
}

// summarize renders a one-line prose description of what the action did.
func summarize(action schemas.Action, outcome schemas.Outcome) string {
	base := describeAction(action)

	if !outcome.StateChanged {
		return fmt.Sprintf("%s; no visible change.", base)
	}

	var detail string
	switch {
	case outcome.URLBefore != outcome.URLAfter:
		detail = fmt.Sprintf("navigated from %s to %s", outcome.URLBefore, outcome.URLAfter)
	case outcome.TitleBefore != outcome.TitleAfter:
		detail = fmt.Sprintf("page title changed to %q", outcome.TitleAfter)
	default:
		detail = "page content changed"
	}

	return fmt.Sprintf("%s; %s.", base, detail)
}

func describeAction(a schemas.Action) string {
	switch a.Type {
	case schemas.ActionVisionClick, schemas.ActionDOMClick:
		return fmt.Sprintf("clicked %s", targetDescription(a))
	case schemas.ActionVisionFill, schemas.ActionDOMFill:
		return fmt.Sprintf("filled %s with %q", targetDescription(a), a.Value)
	case schemas.ActionKeyPress:
		return fmt.Sprintf("pressed key %q", a.KeyName)
	case schemas.ActionScroll:
		return fmt.Sprintf("scrolled %s", a.Direction)
	case schemas.ActionWait:
		return "waited"
	default:
		return fmt.Sprintf("performed %s", a.Type)
	}
}

func targetDescription(a schemas.Action) string {
	switch {
	case a.RegionID != "":
		return a.RegionID
	case a.Selector != "":
		return a.Selector
	case a.Name != "":
		return fmt.Sprintf("%s %q", a.Role, a.Name)
	default:
		return "target"
	}
}
