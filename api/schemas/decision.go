package schemas

import "fmt"

// Decision is the DecisionOracle's output for one control-loop iteration.
type Decision struct {
	Action     Action  `json:"action"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// DefaultConfidence and DefaultReasoning are substituted by the untrusted
// LLM-output repair pass (§4.4) when those fields are missing.
const (
	DefaultConfidence = 0.5
	DefaultReasoning  = "(no reasoning provided)"
)

// Validate checks the Decision's Action and rejects a confidence outside
// [0,1] with ErrSchemaInvalid.
func (d Decision) Validate() error {
	if err := d.Action.Validate(); err != nil {
		return err
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of [0,1]", ErrSchemaInvalid, d.Confidence)
	}
	return nil
}

// Outcome captures what happened after an action was dispatched.
type Outcome struct {
	StateChanged bool   `json:"stateChanged"`
	URLBefore    string `json:"urlBefore"`
	URLAfter     string `json:"urlAfter"`
	TitleBefore  string `json:"titleBefore"`
	TitleAfter   string `json:"titleAfter"`
	TextBefore   string `json:"textBefore"`
	TextAfter    string `json:"textAfter"`
}

// maxNormalisedTextLen bounds the text snippet compared for state-change
// detection, per §3 ("400-char normalised text snippet").
const maxNormalisedTextLen = 400

// NormaliseTextSnippet collapses whitespace and truncates to the 400-char
// bound used both for Outcome comparison and for LLM prompt context.
func NormaliseTextSnippet(text string) string {
	var b []byte
	lastSpace := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		isSpace := c == ' ' || c == '\t' || c == '\n' || c == '\r'
		if isSpace {
			if !lastSpace && len(b) > 0 {
				b = append(b, ' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b = append(b, c)
	}
	for len(b) > 0 && b[len(b)-1] == ' ' {
		b = b[:len(b)-1]
	}
	if len(b) > maxNormalisedTextLen {
		b = b[:maxNormalisedTextLen]
	}
	return string(b)
}

// ComputeOutcome derives stateChanged from the before/after snapshot, per
// the §3 rule: true iff url, title, or the normalised text snippet
// differs.
func ComputeOutcome(urlBefore, urlAfter, titleBefore, titleAfter, textBefore, textAfter string) Outcome {
	nb := NormaliseTextSnippet(textBefore)
	na := NormaliseTextSnippet(textAfter)
	return Outcome{
		StateChanged: urlBefore != urlAfter || titleBefore != titleAfter || nb != na,
		URLBefore:    urlBefore,
		URLAfter:     urlAfter,
		TitleBefore:  titleBefore,
		TitleAfter:   titleAfter,
		TextBefore:   nb,
		TextAfter:    na,
	}
}

// Feedback is the controller's synthesised delta fed into the next
// decision: last action taken, its outcome, and the region diff.
type Feedback struct {
	LastAction  *Action     `json:"lastAction,omitempty"`
	LastOutcome *Outcome    `json:"lastOutcome,omitempty"`
	RegionDiff  *RegionDiff `json:"regionDiff,omitempty"`
}

// HasContentDiff reports whether the region diff shows any change: at
// least one label appeared or disappeared.
func (f Feedback) HasContentDiff() bool {
	return f.RegionDiff != nil && (len(f.RegionDiff.Appeared) > 0 || len(f.RegionDiff.Disappeared) > 0)
}
