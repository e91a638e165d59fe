// Package guardrails evaluates a proposed Action against the four ordered
// policy rules in SPEC_FULL §4.3 before it ever reaches the BrowserGateway.
package guardrails

import (
	"strings"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/config"
)

// sensitiveFieldKeywords is the fixed §4.3 rule-1 list, not config-driven:
// it is the safety baseline every deployment carries regardless of its
// own guardrails config.
var sensitiveFieldKeywords = []string{
	"email", "username", "user name", "billing", "mfa", "otp", "password",
	"passcode", "credit card", "cvc", "ccv", "ssn", "social security",
	"address", "phone number", "dob", "date of birth", "api key", "secret",
	"debit", "bank account",
}

// secretMarkers is the fixed §4.3 rule-2 list.
var secretMarkers = []string{"SECRET.", "PASSWORD", "API_KEY"}

// Verdict is the guardrails decision for one proposed Action.
type Verdict struct {
	Allowed             bool
	Reason              string
	RequiresConfirmation bool
}

// Pause reports whether this verdict means "stop the loop and surface the
// action for explicit user approval" (allowed=false, requiresConfirmation=true).
func (v Verdict) Pause() bool {
	return !v.Allowed && v.RequiresConfirmation
}

// Skip reports whether this verdict means "drop the action and continue"
// (allowed=false, requiresConfirmation=false).
func (v Verdict) Skip() bool {
	return !v.Allowed && !v.RequiresConfirmation
}

// LabelResolver resolves a regionId to its catalogued label; the
// catalogue.Catalogue implements this.
type LabelResolver interface {
	Label(regionID string) string
}

// Evaluate runs the first three ordered rules (sensitive field, secret
// marker, risky click) against action, given the target's resolved label
// (already looked up via regionId, or the caller's best concatenation of
// name+selector text when there is no regionId). It does not consult
// cfg.AllowedDomains; the domain rule is IsDomainAllowed.
func Evaluate(action schemas.Action, targetLabel string, cfg config.GuardrailsConfig) Verdict {
	lowerLabel := strings.ToLower(targetLabel)

	if isFillAction(action.Type) {
		if kw, hit := containsAnyLower(lowerLabel, sensitiveFieldKeywords); hit {
			return Verdict{Allowed: false, Reason: "sensitive field: " + kw}
		}
		if marker, hit := containsAnyLiteral(action.Value, secretMarkers); hit {
			return Verdict{Allowed: false, Reason: "secret marker in value: " + marker}
		}
	}

	if isClickAction(action.Type) && targetLabel != "" {
		if kw, hit := containsAnyLower(lowerLabel, cfg.RiskyRoles); hit {
			return Verdict{Allowed: false, RequiresConfirmation: true, Reason: "risky action requires confirmation: " + kw}
		}
	}

	return Verdict{Allowed: true}
}

// IsDomainAllowed reports whether hostname equals, or is a dot-suffix of,
// any entry in allowedDomains. An empty allowedDomains list allows every
// domain.
func IsDomainAllowed(hostname string, allowedDomains []string) bool {
	if len(allowedDomains) == 0 {
		return true
	}
	hostname = strings.ToLower(hostname)
	for _, d := range allowedDomains {
		d = strings.ToLower(d)
		if hostname == d || strings.HasSuffix(hostname, "."+d) {
			return true
		}
	}
	return false
}

func isFillAction(t schemas.ActionType) bool {
	return t == schemas.ActionVisionFill || t == schemas.ActionDOMFill
}

func isClickAction(t schemas.ActionType) bool {
	return t == schemas.ActionVisionClick || t == schemas.ActionDOMClick
}

// containsAnyLower matches needles case-insensitively against an
// already-lowercased haystack (rule 1, rule 3: label keyword matching).
func containsAnyLower(lowerHaystack string, needles []string) (string, bool) {
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lowerHaystack, strings.ToLower(n)) {
			return n, true
		}
	}
	return "", false
}

// containsAnyLiteral matches needles as exact-case substrings (rule 2:
// SECRET./PASSWORD/API_KEY markers are literal, not case-folded).
func containsAnyLiteral(haystack string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return n, true
		}
	}
	return "", false
}
