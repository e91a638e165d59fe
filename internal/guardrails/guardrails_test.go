package guardrails_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/config"
	"github.com/kestrel-run/pilot/internal/guardrails"
)

func testCfg() config.GuardrailsConfig {
	return config.GuardrailsConfig{
		RiskyRoles:     []string{"delete", "submit order"},
		AllowedDomains: []string{"example.com"},
	}
}

func TestEvaluateDeniesEverySensitiveFieldFill(t *testing.T) {
	t.Parallel()
	keywords := []string{
		"email", "username", "user name", "billing", "mfa", "otp", "password",
		"passcode", "credit card", "cvc", "ccv", "ssn", "social security",
		"address", "phone number", "dob", "date of birth", "api key", "secret",
		"debit", "bank account",
	}

	for _, kw := range keywords {
		action := schemas.Action{Type: schemas.ActionDOMFill, RegionID: "element-1", Value: "x"}
		verdict := guardrails.Evaluate(action, "Your "+kw+" field", testCfg())
		assert.False(t, verdict.Allowed, "keyword %q should be denied", kw)
		assert.False(t, verdict.RequiresConfirmation, "keyword %q should deny outright, not confirm", kw)
		assert.True(t, verdict.Skip())
	}
}

func TestEvaluateDeniesSecretMarkerInValue(t *testing.T) {
	t.Parallel()
	action := schemas.Action{Type: schemas.ActionVisionFill, RegionID: "element-1", Value: "token=SECRET.abc123"}
	verdict := guardrails.Evaluate(action, "Config value", testCfg())
	assert.True(t, verdict.Skip())
}

func TestEvaluateSecretMarkerIsCaseSensitive(t *testing.T) {
	t.Parallel()
	action := schemas.Action{Type: schemas.ActionVisionFill, RegionID: "element-1", Value: "this is not a secret. marker"}
	verdict := guardrails.Evaluate(action, "Notes", testCfg())
	assert.True(t, verdict.Allowed)
}

func TestEvaluateRiskyClickRequiresConfirmation(t *testing.T) {
	t.Parallel()
	action := schemas.Action{Type: schemas.ActionDOMClick, RegionID: "element-1"}
	verdict := guardrails.Evaluate(action, "Delete account", testCfg())
	assert.False(t, verdict.Allowed)
	assert.True(t, verdict.RequiresConfirmation)
	assert.True(t, verdict.Pause())
}

func TestEvaluateAllowsBenignClick(t *testing.T) {
	t.Parallel()
	action := schemas.Action{Type: schemas.ActionDOMClick, RegionID: "element-1"}
	verdict := guardrails.Evaluate(action, "Next page", testCfg())
	assert.True(t, verdict.Allowed)
	assert.False(t, verdict.Pause())
	assert.False(t, verdict.Skip())
}

func TestIsDomainAllowed(t *testing.T) {
	t.Parallel()
	domains := []string{"example.com"}
	assert.True(t, guardrails.IsDomainAllowed("example.com", domains))
	assert.True(t, guardrails.IsDomainAllowed("www.example.com", domains))
	assert.True(t, guardrails.IsDomainAllowed("EXAMPLE.COM", domains))
	assert.False(t, guardrails.IsDomainAllowed("notexample.com", domains))
	assert.False(t, guardrails.IsDomainAllowed("evil.com", domains))
}

func TestIsDomainAllowedEmptyListAllowsAll(t *testing.T) {
	t.Parallel()
	assert.True(t, guardrails.IsDomainAllowed("anything.example", nil))
}
