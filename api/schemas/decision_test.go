package schemas_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-run/pilot/api/schemas"
)

func TestDecisionValidate(t *testing.T) {
	t.Parallel()

	valid := schemas.Decision{Action: schemas.Action{Type: schemas.ActionDone}, Confidence: 0.8}
	require.NoError(t, valid.Validate())

	badAction := schemas.Decision{Action: schemas.Action{Type: "BOGUS"}, Confidence: 0.5}
	require.Error(t, badAction.Validate())

	badConfidence := schemas.Decision{Action: schemas.Action{Type: schemas.ActionDone}, Confidence: 1.5}
	err := badConfidence.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrSchemaInvalid)
}

func TestNormaliseTextSnippet(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello world", schemas.NormaliseTextSnippet("  hello   \n\t world  "))
	assert.Equal(t, "", schemas.NormaliseTextSnippet("   \n\t  "))

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, schemas.NormaliseTextSnippet(string(long)), 400)
}

func TestComputeOutcome(t *testing.T) {
	t.Parallel()

	same := schemas.ComputeOutcome("https://a.com", "https://a.com", "A", "A", "hello", "hello")
	assert.False(t, same.StateChanged)

	urlChanged := schemas.ComputeOutcome("https://a.com", "https://b.com", "A", "A", "hello", "hello")
	assert.True(t, urlChanged.StateChanged)

	textChanged := schemas.ComputeOutcome("https://a.com", "https://a.com", "A", "A", "hello", "goodbye")
	assert.True(t, textChanged.StateChanged)

	whitespaceOnly := schemas.ComputeOutcome("https://a.com", "https://a.com", "A", "A", "hello  world", "hello world")
	assert.False(t, whitespaceOnly.StateChanged)
}

func TestFeedbackHasContentDiff(t *testing.T) {
	t.Parallel()

	empty := schemas.Feedback{}
	assert.False(t, empty.HasContentDiff())

	withAppeared := schemas.Feedback{RegionDiff: &schemas.RegionDiff{Appeared: []string{"X"}}}
	assert.True(t, withAppeared.HasContentDiff())

	withDisappeared := schemas.Feedback{RegionDiff: &schemas.RegionDiff{Disappeared: []string{"X"}}}
	assert.True(t, withDisappeared.HasContentDiff())

	emptyDiff := schemas.Feedback{RegionDiff: &schemas.RegionDiff{}}
	assert.False(t, emptyDiff.HasContentDiff())
}
