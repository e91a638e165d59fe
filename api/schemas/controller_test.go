package schemas_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrel-run/pilot/api/schemas"
)

func TestNewControllerState(t *testing.T) {
	t.Parallel()
	state := schemas.NewControllerState()
	assert.Equal(t, 0, state.StepCount)
	assert.Equal(t, schemas.MaxAutoScrolls, state.Scroll.MaxAutoScrolls)
	assert.False(t, state.Scroll.ContentVisible)
}

func TestScrollStateReset(t *testing.T) {
	t.Parallel()
	s := schemas.ScrollState{
		ScrollCount:      3,
		MaxAutoScrolls:   5,
		ContentVisible:   true,
		BottomReached:    true,
		LastScrollY:      400,
		LastScrollHeight: 2000,
	}
	s.Reset()
	assert.Equal(t, 0, s.ScrollCount)
	assert.False(t, s.ContentVisible)
	assert.False(t, s.BottomReached)
	assert.Equal(t, 0.0, s.LastScrollY)
	assert.Equal(t, 5, s.MaxAutoScrolls)
}

func TestScrollStateResetDefaultsMaxAutoScrolls(t *testing.T) {
	t.Parallel()
	var s schemas.ScrollState
	s.Reset()
	assert.Equal(t, schemas.MaxAutoScrolls, s.MaxAutoScrolls)
}
