package schemas_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrel-run/pilot/api/schemas"
)

func TestBBoxMinDimension(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 5.0, schemas.BBox{W: 5, H: 20}.MinDimension())
	assert.Equal(t, 5.0, schemas.BBox{W: 20, H: 5}.MinDimension())
	assert.Equal(t, 0.0, schemas.BBox{W: 0, H: 20}.MinDimension())
}

func TestRegionIsInput(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		role    schemas.Role
		isInput bool
	}{
		{schemas.RoleTextbox, true},
		{schemas.RoleTextarea, true},
		{schemas.RoleSelect, true},
		{schemas.RoleButton, false},
		{schemas.RoleLink, false},
		{schemas.RoleOther, false},
	}
	for _, tc := range testCases {
		r := schemas.Region{Role: tc.role}
		assert.Equal(t, tc.isInput, r.IsInput(), "role %s", tc.role)
	}
}

func TestDiffRegionLabels(t *testing.T) {
	t.Parallel()

	diff := schemas.DiffRegionLabels(
		[]string{"A", "B", "C"},
		[]string{"B", "C", "D"},
	)
	assert.Equal(t, []string{"D"}, diff.Appeared)
	assert.Equal(t, []string{"A"}, diff.Disappeared)
}

func TestDiffRegionLabelsNoChange(t *testing.T) {
	t.Parallel()
	diff := schemas.DiffRegionLabels([]string{"A", "B"}, []string{"A", "B"})
	assert.Empty(t, diff.Appeared)
	assert.Empty(t, diff.Disappeared)
}

func TestDiffRegionLabelsCapsAtFifteen(t *testing.T) {
	t.Parallel()
	var previous, current []string
	for i := 0; i < 20; i++ {
		current = append(current, string(rune('a'+i)))
	}
	diff := schemas.DiffRegionLabels(previous, current)
	assert.Len(t, diff.Appeared, 15)
	assert.Empty(t, diff.Disappeared)
}
