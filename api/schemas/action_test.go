package schemas_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-run/pilot/api/schemas"
)

func TestActionValidate(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		action  schemas.Action
		wantErr bool
	}{
		{"vision click with regionId ok", schemas.Action{Type: schemas.ActionVisionClick, RegionID: "element-aaaa0000"}, false},
		{"vision click with role+name ok", schemas.Action{Type: schemas.ActionVisionClick, Role: schemas.RoleButton, Name: "Submit"}, false},
		{"dom click with no target fails", schemas.Action{Type: schemas.ActionDOMClick}, true},
		{"fill with exactly one target ok", schemas.Action{Type: schemas.ActionDOMFill, RegionID: "element-aaaa0000", Value: "hi"}, false},
		{"fill with two targets fails", schemas.Action{Type: schemas.ActionDOMFill, RegionID: "element-aaaa0000", Selector: "#x", Value: "hi"}, true},
		{"fill with empty value fails", schemas.Action{Type: schemas.ActionVisionFill, RegionID: "element-aaaa0000"}, true},
		{"key press with key ok", schemas.Action{Type: schemas.ActionKeyPress, KeyName: "Enter"}, false},
		{"key press without key fails", schemas.Action{Type: schemas.ActionKeyPress}, true},
		{"scroll with direction ok", schemas.Action{Type: schemas.ActionScroll, Direction: schemas.ScrollDown}, false},
		{"scroll without direction fails", schemas.Action{Type: schemas.ActionScroll}, true},
		{"wait with no fields ok", schemas.Action{Type: schemas.ActionWait}, false},
		{"ask_user with message ok", schemas.Action{Type: schemas.ActionAskUser, Message: "need help"}, false},
		{"ask_user without message fails", schemas.Action{Type: schemas.ActionAskUser}, true},
		{"confirm without message fails", schemas.Action{Type: schemas.ActionConfirm}, true},
		{"done with no fields ok", schemas.Action{Type: schemas.ActionDone}, false},
		{"unknown type fails", schemas.Action{Type: "TELEPORT"}, true},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.action.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, schemas.ErrSchemaInvalid)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestActionRoundTrip(t *testing.T) {
	t.Parallel()
	variants := []schemas.Action{
		{Type: schemas.ActionVisionClick, RegionID: "element-00000001"},
		{Type: schemas.ActionVisionFill, RegionID: "element-00000002", Value: "hello"},
		{Type: schemas.ActionDOMClick, Role: schemas.RoleButton, Name: "Submit"},
		{Type: schemas.ActionDOMFill, Selector: "#email", Value: "a@b.com"},
		{Type: schemas.ActionKeyPress, KeyName: "Enter"},
		{Type: schemas.ActionScroll, Direction: schemas.ScrollDown, Amount: 400},
		{Type: schemas.ActionWait, DurationMs: 1500},
		{Type: schemas.ActionAskUser, Message: "need auth"},
		{Type: schemas.ActionConfirm, Message: "sure?", ActionID: "abc"},
		{Type: schemas.ActionDone, Reason: "task complete"},
	}

	for _, original := range variants {
		raw, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded schemas.Action
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, original, decoded)
		assert.NoError(t, decoded.Validate())
	}
}

func TestActionIsControllerOwned(t *testing.T) {
	t.Parallel()
	assert.True(t, schemas.Action{Type: schemas.ActionDone}.IsControllerOwned())
	assert.True(t, schemas.Action{Type: schemas.ActionAskUser}.IsControllerOwned())
	assert.True(t, schemas.Action{Type: schemas.ActionConfirm}.IsControllerOwned())
	assert.False(t, schemas.Action{Type: schemas.ActionVisionClick}.IsControllerOwned())
	assert.False(t, schemas.Action{Type: schemas.ActionScroll}.IsControllerOwned())
}

func TestActionKey(t *testing.T) {
	t.Parallel()
	a := schemas.Action{Type: schemas.ActionDOMClick}
	assert.Equal(t, "DOM_CLICK:Submit", a.Key("Submit"))
	assert.Equal(t, "DOM_CLICK:", a.Key(""))
}

func TestActionValidateErrorIsSentinel(t *testing.T) {
	t.Parallel()
	err := schemas.Action{Type: "BOGUS"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemas.ErrSchemaInvalid))
}
