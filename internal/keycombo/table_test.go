package keycombo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

func TestTableMostSpecificWins(t *testing.T) {
	var tbl Table[string]
	require.NoError(t, tbl.Add("KeyA", "plain"))
	require.NoError(t, tbl.Add("Shift_KeyA", "shift"))
	require.NoError(t, tbl.Add("Control_Shift_KeyA", "ctrl-shift"))

	assert.Equal(t, []string{"plain"}, tbl.Match(Event{Type: KeyDown, Code: "KeyA"}))
	assert.Equal(t, []string{"shift"}, tbl.Match(Event{Type: KeyDown, Code: "KeyA", Shift: true}))
	assert.Equal(t, []string{"ctrl-shift"}, tbl.Match(Event{Type: KeyDown, Code: "KeyA", Shift: true, Ctrl: true}))
	// Alt is not named anywhere, so it does not prevent the plain binding.
	assert.Equal(t, []string{"plain"}, tbl.Match(Event{Type: KeyDown, Code: "KeyA", Alt: true}))
	assert.Empty(t, tbl.Match(Event{Type: KeyDown, Code: "KeyB"}))
}

func TestTableEqualSpecificityInRegistrationOrder(t *testing.T) {
	var tbl Table[int]
	require.NoError(t, tbl.Add("Shift_KeyQ", 1))
	require.NoError(t, tbl.Add("Control_KeyQ", 2))

	got := tbl.Match(Event{Type: KeyDown, Code: "KeyQ", Ctrl: true, Shift: true})
	assert.Equal(t, []int{1, 2}, got)
}

func TestTableRejectsDuplicates(t *testing.T) {
	var tbl Table[int]
	require.NoError(t, tbl.Add("Control_Alt_KeyD", 1))

	err := tbl.Add("Alt_Control_KeyD", 2)
	require.Error(t, err)
	assert.True(t, errdef.Is(err, errdef.CodeValidation))
	assert.Equal(t, 1, tbl.Len())

	v, ok := tbl.Get("Control_Alt_KeyD")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTableRejectsMalformed(t *testing.T) {
	var tbl Table[int]
	err := tbl.Add("A_B_C_D_E", 1)
	assert.True(t, errdef.Is(err, errdef.CodeValidation))
	assert.Zero(t, tbl.Len())
}

func TestTableIDsAndReset(t *testing.T) {
	var tbl Table[int]
	require.NoError(t, tbl.Add("LeftButton", 1))
	require.NoError(t, tbl.Add("ShiftRight_F1", 2))

	assert.Equal(t, []string{"LeftButton", "Shift_F1"}, tbl.IDs())

	tbl.Reset()
	assert.Zero(t, tbl.Len())
	_, ok := tbl.Get("LeftButton")
	assert.False(t, ok)
}
