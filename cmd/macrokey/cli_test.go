package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HopIT-Hub/macrokey/internal/keycombo"
	"github.com/HopIT-Hub/macrokey/internal/profile"
)

func writeProfile(t *testing.T, keys ...string) string {
	t.Helper()
	actions := ""
	for i, k := range keys {
		if i > 0 {
			actions += ","
		}
		actions += `{"name":"b","keyActive":"` + k + `","action":{"id":1,"params":[]}}`
	}
	doc := `{"activeMainProfile":0,"mainProfiles":[{"activeSubProfile":0,"title":"Main","id":0,
		"main":{"title":"variant0","id":0,"keybdActions":[` + actions + `]},"subVariants":[]}]}`
	p := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))
	return p
}

func TestValidate(t *testing.T) {
	cmd := ValidateCmd{File: writeProfile(t, "Control_KeyA", "Alt_LeftButton", "")}
	assert.NoError(t, cmd.Run(&CLI{}))

	cmd = ValidateCmd{File: writeProfile(t, "Control_KeyA", "ControlLeft_KeyA", "Hyper_KeyB")}
	assert.EqualError(t, cmd.Run(&CLI{}), "2 invalid bindings")
}

func TestKeys(t *testing.T) {
	assert.NoError(t, (&KeysCmd{IDs: []string{"Shift_Control_KeyA", "X1Button"}}).Run(&CLI{}))
	assert.Error(t, (&KeysCmd{IDs: []string{"KeyA", "Control_"}}).Run(&CLI{}))
	assert.Error(t, (&KeysCmd{}).Run(&CLI{}))
}

func TestCheckSubProfileNamesFirstBinding(t *testing.T) {
	sp := profile.SubProfile{Bindings: []*profile.Binding{
		{Name: "a", KeyActive: "Shift_Control_KeyA"},
		{Name: "b", KeyActive: ""},
		{Name: "c", KeyActive: "ControlRight_ShiftLeft_KeyA"},
		{Name: "d", KeyActive: "Nope_KeyA"},
	}}
	var table keycombo.Table[int]
	lines := checkSubProfile(&table, sp)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `binding 2 "c"`)
	assert.Contains(t, lines[0], "(binding 0)")
	assert.Contains(t, lines[1], `binding 3 "d"`)
	assert.Equal(t, []string{"Control_Shift_KeyA"}, table.IDs())
}

func TestKeysWatchPrinter(t *testing.T) {
	var buf bytes.Buffer
	emit := printEvents(&buf)
	emit(keycombo.Event{Type: keycombo.KeyDown, Code: "KeyA", Ctrl: true, Shift: true})
	emit(keycombo.Event{Type: keycombo.MouseDown, Button: 0, Alt: true})
	assert.Equal(t, "Control_Shift_KeyA\nAlt_LeftButton\n", buf.String())
}
