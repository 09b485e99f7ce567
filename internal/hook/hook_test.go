package hook

import (
	"context"
	"testing"

	gohook "github.com/robotn/gohook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
	"github.com/HopIT-Hub/macrokey/internal/keycombo"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   gohook.Event
		want keycombo.Event
		ok   bool
	}{
		{
			name: "ctrl a",
			in:   gohook.Event{Kind: gohook.KeyHold, Keycode: 0x001E, Mask: maskCtrlL},
			want: keycombo.Event{Type: keycombo.KeyDown, Code: "KeyA", Ctrl: true},
			ok:   true,
		},
		{
			name: "right side modifiers",
			in:   gohook.Event{Kind: gohook.KeyHold, Keycode: 0x003F, Mask: maskAltR | maskShiftR},
			want: keycombo.Event{Type: keycombo.KeyDown, Code: "F5", Alt: true, Shift: true},
			ok:   true,
		},
		{
			name: "control key itself",
			in:   gohook.Event{Kind: gohook.KeyHold, Keycode: 0x0E1D, Mask: maskCtrlR},
			want: keycombo.Event{Type: keycombo.KeyDown, Code: "ControlRight", Ctrl: true},
			ok:   true,
		},
		{
			name: "middle button",
			in:   gohook.Event{Kind: gohook.MouseHold, Button: 3, Mask: maskShiftL},
			want: keycombo.Event{Type: keycombo.MouseDown, Button: 1, Shift: true},
			ok:   true,
		},
		{
			name: "right button",
			in:   gohook.Event{Kind: gohook.MouseHold, Button: 2},
			want: keycombo.Event{Type: keycombo.MouseDown, Button: 2},
			ok:   true,
		},
		{name: "key release", in: gohook.Event{Kind: gohook.KeyUp, Keycode: 0x001E}},
		{name: "typed", in: gohook.Event{Kind: gohook.KeyDown, Keycode: 0x001E}},
		{name: "unknown key", in: gohook.Event{Kind: gohook.KeyHold, Keycode: 0x7777}},
		{name: "unknown button", in: gohook.Event{Kind: gohook.MouseHold, Button: 9}},
		{name: "move", in: gohook.Event{Kind: gohook.MouseMove}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Translate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
				assert.NotEmpty(t, keycombo.Encode(got))
			}
		})
	}
}

func TestTranslatedEventsMatchTheirIdentifier(t *testing.T) {
	for vc, code := range vcToCode {
		ev, ok := Translate(gohook.Event{Kind: gohook.KeyHold, Keycode: vc, Mask: maskCtrlL | maskShiftL})
		require.True(t, ok, code)
		pred, err := keycombo.Decode(keycombo.Encode(ev))
		require.NoError(t, err, code)
		assert.True(t, pred(ev), code)
	}
}

func TestManagerHandle(t *testing.T) {
	m := NewManager()
	var plain, shifted, click int
	require.NoError(t, m.Register("KeyA", func() { plain++ }))
	require.NoError(t, m.Register("Shift_KeyA", func() { shifted++ }))
	require.NoError(t, m.Register("Control_LeftButton", func() { click++ }))

	// Not applied yet.
	assert.Equal(t, 0, m.Handle(keycombo.Event{Type: keycombo.KeyDown, Code: "KeyA"}))

	require.NoError(t, m.Apply(context.Background()))
	assert.Equal(t, 1, m.Handle(keycombo.Event{Type: keycombo.KeyDown, Code: "KeyA"}))
	assert.Equal(t, 1, m.Handle(keycombo.Event{Type: keycombo.KeyDown, Code: "KeyA", Shift: true}))
	assert.Equal(t, 1, m.Handle(keycombo.Event{Type: keycombo.MouseDown, Button: 0, Ctrl: true}))
	assert.Equal(t, 0, m.Handle(keycombo.Event{Type: keycombo.MouseDown, Button: 0}))
	assert.Equal(t, []int{1, 1, 1}, []int{plain, shifted, click})

	require.NoError(t, m.UnregisterAll())
	assert.Equal(t, 0, m.Handle(keycombo.Event{Type: keycombo.KeyDown, Code: "KeyA"}))
}

func TestManagerRegisterReplaces(t *testing.T) {
	m := NewManager()
	var first, second int
	require.NoError(t, m.Register("Alt_KeyQ", func() { first++ }))
	require.NoError(t, m.Register("AltLeft_KeyQ", func() { second++ }))
	require.NoError(t, m.Apply(context.Background()))

	m.Handle(keycombo.Event{Type: keycombo.KeyDown, Code: "KeyQ", Alt: true})
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	err := m.Register("Alt_", func() {})
	assert.True(t, errdef.Is(err, errdef.CodeValidation))
}

func TestManagerObserve(t *testing.T) {
	m := NewManager()
	var seen []string
	m.Observe = func(ev keycombo.Event) { seen = append(seen, keycombo.Encode(ev)) }

	m.Handle(keycombo.Event{Type: keycombo.KeyDown, Code: "KeyZ", Ctrl: true})
	assert.Equal(t, []string{"Control_KeyZ"}, seen)
}
