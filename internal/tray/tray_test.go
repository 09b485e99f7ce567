package tray

import (
	"bytes"
	"image/png"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HopIT-Hub/macrokey/internal/profile"
)

func TestIconFor(t *testing.T) {
	assert.Equal(t, IconActive, iconFor(profile.Notification{TrayVisible: true, ScriptActive: true}))
	assert.Equal(t, IconInactive, iconFor(profile.Notification{TrayVisible: true}))
	assert.Equal(t, IconHidden, iconFor(profile.Notification{ScriptActive: true}))
}

func TestLabels(t *testing.T) {
	n := profile.Notification{ScriptActive: true, ActiveSubProfile: 3, Main: profile.ProfileInfo{Title: "Gaming", ID: 3}}
	assert.Equal(t, "Gaming (3)", subProfileLabel(n))
	assert.Equal(t, "macrokey: active, Gaming (3)", tooltip(n))

	n = profile.Notification{Main: profile.ProfileInfo{ID: 2}, ActiveSubProfile: 2}
	assert.Equal(t, "macrokey: paused, variant2 (2)", tooltip(n))
}

func TestIconsDecode(t *testing.T) {
	for _, icon := range [][]byte{IconActive, IconInactive, IconHidden} {
		data := icon
		if runtime.GOOS == "windows" {
			data = data[22:]
		}
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, iconSize, img.Bounds().Dx())
	}
}

func TestWrapICO(t *testing.T) {
	out := wrapICO([]byte("png!"))
	assert.Len(t, out, 26)
	assert.Equal(t, []byte{0, 0, 1, 0, 1, 0}, out[:6])
	assert.Equal(t, []byte("png!"), out[22:])
}
