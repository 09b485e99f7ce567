//go:build linux

package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnableDisable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.False(t, IsEnabled())
	require.NoError(t, Set(true, "run", "--settings", "/tmp/my settings.json"))
	assert.True(t, IsEnabled())

	data, err := os.ReadFile(filepath.Join(dir, "autostart", desktopFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `run --settings "/tmp/my settings.json"`)

	require.NoError(t, Set(false))
	assert.False(t, IsEnabled())
	require.NoError(t, Disable(), "disabling twice is fine")
}

func TestExecLine(t *testing.T) {
	assert.Equal(t, "/usr/bin/macrokey run", execLine("/usr/bin/macrokey", []string{"run"}))
	assert.Equal(t, `"/opt/my app/mk" "a\"b"`, execLine("/opt/my app/mk", []string{`a"b`}))
}

func TestDesktopEntry(t *testing.T) {
	entry := string(desktopEntry("/usr/bin/macrokey run"))
	assert.True(t, strings.HasPrefix(entry, "[Desktop Entry]\n"))
	assert.Contains(t, entry, "\nExec=/usr/bin/macrokey run\n")
	assert.Contains(t, entry, "\nX-GNOME-Autostart-enabled=true\n")
}
