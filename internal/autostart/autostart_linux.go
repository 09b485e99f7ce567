//go:build linux

package autostart

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

const desktopFileName = "macrokey.desktop"

// desktopEntry renders an XDG autostart entry running exec.
func desktopEntry(exec string) []byte {
	fields := [][2]string{
		{"Type", "Application"},
		{"Name", "macrokey"},
		{"Comment", "Keyboard and mouse macros bound to key combinations"},
		{"Exec", exec},
		{"Icon", "macrokey"},
		{"Categories", "Utility;"},
		{"Terminal", "false"},
		{"X-GNOME-Autostart-enabled", "true"},
	}
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	for _, f := range fields {
		b.WriteString(f[0] + "=" + f[1] + "\n")
	}
	return []byte(b.String())
}

// autostartDir honours XDG_CONFIG_HOME through os.UserConfigDir.
func autostartDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errdef.Wrap(errdef.CodeFilesystem, err, "user config dir")
	}
	return filepath.Join(dir, "autostart"), nil
}

// execLine quotes every argument that needs it for the Exec key.
func execLine(exe string, args []string) string {
	quote := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{exe}, args...) {
		if strings.ContainsAny(a, " \t\"'\\") {
			a = `"` + quote.Replace(a) + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// IsEnabled reports whether the autostart entry exists.
func IsEnabled() bool {
	dir, err := autostartDir()
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(dir, desktopFileName))
	return err == nil
}

// Enable writes an autostart entry running the executable with args.
func Enable(args ...string) error {
	exe, err := appPath()
	if err != nil {
		return err
	}
	dir, err := autostartDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create %s", dir)
	}

	p := filepath.Join(dir, desktopFileName)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, desktopEntry(execLine(exe, args)), 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write desktop entry")
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return errdef.Wrap(errdef.CodeFilesystem, err, "install desktop entry")
	}
	return nil
}

// Disable removes the autostart entry. Missing is not an error.
func Disable() error {
	dir, err := autostartDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, desktopFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errdef.Wrap(errdef.CodeFilesystem, err, "remove desktop entry")
	}
	return nil
}
