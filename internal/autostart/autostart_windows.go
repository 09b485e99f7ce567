//go:build windows

package autostart

import (
	"errors"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

const (
	regKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`
	regValName = "macrokey"
)

// commandLine joins exe and args with Windows quoting rules.
func commandLine(exe string, args []string) string {
	line := windows.EscapeArg(exe)
	for _, a := range args {
		line += " " + windows.EscapeArg(a)
	}
	return line
}

// runKey opens the per-user Run key.
func runKey(access uint32) (registry.Key, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, regKeyPath, access)
	if err != nil {
		return 0, errdef.Wrap(errdef.CodeFilesystem, err, "open HKCU\\%s", regKeyPath)
	}
	return k, nil
}

// IsEnabled reports whether the Run value is present.
func IsEnabled() bool {
	k, err := runKey(registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer k.Close()
	_, _, err = k.GetStringValue(regValName)
	return err == nil
}

// Enable sets the Run value to the executable and args.
func Enable(args ...string) error {
	exe, err := appPath()
	if err != nil {
		return err
	}
	k, err := runKey(registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	if err := k.SetStringValue(regValName, commandLine(exe, args)); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "set %s", regValName)
	}
	return nil
}

// Disable deletes the Run value. Missing is not an error.
func Disable() error {
	k, err := runKey(registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	if err := k.DeleteValue(regValName); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return errdef.Wrap(errdef.CodeFilesystem, err, "delete %s", regValName)
	}
	return nil
}
