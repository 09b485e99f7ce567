// Package autostart registers macrokey to start on login. Each platform has
// its own implementation file.
package autostart

import (
	"os"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

// appPath returns the path to the currently running executable.
func appPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errdef.Wrap(errdef.CodeFilesystem, err, "get executable path")
	}
	return exe, nil
}

// Set enables or disables start on login. args are passed to the
// executable when it is launched.
func Set(enabled bool, args ...string) error {
	if enabled {
		return Enable(args...)
	}
	return Disable()
}
