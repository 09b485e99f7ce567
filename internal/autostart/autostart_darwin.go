//go:build darwin

package autostart

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

const launchAgentLabel = "co.hopit.macrokey"

var plistTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": xmlEscape,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{ xml .Label }}</string>
	<key>ProgramArguments</key>
	<array>
{{- range .Args }}
		<string>{{ xml . }}</string>
{{- end }}
	</array>
	<key>ProcessType</key>
	<string>Interactive</string>
	<key>RunAtLoad</key>
	<true/>
</dict>
</plist>
`))

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func plistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errdef.Wrap(errdef.CodeFilesystem, err, "user home dir")
	}
	return filepath.Join(home, "Library", "LaunchAgents", launchAgentLabel+".plist"), nil
}

func renderPlist(args []string) ([]byte, error) {
	var buf bytes.Buffer
	err := plistTemplate.Execute(&buf, struct {
		Label string
		Args  []string
	}{launchAgentLabel, args})
	return buf.Bytes(), err
}

// IsEnabled reports whether the LaunchAgent is installed.
func IsEnabled() bool {
	p, err := plistPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Enable installs a LaunchAgent that runs the executable with args at login.
func Enable(args ...string) error {
	exe, err := appPath()
	if err != nil {
		return err
	}
	p, err := plistPath()
	if err != nil {
		return err
	}
	data, err := renderPlist(append([]string{exe}, args...))
	if err != nil {
		return errdef.Wrap(errdef.CodeUnknown, err, "render plist")
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create LaunchAgents dir")
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write plist")
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return errdef.Wrap(errdef.CodeFilesystem, err, "install plist")
	}
	return nil
}

// Disable removes the LaunchAgent. Missing is not an error.
func Disable() error {
	p, err := plistPath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errdef.Wrap(errdef.CodeFilesystem, err, "remove plist")
	}
	return nil
}
