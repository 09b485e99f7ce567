// Package config handles the macrokey settings file and the profile file
// store.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

// Capture backends.
const (
	CaptureHook   = "hook"   // raw keyboard and mouse events
	CaptureHotkey = "hotkey" // OS global hotkeys, keyboard only
)

// Injector backends.
const (
	InjectorDesktop = "desktop"
	InjectorUSB     = "usb"
)

// Settings holds the application settings.
type Settings struct {
	mu           sync.RWMutex `json:"-"`
	path         string
	Capture      string `json:"capture"`
	Injector     string `json:"injector"`
	USBSerial    string `json:"usb_serial"`
	AutoStart    bool   `json:"auto_start"`
	ServerAddr   string `json:"server_addr"`
	ProfilesPath string `json:"profiles_path"`
}

// DefaultSettings returns the default settings, saved to path.
func DefaultSettings(path string) *Settings {
	return &Settings{
		path:       path,
		Capture:    CaptureHook,
		Injector:   InjectorDesktop,
		ServerAddr: "127.0.0.1:0",
	}
}

// Dir returns the OS-appropriate config directory for macrokey.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, "macrokey"), nil
}

// Path returns the default settings file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

// Load reads the settings at path, or at Path when path is empty. A missing
// file is created with defaults.
func Load(path string) (*Settings, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeFilesystem, err, "settings path")
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s := DefaultSettings(path)
		if saveErr := s.Save(); saveErr != nil {
			return nil, fmt.Errorf("create default settings: %w", saveErr)
		}
		return s, nil
	}
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read settings")
	}

	s := DefaultSettings(path) // start with defaults so new fields get populated
	if err := json.Unmarshal(data, s); err != nil {
		return nil, errdef.Wrap(errdef.CodeValidation, err, "parse settings %s", path)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	return CheckBackends(s.Capture, s.Injector)
}

// CheckBackends validates a capture and injector backend name.
func CheckBackends(capture, injector string) error {
	switch capture {
	case CaptureHook, CaptureHotkey:
	default:
		return errdef.New(errdef.CodeValidation, "unknown capture backend %q", capture)
	}
	switch injector {
	case InjectorDesktop, InjectorUSB:
	default:
		return errdef.New(errdef.CodeValidation, "unknown injector %q", injector)
	}
	return nil
}

// JSON encodes the current settings.
func (s *Settings) JSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return data, nil
}

// Save writes the settings to disk atomically.
func (s *Settings) Save() error {
	data, err := s.JSON()
	if err != nil {
		return err
	}
	return writeFileAtomic(s.File(), data)
}

// File returns the settings file path.
func (s *Settings) File() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

func (s *Settings) GetCapture() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Capture
}

func (s *Settings) GetInjector() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Injector
}

func (s *Settings) GetUSBSerial() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.USBSerial
}

func (s *Settings) GetServerAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ServerAddr
}

// GetAutoStart returns the current auto-start setting.
func (s *Settings) GetAutoStart() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AutoStart
}

// SetAutoStart updates the auto-start setting and saves to disk.
func (s *Settings) SetAutoStart(enabled bool) error {
	s.mu.Lock()
	s.AutoStart = enabled
	s.mu.Unlock()
	return s.Save()
}

// ProfilesFile returns the profile document path. Relative paths and the
// empty default resolve next to the settings file.
func (s *Settings) ProfilesFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.ProfilesPath
	if p == "" {
		p = "profiles.json"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(s.path), p)
}

// writeFileAtomic writes data to a temp file next to p, then renames it.
func writeFileAtomic(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create config dir")
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write temp file")
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return errdef.Wrap(errdef.CodeFilesystem, err, "rename %s", filepath.Base(p))
	}
	return nil
}
