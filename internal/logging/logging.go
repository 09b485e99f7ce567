// Package logging configures the process logger. Components derive
// prefixed children with For after Initialize has run.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const appName = "macrokey"

var (
	mu   sync.RWMutex
	root = newLogger(os.Stderr, log.InfoLevel, log.TextFormatter)
)

func newLogger(w io.Writer, level log.Level, f log.Formatter) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           level,
		Formatter:       f,
	})
	return l
}

// Logger returns the process logger.
func Logger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// For returns a child logger whose lines carry the component prefix.
func For(component string) *log.Logger {
	return Logger().WithPrefix(component)
}

// SetOutput points the process logger at w. Tests use it to silence or
// capture output.
func SetOutput(w io.Writer, level log.Level) {
	mu.Lock()
	defer mu.Unlock()
	root = newLogger(w, level, log.TextFormatter)
}

// Initialize sets up logging. Without debug output goes to stderr at info
// level. With debug, JSON lines at debug level go to debugFile, or to a
// fresh uuid-named file in the OS log directory keeping at most maxLogFiles.
func Initialize(debug bool, debugFile string, maxLogFiles int) (string, error) {
	if os.Getenv("MACROKEY_DEBUG") == "1" {
		debug = true
	}
	if env := os.Getenv("MACROKEY_DEBUG_FILE"); env != "" && debugFile == "" {
		debugFile = env
	}
	if env := os.Getenv("MACROKEY_MAX_LOG_FILES"); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			maxLogFiles = n
		}
	}

	if !debug && debugFile == "" {
		SetOutput(os.Stderr, log.InfoLevel)
		return "", nil
	}

	path := debugFile
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("create log directory: %w", err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return "", fmt.Errorf("log directory: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create log directory: %w", err)
		}
		if maxLogFiles > 0 {
			if err := Rotate(dir, maxLogFiles); err != nil {
				fmt.Fprintf(os.Stderr, "warning: log rotation failed: %v\n", err)
			}
		}
		path = filepath.Join(dir, uuid.New().String()+".log")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}

	mu.Lock()
	root = newLogger(f, log.DebugLevel, log.JSONFormatter)
	mu.Unlock()
	root.Info("debug logging initialized", "file", path)
	return path, nil
}

// Rotate deletes the oldest .log files in dir so that one more file still
// fits under keep.
func Rotate(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read log directory: %w", err)
	}

	type logFile struct {
		path    string
		modTime time.Time
	}
	var files []logFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{path: filepath.Join(dir, e.Name()), modTime: info.ModTime()})
	}
	if len(files) < keep {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	for i := 0; i < len(files)-keep+1; i++ {
		if err := os.Remove(files[i].path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: delete old log file %s: %v\n", files[i].path, err)
		}
	}
	return nil
}

// Dir returns the OS-specific log directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", appName), nil
	case "linux":
		state := os.Getenv("XDG_STATE_HOME")
		if state == "" {
			state = filepath.Join(home, ".local", "state")
		}
		return filepath.Join(state, appName), nil
	case "windows":
		local := os.Getenv("LOCALAPPDATA")
		if local == "" {
			local = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(local, appName, "logs"), nil
	default:
		return filepath.Join(home, "."+appName, "logs"), nil
	}
}
