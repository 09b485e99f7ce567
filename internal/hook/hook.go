// Package hook is a capture backend reading the raw keyboard and mouse event
// stream, so it can bind mouse buttons as well as keys.
package hook

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	gohook "github.com/robotn/gohook"

	"github.com/HopIT-Hub/macrokey/internal/keycombo"
	"github.com/HopIT-Hub/macrokey/internal/logging"
)

// Translate converts a raw event to a key-combination event. Only key and
// mouse-button presses are recognised.
func Translate(ev gohook.Event) (keycombo.Event, bool) {
	out := keycombo.Event{
		Ctrl:  ev.Mask&maskCtrl != 0,
		Alt:   ev.Mask&maskAlt != 0,
		Shift: ev.Mask&maskShift != 0,
	}
	switch ev.Kind {
	case gohook.KeyHold:
		code, ok := vcToCode[ev.Keycode]
		if !ok {
			return keycombo.Event{}, false
		}
		out.Type, out.Code = keycombo.KeyDown, code
	case gohook.MouseHold:
		idx, ok := buttonIndex[ev.Button]
		if !ok {
			return keycombo.Event{}, false
		}
		out.Type, out.Button = keycombo.MouseDown, idx
	default:
		return keycombo.Event{}, false
	}
	return out, true
}

type handler struct {
	id   string
	fire func()
}

// Manager matches the raw event stream against registered identifiers.
type Manager struct {
	mu      sync.Mutex
	pending []handler
	table   *keycombo.Table[func()]
	log     *log.Logger

	// Observe, if set, sees every recognised event before matching.
	Observe func(keycombo.Event)
}

// NewManager creates a manager with no bindings.
func NewManager() *Manager {
	return &Manager{table: &keycombo.Table[func()]{}, log: logging.For("hook")}
}

// Register records fire for id. A later Register for the same id replaces
// the handler. Nothing matches until Apply.
func (m *Manager) Register(id string, fire func()) error {
	c, err := keycombo.Parse(id)
	if err != nil {
		return err
	}
	id = c.String()

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, h := range m.pending {
		if h.id == id {
			m.pending[i].fire = fire
			return nil
		}
	}
	m.pending = append(m.pending, handler{id: id, fire: fire})
	return nil
}

// UnregisterAll forgets every handler, including the active ones.
func (m *Manager) UnregisterAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	m.table.Reset()
	return nil
}

// Apply makes the recorded handlers the active matching table.
func (m *Manager) Apply(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := &keycombo.Table[func()]{}
	for _, h := range m.pending {
		if err := table.Add(h.id, h.fire); err != nil {
			return err
		}
	}
	m.table = table
	m.log.Debug("applied", "count", table.Len())
	return nil
}

// Handle matches one event and calls the handlers it fires. It returns the
// number of handlers called.
func (m *Manager) Handle(ev keycombo.Event) int {
	if m.Observe != nil {
		m.Observe(ev)
	}
	m.mu.Lock()
	fires := m.table.Match(ev)
	m.mu.Unlock()
	for _, fire := range fires {
		fire()
	}
	return len(fires)
}

// Run consumes the OS event stream until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	events := gohook.Start()
	defer gohook.End()
	m.log.Info("listening")

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-events:
			if !ok {
				return nil
			}
			if ev, ok := Translate(raw); ok {
				m.Handle(ev)
			}
		}
	}
}
