package hotkey

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.design/x/hotkey"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
	"github.com/HopIT-Hub/macrokey/internal/keycombo"
	"github.com/HopIT-Hub/macrokey/internal/logging"
)

// autoRepeatWindow is how soon after a key-up a key-down is treated as X11
// auto-repeat rather than a new press.
const autoRepeatWindow = 50 * time.Millisecond

type binding struct {
	id    string
	mods  []hotkey.Modifier
	key   hotkey.Key
	fire  func()
	hk    *hotkey.Hotkey
	close context.CancelFunc
}

// Manager registers one OS global hotkey per binding identifier.
type Manager struct {
	mu       sync.Mutex
	bindings []*binding
	log      *log.Logger
}

// NewManager creates an empty hotkey manager.
func NewManager() *Manager {
	return &Manager{log: logging.For("hotkey")}
}

// Register records fire for the canonical identifier id. The OS hotkey is
// created by Apply. A later Register for the same id replaces the handler.
func (m *Manager) Register(id string, fire func()) error {
	c, err := keycombo.Parse(id)
	if err != nil {
		return err
	}
	key, err := ParseKey(c.Primary)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b := &binding{id: c.String(), mods: ParseModifiers(c), key: key, fire: fire}
	for i, old := range m.bindings {
		if old.id == b.id {
			m.stopLocked(old)
			m.bindings[i] = b
			return nil
		}
	}
	m.bindings = append(m.bindings, b)
	return nil
}

// UnregisterAll removes every hotkey and forgets the handlers.
func (m *Manager) UnregisterAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bindings {
		m.stopLocked(b)
	}
	m.bindings = nil
	return nil
}

// Apply registers every recorded binding that is not active yet. Bindings
// the OS refuses are reported; the others stay registered. Listeners outlive
// ctx and stop on UnregisterAll or Close.
func (m *Manager) Apply(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, b := range m.bindings {
		if b.hk != nil {
			continue
		}
		hk := hotkey.New(b.mods, b.key)
		if err := hk.Register(); err != nil {
			errs = append(errs, errdef.Wrap(errdef.CodeExternal, err, "register hotkey %s", b.id))
			continue
		}
		lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.hk, b.close = hk, cancel
		go m.listen(lctx, hk, b.fire)
		m.log.Info("registered", "id", b.id)
	}
	return errors.Join(errs...)
}

// listen calls fire on every key press until ctx is done.
func (m *Manager) listen(ctx context.Context, hk *hotkey.Hotkey, fire func()) {
	// X11 auto-repeat generates spurious keyup/keydown pairs while a key is
	// held. A keydown within autoRepeatWindow of the last keyup is ignored.
	isLinux := runtime.GOOS == "linux"
	var lastUp time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
			if isLinux && !lastUp.IsZero() && time.Since(lastUp) < autoRepeatWindow {
				continue
			}
			if fire != nil {
				fire()
			}
		case <-hk.Keyup():
			lastUp = time.Now()
		}
	}
}

// Close unregisters everything.
func (m *Manager) Close() {
	_ = m.UnregisterAll()
}

func (m *Manager) stopLocked(b *binding) {
	if b.close != nil {
		b.close()
		b.close = nil
	}
	if b.hk != nil {
		if err := b.hk.Unregister(); err != nil {
			m.log.Warn("unregister", "id", b.id, "err", err)
		}
		b.hk = nil
	}
}

// IDs returns the recorded identifiers in registration order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.bindings))
	for i, b := range m.bindings {
		ids[i] = b.id
	}
	return ids
}
