// Package dispatch compiles the live bindings into guarded action handlers
// and hands them to the capture service.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/HopIT-Hub/macrokey/internal/action"
	"github.com/HopIT-Hub/macrokey/internal/errdef"
	"github.com/HopIT-Hub/macrokey/internal/keycombo"
	"github.com/HopIT-Hub/macrokey/internal/logging"
	"github.com/HopIT-Hub/macrokey/internal/profile"
)

// Capture is the external capture service. Register records a handler for a
// canonical identifier; nothing is hooked until Apply.
type Capture interface {
	Register(id string, fire func()) error
	UnregisterAll() error
	Apply(ctx context.Context) error
}

// Pipeline turns the store's live bindings into registered handlers.
type Pipeline struct {
	store   *profile.Store
	capture Capture
	runtime action.Runtime
	log     *log.Logger

	mu    sync.RWMutex
	table *keycombo.Table[*profile.Binding]

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// lifeMu orders wg.Add in fire against Close.
	lifeMu sync.Mutex
	closed bool
}

// New returns a pipeline. A nil capture keeps matching in-process only.
func New(store *profile.Store, capture Capture, inj action.Injector) *Pipeline {
	base, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		store:   store,
		capture: capture,
		runtime: action.Runtime{Script: store.Script(), Injector: inj},
		log:     logging.For("dispatch"),
		table:   &keycombo.Table[*profile.Binding]{},
		base:    base,
		cancel:  cancel,
	}
}

// Apply saves the live bindings into the active sub-profile, then replaces
// every registration with the current live set. Problems with single
// bindings are reported in the joined error and do not stop the others.
// Capture failures are external errors.
func (p *Pipeline) Apply(ctx context.Context) error {
	var errs []error
	if err := p.store.AutoSave(); err != nil {
		p.log.Warn("auto-save", "err", err)
		errs = append(errs, err)
	}

	table := &keycombo.Table[*profile.Binding]{}
	if p.capture != nil {
		if err := p.capture.UnregisterAll(); err != nil {
			errs = append(errs, errdef.Wrap(errdef.CodeExternal, err, "unregister bindings"))
		}
	}

	for i, b := range p.store.LiveBindings() {
		if b == nil || b.KeyActive == "" {
			continue
		}
		if err := table.Add(b.KeyActive, b); err != nil {
			p.log.Warn("skip binding", "index", i, "key", b.KeyActive, "err", err)
			errs = append(errs, err)
			continue
		}
		if p.capture == nil {
			continue
		}
		id, _ := keycombo.Parse(b.KeyActive)
		if err := p.capture.Register(id.String(), func() { p.fire(b) }); err != nil {
			p.log.Warn("register binding", "index", i, "key", b.KeyActive, "err", err)
			errs = append(errs, errdef.Wrap(errdef.CodeExternal, err, "register %s", b.KeyActive))
		}
	}

	p.mu.Lock()
	p.table = table
	p.mu.Unlock()

	if p.capture != nil {
		if err := p.capture.Apply(ctx); err != nil {
			errs = append(errs, errdef.Wrap(errdef.CodeExternal, err, "apply bindings"))
		}
	}
	p.log.Debug("bindings applied", "count", table.Len())
	return errors.Join(errs...)
}

// fire starts b's action without waiting and reports whether it started.
// A binding whose action is still running is dropped.
func (p *Pipeline) fire(b *profile.Binding) bool {
	p.lifeMu.Lock()
	if p.closed {
		p.lifeMu.Unlock()
		return false
	}
	p.wg.Add(1)
	p.lifeMu.Unlock()

	started := b.Action.Go(p.base, p.runtime, func(err error) {
		defer p.wg.Done()
		if err != nil {
			p.log.Error("action failed", "binding", b.Name, "key", b.KeyActive, "err", err)
		}
	})
	if !started {
		p.wg.Done()
	}
	return started
}

// Dispatch fires the bindings matching ev and returns how many actions were
// started. Only the most specific matches fire. It never blocks on the
// actions.
func (p *Pipeline) Dispatch(ev keycombo.Event) int {
	p.mu.RLock()
	matches := p.table.Match(ev)
	p.mu.RUnlock()
	n := 0
	for _, b := range matches {
		if p.fire(b) {
			n++
		}
	}
	return n
}

// Test runs live binding index synchronously, through the same guard.
func (p *Pipeline) Test(ctx context.Context, index int) error {
	b, err := p.store.Binding(index)
	if err != nil {
		return err
	}
	return b.Action.Invoke(ctx, p.runtime)
}

// IDs returns the registered identifiers in registration order.
func (p *Pipeline) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.table.IDs()
}

// Wait blocks until every fired action returned.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close cancels in-flight actions and waits for them. Triggers arriving
// after Close are dropped.
func (p *Pipeline) Close() {
	p.lifeMu.Lock()
	p.closed = true
	p.lifeMu.Unlock()
	p.cancel()
	p.wg.Wait()
}
