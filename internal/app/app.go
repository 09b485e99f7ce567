// Package app is the controller shared by the tray and the control server.
// Every state change goes through it so bindings are re-applied, the profile
// file is written and listeners hear about it in one place.
package app

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/HopIT-Hub/macrokey/internal/dispatch"
	"github.com/HopIT-Hub/macrokey/internal/errdef"
	"github.com/HopIT-Hub/macrokey/internal/logging"
	"github.com/HopIT-Hub/macrokey/internal/profile"
)

// ByteStore persists the profile document. Load returns nil data when
// nothing was stored yet.
type ByteStore interface {
	Load() ([]byte, error)
	Store(data []byte) error
}

// App coordinates the store, the dispatch pipeline and persistence.
type App struct {
	store    *profile.Store
	pipeline *dispatch.Pipeline
	persist  ByteStore
	log      *log.Logger

	// mu serialises state changes so a save always follows its apply.
	mu sync.Mutex
	// hold is the error that made the stored document unreadable. While
	// set, nothing is written so the user's file survives; Save and a
	// successful ReplaceConfig clear it.
	hold error

	subsMu sync.RWMutex
	nextID int
	subs   map[int]func(profile.Notification)
}

// New returns a controller. A nil persist keeps everything in memory.
func New(store *profile.Store, pipeline *dispatch.Pipeline, persist ByteStore) *App {
	return &App{
		store:    store,
		pipeline: pipeline,
		persist:  persist,
		log:      logging.For("app"),
		subs:     make(map[int]func(profile.Notification)),
	}
}

// Store exposes the underlying store for read access.
func (a *App) Store() *profile.Store { return a.store }

// Load reads the profile document and applies the live bindings. On a read
// or parse failure the defaults stay in place and are still applied.
func (a *App) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	a.hold = nil
	if a.persist != nil {
		data, err := a.persist.Load()
		switch {
		case err != nil:
			errs = append(errs, err)
			a.hold = err
		case data != nil:
			if err := a.store.Load(data); err != nil {
				errs = append(errs, err)
				a.hold = err
			}
		}
	}
	if a.hold != nil {
		a.log.Warn("profile file unreadable, keeping it unchanged until saved explicitly", "err", a.hold)
	}
	if err := a.pipeline.Apply(ctx); err != nil {
		errs = append(errs, err)
	}
	a.notify()
	return errors.Join(errs...)
}

// Save writes the profile document, replacing a stored document that
// failed to load.
func (a *App) Save() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hold = nil
	return a.save()
}

// Held reports whether writes are suspended after a failed load.
func (a *App) Held() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hold != nil
}

func (a *App) save() error {
	if a.persist == nil {
		return nil
	}
	if a.hold != nil {
		return errdef.Wrap(errdef.CodeFilesystem, a.hold, "profile file not written, it failed to load")
	}
	data, err := a.store.Save()
	if err != nil {
		return err
	}
	return a.persist.Store(data)
}

// ApplyError carries problems found after a state change was made: bindings
// that could not be registered, or a failed save.
type ApplyError struct {
	Err error
}

func (e *ApplyError) Error() string { return e.Err.Error() }
func (e *ApplyError) Unwrap() error { return e.Err }

// changed finishes a state change: re-apply if the live set moved, persist,
// then notify. Apply problems are returned but never stop the save.
func (a *App) changed(ctx context.Context, reapply bool) error {
	var errs []error
	if reapply {
		if err := a.pipeline.Apply(ctx); err != nil {
			a.log.Warn("apply", "err", err)
			errs = append(errs, err)
		}
	}
	if err := a.save(); err != nil {
		a.log.Error("save profiles", "err", err)
		errs = append(errs, err)
	}
	a.notify()
	if len(errs) == 0 {
		return nil
	}
	return &ApplyError{Err: errors.Join(errs...)}
}

// SetScriptActive turns every binding on or off.
func (a *App) SetScriptActive(active bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store.SetScriptActive(active)
	a.log.Info("script", "active", active)
	a.notify()
}

func (a *App) SetTrayVisible(visible bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store.SetTrayVisible(visible)
	a.notify()
}

func (a *App) ActivateMainProfile(ctx context.Context, id int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.AutoSave(); err != nil {
		a.log.Warn("auto-save", "err", err)
	}
	if err := a.store.ActivateMainProfile(id); err != nil {
		return err
	}
	return a.changed(ctx, true)
}

func (a *App) ActivateSubProfile(ctx context.Context, id int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.AutoSave(); err != nil {
		a.log.Warn("auto-save", "err", err)
	}
	if err := a.store.ActivateSubProfile(id); err != nil {
		return err
	}
	return a.changed(ctx, true)
}

// CommitLive copies the live bindings into sub-profile target.
func (a *App) CommitLive(target int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.CommitLive(target); err != nil {
		return err
	}
	return a.changed(context.Background(), false)
}

func (a *App) AddMainProfile(title string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, err := a.store.AddMainProfile(title)
	if err != nil {
		return 0, err
	}
	return id, a.changed(context.Background(), false)
}

func (a *App) AddBinding(ctx context.Context, b profile.Binding) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, err := a.store.AddBinding(b)
	if err != nil {
		return 0, err
	}
	return i, a.changed(ctx, true)
}

func (a *App) UpdateBinding(ctx context.Context, i int, b profile.Binding) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.UpdateBinding(i, b); err != nil {
		return err
	}
	return a.changed(ctx, true)
}

func (a *App) RemoveBinding(ctx context.Context, i int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.RemoveBinding(i); err != nil {
		return err
	}
	return a.changed(ctx, true)
}

// ReplaceConfig loads a whole profile document, as an editor import does.
// A document that fails to parse leaves everything unchanged.
func (a *App) ReplaceConfig(ctx context.Context, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Load(data); err != nil {
		return err
	}
	a.hold = nil
	return a.changed(ctx, true)
}

// TestBinding runs live binding i once and waits for it.
func (a *App) TestBinding(ctx context.Context, i int) error {
	return a.pipeline.Test(ctx, i)
}

// Snapshot returns the current notification payload.
func (a *App) Snapshot() profile.Notification {
	return a.store.Notification()
}

// Export returns the full profile document.
func (a *App) Export() profile.File {
	return a.store.Export()
}

// Live returns a copy of the live sub-profile.
func (a *App) Live() profile.SubProfile {
	return a.store.Live()
}

// Subscribe registers fn for every notification and returns a function
// that removes it. fn runs synchronously on the goroutine making the change.
func (a *App) Subscribe(fn func(profile.Notification)) (cancel func()) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	return func() {
		a.subsMu.Lock()
		defer a.subsMu.Unlock()
		delete(a.subs, id)
	}
}

func (a *App) notify() {
	n := a.store.Notification()
	a.subsMu.RLock()
	fns := make([]func(profile.Notification), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.subsMu.RUnlock()
	for _, fn := range fns {
		fn(n)
	}
}

// Close stops in-flight actions and writes the profile document.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pipeline.Close()
	if err := a.store.AutoSave(); err != nil {
		a.log.Warn("auto-save", "err", err)
	}
	return a.save()
}
