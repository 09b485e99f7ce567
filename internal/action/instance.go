package action

import (
	"context"
	"sync"
	"sync/atomic"
)

// Runtime is what an instance needs to execute.
type Runtime struct {
	Script   *Script
	Injector Injector
}

// Instance is an action kind with its bound parameter values. It carries its
// own execution guard, so two bindings using the same kind never block each
// other while one binding can never run twice at once.
type Instance struct {
	Kind   Kind
	Params []Parameter

	running atomic.Bool
	mu      sync.Mutex
	stop    context.CancelFunc
}

// NewInstance returns an instance of k with default parameters.
func NewInstance(k Kind) *Instance {
	return &Instance{Kind: k, Params: k.DefaultParams()}
}

// Resolve rebuilds an instance from persisted data. Unknown or nil ids give
// an unset instance with no parameters; known ids keep a deep copy of params,
// with foreign values replaced by the default for their key.
func Resolve(id *int, params []Parameter) *Instance {
	k := KindOf(id)
	if k == KindUnset {
		return &Instance{Kind: KindUnset, Params: []Parameter{}}
	}
	p := CloneParams(params)
	if p == nil {
		p = []Parameter{}
	}
	defaults := Bind(k.DefaultParams())
	for i := range p {
		if p[i].Value.Foreign() {
			p[i].Value = defaults[p[i].Key]
		}
	}
	return &Instance{Kind: k, Params: p}
}

// Title is resolved from the catalog, never stored.
func (i *Instance) Title() string {
	if i == nil {
		return ""
	}
	return i.Kind.Title()
}

// Clone copies kind and parameters. The copy has its own idle guard.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}
	return &Instance{Kind: i.Kind, Params: CloneParams(i.Params)}
}

// Bind returns the parameters indexed by key.
func (i *Instance) Bind() Params {
	return Bind(i.Params)
}

// Running reports whether an invocation is in progress.
func (i *Instance) Running() bool {
	return i.running.Load()
}

// Invoke runs the action with its bound parameters and waits for completion.
//
// It returns nil without doing anything when scripts are disabled or the
// instance is already running; the second caller is dropped, not queued.
// The run is cancelled by ctx, by Script.Disable and by Stop, and each
// cancellation takes effect at the routine's next suspension point.
func (i *Instance) Invoke(ctx context.Context, rt Runtime) error {
	if !i.acquire(rt) {
		return nil
	}
	return i.execute(ctx, rt)
}

// Go is Invoke without waiting. The guard is taken before Go returns and the
// run continues on its own goroutine; done, if not nil, receives its result.
// Go reports whether a run was started.
func (i *Instance) Go(ctx context.Context, rt Runtime, done func(error)) bool {
	if !i.acquire(rt) {
		return false
	}
	go func() {
		err := i.execute(ctx, rt)
		if done != nil {
			done(err)
		}
	}()
	return true
}

func (i *Instance) acquire(rt Runtime) bool {
	if i == nil || rt.Script == nil || !rt.Script.Active() {
		return false
	}
	return i.running.CompareAndSwap(false, true)
}

// execute runs the routine and releases the guard taken by acquire.
func (i *Instance) execute(ctx context.Context, rt Runtime) error {
	defer i.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	release := context.AfterFunc(rt.Script.Context(), cancel)
	defer release()

	i.mu.Lock()
	i.stop = cancel
	i.mu.Unlock()
	defer func() {
		i.mu.Lock()
		i.stop = nil
		i.mu.Unlock()
	}()

	if rt.Injector == nil {
		return nil
	}
	return run(runCtx, i.Kind, i.Bind(), rt.Injector)
}

// Stop cancels the in-progress invocation, if any.
func (i *Instance) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stop != nil {
		i.stop()
	}
}
