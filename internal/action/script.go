package action

import (
	"context"
	"sync"
)

// Script is the process-wide "scripts enabled" switch. While disabled every
// Invoke is a no-op, and disabling cancels the token handed to running
// actions so they stop at their next suspension point.
type Script struct {
	mu     sync.Mutex
	active bool
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScript returns a disabled switch.
func NewScript() *Script {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return &Script{ctx: ctx, cancel: cancel}
}

// Enable turns scripts on with a fresh cancellation token.
func (s *Script) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.active = true
}

// Disable turns scripts off and cancels the current token.
func (s *Script) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.cancel()
}

// Set enables or disables the switch.
func (s *Script) Set(active bool) {
	if active {
		s.Enable()
	} else {
		s.Disable()
	}
}

// Active reports whether scripts are enabled.
func (s *Script) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Context returns the current cancellation token. It is already done while
// the switch is off.
func (s *Script) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
