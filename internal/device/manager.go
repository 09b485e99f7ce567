// Package device manages the USB connection to an Android device used as the
// injection target. It detects the device when plugged in, reconnects on
// disconnect, and replays key, button and pointer events as AOA2 HID
// keyboard and mouse reports.
package device

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/HopIT-Hub/macrokey/aoa"
	"github.com/HopIT-Hub/macrokey/internal/errdef"
	"github.com/HopIT-Hub/macrokey/internal/keycombo"
	"github.com/HopIT-Hub/macrokey/internal/logging"
)

// State represents the current device state.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

const (
	pollInterval = 2 * time.Second
	// Gap between the press and release reports of one typed character.
	charGap = 5 * time.Millisecond
)

// hid is the subset of *aoa.Device the manager drives.
type hid interface {
	Register(aoa.DescriptorType) (uint16, error)
	Send(hidID uint16, report []byte) error
	Ping() error
	Close()
}

func openUSB(t aoa.Target) (hid, error) {
	return aoa.Open(t)
}

// Manager handles the USB device lifecycle. It implements inject.Device.
type Manager struct {
	mu       sync.Mutex
	dev      hid
	state    State
	onChange func(State) // callback when state changes
	target   aoa.Target
	open     func(aoa.Target) (hid, error)
	log      *log.Logger

	// HID descriptor IDs (assigned on connect)
	keyboardID uint16
	mouseID    uint16

	keyboard aoa.KeyboardState
	buttons  byte
}

// NewManager creates a new device manager. An empty serial matches any
// device. onChange is called whenever the device state changes.
func NewManager(serial string, onChange func(State)) *Manager {
	return &Manager{
		state:    Disconnected,
		onChange: onChange,
		target:   aoa.DefaultTarget(serial),
		open:     openUSB,
		log:      logging.For("device"),
	}
}

// State returns the current device state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run starts the auto-detection loop. It polls for the device every 2
// seconds and checks its health while connected.
// Blocks until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()
	defer m.Close()

	// Try immediately on start
	m.tryConnect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pollTicker.C:
			if m.State() == Disconnected {
				m.tryConnect()
			} else {
				m.healthCheck()
			}
		}
	}
}

// tryConnect attempts to open the device and register HID descriptors.
func (m *Manager) tryConnect() {
	dev, err := m.open(m.target)
	if err != nil {
		return // device not found, will retry
	}

	kbdID, err := dev.Register(aoa.DescKeyboard)
	if err != nil {
		m.log.Warn("keyboard HID register failed", "err", err)
		dev.Close()
		return
	}
	mouseID, err := dev.Register(aoa.DescMouse)
	if err != nil {
		m.log.Warn("mouse HID register failed", "err", err)
		dev.Close()
		return
	}

	m.mu.Lock()
	m.dev = dev
	m.keyboardID = kbdID
	m.mouseID = mouseID
	m.keyboard.Reset()
	m.buttons = 0
	m.setState(Connected)
	m.mu.Unlock()

	m.log.Info("connected")
}

// healthCheck verifies the device is still connected.
func (m *Manager) healthCheck() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev == nil {
		return
	}
	if err := m.dev.Ping(); err != nil {
		m.log.Info("disconnected", "err", err)
		m.drop()
	}
}

// setState records s and notifies. Must be called with m.mu held.
func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if m.onChange != nil {
		m.onChange(s)
	}
}

// drop closes the device and marks it disconnected. Must be called with
// m.mu held.
func (m *Manager) drop() {
	if m.dev != nil {
		m.dev.Close()
		m.dev = nil
	}
	m.keyboard.Reset()
	m.buttons = 0
	m.setState(Disconnected)
}

// send writes one report. Must be called with m.mu held.
func (m *Manager) send(hidID uint16, report []byte) error {
	if m.dev == nil {
		return errdef.New(errdef.CodeExternal, "no device connected")
	}
	if err := m.dev.Send(hidID, report); err != nil {
		m.handleError(err)
		return errdef.Wrap(errdef.CodeExternal, err, "send report")
	}
	return nil
}

// handleError marks the device as disconnected on USB errors.
// Must be called with m.mu held.
func (m *Manager) handleError(err error) {
	m.log.Warn("USB error, will reconnect", "err", err)
	m.drop()
}

// Key presses or releases the key with the given code.
func (m *Manager) Key(code string, down bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bit, ok := aoa.ModifierBit(code); ok {
		m.keyboard.SetModifier(bit, down)
		return m.send(m.keyboardID, m.keyboard.Report())
	}
	usage, ok := aoa.Usage(code)
	if !ok {
		return errdef.New(errdef.CodeValidation, "key %q has no HID usage", code)
	}
	if down {
		if !m.keyboard.Press(usage) {
			return errdef.New(errdef.CodeExternal, "too many keys held")
		}
	} else {
		m.keyboard.Release(usage)
	}
	return m.send(m.keyboardID, m.keyboard.Report())
}

// buttonBits maps button indexes to mouse report bits. The extra buttons
// have no bit in the boot mouse report.
var buttonBits = map[int]byte{
	0: aoa.ButtonLeft,
	1: aoa.ButtonMiddle,
	2: aoa.ButtonRight,
}

// Button presses or releases a mouse button.
func (m *Manager) Button(index int, down bool) error {
	bit, ok := buttonBits[index]
	if !ok {
		return errdef.New(errdef.CodeValidation, "button %s not supported over USB", keycombo.ButtonName(index))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if down {
		m.buttons |= bit
	} else {
		m.buttons &^= bit
	}
	return m.send(m.mouseID, aoa.MouseReport(m.buttons, 0, 0))
}

// Move moves the pointer by (dx, dy), split into reports within the
// signed 8-bit range.
func (m *Manager) Move(dx, dy int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for dx != 0 || dy != 0 {
		sx, sy := step(dx), step(dy)
		if err := m.send(m.mouseID, aoa.MouseReport(m.buttons, sx, sy)); err != nil {
			return err
		}
		dx -= int(sx)
		dy -= int(sy)
	}
	return nil
}

func step(d int) int8 {
	switch {
	case d > 127:
		return 127
	case d < -127:
		return -127
	default:
		return int8(d)
	}
}

// Type types text on a US layout. Modifiers held by the caller are
// restored afterwards.
func (m *Manager) Type(text string) error {
	for _, r := range text {
		usage, shift, ok := aoa.CharUsage(r)
		if !ok {
			return errdef.New(errdef.CodeValidation, "cannot type %q", r)
		}
		if err := m.typeChar(usage, shift); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) typeChar(usage byte, shift bool) error {
	m.mu.Lock()
	held := m.keyboard.Modifiers()
	if shift {
		m.keyboard.SetModifier(aoa.ModLeftShift, true)
	}
	m.keyboard.Press(usage)
	err := m.send(m.keyboardID, m.keyboard.Report())
	m.mu.Unlock()
	if err != nil {
		return err
	}

	time.Sleep(charGap)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyboard.Release(usage)
	m.keyboard.SetModifier(aoa.ModLeftShift, held&aoa.ModLeftShift != 0)
	return m.send(m.keyboardID, m.keyboard.Report())
}

// Close shuts down the device connection, releasing anything held.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev != nil {
		var idle aoa.KeyboardState
		_ = m.dev.Send(m.keyboardID, idle.Report())
		_ = m.dev.Send(m.mouseID, aoa.MouseReport(0, 0, 0))
	}
	m.drop()
}
