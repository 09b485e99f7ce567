package aoa

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor(t *testing.T) {
	assert.Equal(t, keyboardDescriptor, Descriptor(DescKeyboard))
	assert.Equal(t, mouseDescriptor, Descriptor(DescMouse))
	assert.Nil(t, Descriptor(DescriptorType(42)))
	assert.Equal(t, "mouse", DescMouse.String())
	assert.Equal(t, "unknown", DescriptorType(42).String())
}

func TestTarget(t *testing.T) {
	tg := DefaultTarget("")
	assert.True(t, tg.matches(&gousb.DeviceDesc{Vendor: DefaultVendorID, Product: DefaultProductID}))
	assert.False(t, tg.matches(&gousb.DeviceDesc{Vendor: DefaultVendorID, Product: 0x1}))
	assert.Equal(t, "0e8d:2304", tg.String())
	assert.Equal(t, "0e8d:2304 serial abc", DefaultTarget("abc").String())
}

func TestRequestNames(t *testing.T) {
	assert.Equal(t, "SEND_HID_EVENT", sendHIDEvent.String())
	assert.Equal(t, "request(9)", request(9).String())
}

func TestUsage(t *testing.T) {
	for code, want := range map[string]byte{
		"KeyA": 0x04, "KeyZ": 0x1D, "Digit1": 0x1E, "Digit9": 0x26, "Digit0": 0x27,
		"Enter": 0x28, "Space": 0x2C, "F1": 0x3A, "F12": 0x45, "ArrowUp": 0x52,
	} {
		got, ok := Usage(code)
		require.True(t, ok, code)
		assert.Equal(t, want, got, code)
	}
	_, ok := Usage("LeftButton")
	assert.False(t, ok)
}

func TestCharUsage(t *testing.T) {
	tests := []struct {
		r     rune
		usage byte
		shift bool
	}{
		{'a', 0x04, false},
		{'Q', 0x14, true},
		{'0', 0x27, false},
		{'!', 0x1E, true},
		{' ', 0x2C, false},
		{'?', 0x38, true},
		{'\n', 0x28, false},
	}
	for _, tt := range tests {
		u, shift, ok := CharUsage(tt.r)
		require.True(t, ok, string(tt.r))
		assert.Equal(t, tt.usage, u, string(tt.r))
		assert.Equal(t, tt.shift, shift, string(tt.r))
	}
	_, _, ok := CharUsage('é')
	assert.False(t, ok)
}

func TestKeyboardState(t *testing.T) {
	var s KeyboardState
	assert.Equal(t, make([]byte, KeyboardReportSize), s.Report())

	s.SetModifier(ModLeftCtrl, true)
	s.SetModifier(ModLeftShift, true)
	require.True(t, s.Press(0x04))
	require.True(t, s.Press(0x05))
	require.True(t, s.Press(0x04))
	assert.Equal(t, []byte{0x03, 0, 0x04, 0x05, 0, 0, 0, 0}, s.Report())

	s.Release(0x04)
	s.SetModifier(ModLeftCtrl, false)
	assert.Equal(t, []byte{0x02, 0, 0x05, 0, 0, 0, 0, 0}, s.Report())

	for u := byte(0x06); u < 0x0B; u++ {
		require.True(t, s.Press(u))
	}
	assert.False(t, s.Press(0x10), "rollover")

	s.Reset()
	assert.Equal(t, byte(0), s.Modifiers())
	assert.Equal(t, make([]byte, KeyboardReportSize), s.Report())
}

func TestMouseReport(t *testing.T) {
	assert.Equal(t, []byte{ButtonLeft, 0, 0x05}, MouseReport(ButtonLeft, 0, 5))
	assert.Equal(t, []byte{0, 0xFF, 0x81}, MouseReport(0, -1, -127))
}
