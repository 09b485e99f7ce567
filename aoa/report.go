package aoa

// Keyboard modifier bits in byte 0 of a keyboard report.
const (
	ModLeftCtrl   byte = 0x01
	ModLeftShift  byte = 0x02
	ModLeftAlt    byte = 0x04
	ModLeftGUI    byte = 0x08
	ModRightCtrl  byte = 0x10
	ModRightShift byte = 0x20
	ModRightAlt   byte = 0x40
	ModRightGUI   byte = 0x80
)

// Mouse button bits in byte 0 of a mouse report.
const (
	ButtonLeft   byte = 0x01
	ButtonRight  byte = 0x02
	ButtonMiddle byte = 0x04
)

// KeyboardReportSize is the length of a keyboard report.
const KeyboardReportSize = 8

// modifierBits maps modifier key codes to their report bit.
var modifierBits = map[string]byte{
	"ControlLeft":  ModLeftCtrl,
	"ShiftLeft":    ModLeftShift,
	"AltLeft":      ModLeftAlt,
	"MetaLeft":     ModLeftGUI,
	"ControlRight": ModRightCtrl,
	"ShiftRight":   ModRightShift,
	"AltRight":     ModRightAlt,
	"MetaRight":    ModRightGUI,
}

// ModifierBit returns the report bit for a modifier key code.
func ModifierBit(code string) (byte, bool) {
	b, ok := modifierBits[code]
	return b, ok
}

// Keyboard usage IDs (HID Usage Tables, page 0x07) by key code.
var usages = map[string]byte{
	"Enter": 0x28, "Escape": 0x29, "Backspace": 0x2A, "Tab": 0x2B, "Space": 0x2C,
	"Minus": 0x2D, "Equal": 0x2E, "BracketLeft": 0x2F, "BracketRight": 0x30,
	"Backslash": 0x31, "Semicolon": 0x33, "Quote": 0x34, "Backquote": 0x35,
	"Comma": 0x36, "Period": 0x37, "Slash": 0x38, "CapsLock": 0x39,

	"F1": 0x3A, "F2": 0x3B, "F3": 0x3C, "F4": 0x3D, "F5": 0x3E, "F6": 0x3F,
	"F7": 0x40, "F8": 0x41, "F9": 0x42, "F10": 0x43, "F11": 0x44, "F12": 0x45,

	"PrintScreen": 0x46, "ScrollLock": 0x47, "Pause": 0x48, "Insert": 0x49,
	"Home": 0x4A, "PageUp": 0x4B, "Delete": 0x4C, "End": 0x4D, "PageDown": 0x4E,
	"ArrowRight": 0x4F, "ArrowLeft": 0x50, "ArrowDown": 0x51, "ArrowUp": 0x52,

	"NumLock": 0x53, "NumpadDivide": 0x54, "NumpadMultiply": 0x55,
	"NumpadSubtract": 0x56, "NumpadAdd": 0x57, "NumpadEnter": 0x58,
	"Numpad1": 0x59, "Numpad2": 0x5A, "Numpad3": 0x5B, "Numpad4": 0x5C,
	"Numpad5": 0x5D, "Numpad6": 0x5E, "Numpad7": 0x5F, "Numpad8": 0x60,
	"Numpad9": 0x61, "Numpad0": 0x62, "NumpadDecimal": 0x63,

	"F13": 0x68, "F14": 0x69, "F15": 0x6A, "F16": 0x6B, "F17": 0x6C,
	"F18": 0x6D, "F19": 0x6E, "F20": 0x6F,
}

func init() {
	for c := 'A'; c <= 'Z'; c++ {
		usages["Key"+string(c)] = byte(0x04 + c - 'A')
	}
	// Digit1..Digit9 come before Digit0 in the usage table.
	for c := '1'; c <= '9'; c++ {
		usages["Digit"+string(c)] = byte(0x1E + c - '1')
	}
	usages["Digit0"] = 0x27
}

// Usage returns the keyboard usage ID for a key code.
func Usage(code string) (byte, bool) {
	u, ok := usages[code]
	return u, ok
}

// shifted maps printable ASCII that needs Shift on a US layout to the key
// code producing it.
var shifted = map[rune]string{
	'!': "Digit1", '@': "Digit2", '#': "Digit3", '$': "Digit4", '%': "Digit5",
	'^': "Digit6", '&': "Digit7", '*': "Digit8", '(': "Digit9", ')': "Digit0",
	'_': "Minus", '+': "Equal", '{': "BracketLeft", '}': "BracketRight",
	'|': "Backslash", ':': "Semicolon", '"': "Quote", '~': "Backquote",
	'<': "Comma", '>': "Period", '?': "Slash",
}

var plain = map[rune]string{
	' ': "Space", '\n': "Enter", '\t': "Tab",
	'-': "Minus", '=': "Equal", '[': "BracketLeft", ']': "BracketRight",
	'\\': "Backslash", ';': "Semicolon", '\'': "Quote", '`': "Backquote",
	',': "Comma", '.': "Period", '/': "Slash",
}

// CharUsage returns the usage ID and shift state that type r on a US
// layout. Characters outside printable ASCII are not supported.
func CharUsage(r rune) (usage byte, shift bool, ok bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return byte(0x04 + r - 'a'), false, true
	case r >= 'A' && r <= 'Z':
		return byte(0x04 + r - 'A'), true, true
	case r >= '0' && r <= '9':
		u, _ := Usage("Digit" + string(r))
		return u, false, true
	}
	if code, found := plain[r]; found {
		return usages[code], false, true
	}
	if code, found := shifted[r]; found {
		return usages[code], true, true
	}
	return 0, false, false
}

// KeyboardState tracks held keys and builds keyboard reports.
// The zero value has nothing held.
type KeyboardState struct {
	mods byte
	keys [6]byte
}

// Press marks usage as held. It reports false when six keys are already
// held.
func (s *KeyboardState) Press(usage byte) bool {
	for _, k := range s.keys {
		if k == usage {
			return true
		}
	}
	for i, k := range s.keys {
		if k == 0 {
			s.keys[i] = usage
			return true
		}
	}
	return false
}

// Release clears usage, keeping the remaining keys in press order.
func (s *KeyboardState) Release(usage byte) {
	var out []byte
	for _, k := range s.keys {
		if k != 0 && k != usage {
			out = append(out, k)
		}
	}
	s.keys = [6]byte{}
	copy(s.keys[:], out)
}

// SetModifier sets or clears a modifier bit.
func (s *KeyboardState) SetModifier(bit byte, down bool) {
	if down {
		s.mods |= bit
	} else {
		s.mods &^= bit
	}
}

// Modifiers returns the held modifier bits.
func (s *KeyboardState) Modifiers() byte { return s.mods }

// Report returns the 8-byte keyboard report for the current state.
func (s *KeyboardState) Report() []byte {
	r := make([]byte, KeyboardReportSize)
	r[0] = s.mods
	copy(r[2:], s.keys[:])
	return r
}

// Reset releases everything.
func (s *KeyboardState) Reset() {
	*s = KeyboardState{}
}

// MouseReport builds a 3-byte relative mouse report.
func MouseReport(buttons byte, dx, dy int8) []byte {
	return []byte{buttons, byte(dx), byte(dy)}
}
