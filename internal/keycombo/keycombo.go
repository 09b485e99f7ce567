// Package keycombo converts raw keyboard and mouse events into canonical
// key-combination identifiers such as "Control_Shift_KeyA" and turns those
// identifiers back into predicates over future events.
//
// An identifier is up to three modifier tokens followed by one primary
// token, joined by "_". Modifiers are always rendered in the order
// Control, Alt, Shift. The primary token is a keyboard code in
// KeyboardEvent.code naming ("KeyA", "Digit1", "F5") or a mouse button
// name ("LeftButton").
package keycombo

import (
	"strings"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

// Separator joins the tokens of an identifier.
const Separator = "_"

// maxSegments is Control, Alt and Shift plus the primary token. Encode emits
// all three when all three are held, so Parse must accept that shape.
const maxSegments = 4

// EventType distinguishes the events the codec understands.
type EventType int

const (
	Other EventType = iota
	KeyDown
	MouseDown
)

func (t EventType) String() string {
	switch t {
	case KeyDown:
		return "keydown"
	case MouseDown:
		return "mousedown"
	default:
		return "other"
	}
}

// Event is the codec's view of a raw input event. Ctrl, Alt and Shift report
// whether any variant (left, right or generic) of the modifier is held.
type Event struct {
	Type   EventType
	Code   string // keyboard code, KeyDown only
	Button int    // mouse button index, MouseDown only
	Ctrl   bool
	Alt    bool
	Shift  bool
}

// Modifier token names.
const (
	Control      = "Control"
	ControlLeft  = "ControlLeft"
	ControlRight = "ControlRight"
	Alt          = "Alt"
	AltLeft      = "AltLeft"
	AltRight     = "AltRight"
	Shift        = "Shift"
	ShiftLeft    = "ShiftLeft"
	ShiftRight   = "ShiftRight"
)

// Mouse button names, indexed by button number.
var buttonNames = [...]string{
	0: "LeftButton",
	1: "MiddleButton",
	2: "RightButton",
	3: "X1Button",
	4: "X2Button",
}

// ButtonName returns the canonical name of a mouse button index, or "" when
// the index is outside the table.
func ButtonName(index int) string {
	if index < 0 || index >= len(buttonNames) {
		return ""
	}
	return buttonNames[index]
}

// ButtonIndex is the inverse of ButtonName.
func ButtonIndex(name string) (int, bool) {
	for i, n := range buttonNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// IsButton reports whether name is a mouse button token.
func IsButton(name string) bool {
	_, ok := ButtonIndex(name)
	return ok
}

func isControl(code string) bool {
	return code == Control || code == ControlLeft || code == ControlRight
}

func isAlt(code string) bool {
	return code == Alt || code == AltLeft || code == AltRight
}

func isShift(code string) bool {
	return code == Shift || code == ShiftLeft || code == ShiftRight
}

// IsModifierCode reports whether code is any variant of Control, Alt or Shift.
func IsModifierCode(code string) bool {
	return isControl(code) || isAlt(code) || isShift(code)
}

// Encode returns the canonical identifier for ev. Events the codec does not
// understand encode to "", which callers treat as "no binding".
func Encode(ev Event) string {
	var b strings.Builder
	switch ev.Type {
	case KeyDown:
		if ev.Code == "" {
			return ""
		}
		if ev.Ctrl && !isControl(ev.Code) {
			b.WriteString(Control + Separator)
		}
		if ev.Alt && !isAlt(ev.Code) {
			b.WriteString(Alt + Separator)
		}
		if ev.Shift && !isShift(ev.Code) {
			b.WriteString(Shift + Separator)
		}
		b.WriteString(ev.Code)
	case MouseDown:
		name := ButtonName(ev.Button)
		if name == "" {
			return ""
		}
		if ev.Ctrl {
			b.WriteString(Control + Separator)
		}
		if ev.Alt {
			b.WriteString(Alt + Separator)
		}
		if ev.Shift {
			b.WriteString(Shift + Separator)
		}
		b.WriteString(name)
	default:
		return ""
	}
	return b.String()
}

// Combo is a parsed identifier.
type Combo struct {
	Ctrl    bool
	Alt     bool
	Shift   bool
	Primary string
}

// Parse validates id and splits it into modifiers and primary token.
// Side-specific modifier tokens such as "ShiftLeft" collapse to the generic
// modifier.
func Parse(id string) (Combo, error) {
	if id == "" {
		return Combo{}, errdef.New(errdef.CodeValidation, "empty key combination")
	}
	parts := strings.Split(id, Separator)
	if len(parts) > maxSegments {
		return Combo{}, errdef.New(errdef.CodeValidation, "key combination %q has %d segments, at most %d allowed", id, len(parts), maxSegments)
	}

	c := Combo{Primary: parts[len(parts)-1]}
	if c.Primary == "" {
		return Combo{}, errdef.New(errdef.CodeValidation, "key combination %q has no primary key", id)
	}
	for _, tok := range parts[:len(parts)-1] {
		var dup bool
		switch {
		case isControl(tok):
			dup, c.Ctrl = c.Ctrl, true
		case isAlt(tok):
			dup, c.Alt = c.Alt, true
		case isShift(tok):
			dup, c.Shift = c.Shift, true
		default:
			return Combo{}, errdef.New(errdef.CodeValidation, "key combination %q: %q is not a modifier", id, tok)
		}
		if dup {
			return Combo{}, errdef.New(errdef.CodeValidation, "key combination %q repeats modifier %q", id, tok)
		}
	}
	return c, nil
}

// String renders the combo in canonical form.
func (c Combo) String() string {
	var b strings.Builder
	if c.Ctrl {
		b.WriteString(Control + Separator)
	}
	if c.Alt {
		b.WriteString(Alt + Separator)
	}
	if c.Shift {
		b.WriteString(Shift + Separator)
	}
	b.WriteString(c.Primary)
	return b.String()
}

// Specificity is the number of modifiers the combo requires.
func (c Combo) Specificity() int {
	n := 0
	for _, held := range []bool{c.Ctrl, c.Alt, c.Shift} {
		if held {
			n++
		}
	}
	return n
}

// Mouse reports whether the primary token is a mouse button.
func (c Combo) Mouse() bool {
	return IsButton(c.Primary)
}

// Matches reports whether ev fires the combo. The primary token must match
// exactly; modifiers named by the combo must be held, modifiers it does not
// name are unconstrained.
func (c Combo) Matches(ev Event) bool {
	switch ev.Type {
	case KeyDown:
		if ev.Code != c.Primary {
			return false
		}
	case MouseDown:
		if ButtonName(ev.Button) != c.Primary {
			return false
		}
	default:
		return false
	}
	if c.Ctrl && !ev.Ctrl {
		return false
	}
	if c.Alt && !ev.Alt {
		return false
	}
	if c.Shift && !ev.Shift {
		return false
	}
	return true
}

// Predicate tests whether an event fires a binding.
type Predicate func(Event) bool

// Decode parses id and returns its predicate.
func Decode(id string) (Predicate, error) {
	c, err := Parse(id)
	if err != nil {
		return nil, err
	}
	return c.Matches, nil
}
