// Package hotkey is a capture backend built on OS global hotkeys. It only
// sees keyboard combinations; mouse buttons need the hook backend.
package hotkey

import (
	"github.com/HopIT-Hub/macrokey/internal/errdef"
	"github.com/HopIT-Hub/macrokey/internal/keycombo"

	"golang.design/x/hotkey"
)

// ParseModifiers converts the modifiers of c to hotkey.Modifier values.
// The modMap variable is defined in platform-specific files (keymap_*.go).
func ParseModifiers(c keycombo.Combo) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if c.Ctrl {
		mods = append(mods, modMap["ctrl"])
	}
	if c.Alt {
		mods = append(mods, modMap["alt"])
	}
	if c.Shift {
		mods = append(mods, modMap["shift"])
	}
	return mods
}

// ParseKey converts a key code such as "KeyR" or "F5" to a hotkey.Key.
func ParseKey(code string) (hotkey.Key, error) {
	if keycombo.IsButton(code) {
		return 0, errdef.New(errdef.CodeValidation, "mouse button %q cannot be a global hotkey", code)
	}
	k, ok := keyMap[code]
	if !ok {
		return 0, errdef.New(errdef.CodeValidation, "unsupported hotkey key code: %q", code)
	}
	return k, nil
}

var keyMap = map[string]hotkey.Key{
	"KeyA": hotkey.KeyA, "KeyB": hotkey.KeyB, "KeyC": hotkey.KeyC, "KeyD": hotkey.KeyD,
	"KeyE": hotkey.KeyE, "KeyF": hotkey.KeyF, "KeyG": hotkey.KeyG, "KeyH": hotkey.KeyH,
	"KeyI": hotkey.KeyI, "KeyJ": hotkey.KeyJ, "KeyK": hotkey.KeyK, "KeyL": hotkey.KeyL,
	"KeyM": hotkey.KeyM, "KeyN": hotkey.KeyN, "KeyO": hotkey.KeyO, "KeyP": hotkey.KeyP,
	"KeyQ": hotkey.KeyQ, "KeyR": hotkey.KeyR, "KeyS": hotkey.KeyS, "KeyT": hotkey.KeyT,
	"KeyU": hotkey.KeyU, "KeyV": hotkey.KeyV, "KeyW": hotkey.KeyW, "KeyX": hotkey.KeyX,
	"KeyY": hotkey.KeyY, "KeyZ": hotkey.KeyZ,
	"Digit0": hotkey.Key0, "Digit1": hotkey.Key1, "Digit2": hotkey.Key2, "Digit3": hotkey.Key3,
	"Digit4": hotkey.Key4, "Digit5": hotkey.Key5, "Digit6": hotkey.Key6, "Digit7": hotkey.Key7,
	"Digit8": hotkey.Key8, "Digit9": hotkey.Key9,
	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4,
	"F5": hotkey.KeyF5, "F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8,
	"F9": hotkey.KeyF9, "F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,
	"F13": hotkey.KeyF13, "F14": hotkey.KeyF14, "F15": hotkey.KeyF15, "F16": hotkey.KeyF16,
	"F17": hotkey.KeyF17, "F18": hotkey.KeyF18, "F19": hotkey.KeyF19, "F20": hotkey.KeyF20,
	"Space": hotkey.KeySpace, "Enter": hotkey.KeyReturn, "Escape": hotkey.KeyEscape,
	"Backspace": hotkey.KeyDelete, "Tab": hotkey.KeyTab,
	"ArrowUp": hotkey.KeyUp, "ArrowDown": hotkey.KeyDown,
	"ArrowLeft": hotkey.KeyLeft, "ArrowRight": hotkey.KeyRight,
}
