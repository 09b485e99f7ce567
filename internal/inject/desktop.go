package inject

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// robotgoKeys maps key codes to robotgo key names.
var robotgoKeys = map[string]string{
	"KeyA": "a", "KeyB": "b", "KeyC": "c", "KeyD": "d", "KeyE": "e", "KeyF": "f",
	"KeyG": "g", "KeyH": "h", "KeyI": "i", "KeyJ": "j", "KeyK": "k", "KeyL": "l",
	"KeyM": "m", "KeyN": "n", "KeyO": "o", "KeyP": "p", "KeyQ": "q", "KeyR": "r",
	"KeyS": "s", "KeyT": "t", "KeyU": "u", "KeyV": "v", "KeyW": "w", "KeyX": "x",
	"KeyY": "y", "KeyZ": "z",
	"Digit0": "0", "Digit1": "1", "Digit2": "2", "Digit3": "3", "Digit4": "4",
	"Digit5": "5", "Digit6": "6", "Digit7": "7", "Digit8": "8", "Digit9": "9",
	"F1": "f1", "F2": "f2", "F3": "f3", "F4": "f4", "F5": "f5", "F6": "f6",
	"F7": "f7", "F8": "f8", "F9": "f9", "F10": "f10", "F11": "f11", "F12": "f12",
	"F13": "f13", "F14": "f14", "F15": "f15", "F16": "f16", "F17": "f17", "F18": "f18",
	"F19": "f19", "F20": "f20", "F21": "f21", "F22": "f22", "F23": "f23", "F24": "f24",
	"Numpad0": "num0", "Numpad1": "num1", "Numpad2": "num2", "Numpad3": "num3", "Numpad4": "num4",
	"Numpad5": "num5", "Numpad6": "num6", "Numpad7": "num7", "Numpad8": "num8", "Numpad9": "num9",
	"NumpadAdd": "num+", "NumpadSubtract": "num-", "NumpadMultiply": "num*",
	"NumpadDivide": "num/", "NumpadDecimal": "num.", "NumpadEnter": "num_enter",
	"NumpadEqual": "num_equal", "NumLock": "num_lock",

	"Escape": "esc", "Enter": "enter", "Backspace": "backspace", "Tab": "tab",
	"Space": "space", "CapsLock": "capslock", "Delete": "delete", "Insert": "insert",
	"Home": "home", "End": "end", "PageUp": "pageup", "PageDown": "pagedown",
	"ArrowUp": "up", "ArrowDown": "down", "ArrowLeft": "left", "ArrowRight": "right",
	"PrintScreen": "printscreen", "Pause": "pause", "ScrollLock": "scroll_lock",
	"ContextMenu": "menu",

	"Minus": "-", "Equal": "=", "BracketLeft": "[", "BracketRight": "]",
	"Backslash": "\\", "Semicolon": ";", "Quote": "'", "Comma": ",",
	"Period": ".", "Slash": "/", "Backquote": "`",

	"Control": "ctrl", "ControlLeft": "lctrl", "ControlRight": "rctrl",
	"Alt": "alt", "AltLeft": "lalt", "AltRight": "ralt",
	"Shift": "shift", "ShiftLeft": "lshift", "ShiftRight": "rshift",
	"MetaLeft": "lcmd", "MetaRight": "rcmd",
}

// robotgoButtons maps button indexes to robotgo button names. The extra
// buttons have no robotgo equivalent.
var robotgoButtons = map[int]string{0: "left", 1: "center", 2: "right"}

// KeyName returns the robotgo name of a key code.
func KeyName(code string) (string, bool) {
	name, ok := robotgoKeys[code]
	return name, ok
}

// Desktop drives the local display server through robotgo.
type Desktop struct{}

func (Desktop) Key(code string, down bool) error {
	name, ok := KeyName(code)
	if !ok {
		return fmt.Errorf("no desktop key for %q", code)
	}
	return robotgo.KeyToggle(name, upDown(down))
}

func (Desktop) Button(index int, down bool) error {
	name, ok := robotgoButtons[index]
	if !ok {
		return fmt.Errorf("no desktop mouse button %d", index)
	}
	return robotgo.Toggle(name, upDown(down))
}

func (Desktop) Move(dx, dy int) error {
	robotgo.MoveRelative(dx, dy)
	return nil
}

func (Desktop) Type(text string) error {
	robotgo.TypeStr(text)
	return nil
}

func upDown(down bool) string {
	if down {
		return "down"
	}
	return "up"
}
