package hook

// Virtual key codes reported by libuiohook, mapped to key code names.
var vcToCode = map[uint16]string{
	0x0001: "Escape",
	0x003B: "F1", 0x003C: "F2", 0x003D: "F3", 0x003E: "F4",
	0x003F: "F5", 0x0040: "F6", 0x0041: "F7", 0x0042: "F8",
	0x0043: "F9", 0x0044: "F10", 0x0057: "F11", 0x0058: "F12",
	0x005B: "F13", 0x005C: "F14", 0x005D: "F15", 0x0063: "F16",
	0x0064: "F17", 0x0065: "F18", 0x0066: "F19", 0x0067: "F20",
	0x0068: "F21", 0x0069: "F22", 0x006A: "F23", 0x006B: "F24",

	0x0029: "Backquote",
	0x0002: "Digit1", 0x0003: "Digit2", 0x0004: "Digit3", 0x0005: "Digit4",
	0x0006: "Digit5", 0x0007: "Digit6", 0x0008: "Digit7", 0x0009: "Digit8",
	0x000A: "Digit9", 0x000B: "Digit0",
	0x000C: "Minus", 0x000D: "Equal", 0x000E: "Backspace",
	0x000F: "Tab", 0x003A: "CapsLock",

	0x001E: "KeyA", 0x0030: "KeyB", 0x002E: "KeyC", 0x0020: "KeyD",
	0x0012: "KeyE", 0x0021: "KeyF", 0x0022: "KeyG", 0x0023: "KeyH",
	0x0017: "KeyI", 0x0024: "KeyJ", 0x0025: "KeyK", 0x0026: "KeyL",
	0x0032: "KeyM", 0x0031: "KeyN", 0x0018: "KeyO", 0x0019: "KeyP",
	0x0010: "KeyQ", 0x0013: "KeyR", 0x001F: "KeyS", 0x0014: "KeyT",
	0x0016: "KeyU", 0x002F: "KeyV", 0x0011: "KeyW", 0x002D: "KeyX",
	0x0015: "KeyY", 0x002C: "KeyZ",

	0x001A: "BracketLeft", 0x001B: "BracketRight", 0x002B: "Backslash",
	0x0027: "Semicolon", 0x0028: "Quote", 0x001C: "Enter",
	0x0033: "Comma", 0x0034: "Period", 0x0035: "Slash", 0x0039: "Space",

	0x0E37: "PrintScreen", 0x0046: "ScrollLock", 0x0E45: "Pause",
	0x0E52: "Insert", 0x0E53: "Delete", 0x0E47: "Home", 0x0E4F: "End",
	0x0E49: "PageUp", 0x0E51: "PageDown",
	0xE048: "ArrowUp", 0xE04B: "ArrowLeft", 0xE04D: "ArrowRight", 0xE050: "ArrowDown",

	0x0045: "NumLock", 0x0E35: "NumpadDivide", 0x0037: "NumpadMultiply",
	0x004A: "NumpadSubtract", 0x0E0D: "NumpadEqual", 0x004E: "NumpadAdd",
	0x0E1C: "NumpadEnter", 0x0053: "NumpadDecimal",
	0x004F: "Numpad1", 0x0050: "Numpad2", 0x0051: "Numpad3",
	0x004B: "Numpad4", 0x004C: "Numpad5", 0x004D: "Numpad6",
	0x0047: "Numpad7", 0x0048: "Numpad8", 0x0049: "Numpad9", 0x0052: "Numpad0",

	0x002A: "ShiftLeft", 0x0036: "ShiftRight",
	0x001D: "ControlLeft", 0x0E1D: "ControlRight",
	0x0038: "AltLeft", 0x0E38: "AltRight",
	0x0E5B: "MetaLeft", 0x0E5C: "MetaRight", 0x0E5D: "ContextMenu",
}

// Modifier mask bits of a libuiohook event.
const (
	maskShiftL uint16 = 1 << 0
	maskCtrlL  uint16 = 1 << 1
	maskAltL   uint16 = 1 << 3
	maskShiftR uint16 = 1 << 4
	maskCtrlR  uint16 = 1 << 5
	maskAltR   uint16 = 1 << 7

	maskShift = maskShiftL | maskShiftR
	maskCtrl  = maskCtrlL | maskCtrlR
	maskAlt   = maskAltL | maskAltR
)

// libuiohook numbers buttons 1 left, 2 right, 3 middle, 4 and 5 extra.
var buttonIndex = map[uint16]int{1: 0, 2: 2, 3: 1, 4: 3, 5: 4}
