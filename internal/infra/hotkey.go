package infra

import (
	"fmt"
	"strings"
)

// virtualKeys maps hotkey names to Windows virtual-key codes.
var virtualKeys = map[string]uint32{
	"F1": 0x70, "F2": 0x71, "F3": 0x72, "F4": 0x73,
	"F5": 0x74, "F6": 0x75, "F7": 0x76, "F8": 0x77,
	"F9": 0x78, "F10": 0x79, "F11": 0x7A, "F12": 0x7B,
	"PAUSE":  0x13,
	"SCROLL": 0x91,
	"INSERT": 0x2D,
	"HOME":   0x24,
	"END":    0x23,
}

// ParseHotkey resolves a key name such as "F10" to its virtual-key code.
func ParseHotkey(name string) (uint32, error) {
	code, ok := virtualKeys[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unsupported hotkey %q", name)
	}
	return code, nil
}
