// Package mode names the editor modes and the slot each one owns.
package mode

import "github.com/abdullathedruid/ime-tool/internal/slot"

// Mode is an editor editing mode.
type Mode int

const (
	// Insert is the text entry mode. Its input method lives in slot A.
	Insert Mode = iota
	// Normal is the command mode. Its input method lives in slot B.
	Normal
)

// String returns the human-readable mode name.
func (m Mode) String() string {
	switch m {
	case Insert:
		return "INSERT"
	case Normal:
		return "NORMAL"
	default:
		return "UNKNOWN"
	}
}

// Slot returns the slot that remembers the mode's input method.
func (m Mode) Slot() string {
	if m == Insert {
		return slot.A
	}
	return slot.B
}

// Other returns the mode on the other side of a switch.
func (m Mode) Other() Mode {
	if m == Insert {
		return Normal
	}
	return Insert
}

// UsesFallback reports whether entering m without a remembered method
// should switch to the fallback method. Normal mode wants a Latin layout so
// commands work; insert mode keeps whatever is active.
func (m Mode) UsesFallback() bool {
	return m == Normal
}
