package keyboard

import (
	"time"

	"github.com/go-errors/errors"
)

// ErrUnsupported is returned on platforms without key injection or keyboard
// type detection.
var ErrUnsupported = errors.New("keyboard control not supported on this platform")

// PressDelay separates the key down and key up events.
const PressDelay = 10 * time.Millisecond

// Injector synthesizes hardware key events.
type Injector interface {
	// PressAndRelease sends key down, waits PressDelay, then key up.
	PressAndRelease(code int) error
}

// TypeDetector reports the hardware keyboard type code.
type TypeDetector interface {
	KeyboardType() (int, error)
}
