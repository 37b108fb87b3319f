//go:build !darwin

package inputsource

import (
	"github.com/go-errors/errors"
)

// New returns the registry for backend. "auto" picks IBus.
func New(backend string) (Registry, error) {
	switch backend {
	case "", BackendAuto, BackendIBus:
		return NewIBus(), nil
	default:
		return nil, errors.Errorf("%w: %s", ErrUnsupported, backend)
	}
}
