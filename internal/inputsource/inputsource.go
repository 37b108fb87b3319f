// Package inputsource talks to the operating system's input source registry.
package inputsource

import (
	"github.com/go-errors/errors"
)

// Backend names accepted by New.
const (
	BackendAuto   = "auto"
	BackendCarbon = "carbon"
	BackendIBus   = "ibus"
)

// ErrUnsupported is returned when a backend is not available on this platform.
var ErrUnsupported = errors.New("input source backend not supported on this platform")

// Source is an installed input method.
type Source struct {
	ID   string
	Name string // localized display name, may be empty
}

// String formats the source the way the list command prints it.
func (s Source) String() string {
	if s.Name == "" {
		return s.ID
	}
	return s.ID + " - " + s.Name
}

// Registry enumerates and selects input sources.
type Registry interface {
	// Current returns the active input source ID, or "" if none is reported.
	Current() (string, error)
	// Sources returns the enabled input sources in registry order.
	Sources() ([]Source, error)
	// Select asks the OS to activate id. The switch may complete after
	// Select returns; callers confirm it through Current.
	Select(id string) error
}

// Find returns the source with the given ID.
func Find(sources []Source, id string) (Source, bool) {
	for _, s := range sources {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}
