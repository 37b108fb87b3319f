//go:build !darwin

package keyboard

// NewInjector returns ErrUnsupported: the mode keys are macOS key codes.
func NewInjector() (Injector, error) {
	return nil, ErrUnsupported
}

// NewTypeDetector returns ErrUnsupported.
func NewTypeDetector() (TypeDetector, error) {
	return nil, ErrUnsupported
}
