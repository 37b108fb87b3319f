//go:build darwin

package keyboard

import (
	"time"

	"github.com/ebitengine/purego"
	"github.com/go-errors/errors"
	"github.com/micmonay/keybd_event"
)

const carbonPath = "/System/Library/Frameworks/Carbon.framework/Carbon"

// KeyInjector posts key events through CoreGraphics.
type KeyInjector struct {
	kb    keybd_event.KeyBonding
	sleep func(time.Duration)
}

// NewInjector creates the platform injector.
func NewInjector() (Injector, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, errors.Errorf("key injector: %w", err)
	}
	return &KeyInjector{kb: kb, sleep: time.Sleep}, nil
}

// PressAndRelease implements Injector.
func (k *KeyInjector) PressAndRelease(code int) error {
	k.kb.Clear()
	k.kb.SetKeys(code)
	if err := k.kb.Press(); err != nil {
		return errors.Errorf("key down %d: %w", code, err)
	}
	k.sleep(PressDelay)
	if err := k.kb.Release(); err != nil {
		return errors.Errorf("key up %d: %w", code, err)
	}
	return nil
}

// CarbonTypeDetector reads the keyboard type via LMGetKbdType.
type CarbonTypeDetector struct {
	getKbdType func() uint8
}

// NewTypeDetector creates the platform keyboard type detector.
func NewTypeDetector() (TypeDetector, error) {
	lib, err := purego.Dlopen(carbonPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errors.Errorf("load Carbon: %w", err)
	}
	d := &CarbonTypeDetector{}
	purego.RegisterLibFunc(&d.getKbdType, lib, "LMGetKbdType")
	return d, nil
}

// KeyboardType implements TypeDetector.
func (d *CarbonTypeDetector) KeyboardType() (int, error) {
	return int(d.getKbdType()), nil
}
