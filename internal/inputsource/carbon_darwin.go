//go:build darwin

package inputsource

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/go-errors/errors"
)

const (
	carbonPath         = "/System/Library/Frameworks/Carbon.framework/Carbon"
	coreFoundationPath = "/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation"

	cfStringEncodingUTF8 uint32 = 0x08000100
)

// carbonAPI holds the Text Input Source Services and CoreFoundation entry
// points used by Carbon. CF and TIS refs are passed around as uintptr.
type carbonAPI struct {
	copyCurrentKeyboardInputSource func() uintptr
	createInputSourceList          func(properties uintptr, includeAllInstalled bool) uintptr
	getInputSourceProperty         func(source, key uintptr) uintptr
	selectInputSource              func(source uintptr) int32

	arrayGetCount                 func(array uintptr) int
	arrayGetValueAtIndex          func(array uintptr, idx int) uintptr
	stringGetLength               func(str uintptr) int
	stringGetMaximumSizeForEncode func(length int, encoding uint32) int
	stringGetCString              func(str uintptr, buf *byte, size int, encoding uint32) bool
	release                       func(ref uintptr)

	propertyID   uintptr // kTISPropertyInputSourceID
	propertyName uintptr // kTISPropertyLocalizedName
}

var (
	carbonOnce sync.Once
	carbonLib  *carbonAPI
	carbonErr  error
)

func loadCarbon() (*carbonAPI, error) {
	carbonOnce.Do(func() {
		carbonLib, carbonErr = openCarbon()
	})
	return carbonLib, carbonErr
}

func openCarbon() (*carbonAPI, error) {
	carbon, err := purego.Dlopen(carbonPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errors.Errorf("load Carbon: %w", err)
	}
	cf, err := purego.Dlopen(coreFoundationPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errors.Errorf("load CoreFoundation: %w", err)
	}

	api := &carbonAPI{}
	purego.RegisterLibFunc(&api.copyCurrentKeyboardInputSource, carbon, "TISCopyCurrentKeyboardInputSource")
	purego.RegisterLibFunc(&api.createInputSourceList, carbon, "TISCreateInputSourceList")
	purego.RegisterLibFunc(&api.getInputSourceProperty, carbon, "TISGetInputSourceProperty")
	purego.RegisterLibFunc(&api.selectInputSource, carbon, "TISSelectInputSource")

	purego.RegisterLibFunc(&api.arrayGetCount, cf, "CFArrayGetCount")
	purego.RegisterLibFunc(&api.arrayGetValueAtIndex, cf, "CFArrayGetValueAtIndex")
	purego.RegisterLibFunc(&api.stringGetLength, cf, "CFStringGetLength")
	purego.RegisterLibFunc(&api.stringGetMaximumSizeForEncode, cf, "CFStringGetMaximumSizeForEncoding")
	purego.RegisterLibFunc(&api.stringGetCString, cf, "CFStringGetCString")
	purego.RegisterLibFunc(&api.release, cf, "CFRelease")

	if api.propertyID, err = constant(carbon, "kTISPropertyInputSourceID"); err != nil {
		return nil, err
	}
	if api.propertyName, err = constant(carbon, "kTISPropertyLocalizedName"); err != nil {
		return nil, err
	}
	return api, nil
}

// constant reads the value of an exported CFStringRef global.
func constant(lib uintptr, name string) (uintptr, error) {
	addr, err := purego.Dlsym(lib, name)
	if err != nil {
		return 0, errors.Errorf("resolve %s: %w", name, err)
	}
	return *(*uintptr)(unsafe.Pointer(addr)), nil
}

func (api *carbonAPI) goString(str uintptr) string {
	if str == 0 {
		return ""
	}
	length := api.stringGetLength(str)
	size := api.stringGetMaximumSizeForEncode(length, cfStringEncodingUTF8) + 1
	buf := make([]byte, size)
	if !api.stringGetCString(str, &buf[0], size, cfStringEncodingUTF8) {
		return ""
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

func (api *carbonAPI) property(source, key uintptr) string {
	return api.goString(api.getInputSourceProperty(source, key))
}

// Carbon implements Registry with macOS Text Input Source Services.
type Carbon struct {
	api *carbonAPI
}

// NewCarbon loads the Carbon framework.
func NewCarbon() (*Carbon, error) {
	api, err := loadCarbon()
	if err != nil {
		return nil, err
	}
	return &Carbon{api: api}, nil
}

// Current returns the ID of the current keyboard input source.
func (c *Carbon) Current() (string, error) {
	src := c.api.copyCurrentKeyboardInputSource()
	if src == 0 {
		return "", nil
	}
	defer c.api.release(src)
	return c.api.property(src, c.api.propertyID), nil
}

// Sources returns the enabled input sources.
func (c *Carbon) Sources() ([]Source, error) {
	var sources []Source
	err := c.each(func(ref uintptr, id string) bool {
		sources = append(sources, Source{ID: id, Name: c.api.property(ref, c.api.propertyName)})
		return true
	})
	return sources, err
}

// Select activates the source with the given ID. TISSelectInputSource
// returns before the switch is visible to TISCopyCurrentKeyboardInputSource.
func (c *Carbon) Select(id string) error {
	var status int32
	found := false
	err := c.each(func(ref uintptr, sourceID string) bool {
		if sourceID != id {
			return true
		}
		found = true
		status = c.api.selectInputSource(ref)
		return false
	})
	if err != nil {
		return err
	}
	if !found {
		return errors.Errorf("input source not found: %s", id)
	}
	if status != 0 {
		return errors.Errorf("TISSelectInputSource(%s) failed with status %d", id, status)
	}
	return nil
}

// each calls fn for every enabled source while fn returns true. Refs are only
// valid inside fn.
func (c *Carbon) each(fn func(ref uintptr, id string) bool) error {
	list := c.api.createInputSourceList(0, false)
	if list == 0 {
		return errors.New("TISCreateInputSourceList returned NULL")
	}
	defer c.api.release(list)

	n := c.api.arrayGetCount(list)
	for i := 0; i < n; i++ {
		ref := c.api.arrayGetValueAtIndex(list, i)
		id := c.api.property(ref, c.api.propertyID)
		if id == "" {
			continue
		}
		if !fn(ref, id) {
			break
		}
	}
	return nil
}
