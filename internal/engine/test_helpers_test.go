package engine

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-errors/errors"

	"github.com/abdullathedruid/ime-tool/internal/inputsource"
	"github.com/abdullathedruid/ime-tool/internal/retry"
	"github.com/abdullathedruid/ime-tool/internal/slot"
)

const (
	abc      = "com.apple.keylayout.ABC"
	hiragana = "com.apple.inputmethod.Kotoeri.RomajiTyping.Japanese"
	romaji   = "com.apple.inputmethod.Kotoeri.RomajiTyping.Roman"
	german   = "com.apple.keylayout.German"
)

func installedSources() []inputsource.Source {
	return []inputsource.Source{
		{ID: abc, Name: "ABC"},
		{ID: hiragana, Name: "Hiragana"},
		{ID: romaji, Name: "Romaji"},
		{ID: german, Name: "German"},
	}
}

// fakeRegistry is an in-memory input source registry. When converge is
// false, Select is accepted but the active source never changes.
type fakeRegistry struct {
	current  string
	sources  []inputsource.Source
	converge bool

	selects []string
	queries int

	currentErr error
	sourcesErr error
	selectErr  error
}

func newFakeRegistry(current string) *fakeRegistry {
	return &fakeRegistry{current: current, sources: installedSources(), converge: true}
}

func (r *fakeRegistry) Current() (string, error) {
	r.queries++
	if r.currentErr != nil {
		return "", r.currentErr
	}
	return r.current, nil
}

func (r *fakeRegistry) Sources() ([]inputsource.Source, error) {
	if r.sourcesErr != nil {
		return nil, r.sourcesErr
	}
	return r.sources, nil
}

func (r *fakeRegistry) Select(id string) error {
	r.selects = append(r.selects, id)
	if r.selectErr != nil {
		return r.selectErr
	}
	if r.converge {
		r.current = id
	}
	return nil
}

type fakeInjector struct {
	pressed []int
	err     error
}

func (i *fakeInjector) PressAndRelease(code int) error {
	if i.err != nil {
		return i.err
	}
	i.pressed = append(i.pressed, code)
	return nil
}

type fakeDetector struct {
	kbdType int
	err     error
}

func (d fakeDetector) KeyboardType() (int, error) {
	return d.kbdType, d.err
}

type failingSlots struct {
	values map[string]string
}

func (s failingSlots) Read(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s failingSlots) Write(string, string) error {
	return errors.Errorf("%w: disk full", slot.ErrStorage)
}

type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

type harness struct {
	engine   *Engine
	registry *fakeRegistry
	slots    *slot.Store
	injector *fakeInjector
	sleeps   *sleepRecorder
}

func newHarness(t *testing.T, current string) *harness {
	t.Helper()
	h := &harness{
		registry: newFakeRegistry(current),
		slots:    slot.NewStore(filepath.Join(t.TempDir(), "ime-auto"), log.New(io.Discard)),
		injector: &fakeInjector{},
		sleeps:   &sleepRecorder{},
	}
	h.engine = New(Options{
		Registry: h.registry,
		Slots:    h.slots,
		Injector: h.injector,
		Detector: fakeDetector{kbdType: 40},
		Fallback: DefaultFallback,
		Retry: retry.Policy{
			Retries:  DefaultRetries,
			Interval: DefaultSettleInterval,
			Sleep:    h.sleeps.sleep,
		},
	})
	return h
}

func (h *harness) seed(t *testing.T, a, b string) {
	t.Helper()
	if a != "" {
		if err := h.slots.Write(a, slot.A); err != nil {
			t.Fatalf("seed slot a: %v", err)
		}
	}
	if b != "" {
		if err := h.slots.Write(b, slot.B); err != nil {
			t.Fatalf("seed slot b: %v", err)
		}
	}
}

func (h *harness) slot(name string) string {
	v, _ := h.slots.Read(name)
	return v
}

func withoutKotoeri(sources []inputsource.Source) []inputsource.Source {
	var out []inputsource.Source
	for _, s := range sources {
		if !strings.HasPrefix(s.ID, "com.apple.inputmethod.Kotoeri") {
			out = append(out, s)
		}
	}
	return out
}

func inputSourceOf(id string) inputsource.Source {
	return inputsource.Source{ID: id}
}

func noWait() retry.Policy {
	return retry.Policy{
		Retries: DefaultRetries,
		Sleep:   func(context.Context, time.Duration) error { return nil },
	}
}
