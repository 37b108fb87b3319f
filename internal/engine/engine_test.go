package engine

import (
	"context"
	"testing"
	"time"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdullathedruid/ime-tool/internal/keyboard"
	"github.com/abdullathedruid/ime-tool/internal/mode"
	"github.com/abdullathedruid/ime-tool/internal/slot"
)

func TestToggleBootstrapsFromEmptySlots(t *testing.T) {
	h := newHarness(t, abc)

	res, err := h.engine.Toggle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, abc, h.slot(slot.B))
	assert.Empty(t, h.slot(slot.A))
	assert.False(t, res.Switched)
	assert.Empty(t, h.registry.selects, "no switch should be attempted")
	assert.Empty(t, h.sleeps.waits)
}

func TestToggleFromAToB(t *testing.T) {
	h := newHarness(t, abc)
	h.seed(t, abc, hiragana)

	res, err := h.engine.Toggle(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Switched)
	assert.Empty(t, res.Written, "no slot writes expected")
	assert.Equal(t, []string{hiragana}, h.registry.selects)
	assert.Equal(t, hiragana, h.registry.current)
	assert.Equal(t, abc, h.slot(slot.A))
	assert.Equal(t, hiragana, h.slot(slot.B))
	assert.Equal(t, []time.Duration{DefaultSettleInterval}, h.sleeps.waits)
}

func TestToggleFromBToA(t *testing.T) {
	h := newHarness(t, hiragana)
	h.seed(t, abc, hiragana)

	res, err := h.engine.Toggle(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Switched)
	assert.Equal(t, abc, h.registry.current)
}

func TestToggleFromOtherSavesToBAndSwitchesToA(t *testing.T) {
	h := newHarness(t, german)
	h.seed(t, abc, hiragana)

	res, err := h.engine.Toggle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Write{{Slot: slot.B, ID: german}}, res.Written)
	assert.Equal(t, german, h.slot(slot.B))
	assert.Equal(t, abc, h.registry.current)
}

func TestToggleIsStatelessAcrossRuns(t *testing.T) {
	first := newHarness(t, german)
	first.seed(t, abc, hiragana)
	second := newHarness(t, german)
	second.seed(t, abc, hiragana)

	r1, err := first.engine.Toggle(context.Background())
	require.NoError(t, err)
	r2, err := second.engine.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r1.Plan, r2.Plan)

	// Same engine, same external state: same decision again.
	h := newHarness(t, abc)
	h.seed(t, abc, hiragana)
	h.registry.converge = false
	r1, _ = h.engine.Toggle(context.Background())
	r2, _ = h.engine.Toggle(context.Background())
	assert.Equal(t, r1.Plan, r2.Plan)
	assert.Equal(t, hiragana, r1.Plan.Target)
}

func TestToggleRoundTrip(t *testing.T) {
	h := newHarness(t, abc)

	// First run records ABC as the normal-mode method.
	_, err := h.engine.Toggle(context.Background())
	require.NoError(t, err)

	// User switches to Hiragana by hand and saves it for insert mode.
	h.registry.current = hiragana
	_, err = h.engine.Save(context.Background(), mode.Insert)
	require.NoError(t, err)

	_, err = h.engine.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, abc, h.registry.current)

	_, err = h.engine.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hiragana, h.registry.current)
}

func TestEnterInsertWithoutSlotA(t *testing.T) {
	h := newHarness(t, abc)

	res, err := h.engine.Enter(context.Background(), mode.Insert)
	require.NoError(t, err)

	assert.Equal(t, abc, h.slot(slot.B))
	assert.False(t, res.Switched)
	assert.Empty(t, h.registry.selects)
}

func TestEnterInsertRestoresSlotA(t *testing.T) {
	h := newHarness(t, abc)
	h.seed(t, hiragana, "")

	res, err := h.engine.Enter(context.Background(), mode.Insert)
	require.NoError(t, err)

	assert.True(t, res.Switched)
	assert.Equal(t, hiragana, h.registry.current)
	assert.Equal(t, abc, h.slot(slot.B))
}

func TestEnterNormalUsesFallback(t *testing.T) {
	h := newHarness(t, hiragana)

	res, err := h.engine.Enter(context.Background(), mode.Normal)
	require.NoError(t, err)

	assert.Equal(t, hiragana, h.slot(slot.A))
	assert.True(t, res.Switched)
	assert.Equal(t, DefaultFallback, h.registry.current)
}

func TestEnterNormalRestoresSlotB(t *testing.T) {
	h := newHarness(t, hiragana)
	h.seed(t, "", german)

	_, err := h.engine.Enter(context.Background(), mode.Normal)
	require.NoError(t, err)
	assert.Equal(t, german, h.registry.current)
}

func TestSaveDoesNotSwitch(t *testing.T) {
	h := newHarness(t, hiragana)

	res, err := h.engine.Save(context.Background(), mode.Insert)
	require.NoError(t, err)
	assert.Equal(t, hiragana, h.slot(slot.A))
	assert.False(t, res.Switched)

	h.registry.current = abc
	_, err = h.engine.Save(context.Background(), mode.Normal)
	require.NoError(t, err)
	assert.Equal(t, abc, h.slot(slot.B))
	assert.Empty(t, h.registry.selects)
}

func TestSaveWithoutCurrentWritesNothing(t *testing.T) {
	h := newHarness(t, "")

	res, err := h.engine.Save(context.Background(), mode.Insert)
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	_, ok := h.slots.Read(slot.A)
	assert.False(t, ok)
}

func TestTargetNotFoundKeepsCommittedWrites(t *testing.T) {
	h := newHarness(t, german)
	h.seed(t, "com.example.inputmethod.Removed", hiragana)

	res, err := h.engine.Toggle(context.Background())

	require.ErrorIs(t, err, ErrTargetNotFound)
	assert.Contains(t, err.Error(), "com.example.inputmethod.Removed")
	assert.Equal(t, german, h.slot(slot.B), "slot write must stay committed")
	assert.Len(t, res.Written, 1)
	assert.Empty(t, h.registry.selects)
}

func TestSelectNotFound(t *testing.T) {
	h := newHarness(t, abc)

	_, err := h.engine.Select(context.Background(), "com.apple.keylayout.Nope")
	require.ErrorIs(t, err, ErrTargetNotFound)
	assert.Contains(t, err.Error(), "com.apple.keylayout.Nope")
}

func TestSelectEmpty(t *testing.T) {
	h := newHarness(t, abc)

	_, err := h.engine.Select(context.Background(), "")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestSelectSwitches(t *testing.T) {
	h := newHarness(t, abc)

	res, err := h.engine.Select(context.Background(), german)
	require.NoError(t, err)
	assert.True(t, res.Switched)
	assert.Equal(t, german, h.registry.current)
	assert.Empty(t, h.slot(slot.A))
	assert.Empty(t, h.slot(slot.B))
}

func TestSelectAlreadyActiveSkipsSelect(t *testing.T) {
	h := newHarness(t, german)

	res, err := h.engine.Select(context.Background(), german)
	require.NoError(t, err)
	assert.True(t, res.Switched)
	assert.Empty(t, h.registry.selects)
	assert.Empty(t, h.sleeps.waits)
}

func TestSwitchNotVerifiedAfterRetries(t *testing.T) {
	h := newHarness(t, german)
	h.seed(t, abc, hiragana)
	h.registry.converge = false

	res, err := h.engine.Toggle(context.Background())

	require.ErrorIs(t, err, ErrSwitchNotVerified)
	assert.Contains(t, err.Error(), abc)
	assert.False(t, res.Switched)

	// One initial select plus one per retry.
	assert.Len(t, h.registry.selects, DefaultRetries+1)
	// Initial check plus DefaultRetries retries, each after the settle interval.
	require.Len(t, h.sleeps.waits, DefaultRetries+1)
	for _, w := range h.sleeps.waits {
		assert.Equal(t, DefaultSettleInterval, w)
	}
	// State read + one query per check.
	assert.Equal(t, 1+DefaultRetries+1, h.registry.queries)

	assert.Equal(t, german, h.slot(slot.B), "slot write must not be rolled back")
	assert.Empty(t, h.injector.pressed)
}

func TestSwitchVerifiedOnLaterAttempt(t *testing.T) {
	h := newHarness(t, abc)
	h.seed(t, abc, hiragana)
	h.registry.converge = false

	reg := &lateRegistry{fakeRegistry: h.registry, convergeAfter: 3}
	h.engine.opts.Registry = reg

	res, err := h.engine.Toggle(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Switched)
	assert.Len(t, reg.selects, 3)
}

// lateRegistry only applies the selection on the nth Select call.
type lateRegistry struct {
	*fakeRegistry
	convergeAfter int
}

func (r *lateRegistry) Select(id string) error {
	if err := r.fakeRegistry.Select(id); err != nil {
		return err
	}
	if len(r.selects) >= r.convergeAfter {
		r.current = id
	}
	return nil
}

func TestSelectErrorIsRegistryError(t *testing.T) {
	h := newHarness(t, abc)
	h.registry.selectErr = errors.New("TIS refused")

	_, err := h.engine.Select(context.Background(), german)
	require.ErrorIs(t, err, ErrRegistry)
	assert.Contains(t, err.Error(), "TIS refused")
}

func TestCurrentErrorIsFatal(t *testing.T) {
	h := newHarness(t, abc)
	h.registry.currentErr = errors.New("ibus daemon not running")

	_, err := h.engine.Toggle(context.Background())
	require.ErrorIs(t, err, ErrRegistry)
	_, ok := h.slots.Read(slot.B)
	assert.False(t, ok)
}

func TestSlotWriteFailureIsFatal(t *testing.T) {
	reg := newFakeRegistry(german)
	e := New(Options{
		Registry: reg,
		Slots:    failingSlots{values: map[string]string{slot.A: abc}},
	})

	_, err := e.Toggle(context.Background())
	require.ErrorIs(t, err, slot.ErrStorage)
	assert.Empty(t, reg.selects, "no switch after a failed write")
}

func TestListAndCurrent(t *testing.T) {
	h := newHarness(t, hiragana)

	cur, err := h.engine.Current()
	require.NoError(t, err)
	assert.Equal(t, hiragana, cur)

	sources, err := h.engine.List()
	require.NoError(t, err)
	assert.Equal(t, installedSources(), sources)

	h.registry.sourcesErr = errors.New("boom")
	_, err = h.engine.List()
	assert.ErrorIs(t, err, ErrRegistry)
}

func TestModeForcing(t *testing.T) {
	tests := []struct {
		desc     string
		force    ForceMode
		detector keyboard.TypeDetector
		sources  bool // include Kotoeri sources
		target   string
		want     []int
	}{
		{"jis keyboard to kana", ForceAuto, fakeDetector{kbdType: 42}, false, hiragana, []int{keyboard.KeyKana}},
		{"jis keyboard to latin", ForceAuto, fakeDetector{kbdType: 42}, false, abc, []int{keyboard.KeyEisu}},
		{"jis keyboard to romaji", ForceAuto, fakeDetector{kbdType: 202}, false, romaji, []int{keyboard.KeyEisu}},
		{"ansi with japanese installed", ForceAuto, fakeDetector{kbdType: 40}, true, hiragana, []int{keyboard.KeyKana}},
		{"ansi without japanese", ForceAuto, fakeDetector{kbdType: 40}, false, abc, nil},
		{"unknown code defaults to dual", ForceAuto, fakeDetector{kbdType: 77}, false, abc, []int{keyboard.KeyEisu}},
		{"detector error skips", ForceAuto, fakeDetector{err: errors.New("no carbon")}, true, hiragana, nil},
		{"no detector skips", ForceAuto, nil, true, hiragana, nil},
		{"always ignores detector", ForceAlways, nil, false, abc, []int{keyboard.KeyEisu}},
		{"never", ForceNever, fakeDetector{kbdType: 42}, true, hiragana, nil},
		{"unknown script", ForceAlways, nil, false, "org.example.Custom", nil},
		{"non-latin layout on jis keyboard", ForceAuto, fakeDetector{kbdType: 42}, false, "com.apple.keylayout.Thai", nil},
		{"non-latin layout always", ForceAlways, nil, false, "com.apple.keylayout.Russian", nil},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			reg := newFakeRegistry(german)
			if tt.sources {
				reg.sources = installedSources()
			} else {
				reg.sources = withoutKotoeri(installedSources())
			}
			reg.sources = append(reg.sources, inputSourceOf(tt.target))

			inj := &fakeInjector{}
			e := New(Options{
				Registry: reg,
				Slots:    failingSlots{},
				Injector: inj,
				Detector: tt.detector,
				Force:    tt.force,
				Retry:    noWait(),
			})

			res, err := e.Select(context.Background(), tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, inj.pressed)
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want[0], res.ForcedKey)
			} else {
				assert.Zero(t, res.ForcedKey)
			}
		})
	}
}

func TestModeForcingFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, abc)
	h.injector.err = errors.New("accessibility permission denied")

	res, err := h.engine.Select(context.Background(), hiragana)
	require.NoError(t, err)
	assert.True(t, res.Switched)
	assert.Zero(t, res.ForcedKey)
}

func TestModeForcingWithoutInjector(t *testing.T) {
	reg := newFakeRegistry(abc)
	e := New(Options{Registry: reg, Slots: failingSlots{}, Force: ForceAlways, Retry: noWait()})

	res, err := e.Select(context.Background(), hiragana)
	require.NoError(t, err)
	assert.Zero(t, res.ForcedKey)
}

func TestNewDefaults(t *testing.T) {
	e := New(Options{Registry: newFakeRegistry(abc), Slots: failingSlots{}})
	assert.Equal(t, ForceAuto, e.opts.Force)
	assert.NotNil(t, e.opts.Classifier)
	assert.NotNil(t, e.logger)
	assert.Equal(t, keyboard.DefaultHeuristic(), e.opts.Heuristic)
}
