// Package engine implements the input method toggle state machine.
//
// Every operation re-reads the live input method and both slots, decides a
// Plan, commits the slot writes and then performs the switch. Nothing is
// remembered between invocations, and slot writes are not rolled back when
// the switch fails.
package engine

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-errors/errors"

	"github.com/abdullathedruid/ime-tool/internal/inputsource"
	"github.com/abdullathedruid/ime-tool/internal/keyboard"
	"github.com/abdullathedruid/ime-tool/internal/mode"
	"github.com/abdullathedruid/ime-tool/internal/retry"
	"github.com/abdullathedruid/ime-tool/internal/slot"
)

var (
	// ErrTargetNotFound is returned when the switch target is not installed.
	ErrTargetNotFound = errors.New("input source not found")
	// ErrSwitchNotVerified is returned when the OS never reports the target
	// as active within the retry budget.
	ErrSwitchNotVerified = errors.New("input source switch not verified")
	// ErrRegistry wraps failures of the input source registry itself.
	ErrRegistry = errors.New("input source registry error")
)

// DefaultFallback is used when entering normal mode with nothing saved.
const DefaultFallback = "com.apple.keylayout.ABC"

// Defaults for switch verification.
const (
	DefaultSettleInterval = 50 * time.Millisecond
	DefaultRetries        = 3
)

// ForceMode controls keyboard sub-mode forcing after a switch.
type ForceMode string

const (
	ForceAuto   ForceMode = "auto"
	ForceAlways ForceMode = "always"
	ForceNever  ForceMode = "never"
)

// SlotStore persists slot values. Read never fails; absence is reported as
// ok == false.
type SlotStore interface {
	Read(name string) (string, bool)
	Write(identifier, name string) error
}

// Options configures an Engine. Injector and Detector may be nil, which
// disables mode forcing.
type Options struct {
	Registry   inputsource.Registry
	Slots      SlotStore
	Injector   keyboard.Injector
	Detector   keyboard.TypeDetector
	Classifier keyboard.ScriptClassifier
	Heuristic  keyboard.Heuristic
	Force      ForceMode
	Fallback   string
	Retry      retry.Policy
	Logger     *log.Logger
}

// Engine runs toggle commands against a registry and a slot store.
type Engine struct {
	opts   Options
	logger *log.Logger
}

// Result describes what an operation did.
type Result struct {
	Plan     Plan
	Written  []Write
	Switched bool
	// ForcedKey is the mode key pressed after the switch, 0 if none.
	ForcedKey int
}

// New creates an Engine, filling unset options with defaults.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Classifier == nil {
		opts.Classifier = keyboard.DefaultClassifier()
	}
	if opts.Heuristic.DualModeTypes == nil && opts.Heuristic.SingleModeTypes == nil {
		opts.Heuristic = keyboard.DefaultHeuristic()
	}
	if opts.Force == "" {
		opts.Force = ForceAuto
	}
	return &Engine{opts: opts, logger: opts.Logger}
}

// Current returns the active input method, "" if the OS reports none.
func (e *Engine) Current() (string, error) {
	id, err := e.opts.Registry.Current()
	if err != nil {
		return "", errors.Errorf("%w: %w", ErrRegistry, err)
	}
	return id, nil
}

// List returns the installed input methods.
func (e *Engine) List() ([]inputsource.Source, error) {
	sources, err := e.opts.Registry.Sources()
	if err != nil {
		return nil, errors.Errorf("%w: %w", ErrRegistry, err)
	}
	return sources, nil
}

// State reads the live method and both slots.
func (e *Engine) State() (State, error) {
	current, err := e.Current()
	if err != nil {
		return State{}, err
	}
	a, _ := e.opts.Slots.Read(slot.A)
	b, _ := e.opts.Slots.Read(slot.B)
	s := State{Current: current, A: a, B: b}
	e.logger.Debug("state", "current", s.Current, "a", s.A, "b", s.B)
	return s, nil
}

// Save remembers the current method as m's method.
func (e *Engine) Save(ctx context.Context, m mode.Mode) (Result, error) {
	return e.run(ctx, func(s State) Plan { return PlanSave(m, s) })
}

// Enter switches into mode m.
func (e *Engine) Enter(ctx context.Context, m mode.Mode) (Result, error) {
	return e.run(ctx, func(s State) Plan { return PlanEnter(m, s, e.opts.Fallback) })
}

// Toggle flips between the two slot methods.
func (e *Engine) Toggle(ctx context.Context) (Result, error) {
	return e.run(ctx, PlanToggle)
}

// Select switches directly to id.
func (e *Engine) Select(ctx context.Context, id string) (Result, error) {
	if id == "" {
		return Result{}, errors.Errorf("%w: empty identifier", ErrTargetNotFound)
	}
	current, err := e.Current()
	if err != nil {
		return Result{}, err
	}
	return e.execute(ctx, State{Current: current}, PlanSelect(id))
}

func (e *Engine) run(ctx context.Context, decide func(State) Plan) (Result, error) {
	s, err := e.State()
	if err != nil {
		return Result{}, err
	}
	return e.execute(ctx, s, decide(s))
}

func (e *Engine) execute(ctx context.Context, s State, p Plan) (Result, error) {
	res := Result{Plan: p}
	e.logger.Debug("plan", "reason", p.Reason, "writes", len(p.Writes), "target", p.Target)

	for _, w := range p.Writes {
		if err := e.opts.Slots.Write(w.ID, w.Slot); err != nil {
			return res, err
		}
		res.Written = append(res.Written, w)
	}

	if p.Target == "" {
		return res, nil
	}

	sources, err := e.switchTo(ctx, s.Current, p.Target)
	if err != nil {
		return res, err
	}
	res.Switched = true
	res.ForcedKey = e.force(p.Target, sources)
	return res, nil
}

// switchTo selects target and polls until the OS reports it active.
func (e *Engine) switchTo(ctx context.Context, current, target string) ([]inputsource.Source, error) {
	sources, err := e.opts.Registry.Sources()
	if err != nil {
		return nil, errors.Errorf("%w: %w", ErrRegistry, err)
	}
	if _, ok := inputsource.Find(sources, target); !ok {
		return nil, errors.Errorf("%w: %s", ErrTargetNotFound, target)
	}
	if current == target {
		e.logger.Debug("target already active", "id", target)
		return sources, nil
	}

	if err := e.opts.Registry.Select(target); err != nil {
		return nil, errors.Errorf("%w: select %s: %w", ErrRegistry, target, err)
	}

	policy := e.opts.Retry
	last := current
	err = retry.Poll(ctx, policy, func(attempt int) (bool, error) {
		active, err := e.opts.Registry.Current()
		if err != nil {
			e.logger.Debug("query after select failed", "attempt", attempt, "err", err)
		} else {
			last = active
		}
		if err == nil && active == target {
			e.logger.Debug("switch verified", "id", target, "attempt", attempt)
			return true, nil
		}
		if attempt < policy.Retries {
			e.logger.Debug("switch not visible yet, reselecting", "attempt", attempt, "active", active)
			if err := e.opts.Registry.Select(target); err != nil {
				return false, errors.Errorf("%w: select %s: %w", ErrRegistry, target, err)
			}
		}
		return false, nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return nil, errors.Errorf("%w: wanted %s, still on %s after %d retries", ErrSwitchNotVerified, target, displayID(last), policy.Retries)
		}
		return nil, err
	}
	return sources, nil
}

// force presses the mode key matching target's script on dual-mode
// keyboards. It returns the key pressed, 0 if none. Failures are logged only.
func (e *Engine) force(target string, sources []inputsource.Source) int {
	if e.opts.Force == ForceNever || e.opts.Injector == nil {
		return 0
	}

	script := e.opts.Classifier.Classify(target)
	if script == keyboard.ScriptUnknown {
		e.logger.Debug("no mode forcing, unknown script", "id", target)
		return 0
	}

	layout := keyboard.LayoutDualMode
	if e.opts.Force != ForceAlways {
		if e.opts.Detector == nil {
			return 0
		}
		kbdType, err := e.opts.Detector.KeyboardType()
		if err != nil {
			e.logger.Warn("keyboard type unavailable, skipping mode forcing", "err", err)
			return 0
		}
		var reason keyboard.Reason
		layout, reason = e.opts.Heuristic.Classify(kbdType, sources)
		e.logger.Debug("keyboard classified", "type", kbdType, "layout", layout, "reason", reason)
	}

	key, ok := keyboard.ForcingKey(layout, script)
	if !ok {
		return 0
	}
	if err := e.opts.Injector.PressAndRelease(key); err != nil {
		e.logger.Warn("mode forcing failed", "key", key, "err", err)
		return 0
	}
	e.logger.Debug("mode forced", "key", key, "script", script)
	return key
}

func displayID(id string) string {
	if id == "" {
		return "<none>"
	}
	return id
}
