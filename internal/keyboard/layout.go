package keyboard

import (
	"strings"

	"github.com/abdullathedruid/ime-tool/internal/inputsource"
)

// Layout is the physical keyboard class relevant to mode forcing.
type Layout int

const (
	// LayoutSingleMode keyboards have no dedicated mode keys.
	LayoutSingleMode Layout = iota
	// LayoutDualMode keyboards (JIS) have Eisu and Kana keys.
	LayoutDualMode
)

func (l Layout) String() string {
	if l == LayoutDualMode {
		return "dual-mode"
	}
	return "single-mode"
}

// Virtual key codes of the JIS mode keys.
const (
	KeyEisu = 102 // kVK_JIS_Eisu
	KeyKana = 104 // kVK_JIS_Kana
)

// JapaneseSourcePrefix identifies the built-in Japanese input method.
const JapaneseSourcePrefix = "com.apple.inputmethod.Kotoeri"

// Reason explains which signal decided a Layout.
type Reason string

const (
	ReasonDualModeType   Reason = "keyboard type is dual-mode"
	ReasonJapaneseSource Reason = "built-in Japanese input method installed"
	ReasonSingleModeType Reason = "keyboard type is single-mode"
	ReasonDefault        Reason = "unrecognized keyboard type"
)

// Heuristic classifies keyboards from the hardware keyboard type code.
// Newer hardware reports ambiguous codes, so the installed input sources are
// used as a second signal and unknown codes default to dual-mode: an extra
// mode key is harmless, a missing one is not.
type Heuristic struct {
	DualModeTypes   []int
	SingleModeTypes []int
}

// DefaultHeuristic returns the known keyboard type codes.
func DefaultHeuristic() Heuristic {
	return Heuristic{
		DualModeTypes:   []int{42, 202},
		SingleModeTypes: []int{40, 41},
	}
}

// Classify returns the layout for kbdType given the enabled sources.
func (h Heuristic) Classify(kbdType int, sources []inputsource.Source) (Layout, Reason) {
	if containsInt(h.DualModeTypes, kbdType) {
		return LayoutDualMode, ReasonDualModeType
	}
	if hasJapaneseSource(sources) {
		return LayoutDualMode, ReasonJapaneseSource
	}
	if containsInt(h.SingleModeTypes, kbdType) {
		return LayoutSingleMode, ReasonSingleModeType
	}
	return LayoutDualMode, ReasonDefault
}

func hasJapaneseSource(sources []inputsource.Source) bool {
	for _, s := range sources {
		if strings.HasPrefix(s.ID, JapaneseSourcePrefix) {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ForcingKey returns the key that forces script's sub-mode on a dual-mode
// keyboard. ok is false when nothing should be pressed.
func ForcingKey(layout Layout, script Script) (key int, ok bool) {
	if layout != LayoutDualMode {
		return 0, false
	}
	switch script {
	case ScriptNative:
		return KeyKana, true
	case ScriptLatin:
		return KeyEisu, true
	default:
		return 0, false
	}
}
