// Package keyboard decides and performs post-switch mode forcing for
// keyboards with dedicated alphanumeric/native-script keys.
package keyboard

import "strings"

// Script is the kind of text an input source produces.
type Script int

const (
	ScriptUnknown Script = iota
	// ScriptLatin covers plain layouts and alphanumeric sub-modes.
	ScriptLatin
	// ScriptNative covers kana, hangul, hanzi and similar input modes.
	ScriptNative
)

func (s Script) String() string {
	switch s {
	case ScriptLatin:
		return "latin"
	case ScriptNative:
		return "native"
	default:
		return "unknown"
	}
}

// ScriptClassifier maps an input source ID to the script it produces.
type ScriptClassifier interface {
	Classify(id string) Script
}

// SubstringClassifier classifies IDs by matching known fragments, in order:
// Latin, Native, Unforced, then Layouts. Latin fragments win so that e.g.
// "...Kotoeri.RomajiTyping.Roman" is Latin. Unforced IDs classify as
// ScriptUnknown, which keeps non-Latin keyboard layouts such as
// "com.apple.keylayout.Thai" from matching the generic Layouts prefixes.
type SubstringClassifier struct {
	Latin    []string
	Native   []string
	Unforced []string
	// Layouts are generic plain-layout prefixes, treated as Latin.
	Layouts []string
}

// DefaultClassifier returns the fragment lists for common macOS and IBus
// input sources.
func DefaultClassifier() *SubstringClassifier {
	return &SubstringClassifier{
		Latin: []string{
			".Roman",
			".ABC",
			"Alphanumeric",
			"-Latin",
		},
		Native: []string{
			"Japanese",
			"Kotoeri",
			"Hiragana",
			"Katakana",
			"Korean",
			"Hangul",
			"Chinese",
			"SCIM",
			"TCIM",
			"Pinyin",
			"Zhuyin",
			"Cangjie",
			"mozc",
			"anthy",
		},
		Unforced: []string{
			"Arabic",
			"Armenian",
			"Bulgarian",
			"Byelorussian",
			"Cherokee",
			"Devanagari",
			"Georgian",
			"Greek",
			"Gujarati",
			"Gurmukhi",
			"Hebrew",
			"Kannada",
			"Kazakh",
			"Khmer",
			"Malayalam",
			"Mongolian",
			"Persian",
			"Russian",
			"Serbian",
			"Sinhala",
			"Tamil",
			"Telugu",
			"Thai",
			"Tibetan",
			"Ukrainian",
		},
		Layouts: []string{
			"keylayout.",
			"xkb:",
		},
	}
}

// Classify implements ScriptClassifier.
func (c *SubstringClassifier) Classify(id string) Script {
	switch {
	case containsAny(id, c.Latin):
		return ScriptLatin
	case containsAny(id, c.Native):
		return ScriptNative
	case containsAny(id, c.Unforced):
		return ScriptUnknown
	case containsAny(id, c.Layouts):
		return ScriptLatin
	}
	return ScriptUnknown
}

func containsAny(id string, fragments []string) bool {
	for _, frag := range fragments {
		if strings.Contains(id, frag) {
			return true
		}
	}
	return false
}
