// Package rtl converts component styles and layouts between left-to-right and
// right-to-left conventions.
//
// Mirroring only ever runs from a node's canonical direction, recorded in its
// direction field, so a node already in the target direction is never swapped
// a second time.
package rtl

import (
	"unicode"

	"golang.org/x/text/language"

	"pagebuilder/internal/domain"
)

// arabicScript covers the Arabic, Arabic Supplement, Arabic Extended-A and
// Arabic Presentation Forms blocks, which also carry Urdu and Persian.
var arabicScript = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
}

// DetectDirection reports rtl when text holds any Arabic-script code point.
func DetectDirection(text string) domain.Direction {
	for _, r := range text {
		if unicode.Is(arabicScript, r) {
			return domain.DirectionRTL
		}
	}
	return domain.DirectionLTR
}

var rtlLanguages = map[string]bool{
	"ar": true, "fa": true, "he": true, "ur": true, "ps": true,
	"sd": true, "ug": true, "yi": true, "dv": true, "ckb": true,
}

// DirectionForLanguage maps a BCP 47 tag to its script direction. Unknown or
// malformed tags are ltr.
func DirectionForLanguage(tag string) domain.Direction {
	t, err := language.Parse(tag)
	if err != nil {
		return domain.DirectionLTR
	}
	base, _ := t.Base()
	if rtlLanguages[base.String()] {
		return domain.DirectionRTL
	}
	return domain.DirectionLTR
}

// DetectNodeDirection guesses the direction of a node from its text props,
// falling back to its language tag.
func DetectNodeDirection(n *domain.ComponentNode) domain.Direction {
	for _, v := range n.Props {
		if containsRTL(v) {
			return domain.DirectionRTL
		}
	}
	if n.Language != "" {
		return DirectionForLanguage(n.Language)
	}
	return domain.DirectionLTR
}

func containsRTL(v any) bool {
	switch t := v.(type) {
	case string:
		return DetectDirection(t) == domain.DirectionRTL
	case map[string]any:
		for _, e := range t {
			if containsRTL(e) {
				return true
			}
		}
	case []any:
		for _, e := range t {
			if containsRTL(e) {
				return true
			}
		}
	}
	return false
}
