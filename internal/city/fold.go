package city

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// strokeLetters are Polish letters that have no Unicode decomposition.
var strokeLetters = map[rune]rune{'ł': 'l', 'Ł': 'L'}

// Fold returns the matching key for a city label: trimmed, lower-cased, with
// diacritics removed, so "Kraków", " KRAKOW " and "krakow" fold equal.
// Transformers are stateful, so each call builds its own chain.
func Fold(label string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if m, ok := strokeLetters[r]; ok {
				return m
			}
			return r
		}),
		norm.NFC,
	)
	folded, _, err := transform.String(t, strings.TrimSpace(label))
	if err != nil {
		folded = strings.TrimSpace(label)
	}
	return strings.Join(strings.Fields(cases.Lower(language.Polish).String(folded)), " ")
}
