// Package textnorm folds message text into comparable ASCII forms so that
// phrase filters cannot be dodged with Cyrillic look-alikes, diacritics, or
// inserted whitespace and punctuation.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Cyrillic letters that render close enough to Latin glyphs to be used as
// filter-bypass substitutes, paired with the Latin letters they imitate.
var homoglyphs = buildHomoglyphs(
	"абвгдеёжзийклмнопрстуфхцчшщъыьэюяАБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯ",
	"abBrdeex3nnKnmHonpcTyoxu4wwbbbeoRABBrDEEX3NNKNMHONPCTyOXU4WWbbbEOR",
)

func buildHomoglyphs(from, to string) map[rune]rune {
	src := []rune(from)
	dst := []rune(to)
	table := make(map[rune]rune, len(src))
	for i := range src {
		table[src[i]] = dst[i]
	}
	return table
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s, replaces Cyrillic look-alikes, removes diacritics, and
// drops any rune that still is not printable ASCII. Whitespace and
// punctuation survive; use the Strip helpers for the compact variants.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if mapped, ok := homoglyphs[r]; ok {
			r = mapped
		}
		b.WriteRune(r)
	}

	folded, _, err := transform.String(stripMarks, b.String())
	if err != nil {
		folded = b.String()
	}

	var out strings.Builder
	out.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if r < 0x20 || r > 0x7e {
			if unicode.IsSpace(r) {
				out.WriteRune(' ')
			}
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

// StripSpaces removes all whitespace from an already-folded string.
func StripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// StripSpacesAndPunct removes whitespace and ASCII punctuation from an
// already-folded string.
func StripSpacesAndPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HasToken reports whether word occurs as a standalone whitespace-delimited
// token of the folded string.
func HasToken(folded, word string) bool {
	for _, token := range strings.Fields(folded) {
		if token == word {
			return true
		}
	}
	return false
}
