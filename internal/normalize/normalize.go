// Package normalize canonicalizes free-text identifying fields (venue names,
// postcodes) into comparable keys for the matching engine. All functions are
// pure, deterministic, and idempotent; empty input yields empty output.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Trailing legal-entity suffixes stripped from venue names. The directory and
// the registry disagree on whether these appear, so they carry no signal.
var nameSuffixes = []string{" LTD", " LIMITED"}

var (
	nonAlnum   = regexp.MustCompile(`[^A-Z0-9 ]+`)
	multiSpace = regexp.MustCompile(`\s+`)
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name canonicalizes a venue or business name:
// uppercase, "&" expanded to "AND", trailing legal suffixes stripped,
// diacritics folded to ASCII, everything outside [A-Z0-9 ] removed,
// whitespace collapsed and trimmed.
func Name(raw string) string {
	if raw == "" {
		return ""
	}
	s, _, err := transform.String(stripAccents, raw)
	if err != nil {
		s = raw
	}
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "&", " AND ")
	s = nonAlnum.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	// Suffixes are stripped after punctuation removal and re-checked until
	// none remain, so the result is a fixed point of Name.
	for stripped := true; stripped; {
		stripped = false
		for _, suf := range nameSuffixes {
			if t := strings.TrimSuffix(s, suf); t != s {
				s = strings.TrimRight(t, " ")
				stripped = true
			}
		}
	}
	return s
}

// Postcode canonicalizes a UK postcode: uppercase with all whitespace removed.
// The registry publishes postcodes in near-canonical form already, so no
// further transformation is applied.
func Postcode(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Address canonicalizes a free-text address for postcode corroboration:
// uppercase with whitespace removed, so a normalized postcode can be tested
// as a literal substring.
func Address(raw string) string {
	return Postcode(raw)
}
