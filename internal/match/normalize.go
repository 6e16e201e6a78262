// Package match canonicalizes user-configured stage and pipeline names.
//
// Stage sets are editable by staff, so nothing in the engine may compare raw
// names. Every comparison goes through Normalize, and classification into the
// closed kind sets below is keyword-based with a fixed first-match order.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases a name, strips diacritics and collapses interior
// whitespace, so "Curier  Trimis" and "curier trimis" compare equal.
func Normalize(name string) string {
	out, _, err := transform.String(stripMarks, name)
	if err != nil {
		out = name
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Contains reports whether the normalized name contains the normalized needle
// as a substring.
func Contains(name, needle string) bool {
	return strings.Contains(Normalize(name), Normalize(needle))
}

// containsAny reports whether the already-normalized name contains any of the
// given already-normalized keywords.
func containsAny(normalized string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
