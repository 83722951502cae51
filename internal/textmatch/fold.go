// Package textmatch provides the case-insensitive substring matching used by
// the restriction filter and the substitution resolver.
package textmatch

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s case-folded and in NFC form, so that "PÃO", "pão" and a
// decomposed "pão" all compare equal.
func Fold(s string) string {
	return norm.NFC.String(cases.Fold().String(s))
}

// Contains reports whether needle occurs in haystack, ignoring case.
func Contains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// ContainsAny reports whether any keyword occurs in text, ignoring case.
func ContainsAny(text string, keywords []string) bool {
	folded := Fold(text)
	for _, k := range keywords {
		if strings.Contains(folded, Fold(k)) {
			return true
		}
	}
	return false
}
