// Package textclean normalizes free text typed into observation and
// description fields before it is submitted.
package textclean

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// Clean removes markup and unprintable characters and trims the result.
// Entities escaped by the policy are decoded back so "&" survives as typed.
func Clean(s string) string {
	if s == "" {
		return s
	}
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.TrimSpace(StripUnprintable(s))
}

// StripUnprintable removes non-printable characters, keeping tab, newline
// and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}
