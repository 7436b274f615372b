package main

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	spaceRun   = regexp.MustCompile(`\s+`)
)

// normalizeLabel produces the comparison form of a zone label: trimmed,
// lower-cased, accents stripped, whitespace runs collapsed. Display values
// keep their raw form; only grouping uses this.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}
	return spaceRun.ReplaceAllString(s, " ")
}
