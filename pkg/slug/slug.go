// Package slug turns free text into URL-safe identifiers.
package slug

import (
	"strings"

	gosimple "github.com/gosimple/slug"
)

// Fallback is returned when the input has no usable characters.
const Fallback = "item"

// Make transliterates s with Turkish substitutions, lowercases it and joins
// the remaining words with single hyphens. It never returns an empty string.
func Make(s string) string {
	out := strings.Trim(gosimple.MakeLang(s, "tr"), "-_")
	if out == "" {
		return Fallback
	}
	return out
}

// Truncate shortens a slug to at most max bytes without leaving a trailing hyphen.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = strings.TrimRight(s[:max], "-")
	if s == "" {
		return Fallback
	}
	return s
}
