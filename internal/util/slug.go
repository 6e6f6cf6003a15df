// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
	// A canonical slug: lowercase alphanumeric words joined by single dashes.
	slugRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Slugify converts a display name to its canonical tag slug.
// The slug is the source of truth for tag identity.
//
// Normalization rules:
//  1. Decompose accented characters and drop what is left outside ASCII
//  2. Trim whitespace and lowercase
//  3. Replace whitespace, underscores and slashes with dashes
//  4. Remove non-alphanumeric characters (except dashes)
//  5. Collapse multiple dashes and trim leading/trailing dashes
//
// Examples:
//
//	"Web Development"   → "web-development"
//	"Web   Development" → "web-development"
//	"client_work"       → "client-work"
//	"Café Menus"        → "cafe-menus"
//	"🔥 Urgent!"        → "urgent"
func Slugify(input string) string {
	s := norm.NFKD.String(input)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(strings.TrimSpace(s))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	return s
}

// IsSlug reports whether s is already in canonical slug form.
func IsSlug(s string) bool {
	return slugRe.MatchString(s)
}
