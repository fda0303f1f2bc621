// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// separators matches runs of whitespace and hyphens.
	separators = regexp.MustCompile(`[\s-]+`)
)

// maxAttempts bounds the numeric suffixes Unique tries.
const maxAttempts = 100

// foldMarks decomposes accented letters and drops the combining marks.
func foldMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Generate creates a URL-friendly slug from the given string. Accents are
// folded to their base letters and anything else outside [a-z0-9] is
// dropped.
// Example: "Café, Résumé! 2026" → "cafe-resume-2026"
func Generate(s string) string {
	result := strings.ToLower(foldMarks(strings.TrimSpace(s)))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Unique returns base, or base with the first free numeric suffix
// ("base-2", "base-3", ...), according to taken.
func Unique(base string, taken func(string) (bool, error)) (string, error) {
	candidate := base
	for i := 2; i <= maxAttempts+1; i++ {
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxAttempts)
}
