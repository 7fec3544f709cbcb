// Package sanitize turns arbitrary names into safe identifiers.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	nonFilenameRegex = regexp.MustCompile(`[^a-z0-9-]+`)
	multiDashRegex   = regexp.MustCompile(`-+`)
)

// maxFilenameLength caps the result of ForFilename.
const maxFilenameLength = 50

// ForFilename sanitizes a string for use in a filename (kebab-case).
func ForFilename(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "-", "/", "-", ".", "-", "_", "-").Replace(s)
	s = nonFilenameRegex.ReplaceAllString(s, "")
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxFilenameLength {
		s = strings.TrimRight(s[:maxFilenameLength], "-")
	}
	return s
}
