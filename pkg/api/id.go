package api

import (
	"regexp"
	"strings"
)

type (
	// Name is a string identifier for context keys and arguments
	Name string

	// RunID uniquely identifies a single run of any runner
	RunID string
)

// InvalidIDChars matches characters not permitted in run, plan, and step
// IDs. Valid characters are: letters, digits, underscore, dot, hyphen,
// plus, space
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// SanitizeID lowercases an ID, removes invalid characters, replaces spaces
// with hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	lower := strings.ToLower(string(id))
	sanitized := InvalidIDChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}
