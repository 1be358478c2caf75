package pipeline

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases each level, collapses non [a-z0-9] runs to a single
// hyphen, trims hyphens and joins the non-empty levels with "-".
func Slugify(levels []string) string {
	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		s := nonSlugChars.ReplaceAllString(strings.ToLower(level), "-")
		s = strings.Trim(s, "-")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "-")
}

// DisplayName joins levels with " > " keeping their original casing.
func DisplayName(levels []string) string {
	return strings.Join(levels, " > ")
}
