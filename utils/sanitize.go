package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// SanitizeParam strips markup from a caller-supplied query or path value.
func SanitizeParam(input string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(input)))
}
