package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user supplied labels such as habit names
// and units, leaving plain text.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(input)))
}
