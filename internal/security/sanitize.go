package security

import (
	"regexp"
	"strings"
)

var (
	angleBracketRegex = regexp.MustCompile(`[<>]`)
	jsProtocolRegex   = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRegex = regexp.MustCompile(`(?i)on\w+=`)
)

// SanitizeInput strips angle brackets, javascript: protocol prefixes and
// inline event-handler patterns, then trims whitespace. Applied to every
// user-supplied identifier before storage or comparison. Never applied to
// passwords, which must keep all their characters.
func SanitizeInput(input string) string {
	out := angleBracketRegex.ReplaceAllString(input, "")
	out = jsProtocolRegex.ReplaceAllString(out, "")
	out = eventHandlerRegex.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
