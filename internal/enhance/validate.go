package enhance

import (
	"regexp"
	"strings"
)

const (
	minOutputLen = 3
	maxOutputLen = 8000
)

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|` +
		`new\s+instructions)`,
)

// ValidateOutput reports whether generated text is fit to show a user. Text
// outside the length bounds, or echoing prompt-injection phrasing picked up
// from report or chat content, is rejected.
func ValidateOutput(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < minOutputLen || len(text) > maxOutputLen {
		return false
	}
	return !injectionPattern.MatchString(text)
}
