package translator

import (
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("^```[a-zA-Z]*\n?")
	trailingFence = regexp.MustCompile("\n?```$")
)

// CleanSQL strips a markdown code fence, with optional language tag,
// from a model reply. Unfenced replies are only trimmed.
func CleanSQL(reply string) string {
	cleaned := leadingFence.ReplaceAllString(strings.TrimSpace(reply), "")
	return trailingFence.ReplaceAllString(strings.TrimSpace(cleaned), "")
}
