package compactor

import "strings"

// defaultContextWindow is used for any model name matching no known
// substring.
const defaultContextWindow = 128_000

// windowBySubstring is checked in order; the first matching substring
// (case-insensitive) wins. Order matters: "gpt-4o" must be checked before
// the broader "gpt-4".
var windowBySubstring = []struct {
	substr string
	window int
}{
	{"opus", 200_000},
	{"sonnet", 200_000},
	{"haiku", 200_000},
	{"gpt-4o", 128_000},
	{"gpt-4", 128_000},
	{"gpt-3.5", 16_385},
	{"gemini", 1_000_000},
	{"o1", 200_000},
	{"o3", 200_000},
	{"claude", 200_000},
}

// ContextWindow returns the maximum context length associated with a model
// name, matched case-insensitively by substring, or defaultContextWindow if
// no known substring is present.
func ContextWindow(model string) int {
	lower := strings.ToLower(model)
	for _, entry := range windowBySubstring {
		if strings.Contains(lower, entry.substr) {
			return entry.window
		}
	}
	return defaultContextWindow
}
