// Package query validates free-text lookups and lists quick-fill examples.
package query

import "strings"

// Example is a quick-fill shortcut shown next to the input
type Example struct {
	Query string `json:"query"`
	Hint  string `json:"hint"`
}

var examples = []Example{
	{Query: "FG", Hint: "Fog"},
	{Query: "+SHSN", Hint: "Heavy Snow Showers"},
	{Query: "Volcanic Ash", Hint: ""},
}

// Examples returns the quick-fill shortcuts. Picking one only fills the input.
func Examples() []Example {
	out := make([]Example, len(examples))
	copy(out, examples)
	return out
}

// Accept reports whether raw is worth submitting. The raw text is returned
// unchanged; blank or whitespace-only input is rejected.
func Accept(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	return raw, true
}
