package utils

import "strings"

// TruncateForLog flattens s onto one line and keeps at most limit runes, marking the cut
// with an ellipsis. Listing descriptions are multi-line, log lines are not.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	flat := strings.Join(strings.Fields(s), " ")
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	return string(runes[:limit]) + "..."
}
