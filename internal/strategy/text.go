package strategy

import (
	"math"
)

const (
	summaryLimit = 200
	snippetLimit = 200
	ellipsis     = "..."
)

// truncateRunes shortens s to at most limit runes, ending in "..." when cut.
func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-len(ellipsis)]) + ellipsis
}

// roundSimilarity clamps to [0,1] and rounds to 3 decimals.
func roundSimilarity(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return math.Round(v*1000) / 1000
}
