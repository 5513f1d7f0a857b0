package config

import (
	"github.com/agnivade/levenshtein"
)

// similarity returns 1 - editDistance/maxLen, in [0, 1].
func similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// suggestKey returns the candidate most similar to key, if that similarity
// is at least threshold.
func suggestKey(key string, candidates []string, threshold float64) (string, bool) {
	best, bestScore := "", -1.0
	for _, c := range candidates {
		if score := similarity(key, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == "" || bestScore < threshold {
		return "", false
	}
	return best, true
}
