package services

import (
	"github.com/agnivade/levenshtein"
)

// PartialRatio scores how well needle appears somewhere inside haystack on a 0-100 scale.
// Every needle-length window of haystack is compared and the best score wins.
func PartialRatio(needle, haystack string) float64 {
	n := []rune(needle)
	h := []rune(haystack)
	if len(n) == 0 || len(h) == 0 {
		return 0
	}

	if len(h) <= len(n) {
		return similarityRatio(needle, haystack, len(n))
	}

	best := 0.0
	for i := 0; i+len(n) <= len(h); i++ {
		score := similarityRatio(needle, string(h[i:i+len(n)]), len(n))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

func similarityRatio(a, b string, length int) float64 {
	d := levenshtein.ComputeDistance(a, b)
	score := 100 * (1 - float64(d)/float64(length))
	if score < 0 {
		return 0
	}
	return score
}
