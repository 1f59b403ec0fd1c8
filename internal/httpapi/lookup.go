package httpapi

import (
	"strconv"
	"strings"

	"votewatch/internal/tally"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/unicode/norm"
)

// MinSimilarity is the lowest Jaro-Winkler score Lookup accepts for a
// name that is not an exact match.
const MinSimilarity = 0.8

// Lookup finds the candidate a viewer most likely means by query. A number
// (with or without the trailing 号) selects by candidate number, anything
// else is compared against names.
func Lookup(candidates []tally.Candidate, query string) (tally.Candidate, float64, bool) {
	query = strings.TrimSpace(norm.NFKC.String(query))
	if query == "" {
		return tally.Candidate{}, 0, false
	}

	if number, err := strconv.Atoi(strings.TrimSuffix(query, "号")); err == nil {
		for _, c := range candidates {
			if c.Number == number {
				return c, 1, true
			}
		}
		return tally.Candidate{}, 0, false
	}

	var best tally.Candidate
	bestScore := 0.0
	for _, c := range candidates {
		if c.Name == query {
			return c, 1, true
		}
		score := matchr.JaroWinkler(query, c.Name, false)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	if bestScore < MinSimilarity {
		return tally.Candidate{}, bestScore, false
	}
	return best, bestScore, true
}
