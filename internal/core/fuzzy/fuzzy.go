// Package fuzzy scores how close two strings are by Levenshtein distance and
// picks the candidates of a vocabulary that clear a threshold.
//
// Strings are compared rune by rune. Nothing here folds case; callers that match
// against a lowercased vocabulary lowercase the input first.
package fuzzy

import (
	"sort"

	"github.com/agenthands/kwmerge/internal/core/model"
)

// DefaultThreshold is the similarity score a candidate needs when the caller
// has no better value.
const DefaultThreshold = 0.75

// Distance returns the edit distance between a and b, where insertion,
// deletion and substitution each cost 1.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	matrix := make([][]int, len(ra)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(rb)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(rb); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(ra)][len(rb)]
}

// Similarity returns 1 - Distance(a, b)/max(len(a), len(b)), in [0, 1].
// Identical strings score 1 and an empty string scores 0 against anything else.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := max(len([]rune(a)), len([]rune(b)))
	return 1 - float64(Distance(a, b))/float64(maxLen)
}

// ClosestMatch returns the candidate with the highest score at or above
// threshold. Ties go to the candidate seen first.
func ClosestMatch(input string, candidates []string, threshold float64) (model.Match, bool) {
	var best model.Match
	found := false

	if input == "" || len(candidates) == 0 {
		return best, false
	}

	for _, candidate := range candidates {
		score := Similarity(input, candidate)
		if score < threshold {
			continue
		}
		if !found || score > best.Score {
			best = model.Match{Text: candidate, Score: score}
			found = true
		}
	}

	return best, found
}

// AllMatches returns every candidate scoring at or above threshold, highest
// score first. Equal scores keep their input order.
func AllMatches(input string, candidates []string, threshold float64) []model.Match {
	matches := []model.Match{}
	if input == "" || len(candidates) == 0 {
		return matches
	}

	for _, candidate := range candidates {
		score := Similarity(input, candidate)
		if score >= threshold {
			matches = append(matches, model.Match{Text: candidate, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
