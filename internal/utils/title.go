package utils

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// NormalizeTitle returns the key used to compare anime titles.
// Full-width characters, letter case and runs of whitespace do not matter.
func NormalizeTitle(title string) string {
	s := norm.NFKC.String(title)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// TitleDistance is the Levenshtein distance between two normalised titles.
func TitleDistance(a, b string) int {
	return levenshtein.ComputeDistance(NormalizeTitle(a), NormalizeTitle(b))
}

// ClosestTitle returns the index of the candidate nearest to query, or -1 when
// there are no candidates. Each candidate may carry several names (romaji,
// english, ...); the best name counts. Ties keep the earlier candidate.
func ClosestTitle(query string, candidates [][]string) int {
	best := -1
	bestDist := 0
	for i, names := range candidates {
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				continue
			}
			d := TitleDistance(query, name)
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}
	}
	return best
}
