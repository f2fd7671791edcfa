package ui

import (
	"sort"
	"strings"
)

// DefaultMaxDistance bounds the edit distance of a suggestion
const DefaultMaxDistance = 3

// Similar returns up to max candidates within maxDistance edits of target,
// closest first. Comparison ignores case.
func Similar(target string, candidates []string, maxDistance, max int) []string {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}

	type match struct {
		value    string
		distance int
	}
	var matches []match
	for _, candidate := range candidates {
		if candidate == target {
			continue
		}
		d := Levenshtein(strings.ToLower(target), strings.ToLower(candidate))
		if d <= maxDistance {
			matches = append(matches, match{candidate, d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	out := make([]string, 0, len(matches))
	for i := 0; i < len(matches) && (max <= 0 || i < max); i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// SimilarOperations suggests handler keys for an unmatched operation key.
// Only keys with the same verb are considered.
func SimilarOperations(key string, handlers []string) []string {
	verb, _, _ := strings.Cut(key, " ")
	var sameVerb []string
	for _, h := range handlers {
		if strings.HasPrefix(h, verb+" ") {
			sameVerb = append(sameVerb, h)
		}
	}
	return Similar(key, sameVerb, DefaultMaxDistance, 2)
}

// Levenshtein returns the edit distance between a and b in runes
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
