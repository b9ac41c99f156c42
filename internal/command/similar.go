package command

import (
	"sort"
	"strings"
)

// similarityThreshold filters out matches that share too little with the
// requested name to be useful suggestions.
const similarityThreshold = 0.4

// SimilarNames returns up to max names ranked by similarity to requested.
func SimilarNames(requested string, available []string, max int) []string {
	type scored struct {
		name  string
		score float64
	}
	var matches []scored
	for _, name := range available {
		if s := similarity(requested, name); s >= similarityThreshold {
			matches = append(matches, scored{name, s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	if len(matches) > max {
		matches = matches[:max]
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.name
	}
	return names
}

// similarity is normalized Levenshtein similarity in [0,1].
func similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

func levenshtein(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
