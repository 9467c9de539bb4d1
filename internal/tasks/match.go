package tasks

import (
	"strings"

	"github.com/naborsk/adjutant/internal/storage"
)

// Match resolves a free-text title reference to one task. Two tiers, both
// case-insensitive:
//
//  1. Substring: the first candidate whose title contains the query or is
//     contained by it, in candidate list order.
//  2. Token overlap: tokenize on whitespace, drop tokens of length 1,
//     and pick the candidate with the strictly largest intersection with
//     the query tokens. Ties keep the first-seen candidate.
//
// An exact phrase match always wins over a looser overlap match.
func Match(candidates []storage.Task, query string) (storage.Task, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return storage.Task{}, false
	}

	for _, c := range candidates {
		title := strings.ToLower(c.Title)
		if strings.Contains(title, q) || strings.Contains(q, title) {
			return c, true
		}
	}

	queryTokens := tokenize(q)
	if len(queryTokens) == 0 {
		return storage.Task{}, false
	}

	var best storage.Task
	bestOverlap := 0
	for _, c := range candidates {
		overlap := 0
		for tok := range tokenize(strings.ToLower(c.Title)) {
			if queryTokens[tok] {
				overlap++
			}
		}
		if overlap > bestOverlap {
			best = c
			bestOverlap = overlap
		}
	}
	if bestOverlap == 0 {
		return storage.Task{}, false
	}
	return best, true
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		if len([]rune(tok)) > 1 {
			tokens[tok] = true
		}
	}
	return tokens
}
