package news

import (
	"regexp"
	"strings"

	"ainews/internal/metrics"
)

// DupThreshold is the Jaccard similarity at or above which two items are
// considered near-duplicates.
const DupThreshold = 0.7

// Tokens of latin/cyrillic letters and digits, two runes or longer.
var wordExpr = regexp.MustCompile(`[A-Za-zА-Яа-яЁё0-9]{2,}`)

// signature builds the token set an item is compared by: lowercased words of
// title plus full text (summary when extraction came up empty).
func signature(it Item) map[string]struct{} {
	basis := it.FullText
	if basis == "" {
		basis = it.Summary
	}
	words := wordExpr.FindAllString(strings.ToLower(it.Title+" "+basis), -1)

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// jaccard is intersection over union. An empty set on either side yields 0,
// so items without usable text never suppress anything and are never
// suppressed.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Dedup walks items in encounter order and keeps each one only if its
// similarity to every already-kept item stays below threshold: first seen
// wins, the later near-duplicate is discarded entirely (never merged).
// Quadratic in kept items, fine for runs of tens to low hundreds.
func Dedup(items []Item, threshold float64) []Item {
	kept := make([]Item, 0, len(items))
	sigs := make([]map[string]struct{}, 0, len(items))

	for _, it := range items {
		sig := signature(it)

		dup := false
		for _, prev := range sigs {
			if jaccard(sig, prev) >= threshold {
				dup = true
				break
			}
		}
		if dup {
			metrics.Global.IncrementDuplicatesFiltered()
			continue
		}

		kept = append(kept, it)
		sigs = append(sigs, sig)
	}
	return kept
}
