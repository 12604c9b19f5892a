package l10n

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// suggestColumns proposes, for every rename key that was not found, the
// closest source column that no rename entry claimed. Keys with nothing
// close enough get no suggestion.
func suggestColumns(missing, columns []string, rename map[string]string) map[string]string {
	var free []string
	for _, c := range columns {
		if _, claimed := rename[c]; !claimed {
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		return nil
	}

	out := make(map[string]string)
	for _, key := range missing {
		if s, ok := closest(key, free); ok {
			out[key] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func closest(key string, candidates []string) (string, bool) {
	// A candidate containing the key's letters in order (e.g. a suffixed
	// header) is the best guess.
	if ranks := fuzzy.RankFindNormalizedFold(key, candidates); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target, true
	}

	lk := strings.ToLower(key)
	limit := len([]rune(key)) / 3
	if limit < 2 {
		limit = 2
	}
	best, bestDist := "", limit+1
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(lk, strings.ToLower(c))
		if d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	return best, bestDist <= limit
}
