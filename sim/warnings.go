package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// closeMatchCutoff mirrors difflib.get_close_matches: a candidate key
// counts as a close match when its similarity ratio is at least 0.6.
const closeMatchCutoff = 0.6

// closeMatchLimit caps how many suggestions one unknown key produces.
const closeMatchLimit = 3

// CloseMatchWarnings compares a raw (pre-validation) field map against
// the canonical map actually accepted and returns one advisory message
// per raw key that was dropped but closely resembles an accepted key.
// It recurses into nested maps and lists, keeping a dotted path prefix.
// Purely advisory: it never blocks construction.
func CloseMatchWarnings(raw, canonical map[string]any, prefix string) []string {
	var out []string
	closeMatchMap(raw, canonical, prefix, &out)
	return out
}

func closeMatchMap(raw, canonical map[string]any, prefix string, out *[]string) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := prefix + "." + k
		accepted, ok := canonical[k]
		if !ok {
			if matches := closeMatches(k, canonical); len(matches) > 0 {
				quoted := make([]string, len(matches))
				for i, m := range matches {
					quoted[i] = fmt.Sprintf("%q", m)
				}
				*out = append(*out, fmt.Sprintf("close match detected for %s - did you mean %s?", path, strings.Join(quoted, " or ")))
			}
			continue
		}
		switch rv := raw[k].(type) {
		case map[string]any:
			if cm, ok := accepted.(map[string]any); ok {
				closeMatchMap(rv, cm, path, out)
			}
		case []any:
			if cl, ok := accepted.([]any); ok {
				closeMatchList(rv, cl, path, out)
			}
		}
	}
}

func closeMatchList(raw, canonical []any, prefix string, out *[]string) {
	for i := 0; i < len(raw) && i < len(canonical); i++ {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		switch rv := raw[i].(type) {
		case map[string]any:
			if cm, ok := canonical[i].(map[string]any); ok {
				closeMatchMap(rv, cm, path, out)
			}
		case []any:
			if cl, ok := canonical[i].([]any); ok {
				closeMatchList(rv, cl, path, out)
			}
		}
	}
}

// closeMatches returns up to closeMatchLimit canonical keys similar to
// word, best matches first.
func closeMatches(word string, canonical map[string]any) []string {
	type scored struct {
		key   string
		ratio float64
	}
	var candidates []scored
	for k := range canonical {
		if r := similarity(word, k); r >= closeMatchCutoff {
			candidates = append(candidates, scored{key: k, ratio: r})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ratio != candidates[j].ratio {
			return candidates[i].ratio > candidates[j].ratio
		}
		return candidates[i].key < candidates[j].key
	})
	if len(candidates) > closeMatchLimit {
		candidates = candidates[:closeMatchLimit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.key
	}
	return out
}

// similarity maps edit distance onto a [0,1] ratio comparable to
// difflib's SequenceMatcher ratio.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
