package extract

import (
	"github.com/agnivade/levenshtein"
)

// PartialRatio scores how well the shorter of a and b fits inside the
// longer, from 0 to 100. Every window of the longer string with the length
// of the shorter one is compared by edit distance and the best window wins.
func PartialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	s := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		d := levenshtein.ComputeDistance(s, string(long[i:i+len(short)]))
		score := 100 * (len(short) - d) / len(short)
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// Dedupe collapses names that refer to the same entity. When two names
// score at least ratio under PartialRatio the shorter one is dropped.
// Exact repeats keep their first occurrence. The input is not modified.
func Dedupe(names []string, ratio int) []string {
	kept := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		kept = append(kept, n)
	}

	removed := make([]bool, len(kept))
	for i := range kept {
		for j := range kept {
			if i == j || removed[i] || removed[j] {
				continue
			}
			if PartialRatio(kept[i], kept[j]) < ratio {
				continue
			}
			if len(kept[i]) < len(kept[j]) {
				removed[i] = true
				break
			}
			removed[j] = true
		}
	}

	out := make([]string, 0, len(kept))
	for i, n := range kept {
		if !removed[i] {
			out = append(out, n)
		}
	}
	return out
}
