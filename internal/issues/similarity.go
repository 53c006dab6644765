package issues

// Similarity returns a 0..1 score for how alike two strings are, computed as
// 1 - (levenshtein distance / max length). This backs the Issue Tracker's
// fuzzy-identity predicate (spec.md §4.E).
//
// No example repo in the retrieval pack carries a code-similarity library:
// github.com/sahilm/fuzzy (pulled in transitively by github/gh-aw's
// charmbracelet/bubbles list filtering) scores subsequence-based fuzzy-finder
// ranking for interactive lists, which answers "does the needle's characters
// appear in order in the haystack" — a different question from "how close
// are two whole snippets," and would misrank near-duplicate code blocks that
// share no contiguous subsequence. A small Levenshtein-ratio implementation
// is the correct tool here and needs no third-party dependency.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		if len(ra) == 0 && len(rb) == 0 {
			return 1
		}
		return 0
	}

	dist := levenshtein(ra, rb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b []rune) int {
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
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
