package comparator

import (
	"strings"

	"github.com/hazyhaar/domguard/internal/store"
)

// Diff computes a line-granularity edit distance between two DOMs and
// expresses it as a percentage of the larger document's byte length. Unlike
// Checksum it can tell "changed a little" from "changed a lot", which is
// what makes Dynamic-page tolerance possible.
type Diff struct{}

func (Diff) Name() string { return "diff" }

func (Diff) Compare(page *store.TrackedPage, referenceDom, currentDom string) Verdict {
	p := Percentage(referenceDom, currentDom)
	if page.Type.Dynamic {
		if p > page.Type.Tolerance {
			return Defaced
		}
		return MaybeDefaced
	}
	if p > 0 {
		return Defaced
	}
	return NotDefaced
}

// Percentage returns the relative change between a and b, as the
// line-level edit distance scaled against the larger document's byte
// length: 100*editDistance/max(len(a), len(b)). Two empty documents (or
// two identical documents of any length) yield 0.
func Percentage(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}

	d := lineEditDistance(splitLines(a), splitLines(b))
	return 100 * float64(d) / float64(maxLen)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// lineEditDistance is the Levenshtein distance between two line sequences,
// computed with the standard two-row dynamic-programming table.
func lineEditDistance(a, b []string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	// Keep a as the shorter sequence to bound row width.
	if len(a) > len(b) {
		a, b = b, a
	}

	prevRow := make([]int, len(a)+1)
	for i := range prevRow {
		prevRow[i] = i
	}
	currRow := make([]int, len(a)+1)

	for i := 1; i <= len(b); i++ {
		currRow[0] = i
		for j := 1; j <= len(a); j++ {
			cost := 1
			if b[i-1] == a[j-1] {
				cost = 0
			}
			currRow[j] = min3(
				currRow[j-1]+1,
				prevRow[j]+1,
				prevRow[j-1]+cost,
			)
		}
		prevRow, currRow = currRow, prevRow
	}
	return prevRow[len(a)]
}

func min3(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
