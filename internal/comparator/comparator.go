// Package comparator implements the three-valued verdict chain that
// decides whether a page's live DOM has been defaced against its stored
// reference.
package comparator

import "github.com/hazyhaar/domguard/internal/store"

// Verdict is the three-valued result a single comparator produces.
// MaybeDefaced is internal to the chain: the final result reported to a
// caller is always NotDefaced or Defaced.
type Verdict int

const (
	NotDefaced Verdict = iota
	MaybeDefaced
	Defaced
)

func (v Verdict) String() string {
	switch v {
	case NotDefaced:
		return "NotDefaced"
	case MaybeDefaced:
		return "MaybeDefaced"
	case Defaced:
		return "Defaced"
	default:
		return "Verdict(?)"
	}
}

// Comparator produces a verdict for one page check.
type Comparator interface {
	Compare(page *store.TrackedPage, referenceDom, currentDom string) Verdict
	Name() string
}

// Chain evaluates an ordered list of comparators with short-circuit
// semantics: the first NotDefaced or Defaced wins; MaybeDefaced falls
// through to the next comparator. A chain that runs out of comparators
// without a decisive verdict is clean — MaybeDefaced never escapes Run.
type Chain []Comparator

// Run evaluates the chain for one page check.
func (c Chain) Run(page *store.TrackedPage, referenceDom, currentDom string) Verdict {
	for _, cmp := range c {
		switch cmp.Compare(page, referenceDom, currentDom) {
		case NotDefaced:
			return NotDefaced
		case Defaced:
			return Defaced
		case MaybeDefaced:
			continue
		}
	}
	return NotDefaced
}
