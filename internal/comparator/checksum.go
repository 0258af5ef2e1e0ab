package comparator

import (
	"crypto/sha1"

	"github.com/hazyhaar/domguard/internal/store"
)

// Checksum compares the SHA-1 digest of the two DOM byte sequences. It is
// cheap and exact but cannot distinguish "changed a little" from "changed a
// lot" — on a Dynamic page an unequal digest is only MaybeDefaced, deferring
// to a comparator that understands magnitude.
type Checksum struct{}

func (Checksum) Name() string { return "checksum" }

func (Checksum) Compare(page *store.TrackedPage, referenceDom, currentDom string) Verdict {
	equal := sha1.Sum([]byte(referenceDom)) == sha1.Sum([]byte(currentDom))
	if equal {
		return NotDefaced
	}
	if page.Type.Dynamic {
		return MaybeDefaced
	}
	return Defaced
}
