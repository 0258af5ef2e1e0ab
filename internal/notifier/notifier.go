// Package notifier delivers defacement reports through configured
// channels. Email is the reference implementation.
package notifier

import (
	"context"

	"github.com/hazyhaar/domguard/internal/store"
)

// Notifier delivers a breach report to one contact over one channel.
type Notifier interface {
	// Matches reports whether this notifier handles the given channel tag.
	Matches(channel store.ChannelTag) bool
	SendReport(ctx context.Context, user *store.User, contact *store.Contact, page *store.TrackedPage, referenceDom, currentDom string) error
}

// Set is an ordered list of notifiers. FirstMatch returns the first
// notifier willing to handle the contact's channel; there is no broadcast
// to every matching notifier for a contact.
type Set []Notifier

func (s Set) FirstMatch(channel store.ChannelTag) Notifier {
	for _, n := range s {
		if n.Matches(channel) {
			return n
		}
	}
	return nil
}
