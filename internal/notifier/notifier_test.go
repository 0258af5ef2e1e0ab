package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/domguard/internal/store"
)

type fakeNotifier struct {
	channel store.ChannelTag
	sent    []string
	fail    bool
}

func (f *fakeNotifier) Matches(c store.ChannelTag) bool { return c == f.channel }

func (f *fakeNotifier) SendReport(ctx context.Context, user *store.User, contact *store.Contact, page *store.TrackedPage, referenceDom, currentDom string) error {
	if f.fail {
		return errors.New("fakeNotifier: forced failure")
	}
	f.sent = append(f.sent, contact.Address)
	return nil
}

func TestSet_FirstMatch(t *testing.T) {
	email := &fakeNotifier{channel: store.ChannelEmail}
	other := &fakeNotifier{channel: store.ChannelTag("SMS")}
	set := Set{other, email}

	if got := set.FirstMatch(store.ChannelEmail); got != email {
		t.Errorf("FirstMatch(email): got %v, want the email notifier", got)
	}
	if got := set.FirstMatch(store.ChannelTag("UNKNOWN")); got != nil {
		t.Errorf("FirstMatch(unknown): got %v, want nil", got)
	}
}

func TestSet_FirstMatch_StopsAtFirst(t *testing.T) {
	first := &fakeNotifier{channel: store.ChannelEmail}
	second := &fakeNotifier{channel: store.ChannelEmail}
	set := Set{first, second}

	contact := &store.Contact{ContactID: 1, Channel: store.ChannelEmail, Address: "a@example.com"}
	n := set.FirstMatch(store.ChannelEmail)
	if err := n.SendReport(context.Background(), &store.User{}, contact, &store.TrackedPage{}, "", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(first.sent) != 1 || len(second.sent) != 0 {
		t.Errorf("expected only the first matching notifier to be invoked, got first=%v second=%v", first.sent, second.sent)
	}
}
