package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/domguard/internal/store"
)

func TestContactCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "dana")

	c, err := s.InsertContactFor(ctx, u, store.ChannelEmail, "dana@example.com")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if c.Channel != store.ChannelEmail {
		t.Errorf("Channel: got %q, want %q", c.Channel, store.ChannelEmail)
	}

	contacts, err := s.ListContactsFor(ctx, u)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(contacts) != 1 || contacts[0].ContactID != c.ContactID {
		t.Fatalf("list: got %+v, want one contact matching %d", contacts, c.ContactID)
	}

	got, err := s.GetContactForID(ctx, c.ContactID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Address != "dana@example.com" {
		t.Errorf("Address: got %q", got.Address)
	}

	if err := s.DeleteContact(ctx, c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetContactForID(ctx, c.ContactID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after delete: got %v, want ErrNotFound", err)
	}
}
