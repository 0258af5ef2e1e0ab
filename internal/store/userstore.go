package store

import "context"

// UserStore is the durable relational contract for users and their
// notification contacts. Implementations must be safe for concurrent use.
type UserStore interface {
	CreateUser(ctx context.Context, username string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserInfoForID(ctx context.Context, userID int64) (*User, error)
	DeleteUser(ctx context.Context, user *User) error

	InsertContactFor(ctx context.Context, user *User, channel ChannelTag, address string) (*Contact, error)
	ListContactsFor(ctx context.Context, user *User) ([]*Contact, error)
	GetContactForID(ctx context.Context, contactID int64) (*Contact, error)
	DeleteContact(ctx context.Context, contact *Contact) error
}
