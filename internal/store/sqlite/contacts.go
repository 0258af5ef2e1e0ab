package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hazyhaar/domguard/internal/store"
)

func scanContact(row interface{ Scan(...any) error }) (*store.Contact, error) {
	c := &store.Contact{}
	if err := row.Scan(&c.ContactID, &c.UserID, &c.Channel, &c.Address); err != nil {
		return nil, err
	}
	return c, nil
}

// InsertContactFor implements store.UserStore.
func (s *Store) InsertContactFor(ctx context.Context, user *store.User, channel store.ChannelTag, address string) (*store.Contact, error) {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO contacts (user_id, channel, address) VALUES (?, ?, ?)`,
		user.UserID, string(channel), address)
	if err != nil {
		return nil, fmt.Errorf("%w: insert contact: %v", store.ErrBackend, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: last insert id: %v", store.ErrBackend, err)
	}
	return &store.Contact{ContactID: id, UserID: user.UserID, Channel: channel, Address: address}, nil
}

// ListContactsFor implements store.UserStore.
func (s *Store) ListContactsFor(ctx context.Context, user *store.User) ([]*store.Contact, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT contact_id, user_id, channel, address FROM contacts WHERE user_id = ? ORDER BY contact_id`,
		user.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: list contacts: %v", store.ErrBackend, err)
	}
	defer rows.Close()

	var contacts []*store.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan contact: %v", store.ErrBackend, err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate contacts: %v", store.ErrBackend, err)
	}
	return contacts, nil
}

// GetContactForID implements store.UserStore.
func (s *Store) GetContactForID(ctx context.Context, contactID int64) (*store.Contact, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT contact_id, user_id, channel, address FROM contacts WHERE contact_id = ?`, contactID)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get contact: %v", store.ErrBackend, err)
	}
	return c, nil
}

// DeleteContact implements store.UserStore.
func (s *Store) DeleteContact(ctx context.Context, contact *store.Contact) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM contacts WHERE contact_id = ?`, contact.ContactID)
	if err != nil {
		return fmt.Errorf("%w: delete contact: %v", store.ErrBackend, err)
	}
	return nil
}
