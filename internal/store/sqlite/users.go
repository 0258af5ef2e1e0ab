package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hazyhaar/domguard/internal/store"
)

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	u := &store.User{}
	if err := row.Scan(&u.UserID, &u.Username); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser implements store.UserStore. Usernames are unique case-insensitively.
func (s *Store) CreateUser(ctx context.Context, username string) (*store.User, error) {
	res, err := s.DB.ExecContext(ctx, `INSERT INTO users (username) VALUES (?)`, username)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("%w: create user: %v", store.ErrBackend, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: last insert id: %v", store.ErrBackend, err)
	}
	return &store.User{UserID: id, Username: username}, nil
}

// GetUserByUsername implements store.UserStore.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT user_id, username FROM users WHERE username = ? COLLATE NOCASE`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user by username: %v", store.ErrBackend, err)
	}
	return u, nil
}

// GetUserInfoForID implements store.UserStore.
func (s *Store) GetUserInfoForID(ctx context.Context, userID int64) (*store.User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT user_id, username FROM users WHERE user_id = ?`, userID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user by id: %v", store.ErrBackend, err)
	}
	return u, nil
}

// DeleteUser implements store.UserStore. Owned pages and contacts cascade.
func (s *Store) DeleteUser(ctx context.Context, user *store.User) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, user.UserID)
	if err != nil {
		return fmt.Errorf("%w: delete user: %v", store.ErrBackend, err)
	}
	return nil
}
