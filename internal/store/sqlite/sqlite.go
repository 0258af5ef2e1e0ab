// Package sqlite is the SQLite-backed implementation of store.PageStore and
// store.UserStore.
package sqlite

import (
	"database/sql"

	"github.com/hazyhaar/domguard/internal/dbopen"
)

// Store is the domguard database handle. It implements both
// store.PageStore and store.UserStore.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the domguard SQLite database at path and applies
// the domguard schema.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, Schema)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
