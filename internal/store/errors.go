package store

import "errors"

// Sentinel errors returned by PageStore and UserStore implementations.
// Callers should test with errors.Is, not string comparison.
var (
	// ErrDuplicate is returned when a unique constraint (page URL, username)
	// would be violated by the requested insert.
	ErrDuplicate = errors.New("store: duplicate")
	// ErrNotFound is returned when a required row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrBackend wraps an underlying driver/connection failure.
	ErrBackend = errors.New("store: backend failure")
)
