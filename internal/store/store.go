package store

import (
	"context"
	"errors"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrConflict          = errors.New("revision conflict detected")
	ErrNotFound          = errors.New("record not found")
	ErrValidation        = errors.New("validation failed")
	ErrRateLimited       = errors.New("upstream rate limit exceeded")
	ErrNetwork           = errors.New("network failure")
	ErrAuth              = errors.New("authentication with backing store failed")
	ErrConfiguration     = errors.New("store configuration incomplete")
	ErrTerminalState     = errors.New("transaction already in terminal state")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
)

// Record is one document inside a collection. Collections are stored as a
// single JSON array, so every record is a flat field map.
type Record = map[string]any

// DocumentStore is the contract that every backend (SQLite, GitHub contents
// API, ...) must satisfy. A collection is one versioned JSON-array blob;
// Save is conditional on the revision observed by the matching Load.
type DocumentStore interface {
	// Load returns the current records of a collection together with an
	// opaque revision token. A collection that does not exist yet yields
	// an empty slice and an empty revision, not an error.
	Load(ctx context.Context, collection string) ([]Record, string, error)

	// Save replaces the full content of a collection. expectedRevision must
	// match the backend's current revision or the write fails with
	// ErrConflict. An empty expectedRevision only succeeds when the
	// collection does not exist yet.
	Save(ctx context.Context, collection string, records []Record, expectedRevision string) (string, error)

	Ping(ctx context.Context) error
	Close()
}
