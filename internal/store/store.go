// Package store defines the interface for the remote content file store.
// The store is an opaque key-value store of file contents keyed by path,
// with optimistic-concurrency version tokens. Implementations exist for the
// GitHub contents API, Google Cloud Storage, and an in-memory fake.
package store

import (
	"context"
	"errors"
)

// ErrNotFound signals that no object exists at the requested path. During an
// upsert it is not a failure; it selects the create path.
var ErrNotFound = errors.New("object not found")

// ErrConflict signals that a write precondition failed because the object
// changed since its version token was read. Callers should re-read and retry
// rather than treat this as a generic store failure.
var ErrConflict = errors.New("object changed concurrently")

// Store is the common interface for a remote content file store.
type Store interface {
	// Stat returns the current version token of the object at path, or
	// ErrNotFound if it does not exist.
	Stat(ctx context.Context, path string) (string, error)

	// Write replaces the full content of the object at path and returns the
	// new version token. A non-empty expectedToken makes the write
	// conditional on the object still carrying that token; an empty token
	// makes it conditional on the object not existing. A failed precondition
	// yields ErrConflict.
	Write(ctx context.Context, path string, data []byte, expectedToken string) (string, error)

	// List returns the file names directly under dir.
	List(ctx context.Context, dir string) ([]string, error)
}
