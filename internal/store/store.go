// Package store defines the narrow client interface to the remote
// tree-structured document store, shared by the REST implementation and the
// in-memory one used in tests.
package store

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrFetchFailed reports a failed read or observe, or a value of an
	// unexpected shape.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrWriteFailed reports a failed write.
	ErrWriteFailed = errors.New("write failed")
	// ErrConflict reports a conditional write rejected because the revision
	// no longer matches.
	ErrConflict = errors.New("revision conflict")
)

// Snapshot is a value read from the store together with the revision token
// it was read at. Rev feeds SetIfMatch to detect concurrent writers.
type Snapshot struct {
	Value any
	Rev   string
}

// Exists reports whether the snapshot holds a value. The store returns a nil
// value for absent paths.
func (s Snapshot) Exists() bool {
	return s.Value != nil
}

// Store is a path-addressed document store. Paths are /-delimited; segments
// must not contain the characters . # $ [ ] (see the keyx package). Values
// are nested maps, arrays and primitives, as produced by JSON decoding.
//
// The store offers no multi-path transactions; last write wins per path.
type Store interface {
	// Get fetches the value at path. Absent paths yield a Snapshot with a
	// nil Value, not an error.
	Get(ctx context.Context, path string) (Snapshot, error)

	// Set unconditionally replaces the value at path.
	Set(ctx context.Context, path string, value any) error

	// SetIfMatch replaces the value at path only if its current revision
	// equals rev; otherwise it fails with ErrConflict.
	SetIfMatch(ctx context.Context, path string, value any, rev string) error

	// Observe subscribes to path. The returned channel receives the current
	// value immediately and again after every change, and is closed when ctx
	// ends. Tearing down the subscription does not affect writes already
	// issued.
	Observe(ctx context.Context, path string) (<-chan Snapshot, error)

	// Close releases the client's resources.
	Close() error
}

// Join builds a /-delimited path from segments. Segments are used as given;
// callers are responsible for path-safing them first.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}
