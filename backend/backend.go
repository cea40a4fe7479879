// Package backend defines the storage abstraction used by entrycache.
//
// A Backend persists one encoded payload plus its absolute expiry per key.
// Backends receive the structured key and decide themselves how to address it:
// stores with a flat keyspace normalize it with their own separator, SQL stores
// filter on every field.
//
// Implementations must be byte-for-byte transparent: Read returns exactly the
// payload passed to Write. Internal transforms (compression, framing) must be
// fully reversed.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/entrycache/key"
)

// ErrNoConnection reports that the underlying store is unreachable.
var ErrNoConnection = errors.New("entrycache: can not connect to cache")

// NoExpiry is reported by Read for entries the store holds without an expiry.
var NoExpiry = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// Backend is a keyed byte store with absolute expiries.
type Backend interface {
	// Write stores payload under k until expiresAt, replacing any previous value.
	Write(ctx context.Context, k key.Key, payload []byte, expiresAt time.Time) error

	// Read returns (payload, expiresAt, true, nil) on hit and (nil, zero, false, nil)
	// on miss. A zero expiresAt is always treated as stale by the caller.
	Read(ctx context.Context, k key.Key) (payload []byte, expiresAt time.Time, found bool, err error)

	// Delete removes k. Deleting a missing key is not an error.
	Delete(ctx context.Context, k key.Key) error

	// Close releases resources owned by the backend.
	Close(ctx context.Context) error
}

// ConnError wraps a failure to reach a store. It matches ErrNoConnection
// with errors.Is and also unwraps to the transport error.
type ConnError struct {
	Backend string
	Err     error
}

// Unreachable wraps err as a *ConnError for the named backend.
func Unreachable(name string, err error) error {
	if err == nil {
		return nil
	}
	return &ConnError{Backend: name, Err: err}
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Backend, ErrNoConnection, e.Err)
}

func (e *ConnError) Unwrap() []error {
	return []error{ErrNoConnection, e.Err}
}
