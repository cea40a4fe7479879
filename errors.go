package entrycache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/entrycache/backend"
	"github.com/unkn0wn-root/entrycache/key"
)

var (
	// ErrInvalidKey: the key argument is not a proper field mapping.
	ErrInvalidKey = key.ErrInvalid
	// ErrNoKey: the operation needs a key and none is set.
	ErrNoKey = key.ErrMissing
	// ErrNoConnection: the backend is unreachable. Raised by backends.
	ErrNoConnection = backend.ErrNoConnection
	// ErrClosed: the entry was already closed.
	ErrClosed = errors.New("entrycache: entry is closed")
)

// FlushError reports a pending value that could not be written on Flush/Close.
// The payload is kept so callers (or Hooks) can dead-letter it.
type FlushError struct {
	Key     string
	Payload []byte
	Err     error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush %q: %v", e.Key, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }
