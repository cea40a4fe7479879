package entrycache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/entrycache/backend"
	"github.com/unkn0wn-root/entrycache/codec"
	"github.com/unkn0wn-root/entrycache/key"
)

// State is the lifecycle position of an Entry.
//
//	Fresh -> Primed -> Flushed -> Destroyed
//	Fresh -> Loaded
type State uint8

const (
	Fresh     State = iota // constructed, no data
	Primed                 // value set locally, write pending
	Flushed                // pending value written to the backend
	Loaded                 // value read from the backend
	Destroyed              // closed; terminal
)

// pendingWrite is a value set but not yet written. It stays bound to the
// key that was current at Set time.
type pendingWrite[V any] struct {
	key       key.Key
	value     V
	raw       []byte
	expiresAt time.Time
}

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Primed:
		return "primed"
	case Flushed:
		return "flushed"
	case Loaded:
		return "loaded"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Entry coordinates one cached item: its key, its value and expiry, and the
// backend it lives in. Set defers the backend write until Flush or Close.
//
// An Entry is meant for a single goroutine and is not safe for concurrent use.
// Always release it:
//
//	e, err := entrycache.New[Profile](opts, key.F("user_id", 7))
//	if err != nil { ... }
//	defer e.Release(ctx, &err)
type Entry[V any] struct {
	backend      backend.Backend
	codec        codec.Value[V]
	log          Logger
	hooks        Hooks
	parser       RelativeParser
	def          time.Duration
	closeBackend bool

	key       key.Key
	raw       []byte
	expiresAt time.Time
	pending   *pendingWrite[V] // nil unless a Set is waiting for Flush
	state     State
	decoded   codec.Decoded

	// fixed at construction; every expiry computation and staleness check
	// made by this entry uses it
	now time.Time
}

// SetKey merges fields into the entry key. Existing names are overwritten.
func (e *Entry[V]) SetKey(fields ...key.Field) error {
	if err := e.usable(); err != nil {
		return err
	}
	k, err := e.key.Merge(fields...)
	if err != nil {
		return err
	}
	e.key = k
	return nil
}

// SetKeyMap is SetKey for a map of field values.
func (e *Entry[V]) SetKeyMap(m map[string]any) error {
	if err := e.usable(); err != nil {
		return err
	}
	part, err := key.FromMap(m)
	if err != nil {
		return err
	}
	return e.SetKey(part.Fields()...)
}

// Key returns the current key.
func (e *Entry[V]) Key() key.Key { return e.key }

// Set stores v locally with the given expiry. The backend write happens on
// Flush or Close. Pass Expiry{} for the default expiry.
func (e *Entry[V]) Set(ctx context.Context, v V, exp Expiry) error {
	return e.set(ctx, v, exp, false)
}

// SetNow is Set followed by an immediate backend write. Backend errors are
// returned unchanged and leave the value pending.
func (e *Entry[V]) SetNow(ctx context.Context, v V, exp Expiry) error {
	return e.set(ctx, v, exp, true)
}

func (e *Entry[V]) set(ctx context.Context, v V, exp Expiry, flushNow bool) error {
	if err := e.usable(); err != nil {
		return err
	}
	if e.key.Empty() {
		return ErrNoKey
	}
	raw, err := e.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("entrycache: encode %s: %w", e.key, err)
	}

	e.raw = raw
	e.expiresAt = exp.Resolve(e.now, e.parser, e.def)
	e.decoded = codec.NotDecoded
	e.pending = &pendingWrite[V]{key: e.key, value: v, raw: raw, expiresAt: e.expiresAt}
	e.state = Primed

	if !flushNow {
		return nil
	}
	return e.write(ctx)
}

// Get merges fields into the key (when given) and reads the value from the
// backend. ok is false when nothing is stored, the stored value is expired
// relative to Now, or the payload cannot be decoded into V.
//
// A value set but not yet flushed under the same key is returned without a
// backend read. Reading another key leaves the pending write untouched.
func (e *Entry[V]) Get(ctx context.Context, fields ...key.Field) (v V, ok bool, err error) {
	if err := e.usable(); err != nil {
		return v, false, err
	}
	if len(fields) > 0 {
		if err := e.SetKey(fields...); err != nil {
			return v, false, err
		}
	}
	if e.key.Empty() {
		return v, false, ErrNoKey
	}

	sk := e.key.String()
	if p := e.pending; p != nil && p.key.Equal(e.key) {
		e.raw, e.expiresAt = p.raw, p.expiresAt
		e.decoded = codec.NotDecoded
		e.hooks.Hit(sk)
		return p.value, true, nil
	}

	raw, exp, found, err := e.backend.Read(ctx, e.key)
	if err != nil {
		return v, false, err
	}
	if e.pending == nil {
		e.state = Loaded
	}
	e.decoded = codec.NotDecoded
	if !found {
		e.raw, e.expiresAt = nil, time.Time{}
		e.hooks.Miss(sk, MissAbsent)
		return v, false, nil
	}
	e.raw, e.expiresAt = raw, exp

	if IsExpired(exp, e.now) {
		e.log.Debug("cache entry expired", Fields{"key": sk, "expires_at": exp.Unix(), "now": e.now.Unix()})
		e.hooks.Miss(sk, MissExpired)
		return v, false, nil
	}

	val, d, derr := e.codec.Decode(raw)
	e.decoded = d
	switch d {
	case codec.DecodeFailed:
		e.log.Warn("cache decode failed; treating as miss", Fields{"key": sk, "bytes": len(raw), "err": derr})
		e.hooks.DecodeFallback(sk, d, derr)
		e.hooks.Miss(sk, MissDecode)
		return v, false, nil
	case codec.DecodedRaw:
		e.log.Warn("cache payload is not structured; returning raw", Fields{"key": sk, "bytes": len(raw)})
		e.hooks.DecodeFallback(sk, d, nil)
	}
	e.hooks.Hit(sk)
	return val, true, nil
}

// Delete merges fields into the key (when given) and removes the item from
// the backend. A pending write for the same key is dropped. Deleting a missing
// item is not an error.
func (e *Entry[V]) Delete(ctx context.Context, fields ...key.Field) error {
	if err := e.usable(); err != nil {
		return err
	}
	if len(fields) > 0 {
		if err := e.SetKey(fields...); err != nil {
			return err
		}
	}
	if e.key.Empty() {
		return ErrNoKey
	}
	if err := e.backend.Delete(ctx, e.key); err != nil {
		return err
	}

	if p := e.pending; p != nil && p.key.Equal(e.key) {
		e.log.Debug("pending cache write dropped by delete", Fields{"key": e.key.String()})
		e.pending = nil
		e.state = Fresh
	}
	e.raw, e.expiresAt = nil, time.Time{}
	e.decoded = codec.NotDecoded
	return nil
}

// Flush writes a pending value. It is a no-op when nothing is pending, so
// a value reaches the backend once however often Flush is called.
//
// On failure the error is a *FlushError carrying the payload; it is also
// logged and handed to Hooks.FlushFailed.
func (e *Entry[V]) Flush(ctx context.Context) error {
	if err := e.usable(); err != nil {
		return err
	}
	p := e.pending
	if p == nil {
		return nil
	}
	if err := e.write(ctx); err != nil {
		sk := p.key.String()
		e.log.Error("cache flush failed", Fields{
			"key":        sk,
			"expires_at": p.expiresAt.Unix(),
			"bytes":      len(p.raw),
			"err":        err,
		})
		e.hooks.FlushFailed(sk, p.raw, p.expiresAt, err)
		return &FlushError{Key: sk, Payload: p.raw, Err: err}
	}
	return nil
}

// Close flushes a pending value and destroys the entry. A failed flush is
// reported once (see Flush) and the value is dropped. With
// Options.CloseBackend the backend is closed too.
// Calling Close again is a no-op.
func (e *Entry[V]) Close(ctx context.Context) error {
	if e.state == Destroyed {
		return nil
	}
	err := e.Flush(ctx)
	e.pending = nil
	e.state = Destroyed
	if e.closeBackend {
		if cerr := e.backend.Close(ctx); cerr != nil {
			err = errors.Join(err, fmt.Errorf("entrycache: close backend: %w", cerr))
		}
	}
	return err
}

// Release is Close for defer statements: a close error is joined into *errp.
func (e *Entry[V]) Release(ctx context.Context, errp *error) {
	err := e.Close(ctx)
	if err == nil || errp == nil {
		return
	}
	*errp = errors.Join(*errp, err)
}

func (e *Entry[V]) State() State { return e.state }

// Expiration is the expiry of the value last set or read; zero if none.
func (e *Entry[V]) Expiration() time.Time { return e.expiresAt }

// Raw is the encoded payload of the value last set or read.
func (e *Entry[V]) Raw() []byte { return e.raw }

// Decoded reports how the last read payload was decoded.
func (e *Entry[V]) Decoded() codec.Decoded { return e.decoded }

// Now is the reference instant captured at construction.
func (e *Entry[V]) Now() time.Time { return e.now }

func (e *Entry[V]) write(ctx context.Context) error {
	p := e.pending
	if err := e.backend.Write(ctx, p.key, p.raw, p.expiresAt); err != nil {
		return err
	}
	e.pending = nil
	e.state = Flushed
	e.log.Debug("cache entry written", Fields{"key": p.key.String(), "expires_at": p.expiresAt.Unix(), "bytes": len(p.raw)})
	return nil
}

func (e *Entry[V]) usable() error {
	if e.state == Destroyed {
		return ErrClosed
	}
	return nil
}
