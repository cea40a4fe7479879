package entrycache

import (
	"fmt"
	"time"

	"github.com/unkn0wn-root/entrycache/backend"
	"github.com/unkn0wn-root/entrycache/codec"
	"github.com/unkn0wn-root/entrycache/key"
	"github.com/unkn0wn-root/entrycache/reltime"
)

// Options configure an Entry. Only Backend is required.
type Options[V any] struct {
	// Required
	Backend backend.Backend

	// Codec handles non-scalar values. Scalars (strings, numbers, bools, []byte)
	// are always stored as plain text. nil => codec.JSON[V].
	Codec codec.Codec[V]

	Logger        Logger           // if nil, NopLogger is used
	Hooks         Hooks            // if nil, NopHooks is used
	Parser        RelativeParser   // if nil, reltime.Parser{}
	DefaultExpiry time.Duration    // 0 => 24h
	Now           func() time.Time // called once per Entry; nil => time.Now

	// CloseBackend makes Entry.Close also close the backend. Leave it off when
	// the backend is shared between entries.
	CloseBackend bool
}

// New creates an Entry bound to opts.Backend with an initial key built from
// fields. The key may be left empty and filled in later with SetKey;
// operations that need it fail with ErrNoKey until then.
func New[V any](opts Options[V], fields ...key.Field) (*Entry[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("entrycache: backend is required")
	}
	if opts.DefaultExpiry < 0 {
		return nil, fmt.Errorf("entrycache: default expiry must not be negative")
	}

	k, err := key.New(fields...)
	if err != nil {
		return nil, err
	}

	var structured codec.Codec[V] = codec.JSON[V]{}
	if opts.Codec != nil {
		structured = opts.Codec
	}
	var parser RelativeParser = reltime.Parser{}
	if opts.Parser != nil {
		parser = opts.Parser
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	return &Entry[V]{
		backend:      opts.Backend,
		codec:        codec.Value[V]{Structured: structured},
		log:          coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:        coalesce[Hooks](opts.Hooks, NopHooks{}),
		parser:       parser,
		def:          coalesce(opts.DefaultExpiry, DefaultExpiry),
		closeBackend: opts.CloseBackend,
		key:          k,
		now:          now().Truncate(time.Second),
	}, nil
}
