package entrycache

import (
	"time"

	"github.com/unkn0wn-root/entrycache/codec"
)

// Miss reasons passed to Hooks.Miss.
const (
	MissAbsent  = "absent"
	MissExpired = "expired"
	MissDecode  = "decode"
)

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; wrap slow sinks with
// hooks/async. storageKey is the ":"-normalized key.
type Hooks interface {
	// A read returned a live value.
	Hit(storageKey string)

	// A read found nothing usable. reason ∈ {"absent", "expired", "decode"}
	Miss(storageKey, reason string)

	// The structured codec rejected a payload and the raw bytes were returned.
	DecodeFallback(storageKey string, outcome codec.Decoded, err error)

	// A pending value could not be written on Flush/Close. This is the only
	// place such a value can still be recovered (dead letter).
	FlushFailed(storageKey string, payload []byte, expiresAt time.Time, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                                   {}
func (NopHooks) Miss(string, string)                          {}
func (NopHooks) DecodeFallback(string, codec.Decoded, error)  {}
func (NopHooks) FlushFailed(string, []byte, time.Time, error) {}
