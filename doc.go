// Package entrycache stores, reads and invalidates values under composite
// keys in a pluggable backend, with time-based expiry and deferred writes.
//
// Components:
//   - key: composite field/value keys, normalized in field-name order so that
//     the order in which fields were merged never matters.
//   - codec: Codec[V] for structured values. Scalars are stored as plain text.
//   - Expiry: absolute, duration or date-expression expirations, resolved
//     against the instant an Entry was created (default 24h).
//   - backend.Backend: byte store with expiry (file, redis, ristretto,
//     bigcache, postgres).
//
// Lifecycle:
//
//	e, err := entrycache.New[Profile](opts, key.F("user_id", 7))
//	if err != nil { ... }
//	defer e.Release(ctx, &err)    // writes a pending value exactly once
//	_ = e.Set(ctx, p, entrycache.Relative("+1 day"))
//	p, ok, err := e.Get(ctx)       // read-your-writes while pending
//
// Flush failures on Close are returned as *FlushError, logged and passed
// to Hooks.FlushFailed.
package entrycache
