package entrycache

import "time"

// DefaultExpiry applies when a write omits its expiration or gives one that
// cannot be resolved into the future.
const DefaultExpiry = 24 * time.Hour

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
