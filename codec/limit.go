package codec

import (
	"errors"
	"fmt"
)

// ErrTooLarge is returned by Limit for a payload above its bound.
var ErrTooLarge = errors.New("codec: payload too large")

// Limit bounds the size of payloads handed to Inner.Decode. Items read back
// from a shared directory, table or server are not trusted to be small.
// Max <= 0 disables the check. Encode is not bounded.
type Limit[V any] struct {
	Inner Codec[V]
	Max   int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.Max > 0 && len(b) > c.Max {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(b), c.Max)
	}
	return c.Inner.Decode(b)
}
