// Package codec turns cached values into bytes and back.
//
// Codec[V] implementations handle structured values. Value[V] sits in front of a
// structured codec and lets scalars (strings, numbers, booleans, raw bytes) pass
// through as plain text, so stored payloads stay readable and backends that
// transform bytes themselves (e.g. compression) see the value as-is.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
