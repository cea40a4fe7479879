package codec

import (
	"errors"
	"reflect"
	"strconv"
)

// ErrNoStructured is returned when a non-scalar value meets a Value codec
// without a Structured codec.
var ErrNoStructured = errors.New("codec: no structured codec configured")

// Decoded reports how a payload was turned back into a value.
type Decoded uint8

const (
	NotDecoded Decoded = iota
	// DecodedScalar: V is a scalar type and the payload parsed as text.
	DecodedScalar
	// DecodedStructured: the structured codec accepted the payload.
	DecodedStructured
	// DecodedRaw: the structured codec rejected the payload and the raw text
	// was returned instead (only possible when V is an interface type).
	DecodedRaw
	// DecodeFailed: the payload could not be represented as V.
	DecodeFailed
)

func (d Decoded) String() string {
	switch d {
	case DecodedScalar:
		return "scalar"
	case DecodedStructured:
		return "structured"
	case DecodedRaw:
		return "raw"
	case DecodeFailed:
		return "failed"
	default:
		return "none"
	}
}

// Value encodes scalars as plain text and everything else with Structured.
//
// Scalars are string, []byte, bool and the builtin integer and float types.
// Named types with a scalar underlying type are treated as structured.
//
// When V is any the payload carries a two-byte header recording what was
// stored (nil, a scalar kind, or structured), so Decode hands back the same
// dynamic type instead of guessing: the string "123" stays a string.
type Value[V any] struct {
	Structured Codec[V]
}

const (
	// tagMark opens the header of payloads written for V = any. Plain text
	// payloads never start with NUL.
	tagMark byte = 0x00
	// tagStructured follows tagMark for Structured output. Scalar tags are
	// reflect.Kind values; reflect.Invalid (0) marks a nil value.
	tagStructured byte = 0xff
)

var scalarTypes = map[reflect.Kind]reflect.Type{}

func init() {
	for _, v := range []any{
		"", []byte(nil), false,
		int(0), int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0),
		float32(0), float64(0),
	} {
		t := reflect.TypeOf(v)
		scalarTypes[t.Kind()] = t
	}
}

func isAny[V any]() bool {
	_, ok := any((*V)(nil)).(*any)
	return ok
}

func (c Value[V]) Encode(v V) ([]byte, error) {
	if isAny[V]() {
		return c.encodeTagged(v)
	}
	if b, ok := encodeScalar(any(v)); ok {
		return b, nil
	}
	if c.Structured == nil {
		return nil, ErrNoStructured
	}
	return c.Structured.Encode(v)
}

func (c Value[V]) encodeTagged(v V) ([]byte, error) {
	x := any(v)
	if x == nil {
		return []byte{tagMark, byte(reflect.Invalid)}, nil
	}
	if b, ok := encodeScalar(x); ok {
		return append([]byte{tagMark, byte(reflect.TypeOf(x).Kind())}, b...), nil
	}
	if c.Structured == nil {
		return nil, ErrNoStructured
	}
	body, err := c.Structured.Encode(v)
	if err != nil {
		return nil, err
	}
	return append([]byte{tagMark, tagStructured}, body...), nil
}

func encodeScalar(x any) ([]byte, bool) {
	switch x := x.(type) {
	case nil:
		return []byte{}, true
	case string:
		return []byte(x), true
	case []byte:
		return x, true
	case bool:
		return strconv.AppendBool(nil, x), true
	case int:
		return strconv.AppendInt(nil, int64(x), 10), true
	case int8:
		return strconv.AppendInt(nil, int64(x), 10), true
	case int16:
		return strconv.AppendInt(nil, int64(x), 10), true
	case int32:
		return strconv.AppendInt(nil, int64(x), 10), true
	case int64:
		return strconv.AppendInt(nil, x, 10), true
	case uint:
		return strconv.AppendUint(nil, uint64(x), 10), true
	case uint8:
		return strconv.AppendUint(nil, uint64(x), 10), true
	case uint16:
		return strconv.AppendUint(nil, uint64(x), 10), true
	case uint32:
		return strconv.AppendUint(nil, uint64(x), 10), true
	case uint64:
		return strconv.AppendUint(nil, x, 10), true
	case float32:
		return strconv.AppendFloat(nil, float64(x), 'g', -1, 32), true
	case float64:
		return strconv.AppendFloat(nil, x, 'g', -1, 64), true
	}
	return nil, false
}

// Decode turns b back into a V and reports which path produced it.
//
// For V = any a tagged payload is decoded exactly as it was written. An
// untagged one (written by a typed entry or another program) goes through
// the structured codec first and comes back as a string when that fails
// (DecodedRaw). For concrete types a failure yields DecodeFailed and the cause.
func (c Value[V]) Decode(b []byte) (V, Decoded, error) {
	var v V
	if ok, err := decodeScalar(any(&v), string(b)); ok {
		if err != nil {
			var zero V
			return zero, DecodeFailed, err
		}
		return v, DecodedScalar, nil
	}

	if p, ok := any(&v).(*any); ok {
		if len(b) >= 2 && b[0] == tagMark {
			if x, d, err := c.decodeTagged(b[1], b[2:]); d != NotDecoded {
				*p = x
				return v, d, err
			}
		}
		if c.Structured != nil && len(b) > 0 {
			if x, err := c.Structured.Decode(b); err == nil {
				return x, DecodedStructured, nil
			}
		}
		*p = string(b)
		return v, DecodedRaw, nil
	}

	if c.Structured == nil {
		return v, DecodeFailed, ErrNoStructured
	}
	x, err := c.Structured.Decode(b)
	if err != nil {
		return v, DecodeFailed, err
	}
	return x, DecodedStructured, nil
}

// decodeTagged returns NotDecoded for an unknown tag; the payload is then
// treated as untagged.
func (c Value[V]) decodeTagged(tag byte, body []byte) (any, Decoded, error) {
	switch tag {
	case byte(reflect.Invalid):
		return nil, DecodedScalar, nil
	case tagStructured:
		if c.Structured == nil {
			return nil, DecodeFailed, ErrNoStructured
		}
		x, err := c.Structured.Decode(body)
		if err != nil {
			return string(body), DecodedRaw, nil
		}
		return any(x), DecodedStructured, nil
	}
	t, ok := scalarTypes[reflect.Kind(tag)]
	if !ok {
		return nil, NotDecoded, nil
	}
	p := reflect.New(t)
	if _, err := decodeScalar(p.Interface(), string(body)); err != nil {
		return nil, DecodeFailed, err
	}
	return p.Elem().Interface(), DecodedScalar, nil
}

func decodeScalar(p any, s string) (bool, error) {
	switch d := p.(type) {
	case *string:
		*d = s
	case *[]byte:
		*d = []byte(s)
	case *bool:
		x, err := strconv.ParseBool(s)
		*d = x
		return true, err
	case *int:
		return true, parseInt(d, s, strconv.IntSize)
	case *int8:
		return true, parseInt(d, s, 8)
	case *int16:
		return true, parseInt(d, s, 16)
	case *int32:
		return true, parseInt(d, s, 32)
	case *int64:
		return true, parseInt(d, s, 64)
	case *uint:
		return true, parseUint(d, s, strconv.IntSize)
	case *uint8:
		return true, parseUint(d, s, 8)
	case *uint16:
		return true, parseUint(d, s, 16)
	case *uint32:
		return true, parseUint(d, s, 32)
	case *uint64:
		return true, parseUint(d, s, 64)
	case *float32:
		x, err := strconv.ParseFloat(s, 32)
		*d = float32(x)
		return true, err
	case *float64:
		x, err := strconv.ParseFloat(s, 64)
		*d = x
		return true, err
	default:
		return false, nil
	}
	return true, nil
}

func parseInt[T ~int | ~int8 | ~int16 | ~int32 | ~int64](dst *T, s string, bits int) error {
	n, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return err
	}
	*dst = T(n)
	return nil
}

func parseUint[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](dst *T, s string, bits int) error {
	n, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return err
	}
	*dst = T(n)
	return nil
}
