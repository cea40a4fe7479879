// Package key builds composite cache keys out of field/value pairs and renders
// them into a canonical, order-independent lookup string.
package key

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalid is returned for keys that are not a proper field mapping:
	// empty field names, unsupported value types, or nothing to normalize.
	ErrInvalid = errors.New("entrycache: key must be a mapping of field names to string or numeric values")
	// ErrMissing is returned when a key is required but no fields were supplied.
	ErrMissing = errors.New("entrycache: key has not been set")
)

// Field is one name/value pair of a Key.
// Value must be a string or any integer/float kind.
type Field struct {
	Name  string
	Value any
}

// F is shorthand for Field{Name: name, Value: value}.
func F(name string, value any) Field { return Field{Name: name, Value: value} }

// String renders the field value the way it appears in normalized keys.
func (f Field) String() string { return format(f.Value) }

// Key is an ordered set of uniquely named fields. The zero value is an empty key.
// Key is immutable; Merge returns a new Key.
type Key struct {
	fields []Field
}

// New builds a Key from fields. Later fields overwrite earlier ones with the same name.
// An empty field list yields an empty Key (not an error).
func New(fields ...Field) (Key, error) {
	if len(fields) == 0 {
		return Key{}, nil
	}
	return Key{}.Merge(fields...)
}

// FromMap builds a Key from a map. Map iteration order is irrelevant because
// normalization sorts by field name.
func FromMap(m map[string]any) (Key, error) {
	if len(m) == 0 {
		return Key{}, ErrMissing
	}
	fields := make([]Field, 0, len(m))
	for n, v := range m {
		fields = append(fields, Field{Name: n, Value: v})
	}
	// deterministic insertion order
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return Key{}.Merge(fields...)
}

// Merge returns a copy of k with fields merged over it. A field whose name already
// exists replaces the old value in place; new names are appended.
func (k Key) Merge(fields ...Field) (Key, error) {
	if len(fields) == 0 {
		return k, ErrMissing
	}
	for _, f := range fields {
		if err := validate(f); err != nil {
			return k, err
		}
	}

	out := make([]Field, len(k.fields), len(k.fields)+len(fields))
	copy(out, k.fields)
	for _, f := range fields {
		if i := indexOf(out, f.Name); i >= 0 {
			out[i].Value = f.Value
			continue
		}
		out = append(out, f)
	}
	return Key{fields: out}, nil
}

// Len returns the number of fields.
func (k Key) Len() int { return len(k.fields) }

// Empty reports whether k has no fields.
func (k Key) Empty() bool { return len(k.fields) == 0 }

// Fields returns the fields in insertion order.
func (k Key) Fields() []Field {
	out := make([]Field, len(k.fields))
	copy(out, k.fields)
	return out
}

// Get returns the value stored under name.
func (k Key) Get(name string) (any, bool) {
	if i := indexOf(k.fields, name); i >= 0 {
		return k.fields[i].Value, true
	}
	return nil, false
}

// Sorted returns the fields ordered by name ascending.
func (k Key) Sorted() []Field {
	out := k.Fields()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Equal reports whether k and o hold the same names and values, ignoring
// insertion order. Values compare by their normalized text, so 7 and "7" match.
func (k Key) Equal(o Key) bool {
	if len(k.fields) != len(o.fields) {
		return false
	}
	for _, f := range k.fields {
		v, ok := o.Get(f.Name)
		if !ok || format(v) != f.String() {
			return false
		}
	}
	return true
}

// Normalize renders k as name<sep>value pairs in field-name order.
// Two keys holding the same pairs normalize identically regardless of insertion order.
func (k Key) Normalize(sep string) (string, error) {
	if len(k.fields) == 0 {
		return "", ErrInvalid
	}
	var b strings.Builder
	for _, f := range k.Sorted() {
		b.WriteString(f.Name)
		b.WriteString(sep)
		b.WriteString(f.String())
	}
	return b.String(), nil
}

// String is the ":"-separated normalization, or "" for an empty key. Meant for logs.
func (k Key) String() string {
	s, _ := k.Normalize(":")
	return s
}

func indexOf(fields []Field, name string) int {
	for i := range fields {
		if fields[i].Name == name {
			return i
		}
	}
	return -1
}

func validate(f Field) error {
	if f.Name == "" {
		return fmt.Errorf("%w: empty field name", ErrInvalid)
	}
	if f.Value == nil {
		return fmt.Errorf("%w: field %q has no value", ErrInvalid, f.Name)
	}
	switch reflect.ValueOf(f.Value).Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	default:
		return fmt.Errorf("%w: field %q has unsupported type %T", ErrInvalid, f.Name, f.Value)
	}
}

func format(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
