package key

import (
	"errors"
	"testing"
)

type userID int64

func mustKey(t *testing.T, fields ...Field) Key {
	t.Helper()
	k, err := New(fields...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k
}

func TestNormalizeOrderIndependent(t *testing.T) {
	a := mustKey(t, F("a", 1), F("b", 2))
	b := mustKey(t, F("b", 2), F("a", 1))

	na, err := a.Normalize("-")
	if err != nil {
		t.Fatal(err)
	}
	nb, err := b.Normalize("-")
	if err != nil {
		t.Fatal(err)
	}
	if na != nb {
		t.Fatalf("normalize differs: %q vs %q", na, nb)
	}
	if na != "a-1b-2" {
		t.Fatalf("got %q want %q", na, "a-1b-2")
	}
}

func TestMergeOrderIndependentForDisjointFields(t *testing.T) {
	k1 := []Field{F("user_id", 7), F("org", "acme")}
	k2 := []Field{F("page", 3), F("lang", "en")}

	x, err := mustKey(t, k1...).Merge(k2...)
	if err != nil {
		t.Fatal(err)
	}
	y, err := mustKey(t, k2...).Merge(k1...)
	if err != nil {
		t.Fatal(err)
	}
	// merge one field at a time, reversed
	z := Key{}
	for i := len(k1) - 1; i >= 0; i-- {
		if z, err = z.Merge(k1[i]); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range k2 {
		if z, err = z.Merge(f); err != nil {
			t.Fatal(err)
		}
	}

	want := "lang:enorg:acmepage:3user_id:7"
	for _, k := range []Key{x, y, z} {
		if got := k.String(); got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
}

func TestMergeLastWriteWins(t *testing.T) {
	k := mustKey(t, F("user_id", 7), F("org", "acme"))
	k2, err := k.Merge(F("user_id", 8))
	if err != nil {
		t.Fatal(err)
	}
	if k2.Len() != 2 {
		t.Fatalf("expected 2 fields, got %d", k2.Len())
	}
	if v, _ := k2.Get("user_id"); v != 8 {
		t.Fatalf("expected overwritten value 8, got %v", v)
	}
	// insertion order keeps the overwritten field in place
	if fs := k2.Fields(); fs[0].Name != "user_id" || fs[1].Name != "org" {
		t.Fatalf("unexpected order %v", fs)
	}
	// original is untouched
	if v, _ := k.Get("user_id"); v != 7 {
		t.Fatalf("original key mutated: %v", v)
	}
}

func TestMergeErrors(t *testing.T) {
	k := Key{}
	if _, err := k.Merge(); !errors.Is(err, ErrMissing) {
		t.Fatalf("empty merge: want ErrMissing, got %v", err)
	}
	if _, err := k.Merge(F("", 1)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("empty name: want ErrInvalid, got %v", err)
	}
	if _, err := k.Merge(F("a", []int{1})); !errors.Is(err, ErrInvalid) {
		t.Fatalf("slice value: want ErrInvalid, got %v", err)
	}
	if _, err := k.Merge(F("a", nil)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("nil value: want ErrInvalid, got %v", err)
	}
	if _, err := FromMap(nil); !errors.Is(err, ErrMissing) {
		t.Fatalf("empty map: want ErrMissing, got %v", err)
	}
}

func TestNormalizeEmptyIsInvalid(t *testing.T) {
	if _, err := (Key{}).Normalize("-"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestValueFormatting(t *testing.T) {
	k := mustKey(t,
		F("id", userID(42)),
		F("ratio", 1.5),
		F("n", uint8(3)),
		F("s", "x y"),
	)
	want := "id=42n=3ratio=1.5s=x y"
	if got, _ := k.Normalize("="); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFromMap(t *testing.T) {
	k, err := FromMap(map[string]any{"b": "2", "a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if got := k.String(); got != "a:1b:2" {
		t.Fatalf("got %q", got)
	}
}

func TestEqual(t *testing.T) {
	a := mustKey(t, F("a", "1b:2"))
	b := mustKey(t, F("a", 1), F("b", 2))
	if a.String() != b.String() {
		t.Fatalf("log strings expected to collide: %q %q", a.String(), b.String())
	}
	if a.Equal(b) {
		t.Fatalf("different fields must not be equal")
	}

	c := mustKey(t, F("b", "2"), F("a", int64(1)))
	if !b.Equal(c) {
		t.Fatalf("same pairs in another order must be equal")
	}
	if b.Equal(Key{}) || !(Key{}).Equal(Key{}) {
		t.Fatalf("empty key comparison")
	}
}
