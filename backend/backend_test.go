package backend

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestConnErrorUnwrapsBoth(t *testing.T) {
	err := Unreachable("redis", io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrNoConnection) {
		t.Fatalf("expected ErrNoConnection in chain: %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected cause in chain: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "redis: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if Unreachable("redis", nil) != nil {
		t.Fatalf("nil cause must stay nil")
	}
}
