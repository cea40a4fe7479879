package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/entrycache"
	"github.com/unkn0wn-root/entrycache/codec"
)

func newTestHooks(opts Options) (*Hooks, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(l, opts), &buf
}

func TestMissSamplingAndRedaction(t *testing.T) {
	h, buf := newTestHooks(Options{MissEvery: 3})
	for i := 0; i < 9; i++ {
		h.Miss("user_id:7", entrycache.MissExpired)
	}
	if n := strings.Count(buf.String(), "entrycache.miss"); n != 3 {
		t.Fatalf("logged %d misses, want 3", n)
	}
	if strings.Contains(buf.String(), "user_id:7") {
		t.Fatalf("key should be redacted: %s", buf.String())
	}
}

func TestHitsAreOptIn(t *testing.T) {
	h, buf := newTestHooks(Options{})
	h.Hit("k")
	if buf.Len() != 0 {
		t.Fatalf("hits logged without LogHits: %s", buf.String())
	}
	h, buf = newTestHooks(Options{LogHits: true, Redact: func(s string) string { return s }})
	h.Hit("k")
	if !strings.Contains(buf.String(), "entrycache.hit key=k") {
		t.Fatalf("unexpected output %s", buf.String())
	}
}

func TestFlushFailedDeadLetter(t *testing.T) {
	h, buf := newTestHooks(Options{IncludePayload: true, Redact: func(s string) string { return s }})
	h.FlushFailed("id:1", []byte("pending"), time.Unix(1900000000, 0), errors.New("refused"))
	out := buf.String()
	for _, want := range []string{"level=ERROR", "entrycache.flush_failed", "key=id:1", "expires_at=1900000000", "payload=pending", "err=refused"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
}

func TestDecodeFallback(t *testing.T) {
	h, buf := newTestHooks(Options{})
	h.DecodeFallback("k", codec.DecodedRaw, nil)
	if !strings.Contains(buf.String(), "outcome=raw") {
		t.Fatalf("unexpected output %s", buf.String())
	}
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{LogHits: true})
	h.Hit("k")
	h.Miss("k", "absent")
	h.DecodeFallback("k", codec.DecodeFailed, errors.New("x"))
	h.FlushFailed("k", nil, time.Time{}, errors.New("x"))
}
