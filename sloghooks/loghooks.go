// Package sloghooks reports entrycache hook events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/entrycache"
	"github.com/unkn0wn-root/entrycache/codec"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// LogHits enables hit events at all (they are Debug and very frequent).
	LogHits bool
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
	// IncludePayload logs the unwritten payload of a failed flush, so the
	// log doubles as a dead-letter record. Off by default.
	IncludePayload bool
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ entrycache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(storageKey string) {
	if h.l == nil || !h.opts.LogHits || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("entrycache.hit", "key", h.redact(storageKey))
}

func (h *Hooks) Miss(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("entrycache.miss",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) DecodeFallback(storageKey string, outcome codec.Decoded, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("entrycache.decode_fallback",
		"key", h.redact(storageKey),
		"outcome", outcome.String(),
		"err", err)
}

func (h *Hooks) FlushFailed(storageKey string, payload []byte, expiresAt time.Time, err error) {
	if h.l == nil {
		return
	}
	args := []any{
		"key", h.redact(storageKey),
		"expires_at", expiresAt.Unix(),
		"bytes", len(payload),
		"err", err,
	}
	if h.opts.IncludePayload {
		args = append(args, "payload", string(payload))
	}
	h.l.Error("entrycache.flush_failed", args...)
}
