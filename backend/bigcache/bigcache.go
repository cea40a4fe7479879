// Package bigcache is an in-process memory backend on allegro/bigcache.
// BigCache only knows a global life window, so the per-entry expiry travels
// with the payload (internal/wire).
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/entrycache/backend"
	"github.com/unkn0wn-root/entrycache/internal/wire"
	"github.com/unkn0wn-root/entrycache/key"
)

// Separator joins field names and values in cache keys.
const Separator = ":"

type BigCache struct {
	c   *bc.BigCache
	now func() time.Time
}

var _ backend.Backend = (*BigCache)(nil)

type Config struct {
	LifeWindow         time.Duration // upper bound on any entry's lifetime; 0 => 24h
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited

	Now func() time.Time // nil => time.Now
}

func New(ctx context.Context, cfg Config) (*BigCache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 24 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &BigCache{c: c, now: now}, nil
}

func (p *BigCache) Write(_ context.Context, k key.Key, payload []byte, expiresAt time.Time) error {
	ck, err := k.Normalize(Separator)
	if err != nil {
		return err
	}
	if !expiresAt.IsZero() && !expiresAt.After(p.now()) {
		return p.del(ck)
	}
	return p.c.Set(ck, wire.EncodeEntry(expiresAt, payload))
}

// Read reports the framed expiry; stale entries linger until the life window
// evicts them.
func (p *BigCache) Read(_ context.Context, k key.Key) ([]byte, time.Time, bool, error) {
	ck, err := k.Normalize(Separator)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	b, err := p.c.Get(ck)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	exp, payload, err := wire.DecodeEntry(b)
	if err != nil {
		_ = p.del(ck)
		return nil, time.Time{}, false, nil
	}
	if exp.IsZero() {
		exp = backend.NoExpiry
	}
	return payload, exp, true, nil
}

func (p *BigCache) Delete(_ context.Context, k key.Key) error {
	ck, err := k.Normalize(Separator)
	if err != nil {
		return err
	}
	return p.del(ck)
}

func (p *BigCache) Close(_ context.Context) error {
	return p.c.Close()
}

func (p *BigCache) del(ck string) error {
	if err := p.c.Delete(ck); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}
