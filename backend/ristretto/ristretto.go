// Package ristretto is an in-process memory backend on dgraph-io/ristretto.
// Payloads are framed together with their expiry (internal/wire) because the
// cache does not report TTLs back.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/entrycache/backend"
	"github.com/unkn0wn-root/entrycache/internal/wire"
	"github.com/unkn0wn-root/entrycache/key"
)

// Separator joins field names and values in cache keys.
const Separator = ":"

// ErrRejected is returned when ristretto's admission policy drops a write.
var ErrRejected = errors.New("ristretto backend: write rejected")

type Ristretto struct {
	c   *rc.Cache
	now func() time.Time
}

var _ backend.Backend = (*Ristretto)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // in bytes; every entry costs its framed size
	BufferItems int64
	Metrics     bool

	Now func() time.Time // nil => time.Now
}

func New(cfg Config) (*Ristretto, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto backend: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Ristretto{c: c, now: now}, nil
}

func (p *Ristretto) Write(_ context.Context, k key.Key, payload []byte, expiresAt time.Time) error {
	ck, err := k.Normalize(Separator)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !expiresAt.IsZero() {
		if ttl = expiresAt.Sub(p.now()); ttl <= 0 {
			p.c.Del(ck)
			return nil
		}
	}
	v := wire.EncodeEntry(expiresAt, payload)
	if !p.c.SetWithTTL(ck, v, int64(len(v)), ttl) {
		return ErrRejected
	}
	// make the write visible to the next Read
	p.c.Wait()
	return nil
}

func (p *Ristretto) Read(_ context.Context, k key.Key) ([]byte, time.Time, bool, error) {
	ck, err := k.Normalize(Separator)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	v, ok := p.c.Get(ck)
	if !ok {
		return nil, time.Time{}, false, nil
	}
	b, _ := v.([]byte)
	exp, payload, err := wire.DecodeEntry(b)
	if err != nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(ck)
		return nil, time.Time{}, false, nil
	}
	if exp.IsZero() {
		exp = backend.NoExpiry
	}
	return payload, exp, true, nil
}

func (p *Ristretto) Delete(_ context.Context, k key.Key) error {
	ck, err := k.Normalize(Separator)
	if err != nil {
		return err
	}
	p.c.Del(ck)
	return nil
}

func (p *Ristretto) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters (nil unless Config.Metrics).
func (p *Ristretto) Metrics() *rc.Metrics { return p.c.Metrics }
