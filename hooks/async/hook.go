// Package asynchook moves hook delivery off the caller's goroutine.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    MissEvery: 100, // sample logs: ~every 100th miss
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	e, _ := entrycache.New[User](entrycache.Options[User]{
//	    Backend: be,
//	    Hooks:   hooks, // or `raw` if you don’t want async
//	}, key.F("user_id", id))
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/entrycache"
	"github.com/unkn0wn-root/entrycache/codec"
)

// Hooks queues events for a pool of workers. Events are dropped when the
// queue is full, except FlushFailed which waits for room: it carries the
// only copy of an unwritten value.
type Hooks struct {
	inner entrycache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ entrycache.Hooks = (*Hooks)(nil)

func New(inner entrycache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped is the number of events lost to a full queue or a closed pool.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) must(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	h.q <- f
}

func (h *Hooks) Hit(k string)          { h.try(func() { h.inner.Hit(k) }) }
func (h *Hooks) Miss(k, reason string) { h.try(func() { h.inner.Miss(k, reason) }) }
func (h *Hooks) DecodeFallback(k string, d codec.Decoded, err error) {
	h.try(func() { h.inner.DecodeFallback(k, d, err) })
}
func (h *Hooks) FlushFailed(k string, payload []byte, exp time.Time, err error) {
	p := append([]byte(nil), payload...)
	h.must(func() { h.inner.FlushFailed(k, p, exp, err) })
}
