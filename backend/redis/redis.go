// Package redis is the network memory-cache backend. Keys normalize with ":"
// and become the remote key as is (plus an optional prefix); expiry is passed
// to Redis as the key TTL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/entrycache/backend"
	"github.com/unkn0wn-root/entrycache/key"
)

const name = "redis"

// Separator joins field names and values in remote keys.
const Separator = ":"

var ErrNoAddr = errors.New("redis backend: addr is required when no client is given")

type Config struct {
	// Client is used as is when set. Otherwise one is created from Addr.
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns Client

	Addr        string
	Username    string
	Password    string
	DB          int
	DialTimeout time.Duration // 0 => go-redis default

	Prefix string // prepended to every remote key

	// Now is the clock used to turn expiry instants into TTLs. nil => time.Now
	Now func() time.Time
}

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	prefix      string
	now         func() time.Time
}

var _ backend.Backend = (*Redis)(nil)

// New connects (or adopts cfg.Client) and pings the server. An unreachable
// server yields a *backend.ConnError.
func New(ctx context.Context, cfg Config) (*Redis, error) {
	r := &Redis{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		prefix:      cfg.Prefix,
		now:         cfg.Now,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.rdb == nil {
		if cfg.Addr == "" {
			return nil, ErrNoAddr
		}
		r.rdb = goredis.NewClient(&goredis.Options{
			Addr:        cfg.Addr,
			Username:    cfg.Username,
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: cfg.DialTimeout,
		})
		r.closeClient = true
	}

	if err := r.rdb.Ping(ctx).Err(); err != nil {
		if r.closeClient {
			_ = r.rdb.Close()
		}
		return nil, backend.Unreachable(name, err)
	}
	return r, nil
}

// RemoteKey is the Redis key that holds k.
func (r *Redis) RemoteKey(k key.Key) (string, error) {
	s, err := k.Normalize(Separator)
	if err != nil {
		return "", err
	}
	return r.prefix + s, nil
}

// Write stores payload with TTL expiresAt-now. An expiry that already passed
// deletes the key instead; a zero expiresAt stores without TTL.
func (r *Redis) Write(ctx context.Context, k key.Key, payload []byte, expiresAt time.Time) error {
	rk, err := r.RemoteKey(k)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(r.now())
		if ttl <= 0 {
			return wrap(r.rdb.Del(ctx, rk).Err())
		}
	}
	return wrap(r.rdb.Set(ctx, rk, payload, ttl).Err())
}

// Read fetches the value and its remaining TTL in one round trip. A key
// without TTL reports backend.NoExpiry.
func (r *Redis) Read(ctx context.Context, k key.Key) ([]byte, time.Time, bool, error) {
	rk, err := r.RemoteKey(k)
	if err != nil {
		return nil, time.Time{}, false, err
	}

	var (
		get *goredis.StringCmd
		ttl *goredis.DurationCmd
	)
	_, err = r.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		get = p.Get(ctx, rk)
		ttl = p.TTL(ctx, rk)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, time.Time{}, false, wrap(err)
	}

	// Only a missing key is a miss. An empty stored value is a hit like any
	// other payload.
	b, err := get.Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, wrap(err)
	}

	switch d := ttl.Val(); {
	case d == -1:
		return b, backend.NoExpiry, true, nil
	case d < 0:
		// expired between GET and TTL
		return nil, time.Time{}, false, nil
	default:
		return b, r.now().Add(d).Truncate(time.Second), true, nil
	}
}

func (r *Redis) Delete(ctx context.Context, k key.Key) error {
	rk, err := r.RemoteKey(k)
	if err != nil {
		return err
	}
	return wrap(r.rdb.Del(ctx, rk).Err())
}

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (r *Redis) Close(context.Context) error {
	if r.closeClient {
		if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// wrap marks transport failures as connection errors and leaves server
// replies untouched.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, goredis.ErrClosed) {
		return backend.Unreachable(name, err)
	}
	return fmt.Errorf("redis backend: %w", err)
}
