// Package config loads entrycache settings from YAML and ENTRYCACHE_*
// environment variables and builds the configured backend and logger.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/entrycache"
	"github.com/unkn0wn-root/entrycache/backend"
	"github.com/unkn0wn-root/entrycache/backend/bigcache"
	"github.com/unkn0wn-root/entrycache/backend/file"
	"github.com/unkn0wn-root/entrycache/backend/postgres"
	"github.com/unkn0wn-root/entrycache/backend/redis"
	"github.com/unkn0wn-root/entrycache/backend/ristretto"
	"github.com/unkn0wn-root/entrycache/codec"
	zaplog "github.com/unkn0wn-root/entrycache/log/zap"
)

// Backend names accepted in Config.Backend.
const (
	BackendFile      = "file"
	BackendRedis     = "redis"
	BackendRistretto = "ristretto"
	BackendBigCache  = "bigcache"
	BackendPostgres  = "postgres"
)

// FileConfig holds file backend settings
type FileConfig struct {
	Dir        string `yaml:"dir"`
	MaxNameLen int    `yaml:"max_name_len"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	Prefix      string        `yaml:"prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

type RistrettoConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
}

type BigCacheConfig struct {
	LifeWindow         time.Duration `yaml:"life_window"`
	HardMaxCacheSizeMB int           `yaml:"hard_max_cache_size_mb"`
}

// PostgresConfig holds SQL backend settings. When KeyFields is set the
// table is created on open.
type PostgresConfig struct {
	DSN       string   `yaml:"dsn"`
	Table     string   `yaml:"table"`
	KeyFields []string `yaml:"key_fields"`
}

// Codec names accepted in CodecConfig.Name.
const (
	CodecJSON    = "json"
	CodecCBOR    = "cbor"
	CodecMsgpack = "msgpack"
)

// CodecConfig selects the structured codec used for non-scalar values.
type CodecConfig struct {
	Name       string `yaml:"name"`
	MaxPayload int    `yaml:"max_payload"` // bytes; 0 => unbounded
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// Config is the central configuration struct embedding all component configs
type Config struct {
	Backend       string        `yaml:"backend"`
	DefaultExpiry time.Duration `yaml:"default_expiry"`

	File      FileConfig      `yaml:"file"`
	Redis     RedisConfig     `yaml:"redis"`
	Ristretto RistrettoConfig `yaml:"ristretto"`
	BigCache  BigCacheConfig  `yaml:"bigcache"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Codec     CodecConfig     `yaml:"codec"`
	Log       LogConfig       `yaml:"log"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend:       BackendFile,
		DefaultExpiry: entrycache.DefaultExpiry,
		File: FileConfig{
			Dir: filepath.Join(os.TempDir(), "entrycache"),
		},
		Ristretto: RistrettoConfig{
			NumCounters: 1e5,
			MaxCost:     64 << 20,
			BufferItems: 64,
		},
		BigCache: BigCacheConfig{
			LifeWindow: 24 * time.Hour,
		},
		Postgres: PostgresConfig{
			Table: postgres.DefaultTable,
		},
		Codec: CodecConfig{
			Name: CodecJSON,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (when not empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv("ENTRYCACHE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("ENTRYCACHE_DEFAULT_EXPIRY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: ENTRYCACHE_DEFAULT_EXPIRY: %w", err)
		}
		cfg.DefaultExpiry = d
	}
	if v := os.Getenv("ENTRYCACHE_FILE_DIR"); v != "" {
		cfg.File.Dir = v
	}
	if v := os.Getenv("ENTRYCACHE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("ENTRYCACHE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ENTRYCACHE_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: ENTRYCACHE_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	if v := os.Getenv("ENTRYCACHE_REDIS_PREFIX"); v != "" {
		cfg.Redis.Prefix = v
	}
	if v := os.Getenv("ENTRYCACHE_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("ENTRYCACHE_POSTGRES_TABLE"); v != "" {
		cfg.Postgres.Table = v
	}
	if v := os.Getenv("ENTRYCACHE_CODEC"); v != "" {
		cfg.Codec.Name = v
	}
	if v := os.Getenv("ENTRYCACHE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendFile:
		if strings.TrimSpace(c.File.Dir) == "" {
			return fmt.Errorf("config: file.dir is required")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: postgres.dsn is required")
		}
	case BackendRistretto, BackendBigCache:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	c.Codec.Name = strings.ToLower(strings.TrimSpace(c.Codec.Name))
	switch c.Codec.Name {
	case "":
		c.Codec.Name = CodecJSON
	case CodecJSON, CodecCBOR, CodecMsgpack:
	default:
		return fmt.Errorf("config: unknown codec %q", c.Codec.Name)
	}
	if c.Codec.MaxPayload < 0 {
		return fmt.Errorf("config: codec.max_payload must not be negative")
	}
	if c.DefaultExpiry < 0 {
		return fmt.Errorf("config: default_expiry must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}

// OpenBackend connects the configured backend.
func (c *Config) OpenBackend(ctx context.Context) (backend.Backend, error) {
	var (
		be  backend.Backend
		err error
	)
	switch c.Backend {
	case BackendFile:
		be, err = assign(file.New(file.Config{Dir: c.File.Dir, MaxNameLen: c.File.MaxNameLen}))
	case BackendRedis:
		be, err = assign(redis.New(ctx, redis.Config{
			Addr:        c.Redis.Addr,
			Username:    c.Redis.Username,
			Password:    c.Redis.Password,
			DB:          c.Redis.DB,
			Prefix:      c.Redis.Prefix,
			DialTimeout: c.Redis.DialTimeout,
		}))
	case BackendRistretto:
		be, err = assign(ristretto.New(ristretto.Config{
			NumCounters: c.Ristretto.NumCounters,
			MaxCost:     c.Ristretto.MaxCost,
			BufferItems: c.Ristretto.BufferItems,
		}))
	case BackendBigCache:
		be, err = assign(bigcache.New(ctx, bigcache.Config{
			LifeWindow:         c.BigCache.LifeWindow,
			HardMaxCacheSizeMB: c.BigCache.HardMaxCacheSizeMB,
		}))
	case BackendPostgres:
		be, err = c.openPostgres(ctx)
	default:
		err = fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if err != nil {
		return nil, err
	}
	return be, nil
}

func (c *Config) openPostgres(ctx context.Context) (backend.Backend, error) {
	pg, err := postgres.New(ctx, postgres.Config{DSN: c.Postgres.DSN, Table: c.Postgres.Table})
	if err != nil {
		return nil, err
	}
	if len(c.Postgres.KeyFields) > 0 {
		if err := pg.EnsureTable(ctx, c.Postgres.KeyFields...); err != nil {
			_ = pg.Close(ctx)
			return nil, err
		}
	}
	return pg, nil
}

// ValueCodec returns the configured structured codec for untyped values,
// bounded by Codec.MaxPayload.
func (c *Config) ValueCodec() (codec.Codec[any], error) {
	var inner codec.Codec[any]
	switch c.Codec.Name {
	case CodecJSON, "":
		inner = codec.JSON[any]{}
	case CodecCBOR:
		cb, err := codec.NewCBOR[any](true)
		if err != nil {
			return nil, fmt.Errorf("config: cbor codec: %w", err)
		}
		inner = cb
	case CodecMsgpack:
		inner = codec.Msgpack[any]{}
	default:
		return nil, fmt.Errorf("config: unknown codec %q", c.Codec.Name)
	}
	if c.Codec.MaxPayload > 0 {
		return codec.Limit[any]{Inner: inner, Max: c.Codec.MaxPayload}, nil
	}
	return inner, nil
}

// assign keeps a failed constructor from producing a typed nil backend.
func assign[B backend.Backend](b B, err error) (backend.Backend, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NewLogger builds a zap-backed entrycache.Logger from the log section. The
// returned func flushes buffered entries.
func (c *Config) NewLogger() (entrycache.Logger, func(), error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("config: log.level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	if c.Log.JSON {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	l, err := zc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("config: build logger: %w", err)
	}
	return zaplog.New(l), func() { _ = l.Sync() }, nil
}
