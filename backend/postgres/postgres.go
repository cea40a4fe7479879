// Package postgres is the SQL backend. Every key field maps to a TEXT column of
// the cache table, next to a zlib-compressed data column and a unix
// expiration column:
//
//	CREATE TABLE data_cache (
//	    user_id    TEXT   NOT NULL,
//	    data       BYTEA  NOT NULL,
//	    expiration BIGINT NOT NULL,
//	    PRIMARY KEY (user_id)
//	)
//
// Writes upsert on the key columns; reads and deletes filter on all of them.
package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/zlib"

	"github.com/unkn0wn-root/entrycache/backend"
	"github.com/unkn0wn-root/entrycache/key"
)

const (
	name = "postgres"

	DefaultTable = "data_cache"

	dataColumn       = "data"
	expirationColumn = "expiration"
)

// Querier is the subset of *pgxpool.Pool, *pgx.Conn and pgx.Tx the backend uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Config struct {
	DSN string // used by New

	// Table may be schema qualified ("cache.entries"). "" => data_cache
	Table string

	// CompressionLevel for the data column; 0 => zlib.DefaultCompression.
	CompressionLevel int
}

type Postgres struct {
	q     Querier
	pool  *pgxpool.Pool // set when owned
	table string
	level int
}

var _ backend.Backend = (*Postgres)(nil)

// New opens a pool for cfg.DSN and pings it. An unreachable server yields
// a *backend.ConnError.
func New(ctx context.Context, cfg Config) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres backend: DSN is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres backend: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, backend.Unreachable(name, err)
	}
	p := NewWithQuerier(pool, cfg)
	p.pool = pool
	return p, nil
}

// NewWithQuerier uses q as is. Close does not close it.
func NewWithQuerier(q Querier, cfg Config) *Postgres {
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = DefaultTable
	}
	level := cfg.CompressionLevel
	if level == 0 {
		level = zlib.DefaultCompression
	}
	return &Postgres{
		q:     q,
		table: pgx.Identifier(strings.Split(table, ".")).Sanitize(),
		level: level,
	}
}

// EnsureTable creates the cache table for keys made of the given field names.
func (p *Postgres) EnsureTable(ctx context.Context, fields ...string) error {
	if len(fields) == 0 {
		return fmt.Errorf("postgres backend: %w", key.ErrMissing)
	}
	cols := make([]string, len(fields))
	defs := make([]string, 0, len(fields)+2)
	for i, f := range fields {
		if err := checkColumn(f); err != nil {
			return err
		}
		cols[i] = quote(f)
		defs = append(defs, cols[i]+" TEXT NOT NULL")
	}
	defs = append(defs,
		quote(dataColumn)+" BYTEA NOT NULL",
		quote(expirationColumn)+" BIGINT NOT NULL",
		"PRIMARY KEY ("+strings.Join(cols, ", ")+")",
	)
	sql := "CREATE TABLE IF NOT EXISTS " + p.table + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)"
	_, err := p.q.Exec(ctx, sql)
	return wrap(err)
}

func (p *Postgres) Write(ctx context.Context, k key.Key, payload []byte, expiresAt time.Time) error {
	cols, args, err := columns(k)
	if err != nil {
		return err
	}
	data, err := p.compress(payload)
	if err != nil {
		return err
	}
	var sec int64
	if !expiresAt.IsZero() {
		sec = expiresAt.Unix()
	}
	args = append(args, data, sec)

	all := append(append([]string{}, cols...), quote(dataColumn), quote(expirationColumn))
	sql := "INSERT INTO " + p.table + " (" + strings.Join(all, ", ") + ") VALUES (" + placeholders(1, len(all)) + ")" +
		" ON CONFLICT (" + strings.Join(cols, ", ") + ") DO UPDATE SET " +
		quote(dataColumn) + " = EXCLUDED." + quote(dataColumn) + ", " +
		quote(expirationColumn) + " = EXCLUDED." + quote(expirationColumn)

	_, err = p.q.Exec(ctx, sql, args...)
	return wrap(err)
}

// Read treats a payload that fails to decompress as a miss.
func (p *Postgres) Read(ctx context.Context, k key.Key) ([]byte, time.Time, bool, error) {
	cols, args, err := columns(k)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	sql := "SELECT " + quote(expirationColumn) + ", " + quote(dataColumn) +
		" FROM " + p.table + " WHERE " + where(cols) + " LIMIT 1"

	var (
		sec  int64
		data []byte
	)
	err = p.q.QueryRow(ctx, sql, args...).Scan(&sec, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, wrap(err)
	}
	payload, err := decompress(data)
	if err != nil {
		return nil, time.Time{}, false, nil
	}
	return payload, time.Unix(sec, 0), true, nil
}

func (p *Postgres) Delete(ctx context.Context, k key.Key) error {
	cols, args, err := columns(k)
	if err != nil {
		return err
	}
	_, err = p.q.Exec(ctx, "DELETE FROM "+p.table+" WHERE "+where(cols), args...)
	return wrap(err)
}

// Close closes the pool opened by New; an injected Querier is left alone.
func (p *Postgres) Close(context.Context) error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

func (p *Postgres) compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, p.level)
	if err != nil {
		return nil, fmt.Errorf("postgres backend: compress: %w", err)
	}
	if _, err := zw.Write(b); err != nil {
		return nil, fmt.Errorf("postgres backend: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("postgres backend: compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// columns returns the quoted key columns in field-name order and their values.
func columns(k key.Key) ([]string, []any, error) {
	if k.Empty() {
		return nil, nil, key.ErrInvalid
	}
	fields := k.Sorted()
	cols := make([]string, len(fields))
	args := make([]any, len(fields), len(fields)+2)
	for i, f := range fields {
		if err := checkColumn(f.Name); err != nil {
			return nil, nil, err
		}
		cols[i] = quote(f.Name)
		args[i] = f.String()
	}
	return cols, args, nil
}

func checkColumn(field string) error {
	if field == dataColumn || field == expirationColumn {
		return fmt.Errorf("%w: field name %q is reserved by the postgres backend", key.ErrInvalid, field)
	}
	return nil
}

func where(cols []string) string {
	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	return strings.Join(conds, " AND ")
}

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

func quote(ident string) string { return pgx.Identifier{ident}.Sanitize() }

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var (
		ce *pgconn.ConnectError
		ne net.Error
	)
	if errors.As(err, &ce) || errors.As(err, &ne) {
		return backend.Unreachable(name, err)
	}
	return fmt.Errorf("postgres backend: %w", err)
}
