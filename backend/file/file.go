// Package file stores cache entries as one file per key.
//
// A key normalizes with "-" into <dir>/<key>.cache. The file holds the unix
// expiry on its first line and the payload after the first newline:
//
//	1767225600
//	hello
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/unkn0wn-root/entrycache/backend"
	"github.com/unkn0wn-root/entrycache/internal/util"
	"github.com/unkn0wn-root/entrycache/key"
)

const (
	// Separator joins field names and values in file names.
	Separator = "-"
	// Ext is appended to every cache file name.
	Ext = ".cache"

	defaultMaxNameLen = 200
)

var ErrNoDir = errors.New("file backend: directory is required")

type Config struct {
	// Dir holds the cache files. Surrounding whitespace and trailing slashes
	// are ignored. Required unless FS is set, in which case it is relative
	// to the FS root.
	Dir string

	// FS overrides the local filesystem (e.g. memfs in tests).
	FS billy.Filesystem

	// MaxNameLen caps file name length (without Ext); longer names are
	// hashed. 0 => 200.
	MaxNameLen int
}

type File struct {
	fs      billy.Filesystem
	dir     string
	maxName int
}

var _ backend.Backend = (*File)(nil)

func New(cfg Config) (*File, error) {
	dir := normalizeDir(cfg.Dir)
	fs := cfg.FS
	if fs == nil {
		if dir == "" {
			return nil, ErrNoDir
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("file backend: resolve %q: %w", dir, err)
		}
		dir = abs
		fs = osfs.New("/")
	}
	if dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file backend: create %q: %w", dir, err)
		}
	}

	maxName := cfg.MaxNameLen
	if maxName <= 0 {
		maxName = defaultMaxNameLen
	}
	return &File{fs: fs, dir: dir, maxName: maxName}, nil
}

// Dir is the normalized cache directory.
func (f *File) Dir() string { return f.dir }

// Path returns the file that holds k.
func (f *File) Path(k key.Key) (string, error) {
	name, err := k.Normalize(Separator)
	if err != nil {
		return "", err
	}
	name = util.Shorten(url.PathEscape(name), f.maxName)
	return f.fs.Join(f.dir, name+Ext), nil
}

func (f *File) Write(_ context.Context, k key.Key, payload []byte, expiresAt time.Time) error {
	path, err := f.Path(k)
	if err != nil {
		return err
	}

	var sec int64
	if !expiresAt.IsZero() {
		sec = expiresAt.Unix()
	}
	buf := make([]byte, 0, 21+len(payload))
	buf = strconv.AppendInt(buf, sec, 10)
	buf = append(buf, '\n')
	buf = append(buf, payload...)

	tmp, err := f.fs.TempFile(f.dir, ".entry-")
	if err != nil {
		return fmt.Errorf("file backend: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		_ = f.fs.Remove(tmpPath)
		return fmt.Errorf("file backend: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = f.fs.Remove(tmpPath)
		return fmt.Errorf("file backend: write %s: %w", path, err)
	}
	if err := f.fs.Rename(tmpPath, path); err != nil {
		_ = f.fs.Remove(tmpPath)
		return fmt.Errorf("file backend: rename %s: %w", path, err)
	}
	return nil
}

// Read treats missing, unreadable and malformed files as a miss.
func (f *File) Read(_ context.Context, k key.Key) ([]byte, time.Time, bool, error) {
	path, err := f.Path(k)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	fh, err := f.fs.Open(path)
	if err != nil {
		return nil, time.Time{}, false, nil
	}
	defer fh.Close()

	b, err := io.ReadAll(fh)
	if err != nil {
		return nil, time.Time{}, false, nil
	}
	nl := bytes.IndexByte(b, '\n')
	if nl < 0 {
		return nil, time.Time{}, false, nil
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(string(b[:nl])), 10, 64)
	if err != nil {
		return nil, time.Time{}, false, nil
	}
	return b[nl+1:], time.Unix(sec, 0), true, nil
}

func (f *File) Delete(_ context.Context, k key.Key) error {
	path, err := f.Path(k)
	if err != nil {
		return err
	}
	if err := f.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file backend: delete %s: %w", path, err)
	}
	return nil
}

func (f *File) Close(context.Context) error { return nil }

func normalizeDir(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return ""
	}
	if trimmed := strings.TrimRight(dir, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}
