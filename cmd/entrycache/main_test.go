package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/entrycache/key"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENTRYCACHE_LOG_LEVEL", "error")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSetGetDelete(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "--dir", dir, "set", "user_id=7", "--value", "hello", "--expires", "+2 hours")
	require.NoError(t, err)
	assert.Contains(t, out, "stored user_id:7 until")

	_, err = os.Stat(filepath.Join(dir, "user_id-7.cache"))
	require.NoError(t, err)

	out, err = run(t, "--dir", dir, "get", "user_id=7")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	out, err = run(t, "--dir", dir, "delete", "user_id=7")
	require.NoError(t, err)
	assert.Equal(t, "deleted user_id:7\n", out)

	_, err = run(t, "--dir", dir, "get", "user_id=7")
	assert.True(t, errors.Is(err, errMiss), "got %v", err)
}

func TestSetJSONAndDeferred(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "--dir", dir, "set", "org=acme", "page=2", "--json", "--defer", "--value", `{"name":"Ada","roles":["ops"]}`)
	require.NoError(t, err)

	out, err := run(t, "--dir", dir, "get", "page=2", "org=acme", "--meta")
	require.NoError(t, err)
	assert.Contains(t, out, "key:     org:acmepage:2")
	assert.Contains(t, out, "decoded: structured")
	assert.Contains(t, out, `"name": "Ada"`)

	_, err = run(t, "--dir", dir, "set", "id=1", "--json", "--value", "{nope")
	assert.Error(t, err)
}

func TestTextValuesStayText(t *testing.T) {
	dir := t.TempDir()

	for _, v := range []string{`"x"`, "123", "null"} {
		_, err := run(t, "--dir", dir, "set", "k=1", "--value", v)
		require.NoError(t, err)

		out, err := run(t, "--dir", dir, "get", "k=1", "--meta")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(out, "decoded: scalar\n"+v+"\n"), "value %s printed as %q", v, out)
	}
}

func TestArgumentErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "--dir", dir, "get", "novalue")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "field=value"))

	_, err = run(t, "--dir", dir, "set", "id=1")
	assert.Error(t, err, "--value is required")

	_, err = run(t, "--dir", dir, "--backend", "memcache", "get", "id=1")
	assert.Error(t, err)
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"id=42", "ratio=1.5", "name=Ada Lovelace", "hex=0x10", "weird=NaN", "empty="})
	require.NoError(t, err)
	k, err := key.New(fields...)
	require.NoError(t, err)

	want := map[string]any{
		"id":    int64(42),
		"ratio": 1.5,
		"name":  "Ada Lovelace",
		"hex":   "0x10",
		"weird": "NaN",
		"empty": "",
	}
	for name, v := range want {
		got, ok := k.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, v, got, name)
	}

	_, err = parseFields([]string{"=1"})
	assert.Error(t, err)
}
