package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/entrycache"
)

func TestLoggerLevelsAndOrder(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo})
	l := Logger{L: stdslog.New(h)}

	l.Debug("hidden", entrycache.Fields{"key": "x"})
	l.Warn("cache flush failed", entrycache.Fields{"key": "id:1", "bytes": 5})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record should be filtered: %q", out)
	}
	if !strings.Contains(out, `level=WARN msg="cache flush failed" bytes=5 key=id:1`) {
		t.Fatalf("unexpected output %q", out)
	}
}
