// Package reltime resolves human date expressions ("+1 day", "tomorrow",
// "3 hours ago", "2026-01-02 15:04") against an anchor instant.
package reltime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	naturaldate "github.com/tj/go-naturaldate"
)

// ErrUnparsable is returned when no strategy understands the expression.
var ErrUnparsable = errors.New("reltime: unparsable expression")

// Parser resolves expressions in this order: keywords, strtotime-style
// offsets, absolute dates, natural-language phrases.
// The zero value is ready to use.
type Parser struct {
	// DisableNatural turns off the natural-language fallback.
	DisableNatural bool
}

var (
	offsetRe = regexp.MustCompile(`^([+-]?\d+)\s*([a-z]+)`)
	units    = map[string]func(t time.Time, n int) time.Time{
		"sec":       func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Second) },
		"second":    func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Second) },
		"min":       func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Minute) },
		"minute":    func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Minute) },
		"hour":      func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Hour) },
		"day":       func(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) },
		"week":      func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) },
		"fortnight": func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 14*n) },
		"month":     func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) },
		"year":      func(t time.Time, n int) time.Time { return t.AddDate(n, 0, 0) },
	}
)

// Parse resolves expr relative to anchor.
func (p Parser) Parse(expr string, anchor time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return time.Time{}, ErrUnparsable
	}
	if t, ok := keyword(s, anchor); ok {
		return t, nil
	}
	if t, ok := offsets(s, anchor); ok {
		return t, nil
	}
	if t, err := dateparse.ParseIn(strings.TrimSpace(expr), anchor.Location()); err == nil {
		return t, nil
	}
	if !p.DisableNatural {
		t, err := naturaldate.Parse(s, anchor, naturaldate.WithDirection(naturaldate.Future))
		// an unrecognized phrase comes back as the anchor itself
		if err == nil && !t.Equal(anchor) {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsable, expr)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func keyword(s string, anchor time.Time) (time.Time, bool) {
	switch s {
	case "now":
		return anchor, true
	case "today", "midnight":
		return startOfDay(anchor), true
	case "noon":
		return startOfDay(anchor).Add(12 * time.Hour), true
	case "tomorrow":
		return startOfDay(anchor).AddDate(0, 0, 1), true
	case "yesterday":
		return startOfDay(anchor).AddDate(0, 0, -1), true
	}
	return time.Time{}, false
}

// offsets handles one or more "<n> <unit>" terms, e.g. "+1 day", "1 week 2 days",
// "-3 hours" or "3 hours ago". The whole expression must be consumed.
func offsets(s string, anchor time.Time) (time.Time, bool) {
	ago := false
	if rest, ok := strings.CutSuffix(s, " ago"); ok {
		ago = true
		s = strings.TrimSpace(rest)
	}

	t := anchor
	matched := false
	for s != "" {
		m := offsetRe.FindStringSubmatch(s)
		if m == nil {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		unit := strings.TrimSuffix(m[2], "s")
		apply, ok := units[unit]
		if !ok {
			return time.Time{}, false
		}
		if ago {
			n = -n
		}
		t = apply(t, n)
		matched = true
		s = strings.TrimSpace(strings.TrimPrefix(s[len(m[0]):], ","))
	}
	return t, matched
}
