package entrycache

import (
	"strconv"
	"strings"
	"time"
)

// RelativeParser resolves a human date expression ("+1 day", "tomorrow")
// against an anchor. reltime.Parser is the default implementation.
type RelativeParser interface {
	Parse(expr string, anchor time.Time) (time.Time, error)
}

// RelativeParserFunc adapts a plain function to RelativeParser.
type RelativeParserFunc func(expr string, anchor time.Time) (time.Time, error)

func (f RelativeParserFunc) Parse(expr string, anchor time.Time) (time.Time, error) {
	return f(expr, anchor)
}

type expiryKind uint8

const (
	expOmitted expiryKind = iota
	expAbsolute
	expDuration
	expRelative
)

// Expiry is a caller-supplied expiration. The zero value means "omitted"
// and resolves to the entry's default expiry.
type Expiry struct {
	kind expiryKind
	at   time.Time
	d    time.Duration
	expr string
}

// At expires at t when t is in the future.
func At(t time.Time) Expiry { return Expiry{kind: expAbsolute, at: t} }

// Unix expires at the given unix timestamp (seconds).
func Unix(sec int64) Expiry { return At(time.Unix(sec, 0)) }

// In expires d after the entry's reference instant.
func In(d time.Duration) Expiry { return Expiry{kind: expDuration, d: d} }

// Relative expires at a date expression such as "+1 day" or "tomorrow noon".
// A plain integer is taken as a unix timestamp.
func Relative(expr string) Expiry {
	if sec, err := strconv.ParseInt(strings.TrimSpace(expr), 10, 64); err == nil {
		return Unix(sec)
	}
	return Expiry{kind: expRelative, expr: expr}
}

func (e Expiry) IsZero() bool { return e.kind == expOmitted }

func (e Expiry) String() string {
	switch e.kind {
	case expAbsolute:
		return strconv.FormatInt(e.at.Unix(), 10)
	case expDuration:
		return "+" + e.d.String()
	case expRelative:
		return e.expr
	default:
		return "default"
	}
}

// Resolve turns e into an absolute instant (whole seconds) relative to now.
//
// An absolute instant strictly after now is used as is. Anything else is
// read as relative to now; when that fails, lands at or before now, or e was
// omitted, the result is now+def.
func (e Expiry) Resolve(now time.Time, p RelativeParser, def time.Duration) time.Time {
	now = now.Truncate(time.Second)
	fallback := now.Add(def)

	var t time.Time
	switch e.kind {
	case expAbsolute:
		// a past timestamp has no relative reading
		t = e.at
	case expDuration:
		t = now.Add(e.d)
	case expRelative:
		if p == nil {
			return fallback
		}
		parsed, err := p.Parse(e.expr, now)
		if err != nil {
			return fallback
		}
		t = parsed
	default:
		return fallback
	}

	t = t.Truncate(time.Second)
	if !t.After(now) {
		return fallback
	}
	return t
}

// IsExpired reports whether expiresAt is unset or strictly before now.
// An entry expiring exactly at now is still live.
func IsExpired(expiresAt, now time.Time) bool {
	return expiresAt.IsZero() || expiresAt.Before(now)
}
