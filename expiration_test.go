package entrycache

import (
	"testing"
	"time"

	"github.com/unkn0wn-root/entrycache/reltime"
)

func TestExpiryResolve(t *testing.T) {
	now := epoch
	p := reltime.Parser{DisableNatural: true}
	def := DefaultExpiry

	cases := []struct {
		name string
		in   Expiry
		want time.Time
	}{
		{"omitted", Expiry{}, now.Add(def)},
		{"absolute future", At(now.Add(90 * time.Minute)), now.Add(90 * time.Minute)},
		{"absolute truncated", At(now.Add(time.Hour + 700*time.Millisecond)), now.Add(time.Hour)},
		{"absolute equal to now", At(now), now.Add(def)},
		{"absolute past", Unix(now.Unix() - 60), now.Add(def)},
		{"duration", In(5 * time.Minute), now.Add(5 * time.Minute)},
		{"zero duration", In(0), now.Add(def)},
		{"negative duration", In(-time.Hour), now.Add(def)},
		{"relative offset", Relative("+1 day"), now.AddDate(0, 0, 1)},
		{"relative keyword", Relative("tomorrow"), time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)},
		{"relative in the past", Relative("yesterday"), now.Add(def)},
		{"relative garbage", Relative("whenever"), now.Add(def)},
		{"numeric string is absolute", Relative("1900000000"), time.Unix(1900000000, 0)},
		{"numeric string in the past", Relative("  12345 "), now.Add(def)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Resolve(now, p, def)
			if !got.Equal(tc.want) {
				t.Fatalf("Resolve(%s) = %v want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestExpiryResolveWithoutParser(t *testing.T) {
	got := Relative("+1 day").Resolve(epoch, nil, time.Minute)
	if !got.Equal(epoch.Add(time.Minute)) {
		t.Fatalf("got %v", got)
	}
}

func TestIsExpired(t *testing.T) {
	now := epoch
	if IsExpired(now, now) {
		t.Fatalf("expiry equal to now must not be expired")
	}
	if !IsExpired(now.Add(-time.Second), now) {
		t.Fatalf("past expiry must be expired")
	}
	if !IsExpired(time.Time{}, now) {
		t.Fatalf("unset expiry must be expired")
	}
	// resolving "now + 0" falls back to the default, so it never lands on now
	if got := In(0).Resolve(now, nil, time.Second); IsExpired(got, now.Add(time.Second)) {
		t.Fatalf("default expiry should still be live one tick later: %v", got)
	}
}

func TestExpiryString(t *testing.T) {
	if s := (Expiry{}).String(); s != "default" {
		t.Fatalf("got %q", s)
	}
	if s := Relative("+2 hours").String(); s != "+2 hours" {
		t.Fatalf("got %q", s)
	}
	if s := Unix(1900000000).String(); s != "1900000000" {
		t.Fatalf("got %q", s)
	}
}
