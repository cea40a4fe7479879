package main

import (
	"strconv"
	"strings"
)

func splitField(s string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", false
	}
	return name, value, true
}

// fieldValue keeps plain decimal numbers numeric; everything else
// (including "NaN", "0x10" or "1_000") stays a string.
func fieldValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if strings.Trim(raw, "0123456789.-+eE") != "" {
		return raw
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
