package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// Shorten returns name unchanged when it fits in max bytes. Longer names are
// replaced by a deterministic prefix of the name plus a sha256 digest, so
// distinct inputs stay distinct while the result never exceeds max.
// max <= 0 disables shortening.
func Shorten(name string, max int) string {
	if max <= 0 || len(name) <= max {
		return name
	}
	sum := sha256.Sum256([]byte(name))
	digest := hex.EncodeToString(sum[:])[:32]
	keep := max - len(digest) - 1
	if keep <= 0 {
		return digest[:min(max, len(digest))]
	}
	return name[:keep] + "~" + digest
}
