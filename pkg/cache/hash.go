package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// RenderKey builds the cache key for a rendered diagram.
// DOT text fully determines the SVG output, so the key is a hash of the
// DOT alone.
func RenderKey(dot string) string {
	return "svg:" + Hash([]byte(dot))
}
