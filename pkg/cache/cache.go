// Package cache provides byte caches for expensive render results.
//
// Rendering a graph through Graphviz is the slowest operation in the
// system, and its output depends only on the DOT text. Callers hash the
// DOT with [RenderKey] and store the resulting SVG under that key.
// FileCache persists entries across runs for CLI and server usage;
// NullCache disables caching entirely.
package cache

import (
	"context"
	"time"
)

// Cache stores byte values under string keys with optional expiration.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
