// Package cache provides content-addressed caching for computed layouts and
// rendered artifacts. Layout runs are deterministic for a given graph and
// configuration, so a cache hit is always safe to serve.
package cache

import (
	"context"
	"time"
)

// Default TTLs per content type. Layouts and artifacts are pure functions of
// their key, so the TTL only bounds disk growth, not staleness.
const (
	// TTLLayout is the expiry for computed position maps.
	TTLLayout = 7 * 24 * time.Hour

	// TTLArtifact is the expiry for rendered DOT and SVG artifacts.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry TTL. Implementations
// must treat expired and missing entries identically as a miss.
type Cache interface {
	// Get retrieves a value. The second return value reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Keyer builds cache keys for the pipeline stages.
type Keyer interface {
	// LayoutKey identifies a layout computed for a graph (by content hash)
	// under a specific algorithm and configuration.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered artifact derived from a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the inputs that change a layout result. Config is hashed
// structurally, so any serializable configuration type works.
type LayoutKeyOpts struct {
	Algorithm string
	Config    any
}

// ArtifactKeyOpts are the inputs that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format   string
	Detailed bool
}

// DefaultKeyer generates globally-scoped cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// LayoutKey generates a key for layout caching.
func (k *DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts.Algorithm, opts.Config)
}

// ArtifactKey generates a key for artifact caching.
func (k *DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts.Format, opts.Detailed)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
