// Package cache stores rendered artifacts keyed by the content they were
// rendered from.
//
// Three backends share the [Cache] interface:
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a Redis server, for several HTTP hosts sharing work
//   - [NullCache]: stores nothing, for tests and --no-cache
//
// Keys come from a [Keyer] so that every backend names entries the same way.
// Wrap a backend with [Instrument] to report hits and misses through the
// observability hooks.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/nodewire/pkg/observability"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultTTL is how long rendered artifacts are kept.
const DefaultTTL = 7 * 24 * time.Hour

// ArtifactKeyOpts are the render settings that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format       string     `json:"format"`
	VizType      string     `json:"viz_type,omitempty"`
	Style        string     `json:"style,omitempty"`
	Module       string     `json:"module"`
	Scale        float64    `json:"scale,omitempty"`
	Curvature    [3]float64 `json:"curvature"`
	SegmentPaths bool       `json:"segment_paths,omitempty"`
	Waypoints    bool       `json:"waypoints,omitempty"`
	Detailed     bool       `json:"detailed,omitempty"`
	Pinned       bool       `json:"pinned,omitempty"`
}

// Keyer names cache entries.
type Keyer interface {
	// ArtifactKey names a rendered artifact of the snapshot with the given hash.
	ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string
	// SnapshotKey names a stored snapshot.
	SnapshotKey(snapshotHash string) string
}

// DefaultKeyer produces "artifact:<sha256>" and "snapshot:<hash>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", snapshotHash, opts)
}

// SnapshotKey implements Keyer.
func (DefaultKeyer) SnapshotKey(snapshotHash string) string {
	return fmt.Sprintf("snapshot:%s", snapshotHash)
}

// keyType returns the part of key before the first colon.
func keyType(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}

type instrumented struct {
	Cache
	trim string
}

// Instrument reports Get and Set calls on c to the registered cache hooks.
// prefix, when non-empty, is stripped from keys before their type is derived,
// so scoped keys report the same type as unscoped ones.
func Instrument(c Cache, prefix string) Cache {
	return &instrumented{Cache: c, trim: prefix}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, keyType(strings.TrimPrefix(key, c.trim)))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(strings.TrimPrefix(key, c.trim)))
		}
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType(strings.TrimPrefix(key, c.trim)), len(data))
	return nil
}
