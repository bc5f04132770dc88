// Package cache provides content-addressed caching for transform and layout
// results.
//
// The layout computation is the most expensive step of the engine and must
// not rerun on every render frame, so results are memoized by input
// identity: the snapshot content hash plus the layout options. Several
// backends are available:
//
//   - MemoryCache: in-process memoization for a single render loop
//   - FileCache: persistent cache for CLI usage
//   - RedisCache: shared cache for multi-instance server deployments
//   - NullCache: caching disabled
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Cache stores opaque byte values under string keys with optional TTLs.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// =============================================================================
// Keyer - Cache Key Construction
// =============================================================================

// LayoutKeyOpts captures every layout input that affects the result.
// Two computations with equal opts and equal snapshot hashes are
// interchangeable.
type LayoutKeyOpts struct {
	RootID      string
	MaxDepth    int
	SelectedID  string
	Expanded    []string // Sorted copy; order must not affect the key
	MaxChildren int
	ShowLabels  bool
}

// Keyer builds cache keys for the different cached artifact types.
type Keyer interface {
	// TreeKey keys a spanning-tree transform result.
	TreeKey(snapshotHash, rootID string, maxDepth int) string

	// LayoutKey keys a full layout result.
	LayoutKey(snapshotHash string, opts LayoutKeyOpts) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// TreeKey generates a key for a transform result.
func (k *DefaultKeyer) TreeKey(snapshotHash, rootID string, maxDepth int) string {
	return hashKey("tree", snapshotHash, rootID, maxDepth)
}

// LayoutKey generates a key for a layout result.
// The expansion set is sorted first so caller ordering never splits the cache.
func (k *DefaultKeyer) LayoutKey(snapshotHash string, opts LayoutKeyOpts) string {
	expanded := slices.Clone(opts.Expanded)
	slices.Sort(expanded)
	return hashKey("layout", snapshotHash,
		opts.RootID, opts.MaxDepth, opts.SelectedID,
		expanded, opts.MaxChildren, opts.ShowLabels)
}

// hashKey builds a "stage:digest" key from the stage name and every input
// that distinguishes the cached artifact. The full SHA-256 digest is kept so
// two distinct option sets can never alias.
func hashKey(stage string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", stage, hex.EncodeToString(sum[:]))
}

// Hash returns the hex SHA-256 digest of data. The file backend uses it to
// turn keys into filesystem-safe names.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// =============================================================================
// NullCache - Memoization Disabled
// =============================================================================

// NullCache never stores anything, so every layout recomputes from scratch.
// It backs the --no-cache flag and keeps the pipeline free of nil checks.
type NullCache struct{}

// NewNullCache creates a cache that is always empty.
func NewNullCache() Cache { return &NullCache{} }

// Get always misses.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards the value.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error { return nil }

// Close does nothing.
func (c *NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
