package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful when several graphs or tenants share one cache backend and
// need separate key namespaces.
//
// Example usage:
//
//	// Per-workspace keys
//	wsKeyer := NewScopedKeyer(NewDefaultKeyer(), "ws:abc123:")
//
//	// Global keys
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// TreeKey generates a prefixed key for a transform result.
func (k *ScopedKeyer) TreeKey(snapshotHash, rootID string, maxDepth int) string {
	return k.prefix + k.inner.TreeKey(snapshotHash, rootID, maxDepth)
}

// LayoutKey generates a prefixed key for a layout result.
func (k *ScopedKeyer) LayoutKey(snapshotHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(snapshotHash, opts)
}
