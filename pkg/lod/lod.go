// Package lod buckets layout nodes into three rendering-detail tiers by
// camera distance.
//
// The classifier runs independently of the layout engine, consuming node
// positions plus live camera state. Because the camera moves continuously,
// the classifier throttles its own resampling rate instead of relying on
// caller-side memoization: the camera position is sampled at most once per
// interval, and every classification between samples reuses the last sample.
package lod

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tier is one of three discrete rendering-detail levels.
type Tier int

const (
	// TierHigh is full detail for nodes near the camera.
	TierHigh Tier = iota
	// TierMedium is reduced detail for the mid range.
	TierMedium
	// TierLow is minimal detail for distant nodes.
	TierLow
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// Default distance thresholds and sampling interval.
const (
	DefaultNearDistance = 40.0
	DefaultMidDistance  = 120.0

	// DefaultSampleInterval bounds how often the camera position is
	// resampled, keeping per-frame recomputation cheap.
	DefaultSampleInterval = 180 * time.Millisecond
)

// NodePosition pairs a node ID with its layout position.
type NodePosition struct {
	ID       string
	Position r3.Vec
}

// Classifier assigns detail tiers by squared camera distance. It is the only
// component in the engine that keeps internal state (the last camera sample
// and its timestamp); it is not safe for concurrent use.
type Classifier struct {
	nearSq   float64
	midSq    float64
	interval time.Duration

	now       func() time.Time
	sampledAt time.Time
	camera    r3.Vec
	primed    bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThresholds sets the near and mid distance thresholds (not squared).
// Non-positive or inverted values are ignored.
func WithThresholds(near, mid float64) Option {
	return func(c *Classifier) {
		if near > 0 && mid > near {
			c.nearSq = near * near
			c.midSq = mid * mid
		}
	}
}

// WithSampleInterval sets the minimum time between camera resamples.
func WithSampleInterval(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a classifier with the default thresholds and interval.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		nearSq:   DefaultNearDistance * DefaultNearDistance,
		midSq:    DefaultMidDistance * DefaultMidDistance,
		interval: DefaultSampleInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify buckets every node into a tier using the sampled camera position.
// The live camera argument is only adopted as the new sample when the
// resample interval has elapsed; otherwise the previous sample is reused.
//
// The result is monotonic: under the same camera sample, a farther node is
// never assigned a higher-detail tier than a nearer one.
func (c *Classifier) Classify(nodes []NodePosition, camera r3.Vec) map[string]Tier {
	now := c.now()
	if !c.primed || now.Sub(c.sampledAt) >= c.interval {
		c.camera = camera
		c.sampledAt = now
		c.primed = true
	}

	tiers := make(map[string]Tier, len(nodes))
	for _, n := range nodes {
		tiers[n.ID] = c.tier(n.Position)
	}
	return tiers
}

// tier buckets a single position by squared distance, avoiding a square root.
func (c *Classifier) tier(p r3.Vec) Tier {
	d := r3.Sub(p, c.camera)
	distSq := d.X*d.X + d.Y*d.Y + d.Z*d.Z
	switch {
	case distSq <= c.nearSq:
		return TierHigh
	case distSq <= c.midSq:
		return TierMedium
	default:
		return TierLow
	}
}
