package layout

// Config holds the tuning knobs for the radial layout. Zero values are
// replaced by defaults, so Config{} is usable as-is.
type Config struct {
	// MaxVisibleChildren caps how many children of an expanded node are
	// rendered before the rest are folded into the overflow count. Children
	// required to keep the selection path visible are always substituted in.
	MaxVisibleChildren int

	// LevelHeight is the vertical distance between consecutive depths.
	LevelHeight float64

	// TrunkHeight lifts the whole tree off the ground plane.
	TrunkHeight float64

	// BaseRadiusStep is the radial distance per depth before density and
	// label adjustments.
	BaseRadiusStep float64

	// LabelRadiusFactor inflates the radius step when full labels are shown,
	// leaving room for text.
	LabelRadiusFactor float64

	// NodeRadius is the rendered node radius used when deriving minimum
	// angular gaps between siblings.
	NodeRadius float64

	// LabelCharWidth estimates the rendered width of one label character.
	LabelCharWidth float64

	// MinAngularGap is the floor for the sibling gap, in radians.
	MinAngularGap float64

	// DepthTightening and SiblingTightening shrink baseline angular offsets:
	// the tightening grows with depth and with sibling count.
	DepthTightening   float64
	SiblingTightening float64

	// JitterFraction scales the per-node angular jitter as a fraction of the
	// guaranteed minimum gap. Must stay below 0.5 so jitter can never undo
	// the de-collision pass; larger values are clamped.
	JitterFraction float64

	// CountWeight and WeightWeight blend log(occurrence count) and the
	// normalized max weight into the link strength score.
	CountWeight  float64
	WeightWeight float64

	// LowWeightPercentile marks links below this weight percentile with the
	// low-weight gap reason.
	LowWeightPercentile float64
}

// DefaultConfig returns the standard tuning used by the CLI and server.
func DefaultConfig() Config {
	return Config{
		MaxVisibleChildren:  20,
		LevelHeight:         6,
		TrunkHeight:         4,
		BaseRadiusStep:      10,
		LabelRadiusFactor:   1.6,
		NodeRadius:          1.2,
		LabelCharWidth:      0.55,
		MinAngularGap:       0.05,
		DepthTightening:     0.15,
		SiblingTightening:   0.02,
		JitterFraction:      0.35,
		CountWeight:         0.6,
		WeightWeight:        0.4,
		LowWeightPercentile: 0.25,
	}
}

// withDefaults fills zero fields from DefaultConfig and clamps the jitter
// fraction below one half.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxVisibleChildren <= 0 {
		c.MaxVisibleChildren = def.MaxVisibleChildren
	}
	if c.LevelHeight <= 0 {
		c.LevelHeight = def.LevelHeight
	}
	if c.TrunkHeight <= 0 {
		c.TrunkHeight = def.TrunkHeight
	}
	if c.BaseRadiusStep <= 0 {
		c.BaseRadiusStep = def.BaseRadiusStep
	}
	if c.LabelRadiusFactor <= 0 {
		c.LabelRadiusFactor = def.LabelRadiusFactor
	}
	if c.NodeRadius <= 0 {
		c.NodeRadius = def.NodeRadius
	}
	if c.LabelCharWidth <= 0 {
		c.LabelCharWidth = def.LabelCharWidth
	}
	if c.MinAngularGap <= 0 {
		c.MinAngularGap = def.MinAngularGap
	}
	if c.DepthTightening <= 0 {
		c.DepthTightening = def.DepthTightening
	}
	if c.SiblingTightening <= 0 {
		c.SiblingTightening = def.SiblingTightening
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = def.JitterFraction
	}
	if c.JitterFraction >= 0.5 {
		c.JitterFraction = 0.49
	}
	if c.CountWeight <= 0 {
		c.CountWeight = def.CountWeight
	}
	if c.WeightWeight <= 0 {
		c.WeightWeight = def.WeightWeight
	}
	if c.LowWeightPercentile <= 0 {
		c.LowWeightPercentile = def.LowWeightPercentile
	}
	return c
}
