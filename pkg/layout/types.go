package layout

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/memlens/memlens/pkg/tree"
)

// =============================================================================
// Renderable Nodes
// =============================================================================

// NodeKind distinguishes real entity nodes from synthetic cluster nodes.
type NodeKind string

const (
	// KindEntity wraps a spanning-tree node backed by a memory entity.
	KindEntity NodeKind = "entity"
	// KindCluster is a synthetic aggregation over a subset of one entity
	// node's children, created only to keep rendering tractable under high
	// fan-out.
	KindCluster NodeKind = "cluster"
)

// RenderableNode is one node of the computed 3D layout. The struct is flat
// and JSON-serializable so results can be cached and served over HTTP; the
// renderer must not be handed mutable references into engine-owned state,
// and this value type guarantees that.
type RenderableNode struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Position r3.Vec   `json:"position"`
	Depth    int      `json:"depth"`
	ParentID string   `json:"parent_id,omitempty"` // Rendered parent; empty for the root

	Label      string `json:"label,omitempty"`
	EntityType string `json:"entity_type,omitempty"`

	// ChildCount is the total child count in the tree (entity nodes) or the
	// member count (cluster nodes). HiddenChildren counts children dropped
	// by the visible-child cap.
	ChildCount     int  `json:"child_count"`
	HiddenChildren int  `json:"hidden_children,omitempty"`
	Expanded       bool `json:"expanded"`

	// NeedsReview flags an entity that was never acknowledged or changed
	// after its last acknowledgment.
	NeedsReview bool `json:"needs_review,omitempty"`

	// Cluster-only fields.
	MemberIDs   []string `json:"member_ids,omitempty"`
	MemberTypes []string `json:"member_types,omitempty"`
}

// =============================================================================
// Links
// =============================================================================

// StrengthTier is the relative strength of a rendered link among all
// currently visible links.
type StrengthTier string

const (
	StrengthWeak   StrengthTier = "weak"
	StrengthMedium StrengthTier = "medium"
	StrengthStrong StrengthTier = "strong"
)

// GapReason is the single prioritized reason a link deserves attention.
// Precedence: needs-review > low weight percentile > weak strength > none.
type GapReason string

const (
	GapNone        GapReason = ""
	GapNeedsReview GapReason = "needs_review"
	GapLowWeight   GapReason = "low_weight"
	GapWeakLink    GapReason = "weak_link"
)

// Link is a renderable connection between two layout nodes.
type Link struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`

	// Edge is the originating tree edge. Nil when the link connects a node
	// to a synthetic cluster.
	Edge *tree.TreeEdge `json:"edge,omitempty"`

	OccurrenceCount int          `json:"occurrence_count"`
	Weight          float64      `json:"weight"`
	Strength        StrengthTier `json:"strength"`
	NeedsReview     bool         `json:"needs_review,omitempty"`
	Gap             GapReason    `json:"gap,omitempty"`
}

// CycleConnection is a decorative non-tree edge between two tree-resident
// nodes, surfaced only while one endpoint is the current selection.
type CycleConnection struct {
	SourceID string              `json:"source_id"`
	TargetID string              `json:"target_id"`
	Edge     tree.AggregatedEdge `json:"edge"`
}

// =============================================================================
// Result
// =============================================================================

// Metrics summarizes the computed layout geometry.
type Metrics struct {
	MaxDepth     int     `json:"max_depth"`
	LevelHeight  float64 `json:"level_height"`
	LayoutRadius float64 `json:"layout_radius"`
	TrunkHeight  float64 `json:"trunk_height"`
	NodeCount    int     `json:"node_count"`
	LinkCount    int     `json:"link_count"`
}

// Result is the full renderable output of one layout computation.
type Result struct {
	Nodes            []RenderableNode  `json:"nodes"`
	Links            []Link            `json:"links"`
	CycleConnections []CycleConnection `json:"cycle_connections,omitempty"`
	Metrics          Metrics           `json:"metrics"`
}

// NodeByID builds an ID lookup over the result's nodes.
func (r *Result) NodeByID() map[string]*RenderableNode {
	byID := make(map[string]*RenderableNode, len(r.Nodes))
	for i := range r.Nodes {
		byID[r.Nodes[i].ID] = &r.Nodes[i]
	}
	return byID
}
