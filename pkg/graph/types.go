package graph

import (
	"time"
)

// =============================================================================
// Snapshot - Memory Graph Serialization
// =============================================================================

// Snapshot is the canonical serialization format for a memory graph.
// Used for API requests, storage, caching, and cross-tool compatibility.
//
// A snapshot is an immutable point-in-time view of the graph: the engine
// treats each snapshot as independent and never diffs it against a previous
// one. Callers must not mutate a snapshot after handing it to the engine.
type Snapshot struct {
	ID    string `json:"id,omitempty" bson:"id,omitempty"`
	Nodes []Node `json:"nodes" bson:"nodes"`
	Links []Link `json:"links" bson:"links"`
}

// =============================================================================
// Node - Memory Entity
// =============================================================================

// Node is a single memory entity in the graph.
// Timestamps are optional; a nil pointer means the event never happened.
type Node struct {
	ID              string     `json:"id" bson:"id"`
	Type            string     `json:"type,omitempty" bson:"type,omitempty"`   // Entity category (e.g. "person", "project")
	Label           string     `json:"label,omitempty" bson:"label,omitempty"` // Display label (defaults to ID)
	OccurrenceCount int        `json:"occurrence_count,omitempty" bson:"occurrence_count,omitempty"`
	FirstSeen       *time.Time `json:"first_seen,omitempty" bson:"first_seen,omitempty"`
	LastSeen        *time.Time `json:"last_seen,omitempty" bson:"last_seen,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty" bson:"acknowledged_at,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// NeedsReview reports whether the entity has never been acknowledged, or was
// modified after its last acknowledgment.
func (n *Node) NeedsReview() bool {
	return needsReview(n.AcknowledgedAt, n.UpdatedAt)
}

// =============================================================================
// Link - Directed Relationship Instance
// =============================================================================

// Link is one directed relationship instance between two node IDs.
// Multiple links may exist between the same unordered pair, including links
// in opposite directions; aggregation into undirected edges happens in the
// tree package, not here.
type Link struct {
	Source          string     `json:"source" bson:"source"`
	Target          string     `json:"target" bson:"target"`
	Type            string     `json:"type,omitempty" bson:"type,omitempty"` // Relationship category (e.g. "RELATED_TO")
	Weight          float64    `json:"weight,omitempty" bson:"weight,omitempty"`
	OccurrenceCount int        `json:"occurrence_count,omitempty" bson:"occurrence_count,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty" bson:"acknowledged_at,omitempty"`
}

// NeedsReview reports whether the relationship has never been acknowledged,
// or was modified after its last acknowledgment.
func (l *Link) NeedsReview() bool {
	return needsReview(l.AcknowledgedAt, l.UpdatedAt)
}

func needsReview(acknowledged, updated *time.Time) bool {
	if acknowledged == nil {
		return true
	}
	return updated != nil && updated.After(*acknowledged)
}

// =============================================================================
// Snapshot Methods
// =============================================================================

// IsEmpty reports whether the snapshot contains no nodes.
// Links without nodes still count as empty - they cannot be aggregated.
func (s *Snapshot) IsEmpty() bool { return len(s.Nodes) == 0 }

// NodeByID builds an ID lookup map over the snapshot's nodes.
// Duplicate IDs keep the first occurrence.
func (s *Snapshot) NodeByID() map[string]*Node {
	byID := make(map[string]*Node, len(s.Nodes))
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if _, exists := byID[n.ID]; !exists {
			byID[n.ID] = n
		}
	}
	return byID
}
