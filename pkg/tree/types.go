package tree

import (
	"errors"

	"github.com/memlens/memlens/pkg/graph"
)

var (
	// ErrNilSnapshot is returned by [Aggregate] when the snapshot is nil.
	ErrNilSnapshot = errors.New("snapshot must not be nil")
)

// AggregatedEdge is the undirected merge of every directed relationship
// instance between one unordered pair of nodes. Exactly one aggregated edge
// exists per pair; the A/B endpoints are ordered lexicographically so the
// edge itself is deterministic regardless of link direction or input order.
type AggregatedEdge struct {
	A string `json:"a"` // Lexicographically smaller endpoint ID
	B string `json:"b"` // Lexicographically larger endpoint ID

	// OccurrenceCount is the sum of all contributing link counts.
	OccurrenceCount int `json:"occurrence_count"`
	// Weight is the maximum weight among all contributing links.
	Weight float64 `json:"weight"`
	// Types is the sorted union of contributing relationship categories.
	Types []string `json:"types"`
	// Relationships preserves every contributing link in input order,
	// direction and identity intact, for later review and audit.
	Relationships []graph.Link `json:"relationships"`
}

// Other returns the endpoint opposite to id, or "" if id is not an endpoint.
func (e *AggregatedEdge) Other(id string) string {
	switch id {
	case e.A:
		return e.B
	case e.B:
		return e.A
	}
	return ""
}

// NeedsReview reports whether any underlying relationship has never been
// acknowledged or was modified after its last acknowledgment.
func (e *AggregatedEdge) NeedsReview() bool {
	for i := range e.Relationships {
		if e.Relationships[i].NeedsReview() {
			return true
		}
	}
	return false
}

// TreeEdge is the rendering-facing summary of one aggregated edge consumed
// as a parent-child link during traversal.
type TreeEdge struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`

	OccurrenceCount int          `json:"occurrence_count"`
	Weight          float64      `json:"weight"`
	Types           []string     `json:"types"`
	Relationships   []graph.Link `json:"relationships"`
}

// NeedsReview reports whether any underlying relationship needs review.
func (e *TreeEdge) NeedsReview() bool {
	for i := range e.Relationships {
		if e.Relationships[i].NeedsReview() {
			return true
		}
	}
	return false
}

// Node is a node in the chosen spanning tree. Each node is owned exclusively
// by its parent; the tree as a whole is owned by the Result.
type Node struct {
	ID       string      `json:"id"`
	Entity   *graph.Node `json:"entity"`
	Children []*Node     `json:"children,omitempty"`
	ParentID string      `json:"parent_id,omitempty"` // Empty only for the root
	Depth    int         `json:"depth"`
	Edge     *TreeEdge   `json:"edge,omitempty"` // Nil only for the root
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int { return len(n.Children) }

// Result is the output of [Transform]: a rooted spanning tree plus explicit
// flat lists of cycle edges and orphans. Every input node appears in exactly
// one of the tree node set and the orphan set.
type Result struct {
	Root      *Node            `json:"root"`
	ByID      map[string]*Node `json:"-"`
	TreeEdges []*TreeEdge      `json:"tree_edges"`
	// CycleEdges are aggregated edges between two reachable nodes that were
	// not consumed as tree edges. They carry no ownership - the tree stays
	// acyclic by construction.
	CycleEdges []AggregatedEdge `json:"cycle_edges"`
	// Orphans are nodes never reached from the root, either by graph
	// disconnection or by the depth cutoff.
	Orphans []*graph.Node `json:"orphans"`
}

// Contains reports whether id is a tree node (reachable from the root).
func (r *Result) Contains(id string) bool {
	_, ok := r.ByID[id]
	return ok
}

// Reindex rebuilds the ByID index by walking the tree from the root. The
// index is excluded from the JSON form, so a Result restored from cache or
// disk must be reindexed before lookups.
func (r *Result) Reindex() {
	r.ByID = make(map[string]*Node)
	if r.Root == nil {
		return
	}
	stack := []*Node{r.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r.ByID[n.ID] = n
		stack = append(stack, n.Children...)
	}
}

// PathToRoot returns the IDs from the given node up to and including the
// root. Returns nil if id is not in the tree.
func (r *Result) PathToRoot(id string) []string {
	n, ok := r.ByID[id]
	if !ok {
		return nil
	}
	var path []string
	for n != nil {
		path = append(path, n.ID)
		if n.ParentID == "" {
			break
		}
		n = r.ByID[n.ParentID]
	}
	return path
}
