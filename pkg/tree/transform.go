// Package tree converts a directed memory multigraph into a rooted spanning
// tree plus explicit cycle-edge and orphan lists.
//
// The transform is a pure function: identical snapshots always produce a
// structurally identical tree. Rather than modeling the graph with
// bidirectional links (risking reference cycles), the result commits to a
// spanning tree and surfaces everything else as flat lists - cycle edges
// between reachable nodes, and orphans that traversal never reached.
package tree

import (
	"slices"
	"strings"

	"github.com/memlens/memlens/pkg/graph"
)

// Options configures [Transform].
type Options struct {
	// RootID selects the traversal root. If empty, or if it names a node
	// absent from the snapshot, the root is chosen automatically by highest
	// total degree (never an error).
	RootID string

	// MaxDepth stops traversal beyond this depth when positive. Nodes only
	// reachable past the cutoff surface as orphans. Zero means unlimited.
	MaxDepth int
}

// Transform builds the spanning tree over the snapshot's aggregated edges.
//
// Traversal is breadth-first from the root; each first-visited neighbor
// becomes a tree child and the aggregated edge used becomes its TreeEdge.
// Neighbors are visited in lexicographic ID order, so repeated calls with
// identical input always produce an identical tree.
//
// Returns nil if the snapshot is nil or has no nodes; callers render an
// empty state rather than treating that as an error.
func Transform(s *graph.Snapshot, opts Options) *Result {
	if s == nil || s.IsEmpty() {
		return nil
	}

	edges, err := Aggregate(s)
	if err != nil {
		return nil
	}
	adj := adjacency(edges)
	byID := s.NodeByID()

	rootID := opts.RootID
	if _, ok := byID[rootID]; !ok || rootID == "" {
		rootID = selectRoot(s, adj)
	}

	root := &Node{ID: rootID, Entity: byID[rootID]}
	res := &Result{
		Root: root,
		ByID: map[string]*Node{rootID: root},
	}

	usedEdge := make([]bool, len(edges))
	queue := []*Node{root}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		if opts.MaxDepth > 0 && curr.Depth >= opts.MaxDepth {
			continue
		}

		for _, ei := range adj[curr.ID] {
			e := &edges[ei]
			neighbor := e.Other(curr.ID)
			if _, visited := res.ByID[neighbor]; visited {
				continue
			}

			edge := &TreeEdge{
				ParentID:        curr.ID,
				ChildID:         neighbor,
				OccurrenceCount: e.OccurrenceCount,
				Weight:          e.Weight,
				Types:           e.Types,
				Relationships:   e.Relationships,
			}
			child := &Node{
				ID:       neighbor,
				Entity:   byID[neighbor],
				ParentID: curr.ID,
				Depth:    curr.Depth + 1,
				Edge:     edge,
			}
			curr.Children = append(curr.Children, child)
			res.ByID[neighbor] = child
			res.TreeEdges = append(res.TreeEdges, edge)
			usedEdge[ei] = true
			queue = append(queue, child)
		}
	}

	// Aggregated edges between two reachable nodes that were not consumed
	// as tree edges are cycle edges; everything unvisited is an orphan.
	for i := range edges {
		if usedEdge[i] {
			continue
		}
		if res.Contains(edges[i].A) && res.Contains(edges[i].B) {
			res.CycleEdges = append(res.CycleEdges, edges[i])
		}
	}
	for i := range s.Nodes {
		if !res.Contains(s.Nodes[i].ID) {
			res.Orphans = append(res.Orphans, &s.Nodes[i])
		}
	}

	return res
}

// selectRoot picks the node with the highest total degree over the
// aggregated adjacency, tie-broken by occurrence count and then by ID so
// the choice is deterministic.
func selectRoot(s *graph.Snapshot, adj map[string][]int) string {
	ids := make([]string, 0, len(s.Nodes))
	count := make(map[string]int, len(s.Nodes))
	seen := make(map[string]bool, len(s.Nodes))
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		ids = append(ids, n.ID)
		count[n.ID] = n.OccurrenceCount
	}

	slices.SortFunc(ids, func(a, b string) int {
		if d := len(adj[b]) - len(adj[a]); d != 0 {
			return d
		}
		if d := count[b] - count[a]; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return ids[0]
}
