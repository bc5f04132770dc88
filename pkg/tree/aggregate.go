package tree

import (
	"slices"
	"strings"

	"github.com/memlens/memlens/pkg/graph"
)

// Aggregate merges every directed link in the snapshot into one undirected
// [AggregatedEdge] per unordered node pair.
//
// Counts are summed, the maximum weight wins, relationship categories are
// unioned, and every contributing link is preserved in input order. Links
// referencing a node ID absent from the snapshot are skipped, as are
// self-links - neither can participate in a spanning tree.
//
// The returned slice is sorted by (A, B) for deterministic iteration.
func Aggregate(s *graph.Snapshot) ([]AggregatedEdge, error) {
	if s == nil {
		return nil, ErrNilSnapshot
	}

	byID := s.NodeByID()
	byPair := make(map[[2]string]*AggregatedEdge)

	for i := range s.Links {
		l := &s.Links[i]
		if l.Source == l.Target {
			continue
		}
		if _, ok := byID[l.Source]; !ok {
			continue
		}
		if _, ok := byID[l.Target]; !ok {
			continue
		}

		a, b := l.Source, l.Target
		if a > b {
			a, b = b, a
		}
		key := [2]string{a, b}

		e, ok := byPair[key]
		if !ok {
			e = &AggregatedEdge{A: a, B: b}
			byPair[key] = e
		}
		e.OccurrenceCount += l.OccurrenceCount
		if l.Weight > e.Weight {
			e.Weight = l.Weight
		}
		if l.Type != "" && !slices.Contains(e.Types, l.Type) {
			e.Types = append(e.Types, l.Type)
		}
		e.Relationships = append(e.Relationships, *l)
	}

	edges := make([]AggregatedEdge, 0, len(byPair))
	for _, e := range byPair {
		slices.Sort(e.Types)
		edges = append(edges, *e)
	}
	slices.SortFunc(edges, func(x, y AggregatedEdge) int {
		if c := strings.Compare(x.A, y.A); c != 0 {
			return c
		}
		return strings.Compare(x.B, y.B)
	})
	return edges, nil
}

// adjacency builds a neighbor index over aggregated edges. Each value slice
// holds indices into the edges slice, sorted by neighbor ID so traversal
// order is fixed regardless of input link order.
func adjacency(edges []AggregatedEdge) map[string][]int {
	adj := make(map[string][]int)
	for i := range edges {
		adj[edges[i].A] = append(adj[edges[i].A], i)
		adj[edges[i].B] = append(adj[edges[i].B], i)
	}
	for id, idxs := range adj {
		slices.SortFunc(idxs, func(x, y int) int {
			return strings.Compare(edges[x].Other(id), edges[y].Other(id))
		})
		adj[id] = idxs
	}
	return adj
}
