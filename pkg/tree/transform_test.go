package tree

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/memlens/memlens/pkg/graph"
)

// chain builds a snapshot a-b-c-... with unit links between consecutive IDs.
func chain(ids ...string) *graph.Snapshot {
	s := &graph.Snapshot{}
	for _, id := range ids {
		s.Nodes = append(s.Nodes, graph.Node{ID: id})
	}
	for i := 1; i < len(ids); i++ {
		s.Links = append(s.Links, graph.Link{
			Source: ids[i-1], Target: ids[i], Weight: 1, OccurrenceCount: 1,
		})
	}
	return s
}

func TestTransformEmpty(t *testing.T) {
	if got := Transform(nil, Options{}); got != nil {
		t.Errorf("Transform(nil) = %v, want nil", got)
	}
	if got := Transform(&graph.Snapshot{}, Options{}); got != nil {
		t.Errorf("Transform(empty) = %v, want nil", got)
	}
}

func TestTransformBidirectionalPair(t *testing.T) {
	s := &graph.Snapshot{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Links: []graph.Link{
			{Source: "a", Target: "b", Type: "RELATED_TO", Weight: 2, OccurrenceCount: 1},
			{Source: "b", Target: "a", Type: "AFFECTS", Weight: 5, OccurrenceCount: 2},
		},
	}

	res := Transform(s, Options{RootID: "a"})
	if res == nil {
		t.Fatal("Transform() = nil")
	}

	if len(res.TreeEdges) != 1 {
		t.Fatalf("len(TreeEdges) = %d, want 1", len(res.TreeEdges))
	}
	e := res.TreeEdges[0]
	if e.ParentID != "a" || e.ChildID != "b" {
		t.Errorf("tree edge = %s->%s, want a->b", e.ParentID, e.ChildID)
	}
	if e.OccurrenceCount != 3 {
		t.Errorf("OccurrenceCount = %d, want 3", e.OccurrenceCount)
	}
	if e.Weight != 5 {
		t.Errorf("Weight = %v, want 5", e.Weight)
	}
	if want := []string{"AFFECTS", "RELATED_TO"}; !reflect.DeepEqual(e.Types, want) {
		t.Errorf("Types = %v, want %v", e.Types, want)
	}

	if len(res.CycleEdges) != 0 {
		t.Errorf("len(CycleEdges) = %d, want 0", len(res.CycleEdges))
	}
	if len(res.Orphans) != 1 || res.Orphans[0].ID != "c" {
		t.Errorf("Orphans = %v, want [c]", res.Orphans)
	}
}

func TestTransformCycle(t *testing.T) {
	// Triangle a-b, b-c, c-a.
	s := chain("a", "b", "c")
	s.Links = append(s.Links, graph.Link{Source: "c", Target: "a", Weight: 1, OccurrenceCount: 1})

	res := Transform(s, Options{RootID: "a"})
	if res == nil {
		t.Fatal("Transform() = nil")
	}

	// Every node reachable, exactly R-1 tree edges, one cycle edge.
	if len(res.ByID) != 3 {
		t.Errorf("len(ByID) = %d, want 3", len(res.ByID))
	}
	if len(res.TreeEdges) != 2 {
		t.Errorf("len(TreeEdges) = %d, want 2", len(res.TreeEdges))
	}
	if len(res.CycleEdges) != 1 {
		t.Fatalf("len(CycleEdges) = %d, want 1", len(res.CycleEdges))
	}
	// BFS from a visits b and c directly, so b-c is the cycle edge.
	ce := res.CycleEdges[0]
	if ce.A != "b" || ce.B != "c" {
		t.Errorf("cycle edge = (%s, %s), want (b, c)", ce.A, ce.B)
	}
	if len(res.Orphans) != 0 {
		t.Errorf("len(Orphans) = %d, want 0", len(res.Orphans))
	}
}

func TestTransformTreeEdgeInvariant(t *testing.T) {
	// Dense graph: every pair linked. Reachable nodes R must yield exactly
	// R-1 tree edges no matter how many links exist.
	ids := []string{"a", "b", "c", "d", "e"}
	s := &graph.Snapshot{}
	for _, id := range ids {
		s.Nodes = append(s.Nodes, graph.Node{ID: id})
	}
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			s.Links = append(s.Links, graph.Link{Source: ids[i], Target: ids[j], Weight: 1, OccurrenceCount: 1})
		}
	}

	res := Transform(s, Options{})
	if res == nil {
		t.Fatal("Transform() = nil")
	}
	if got, want := len(res.TreeEdges), len(res.ByID)-1; got != want {
		t.Errorf("len(TreeEdges) = %d, want %d", got, want)
	}
	if got, want := len(res.CycleEdges), len(s.Links)-len(res.TreeEdges); got != want {
		t.Errorf("len(CycleEdges) = %d, want %d", got, want)
	}
}

func TestTransformMaxDepth(t *testing.T) {
	s := chain("a", "b", "c", "d")

	res := Transform(s, Options{RootID: "a", MaxDepth: 2})
	if res == nil {
		t.Fatal("Transform() = nil")
	}

	if !res.Contains("c") {
		t.Error("node at depth 2 missing from tree")
	}
	if res.Contains("d") {
		t.Error("node beyond max depth present in tree")
	}
	if len(res.Orphans) != 1 || res.Orphans[0].ID != "d" {
		t.Errorf("Orphans = %v, want [d]", res.Orphans)
	}
}

func TestTransformDeterministic(t *testing.T) {
	s := &graph.Snapshot{
		Nodes: []graph.Node{{ID: "root"}, {ID: "x"}, {ID: "y"}, {ID: "z"}},
		Links: []graph.Link{
			{Source: "root", Target: "z", Weight: 1, OccurrenceCount: 1},
			{Source: "root", Target: "x", Weight: 1, OccurrenceCount: 1},
			{Source: "root", Target: "y", Weight: 1, OccurrenceCount: 1},
		},
	}

	first := Transform(s, Options{RootID: "root"})
	second := Transform(s, Options{RootID: "root"})

	var firstOrder, secondOrder []string
	for _, c := range first.Root.Children {
		firstOrder = append(firstOrder, c.ID)
	}
	for _, c := range second.Root.Children {
		secondOrder = append(secondOrder, c.ID)
	}
	if !reflect.DeepEqual(firstOrder, secondOrder) {
		t.Errorf("child order differs across runs: %v vs %v", firstOrder, secondOrder)
	}
	// Neighbors are visited in lexicographic order.
	if want := []string{"x", "y", "z"}; !reflect.DeepEqual(firstOrder, want) {
		t.Errorf("child order = %v, want %v", firstOrder, want)
	}
}

func TestTransformRootSelection(t *testing.T) {
	// b has degree 2, the rest degree 1; b must be chosen automatically.
	s := chain("a", "b", "c")

	res := Transform(s, Options{})
	if res.Root.ID != "b" {
		t.Errorf("Root.ID = %q, want b (highest degree)", res.Root.ID)
	}

	// Unknown explicit root falls back to automatic selection.
	res = Transform(s, Options{RootID: "ghost"})
	if res.Root.ID != "b" {
		t.Errorf("Root.ID = %q, want b for unknown explicit root", res.Root.ID)
	}
}

func TestReindexAfterRoundTrip(t *testing.T) {
	orig := Transform(chain("a", "b", "c", "d"), Options{RootID: "a"})

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var restored Result
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if restored.ByID != nil {
		t.Fatal("ByID survived serialization; expected it excluded")
	}

	restored.Reindex()

	if len(restored.ByID) != len(orig.ByID) {
		t.Errorf("len(ByID) = %d, want %d", len(restored.ByID), len(orig.ByID))
	}
	for id := range orig.ByID {
		if !restored.Contains(id) {
			t.Errorf("Contains(%q) = false after Reindex", id)
		}
	}
	want := []string{"d", "c", "b", "a"}
	if got := restored.PathToRoot("d"); !reflect.DeepEqual(got, want) {
		t.Errorf("PathToRoot(d) = %v, want %v", got, want)
	}
}

func TestPathToRoot(t *testing.T) {
	s := chain("a", "b", "c", "d")
	res := Transform(s, Options{RootID: "a"})

	got := res.PathToRoot("d")
	want := []string{"d", "c", "b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PathToRoot(d) = %v, want %v", got, want)
	}

	if got := res.PathToRoot("ghost"); got != nil {
		t.Errorf("PathToRoot(ghost) = %v, want nil", got)
	}
}
