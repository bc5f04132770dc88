package nodelink

import (
	"strings"
	"testing"

	"github.com/memlens/memlens/pkg/graph"
	"github.com/memlens/memlens/pkg/tree"
)

func testTree(t *testing.T) *tree.Result {
	t.Helper()
	s := &graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "a", Label: "Alice"},
			{ID: "b", Type: "person"},
			{ID: "c"},
			{ID: "lonely"},
		},
		Links: []graph.Link{
			{Source: "a", Target: "b", Type: "RELATED_TO", Weight: 1, OccurrenceCount: 2},
			{Source: "a", Target: "c", Weight: 1, OccurrenceCount: 1},
			{Source: "b", Target: "c", Weight: 1, OccurrenceCount: 1},
		},
	}
	res := tree.Transform(s, tree.Options{RootID: "a"})
	if res == nil {
		t.Fatal("Transform() = nil")
	}
	return res
}

func TestToDOTNil(t *testing.T) {
	dot := ToDOT(nil, Options{})
	if !strings.HasPrefix(dot, "digraph memlens {") || !strings.HasSuffix(dot, "}\n") {
		t.Errorf("ToDOT(nil) produced malformed DOT:\n%s", dot)
	}
}

func TestToDOTTree(t *testing.T) {
	dot := ToDOT(testTree(t), Options{})

	if !strings.Contains(dot, `"a" [label="Alice"]`) {
		t.Error("root label missing or not using display label")
	}
	if !strings.Contains(dot, `"a" -> "b"`) || !strings.Contains(dot, `"a" -> "c"`) {
		t.Error("tree edges missing")
	}
	// Cycles and orphans are opt-in.
	if strings.Contains(dot, "dashed") {
		t.Error("cycle or orphan styling present without the option")
	}
	if strings.Contains(dot, `"lonely"`) {
		t.Error("orphan present without ShowOrphans")
	}
}

func TestToDOTOptions(t *testing.T) {
	dot := ToDOT(testTree(t), Options{Detailed: true, ShowCycles: true, ShowOrphans: true})

	if !strings.Contains(dot, `"lonely"`) {
		t.Error("orphan missing despite ShowOrphans")
	}
	if !strings.Contains(dot, `"b" -> "c" [style=dashed, dir=none, color=grey]`) {
		t.Errorf("cycle edge missing or wrongly styled:\n%s", dot)
	}
	if !strings.Contains(dot, "RELATED_TO") {
		t.Error("detailed edge label missing")
	}
	if !strings.Contains(dot, "count: 2") {
		t.Error("detailed node label missing occurrence count")
	}
}
