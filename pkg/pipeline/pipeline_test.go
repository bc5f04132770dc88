package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/memlens/memlens/pkg/cache"
	"github.com/memlens/memlens/pkg/graph"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func testSnapshot(n int) *graph.Snapshot {
	s := &graph.Snapshot{Nodes: []graph.Node{{ID: "root"}}}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("n%02d", i)
		s.Nodes = append(s.Nodes, graph.Node{ID: id})
		s.Links = append(s.Links, graph.Link{
			Source: "root", Target: id, Weight: 1, OccurrenceCount: 1,
		})
	}
	return s
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.MaxChildren != DefaultMaxChildren {
		t.Errorf("MaxChildren = %d, want %d", opts.MaxChildren, DefaultMaxChildren)
	}
	bad := Options{MaxDepth: -1}
	if err := bad.ValidateAndSetDefaults(); err == nil {
		t.Error("ValidateAndSetDefaults() accepted negative max depth")
	}
	bad = Options{MaxChildren: -1}
	if err := bad.ValidateAndSetDefaults(); err == nil {
		t.Error("ValidateAndSetDefaults() accepted negative max children")
	}
}

func TestExecuteEmptySnapshot(t *testing.T) {
	r := NewRunner(cache.NewMemoryCache(), nil, quietLogger())
	defer r.Close()

	result, err := r.Execute(context.Background(), &graph.Snapshot{}, Options{})
	if err != nil {
		t.Fatalf("Execute(empty) error = %v", err)
	}
	if result.Tree != nil || result.Layout != nil {
		t.Error("empty snapshot produced a non-nil tree or layout")
	}
	if result.SnapshotHash == "" {
		t.Error("empty snapshot produced no hash")
	}
}

func TestExecutePipeline(t *testing.T) {
	r := NewRunner(cache.NewMemoryCache(), nil, quietLogger())
	defer r.Close()

	snap := testSnapshot(5)
	result, err := r.Execute(context.Background(), snap, Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Tree == nil || result.Layout == nil {
		t.Fatal("Execute() returned nil tree or layout")
	}
	if result.Stats.NodeCount != 6 || result.Stats.LinkCount != 5 {
		t.Errorf("Stats = %+v, want 6 nodes / 5 links", result.Stats)
	}
	if result.Stats.TreeNodes != 6 {
		t.Errorf("Stats.TreeNodes = %d, want 6", result.Stats.TreeNodes)
	}
	if len(result.Layout.Nodes) != 6 {
		t.Errorf("len(Layout.Nodes) = %d, want 6", len(result.Layout.Nodes))
	}
	if result.CacheInfo.LayoutHit {
		t.Error("first run reported a cache hit")
	}
}

func TestExecuteMemoizesLayout(t *testing.T) {
	r := NewRunner(cache.NewMemoryCache(), nil, quietLogger())
	defer r.Close()

	ctx := context.Background()
	snap := testSnapshot(8)
	opts := Options{SelectedID: "n03", Expanded: []string{"n01"}}

	first, err := r.Execute(ctx, snap, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	second, err := r.Execute(ctx, snap, opts)
	if err != nil {
		t.Fatalf("Execute() second run error = %v", err)
	}

	if first.CacheInfo.LayoutHit {
		t.Error("first run reported a cache hit")
	}
	if !second.CacheInfo.LayoutHit {
		t.Error("second run missed the cache")
	}
	if !reflect.DeepEqual(first.Layout, second.Layout) {
		t.Error("cached layout differs from computed layout")
	}
}

func TestExecuteMemoizesTree(t *testing.T) {
	r := NewRunner(cache.NewMemoryCache(), nil, quietLogger())
	defer r.Close()

	ctx := context.Background()
	snap := testSnapshot(8)

	first, err := r.Execute(ctx, snap, Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	second, err := r.Execute(ctx, snap, Options{})
	if err != nil {
		t.Fatalf("Execute() second run error = %v", err)
	}

	if first.CacheInfo.TreeHit {
		t.Error("first run reported a tree cache hit")
	}
	if !second.CacheInfo.TreeHit {
		t.Error("second run missed the tree cache")
	}
	if !reflect.DeepEqual(first.Tree, second.Tree) {
		t.Error("cached tree differs from computed tree")
	}
	// The restored index must support lookups.
	if !second.Tree.Contains("n05") {
		t.Error("cached tree lost the ByID index")
	}
	// A different depth bound must not reuse the cached tree.
	third, err := r.Execute(ctx, snap, Options{MaxDepth: 1})
	if err != nil {
		t.Fatalf("Execute() third run error = %v", err)
	}
	if third.CacheInfo.TreeHit {
		t.Error("different max depth hit the tree cache")
	}
}

func TestExecuteUsesRequestLogger(t *testing.T) {
	var runnerBuf, requestBuf bytes.Buffer
	r := NewRunner(cache.NewMemoryCache(), nil,
		log.NewWithOptions(&runnerBuf, log.Options{}))
	defer r.Close()

	reqLogger := log.NewWithOptions(&requestBuf, log.Options{})
	_, err := r.Execute(context.Background(), testSnapshot(3), Options{Logger: reqLogger})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if requestBuf.Len() == 0 {
		t.Error("request-scoped logger received no output")
	}
	if runnerBuf.Len() != 0 {
		t.Errorf("runner logger received output despite request logger: %q", runnerBuf.String())
	}

	// Without a request logger the runner's own logger is used.
	_, err = r.Execute(context.Background(), testSnapshot(4), Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if runnerBuf.Len() == 0 {
		t.Error("runner logger received no output without a request logger")
	}
}

func TestExecuteCacheKeyedByOptions(t *testing.T) {
	r := NewRunner(cache.NewMemoryCache(), nil, quietLogger())
	defer r.Close()

	ctx := context.Background()
	snap := testSnapshot(8)

	if _, err := r.Execute(ctx, snap, Options{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	// Different options must not hit the cached entry.
	result, err := r.Execute(ctx, snap, Options{SelectedID: "n02"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.CacheInfo.LayoutHit {
		t.Error("different options hit the cache")
	}
	// Same expansion set in a different order must hit.
	if _, err := r.Execute(ctx, snap, Options{Expanded: []string{"n01", "n02"}}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	result, err = r.Execute(ctx, snap, Options{Expanded: []string{"n02", "n01"}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.CacheInfo.LayoutHit {
		t.Error("reordered expansion set missed the cache")
	}
}

func TestExecuteCorruptCacheEntry(t *testing.T) {
	c := cache.NewMemoryCache()
	r := NewRunner(c, nil, quietLogger())
	defer r.Close()

	ctx := context.Background()
	snap := testSnapshot(4)

	first, err := r.Execute(ctx, snap, Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Poison the cached entry; the runner must recompute, not fail.
	hash, _ := graph.Hash(snap)
	key := r.Keyer.LayoutKey(hash, cache.LayoutKeyOpts{MaxChildren: DefaultMaxChildren})
	if err := c.Set(ctx, key, []byte("{not json"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	second, err := r.Execute(ctx, snap, Options{})
	if err != nil {
		t.Fatalf("Execute() after corruption error = %v", err)
	}
	if second.CacheInfo.LayoutHit {
		t.Error("corrupt entry reported as cache hit")
	}
	if !reflect.DeepEqual(first.Layout, second.Layout) {
		t.Error("recomputed layout differs from original")
	}
}

func TestExecuteCorruptTreeCacheEntry(t *testing.T) {
	c := cache.NewMemoryCache()
	r := NewRunner(c, nil, quietLogger())
	defer r.Close()

	ctx := context.Background()
	snap := testSnapshot(4)

	first, err := r.Execute(ctx, snap, Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	hash, _ := graph.Hash(snap)
	key := r.Keyer.TreeKey(hash, "", 0)
	if err := c.Set(ctx, key, []byte("{not json"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	second, err := r.Execute(ctx, snap, Options{})
	if err != nil {
		t.Fatalf("Execute() after corruption error = %v", err)
	}
	if second.CacheInfo.TreeHit {
		t.Error("corrupt tree entry reported as cache hit")
	}
	if !reflect.DeepEqual(first.Tree, second.Tree) {
		t.Error("recomputed tree differs from original")
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	if r.Cache == nil || r.Keyer == nil || r.Logger == nil {
		t.Error("NewRunner(nil, nil, nil) left fields nil")
	}

	// A nil cache degrades to no caching, never to an error.
	result, err := r.Execute(context.Background(), testSnapshot(3), Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.CacheInfo.LayoutHit {
		t.Error("null cache reported a hit")
	}
}
