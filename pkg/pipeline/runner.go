package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/memlens/memlens/pkg/cache"
	"github.com/memlens/memlens/pkg/graph"
	"github.com/memlens/memlens/pkg/layout"
	"github.com/memlens/memlens/pkg/observability"
	"github.com/memlens/memlens/pkg/tree"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Close releases the cache backend.
func (r *Runner) Close() error { return r.Cache.Close() }

// Execute runs the complete transform → layout pipeline with caching.
//
// An empty snapshot produces a Result with nil Tree and nil Layout rather
// than an error; callers render an empty state.
func (r *Runner) Execute(ctx context.Context, snapshot *graph.Snapshot, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	hash, err := graph.Hash(snapshot)
	if err != nil {
		return nil, fmt.Errorf("hash snapshot: %w", err)
	}
	result.SnapshotHash = hash
	result.Stats.NodeCount = len(snapshot.Nodes)
	result.Stats.LinkCount = len(snapshot.Links)

	logger := opts.logger(r.Logger)

	// Stage 1: Transform
	transformStart := time.Now()
	observability.Engine().OnTransformStart(ctx, len(snapshot.Nodes), len(snapshot.Links))
	t, treeHit := r.treeWithCache(ctx, snapshot, hash, opts)
	result.Tree = t
	result.Stats.TransformTime = time.Since(transformStart)
	result.CacheInfo.TreeHit = treeHit
	if t == nil {
		logger.Info("empty snapshot, nothing to lay out")
		return result, nil
	}
	result.Stats.TreeNodes = len(t.ByID)
	result.Stats.CycleEdges = len(t.CycleEdges)
	result.Stats.Orphans = len(t.Orphans)
	observability.Engine().OnTransformComplete(ctx,
		result.Stats.TreeNodes, result.Stats.CycleEdges, result.Stats.Orphans,
		result.Stats.TransformTime)

	logger.Info("transformed graph",
		"tree_nodes", result.Stats.TreeNodes,
		"cycle_edges", result.Stats.CycleEdges,
		"orphans", result.Stats.Orphans,
		"cached", treeHit,
		"duration", result.Stats.TransformTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	l, hit, err := r.layoutWithCache(ctx, t, hash, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = hit

	logger.Info("computed layout",
		"nodes", len(l.Nodes),
		"links", len(l.Links),
		"cached", hit,
		"duration", result.Stats.LayoutTime)

	return result, nil
}

// Transform runs the spanning-tree transform. Pure passthrough; exposed so
// callers can run the stage on its own.
func (r *Runner) Transform(snapshot *graph.Snapshot, opts Options) *tree.Result {
	return tree.Transform(snapshot, tree.Options{
		RootID:   opts.RootID,
		MaxDepth: opts.MaxDepth,
	})
}

// ComputeLayout runs the layout stage without caching.
func (r *Runner) ComputeLayout(ctx context.Context, t *tree.Result, opts Options) (*layout.Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	observability.Engine().OnLayoutStart(ctx, len(t.ByID))
	start := time.Now()
	l := layout.Compute(layout.Params{
		Tree:        t,
		Expanded:    opts.expandedSet(),
		SelectedID:  opts.SelectedID,
		MaxChildren: opts.MaxChildren,
		ShowLabels:  opts.ShowLabels,
	}, opts.Layout)
	observability.Engine().OnLayoutComplete(ctx, len(l.Nodes), len(l.Links), time.Since(start), nil)
	return l, nil
}

// treeWithCache memoizes the spanning-tree transform by snapshot hash plus
// the transform options. The ByID index is not part of the serialized form,
// so cached trees are reindexed before use.
func (r *Runner) treeWithCache(ctx context.Context, snapshot *graph.Snapshot, hash string, opts Options) (*tree.Result, bool) {
	key := r.Keyer.TreeKey(hash, opts.RootID, opts.MaxDepth)

	if data, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
		var cached tree.Result
		if err := json.Unmarshal(data, &cached); err == nil && cached.Root != nil {
			cached.Reindex()
			observability.Cache().OnCacheHit(ctx, "tree")
			return &cached, true
		}
		// Corrupt entry - recompute and overwrite below.
		_ = r.Cache.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, "tree")

	t := r.Transform(snapshot, opts)
	if t == nil {
		return nil, false
	}

	if data, err := json.Marshal(t); err == nil {
		if err := r.Cache.Set(ctx, key, data, DefaultCacheTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "tree", len(data))
		}
	}
	return t, false
}

// layoutWithCache memoizes the layout by snapshot hash plus options.
func (r *Runner) layoutWithCache(ctx context.Context, t *tree.Result, hash string, opts Options) (*layout.Result, bool, error) {
	key := r.Keyer.LayoutKey(hash, cache.LayoutKeyOpts{
		RootID:      opts.RootID,
		MaxDepth:    opts.MaxDepth,
		SelectedID:  opts.SelectedID,
		Expanded:    opts.Expanded,
		MaxChildren: opts.MaxChildren,
		ShowLabels:  opts.ShowLabels,
	})

	if data, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
		var cached layout.Result
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(ctx, "layout")
			return &cached, true, nil
		}
		// Corrupt entry - recompute and overwrite below.
		_ = r.Cache.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	l, err := r.ComputeLayout(ctx, t, opts)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(l); err == nil {
		if err := r.Cache.Set(ctx, key, data, DefaultCacheTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	return l, false, nil
}
