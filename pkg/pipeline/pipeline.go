// Package pipeline provides the core computation pipeline for MemLens.
//
// This package implements the complete transform → layout flow that can be
// used by CLI, API, and render-loop components. By centralizing this logic,
// we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Transform: convert the snapshot into a spanning tree plus cycle and
//     orphan lists
//  2. Layout: compute 3D positions, link classification, and cycle
//     connections for the rendered subset
//
// Both stages are pure recomputations; the pipeline's contribution is the
// memoization around them. Layout results are cached by input identity
// (snapshot content hash plus layout options) so a render loop recomputes
// only when an input actually changes, never per frame.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache.NewMemoryCache(), nil, logger)
//	opts := pipeline.Options{SelectedID: "alice", ShowLabels: true}
//	result, err := runner.Execute(ctx, snapshot, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	renderable := result.Layout
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/memlens/memlens/pkg/errors"
	"github.com/memlens/memlens/pkg/layout"
	"github.com/memlens/memlens/pkg/tree"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMaxDepth bounds traversal depth. Zero means unlimited; the CLI
	// leaves this at zero and lets the layout's expansion set do the pruning.
	DefaultMaxDepth = 0

	// DefaultMaxChildren is the visible-children cap per expanded node.
	DefaultMaxChildren = 20

	// DefaultCacheTTL is how long cached layouts stay valid. Content-hashed
	// keys never serve stale data; the TTL only bounds cache growth.
	DefaultCacheTTL = 24 * time.Hour
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Transform options
	RootID   string `json:"root_id,omitempty"`
	MaxDepth int    `json:"max_depth,omitempty"`

	// Layout options
	SelectedID  string   `json:"selected_id,omitempty"`
	Expanded    []string `json:"expanded,omitempty"`
	MaxChildren int      `json:"max_children,omitempty"`
	ShowLabels  bool     `json:"show_labels,omitempty"`

	// Layout tuning; zero fields fall back to layout.DefaultConfig.
	Layout layout.Config `json:"layout,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults checks fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.MaxDepth < 0 {
		return errors.New(errors.ErrCodeInvalidOption, "max_depth must not be negative, got %d", o.MaxDepth)
	}
	if o.MaxChildren < 0 {
		return errors.New(errors.ErrCodeInvalidOption, "max_children must not be negative, got %d", o.MaxChildren)
	}
	if o.MaxChildren == 0 {
		o.MaxChildren = DefaultMaxChildren
	}
	return nil
}

// logger resolves the logger for one run: the request-scoped logger when
// set, otherwise def (the runner's own).
func (o *Options) logger(def *log.Logger) *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if def != nil {
		return def
	}
	return log.Default()
}

// expandedSet converts the expansion list into the set the layout consumes.
func (o *Options) expandedSet() map[string]bool {
	set := make(map[string]bool, len(o.Expanded))
	for _, id := range o.Expanded {
		set[id] = true
	}
	return set
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// Tree is the spanning-tree transform result. Nil for empty snapshots -
	// callers render an empty state.
	Tree *tree.Result

	// SnapshotHash is the content hash of the input snapshot.
	SnapshotHash string

	// Layout is the renderable layout. Nil exactly when Tree is nil.
	Layout *layout.Result

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount     int
	LinkCount     int
	TreeNodes     int
	CycleEdges    int
	Orphans       int
	TransformTime time.Duration
	LayoutTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	TreeHit   bool // Whether the transform result came from cache
	LayoutHit bool // Whether the layout result came from cache
}
