// Package pkg provides the core libraries for MemLens memory graph layout.
//
// # Overview
//
// MemLens turns entity-relationship snapshots of an agent's memory into a
// 3D radial tree layout that a client can render and explore. The pkg
// directory is organized into four main areas:
//
//  1. [graph], [tree]    - Domain model (snapshots, spanning-tree transform)
//  2. [cluster], [layout], [lod] - Spatial logic (clustering, radial placement, detail tiers)
//  3. [cache], [store]   - Infrastructure (layout memoization, snapshot persistence)
//  4. [pipeline], [render] - Orchestration and export (end-to-end runs, DOT/SVG)
//
// # Architecture
//
// The typical data flow through MemLens:
//
//	Memory Snapshot (entities + relationship links)
//	         ↓
//	    [tree] package (BFS spanning tree, cycles, orphans)
//	         ↓
//	    [layout] package (radial placement, link classification)
//	         ↓
//	    JSON layout / DOT / SVG output
//
// The [pipeline] package ties these stages together and memoizes results
// through [cache], keyed by snapshot content hash and layout options. The
// [lod] package runs client-side of the layout, mapping camera distance to
// per-node detail tiers.
//
// # Quick Start
//
//	snap, err := graph.ReadSnapshotFile("memory.json")
//	if err != nil {
//		return err
//	}
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, snap, pipeline.Options{})
//	if err != nil {
//		return err
//	}
//	fmt.Println(len(result.Layout.Nodes), "positioned nodes")
package pkg
