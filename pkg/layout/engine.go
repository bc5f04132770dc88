// Package layout computes a 3D radial tree layout over a spanning-tree
// transform result.
//
// The engine is a pure function of its inputs: the tree, the caller-owned
// expansion set, the current selection, the visible-children cap, and the
// label mode. It holds no state between calls - expand/collapse "memory"
// lives entirely in caller-owned UI state, passed in fresh each time - so
// callers memoize results by input identity instead of mutating a persistent
// layout (see the pipeline package).
package layout

import (
	"context"
	"slices"

	"github.com/memlens/memlens/pkg/cluster"
	"github.com/memlens/memlens/pkg/observability"
	"github.com/memlens/memlens/pkg/tree"
)

// Params are the per-computation inputs of [Compute].
type Params struct {
	// Tree is the spanning-tree transform result. A nil tree yields a nil
	// layout (empty-state, not an error).
	Tree *tree.Result

	// Expanded holds the IDs (entity and cluster) the caller currently has
	// expanded. The engine never mutates it. The root is always treated as
	// expanded, and every ancestor of the selection is force-expanded so the
	// selection path always renders.
	Expanded map[string]bool

	// SelectedID is the currently selected entity node, or empty.
	SelectedID string

	// MaxChildren overrides Config.MaxVisibleChildren when positive.
	MaxChildren int

	// ShowLabels widens radial and angular spacing to leave room for text.
	ShowLabels bool
}

// Compute runs the full radial layout. It is deterministic and side-effect
// free for identical inputs.
func Compute(p Params, cfg Config) *Result {
	if p.Tree == nil || p.Tree.Root == nil {
		return nil
	}
	cfg = cfg.withDefaults()
	if p.MaxChildren > 0 {
		cfg.MaxVisibleChildren = p.MaxChildren
	}

	e := &engine{params: p, cfg: cfg, selPath: selectionPath(p.Tree, p.SelectedID)}
	root := e.buildNode(p.Tree.Root, nil, 0)
	e.assignRadial(root, p.ShowLabels)
	e.resolveAngles(root)
	return e.collect(root)
}

// engine carries the shared computation state for one Compute call.
type engine struct {
	params  Params
	cfg     Config
	selPath map[string]bool // selection node plus all its tree ancestors

	step        float64 // resolved radius step
	levelHeight float64
	maxDepth    int
	maxRadius   float64
}

// vnode is a node of the filtered, renderable hierarchy: the expansion set,
// child cap, and clustering applied to the raw tree.
type vnode struct {
	id       string
	kind     NodeKind
	tn       *tree.Node       // entity nodes
	cl       *cluster.Cluster // cluster nodes
	parent   *vnode
	children []*vnode
	depth    int
	hidden   int
	expanded bool

	baseAngle float64 // hierarchical baseline
	angle     float64 // after de-collision
	radius    float64
	jitterCap float64 // max angular jitter, bounded below the sibling gap
}

// expandedID reports whether id is effectively expanded: explicitly expanded
// by the caller, the root, or an ancestor of the selection.
func (e *engine) expandedID(id string) bool {
	if id == e.params.Tree.Root.ID {
		return true
	}
	if e.params.Expanded[id] {
		return true
	}
	// Ancestors of the selection must render their children; the selection
	// itself stays collapsed unless the caller expanded it.
	return e.selPath[id] && id != e.params.SelectedID
}

// buildNode converts a tree node into a vnode, attaching children according
// to the effective expansion state, the density threshold, and the
// visible-child cap.
func (e *engine) buildNode(tn *tree.Node, parent *vnode, depth int) *vnode {
	v := &vnode{
		id:       tn.ID,
		kind:     KindEntity,
		tn:       tn,
		parent:   parent,
		depth:    depth,
		expanded: e.expandedID(tn.ID),
	}
	if depth > e.maxDepth {
		e.maxDepth = depth
	}
	if !v.expanded || len(tn.Children) == 0 {
		return v
	}

	if cluster.Dense(len(tn.Children)) {
		e.buildClustered(v, tn, depth)
		return v
	}

	for _, child := range e.capChildren(tn.Children, &v.hidden) {
		v.children = append(v.children, e.buildNode(child, v, depth+1))
	}
	return v
}

// buildClustered routes a dense node's children through the spatial
// clusterer, producing a small number of synthetic cluster children.
func (e *engine) buildClustered(v *vnode, tn *tree.Node, depth int) {
	members := make([]cluster.Member, len(tn.Children))
	byID := make(map[string]*tree.Node, len(tn.Children))
	for i, c := range tn.Children {
		m := cluster.Member{ID: c.ID}
		if c.Entity != nil {
			m.Type = c.Entity.Type
		}
		members[i] = m
		byID[c.ID] = c
	}

	clusters := cluster.Partition(tn.ID, members)
	observability.Engine().OnClusterApplied(context.Background(), tn.ID, len(tn.Children), len(clusters))

	for _, cl := range clusters {
		cl := cl
		cv := &vnode{
			id:     cl.ID,
			kind:   KindCluster,
			cl:     &cl,
			parent: v,
			depth:  depth + 1,
		}
		if depth+1 > e.maxDepth {
			e.maxDepth = depth + 1
		}
		// A cluster holding a selection-path node is forced open so
		// clustering can never break selection-path continuity.
		cv.expanded = e.params.Expanded[cl.ID] || e.clusterOnSelectionPath(&cl)
		if cv.expanded {
			for _, memberID := range cl.MemberIDs {
				cv.children = append(cv.children, e.buildNode(byID[memberID], cv, depth+2))
			}
		}
		v.children = append(v.children, cv)
	}
}

func (e *engine) clusterOnSelectionPath(cl *cluster.Cluster) bool {
	for id := range e.selPath {
		if cl.Contains(id) {
			return true
		}
	}
	return false
}

// capChildren truncates a child list at the visible cap, always substituting
// in a selection-path child that would otherwise be cut.
func (e *engine) capChildren(children []*tree.Node, hidden *int) []*tree.Node {
	limit := e.cfg.MaxVisibleChildren
	if len(children) <= limit {
		return children
	}
	visible := slices.Clone(children[:limit])
	*hidden = len(children) - limit

	for _, c := range children[limit:] {
		if e.selPath[c.ID] {
			visible[len(visible)-1] = c
			break
		}
	}
	return visible
}

// collect flattens the vnode hierarchy into the renderable output and runs
// link and cycle classification.
func (e *engine) collect(root *vnode) *Result {
	res := &Result{}
	var links []linkDraft

	var walk func(v *vnode)
	walk = func(v *vnode) {
		res.Nodes = append(res.Nodes, e.renderable(v))
		for _, c := range v.children {
			links = append(links, e.draftLink(v, c))
			walk(c)
		}
	}
	walk(root)

	res.Links = classifyLinks(links, e.cfg)
	res.CycleConnections = e.cycleConnections(root)
	res.Metrics = Metrics{
		MaxDepth:     e.maxDepth,
		LevelHeight:  e.levelHeight,
		LayoutRadius: e.maxRadius,
		TrunkHeight:  e.cfg.TrunkHeight,
		NodeCount:    len(res.Nodes),
		LinkCount:    len(res.Links),
	}
	return res
}

func (e *engine) renderable(v *vnode) RenderableNode {
	n := RenderableNode{
		ID:             v.id,
		Kind:           v.kind,
		Position:       position(v, e.cfg, e.levelHeight),
		Depth:          v.depth,
		HiddenChildren: v.hidden,
		Expanded:       v.expanded,
	}
	if v.parent != nil {
		n.ParentID = v.parent.id
	}
	switch v.kind {
	case KindEntity:
		n.ChildCount = v.tn.ChildCount()
		if ent := v.tn.Entity; ent != nil {
			n.Label = ent.DisplayLabel()
			n.EntityType = ent.Type
			n.NeedsReview = ent.NeedsReview()
		}
	case KindCluster:
		n.ChildCount = v.cl.Count
		n.MemberIDs = v.cl.MemberIDs
		n.MemberTypes = v.cl.Types
	}
	return n
}

// cycleConnections retains non-tree edges between two rendered nodes, but
// only while one endpoint is the current selection - everything else stays
// uncluttered.
func (e *engine) cycleConnections(root *vnode) []CycleConnection {
	sel := e.params.SelectedID
	if sel == "" {
		return nil
	}
	rendered := make(map[string]bool)
	var mark func(v *vnode)
	mark = func(v *vnode) {
		rendered[v.id] = true
		for _, c := range v.children {
			mark(c)
		}
	}
	mark(root)

	var out []CycleConnection
	for _, ce := range e.params.Tree.CycleEdges {
		if ce.A != sel && ce.B != sel {
			continue
		}
		if !rendered[ce.A] || !rendered[ce.B] {
			continue
		}
		out = append(out, CycleConnection{SourceID: ce.A, TargetID: ce.B, Edge: ce})
	}
	return out
}

// selectionPath returns the selection node plus all its tree ancestors.
func selectionPath(t *tree.Result, selectedID string) map[string]bool {
	path := make(map[string]bool)
	for _, id := range t.PathToRoot(selectedID) {
		path[id] = true
	}
	return path
}
