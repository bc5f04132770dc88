package layout

import (
	"hash/fnv"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

// assignRadial computes the hierarchical baseline: an angle and a radial
// depth for every vnode. Leaves receive consecutive slots around the full
// circle; each internal node sits at the mean angle of its children. The
// radius step shrinks as per-level density grows and widens in label mode.
func (e *engine) assignRadial(root *vnode, showLabels bool) {
	perLevel := make(map[int]int)
	var count func(v *vnode)
	count = func(v *vnode) {
		perLevel[v.depth]++
		for _, c := range v.children {
			count(c)
		}
	}
	count(root)

	maxLevel := 0
	for _, n := range perLevel {
		if n > maxLevel {
			maxLevel = n
		}
	}

	e.step = e.cfg.BaseRadiusStep / (1 + math.Log1p(float64(maxLevel))/4)
	if showLabels {
		e.step *= e.cfg.LabelRadiusFactor
	}
	e.levelHeight = e.cfg.LevelHeight

	leaves := countLeaves(root)
	if leaves == 0 {
		leaves = 1
	}
	slot := 2 * math.Pi / float64(leaves)

	next := 0
	var place func(v *vnode) float64
	place = func(v *vnode) float64 {
		v.radius = float64(v.depth) * e.step
		if v.radius > e.maxRadius {
			e.maxRadius = v.radius
		}
		if len(v.children) == 0 {
			v.baseAngle = (float64(next) + 0.5) * slot
			next++
			return v.baseAngle
		}
		var sum float64
		for _, c := range v.children {
			sum += place(c)
		}
		v.baseAngle = sum / float64(len(v.children))
		return v.baseAngle
	}
	place(root)
}

func countLeaves(v *vnode) int {
	if len(v.children) == 0 {
		return 1
	}
	n := 0
	for _, c := range v.children {
		n += countLeaves(c)
	}
	return n
}

// resolveAngles runs the mandatory de-collision pass. Baseline angles ignore
// rendered label width and 3D occlusion; without this pass dense subtrees
// visually overlap. For every expanded parent, the child offsets are
// tightened, sorted, spread to a minimum gap, and re-centered around the
// parent's final angle. Processing is top-down so each child inherits its
// parent's already-final angle.
func (e *engine) resolveAngles(root *vnode) {
	root.angle = root.baseAngle

	queue := []*vnode{root}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		e.spreadChildren(v)
		queue = append(queue, v.children...)
	}
}

func (e *engine) spreadChildren(v *vnode) {
	n := len(v.children)
	if n == 0 {
		return
	}
	gap := e.minGap(v)

	if n == 1 {
		c := v.children[0]
		c.angle = v.angle + normalizeAngle(c.baseAngle-v.baseAngle)
		c.jitterCap = gap * e.cfg.JitterFraction
		return
	}

	// Tightening grows with depth and sibling count, pulling children in
	// toward the parent before the gap constraint pushes them back apart.
	tighten := 1 / (1 + e.cfg.DepthTightening*float64(v.depth) + e.cfg.SiblingTightening*float64(n-1))

	offsets := make([]float64, n)
	order := make([]int, n)
	for i, c := range v.children {
		offsets[i] = normalizeAngle(c.baseAngle-v.baseAngle) * tighten
		order[i] = i
	}
	sortByOffset(order, offsets)

	// Enforce the minimum gap left to right, then re-center the spread
	// around the parent's own angle.
	for k := 1; k < n; k++ {
		prev, curr := order[k-1], order[k]
		if offsets[curr] < offsets[prev]+gap {
			offsets[curr] = offsets[prev] + gap
		}
	}
	var mean float64
	for _, off := range offsets {
		mean += off
	}
	mean /= float64(n)

	for i, c := range v.children {
		c.angle = v.angle + offsets[i] - mean
		c.jitterCap = gap * e.cfg.JitterFraction
	}
}

// minGap derives the minimum angular distance between two children of v from
// the child radius and, when labels are shown, the estimated label width.
func (e *engine) minGap(v *vnode) float64 {
	childRadius := float64(v.depth+1) * e.step
	if childRadius < eps {
		childRadius = e.step
	}

	arc := 2 * e.cfg.NodeRadius
	if e.params.ShowLabels {
		arc += e.cfg.LabelCharWidth * float64(longestLabel(v.children))
	}
	gap := arc / childRadius
	if gap < e.cfg.MinAngularGap {
		gap = e.cfg.MinAngularGap
	}
	return gap
}

func longestLabel(children []*vnode) int {
	longest := 0
	for _, c := range children {
		if c.tn != nil && c.tn.Entity != nil {
			if l := len(c.tn.Entity.DisplayLabel()); l > longest {
				longest = l
			}
		}
	}
	return longest
}

// position converts (angle, radius, depth) into 3D coordinates. The
// vertical axis is purely a function of depth; a deterministic per-node
// angular jitter, seeded by ID and scaled down with depth, adds visual
// organicity without ever exceeding the guaranteed sibling gap.
func position(v *vnode, cfg Config, levelHeight float64) r3.Vec {
	angle := v.angle + jitter(v.id, v.jitterCap, v.depth)
	return r3.Vec{
		X: v.radius * math.Cos(angle),
		Y: cfg.TrunkHeight + levelHeight*float64(v.depth),
		Z: v.radius * math.Sin(angle),
	}
}

// jitter returns a deterministic angular offset in (-cap, cap), shrinking
// with depth.
func jitter(id string, jitterCap float64, depth int) float64 {
	if jitterCap <= 0 {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(id))
	unit := float64(h.Sum64()%2_000_001)/1_000_000 - 1 // [-1, 1]
	return unit * jitterCap / float64(1+depth)
}

// normalizeAngle wraps an angle into [-π, π].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// sortByOffset sorts the index slice by ascending offset. Insertion sort is
// plenty for sibling counts bounded by the visible-child cap.
func sortByOffset(order []int, offsets []float64) {
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && offsets[order[j]] < offsets[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}
