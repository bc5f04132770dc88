// Package cluster partitions a dense set of sibling nodes into a small
// number of spatial clusters.
//
// Clustering here is purely a rendering-density mitigation: when a tree node
// has too many children to draw readably, siblings are grouped into synthetic
// cluster nodes. The grouping runs a seeded k-means over deterministic
// pseudo-random points on a unit circle, so identical membership always
// yields identical clusters - no semantic community detection is involved.
package cluster

import (
	"fmt"
	"hash/fnv"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// DenseThreshold is the child count at which clustering kicks in.
	DenseThreshold = 50

	// membersPerCluster drives the cluster count: k = ceil(n / membersPerCluster).
	membersPerCluster = 15

	// minClusters and maxClusters clamp k.
	minClusters = 5
	maxClusters = 7

	// maxIterations bounds the k-means loop. Convergence on these tiny
	// point sets happens well before the cap.
	maxIterations = 32
)

// Member is one sibling node eligible for clustering.
type Member struct {
	ID   string
	Type string // Entity category, collected into the cluster's type set
}

// Cluster is a synthetic aggregation over a subset of one parent's children.
type Cluster struct {
	// ID is derived from the parent ID plus a hash of the sorted member
	// IDs, so it is stable across re-runs with identical membership.
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
	Count    int    `json:"count"`
	// MemberIDs is sorted lexicographically.
	MemberIDs []string `json:"member_ids"`
	// Types is the sorted set of member entity categories.
	Types []string `json:"types"`
	// Centroid is the cluster center in pseudo-point space. Its azimuth
	// orders clusters so adjacent clusters map to adjacent arcs.
	Centroid r2.Vec `json:"-"`
}

// Contains reports whether id is a member of the cluster.
func (c *Cluster) Contains(id string) bool {
	_, found := slices.BinarySearch(c.MemberIDs, id)
	return found
}

// Dense reports whether a child count meets the clustering threshold.
func Dense(childCount int) bool { return childCount >= DenseThreshold }

// Partition groups members into k = clamp(ceil(n/15), 5, 7) clusters.
//
// Each member is mapped to a deterministic point on the unit circle from a
// seeded hash of its ID; k-means over those points produces the groups. The
// returned clusters are sorted by centroid azimuth and together exactly
// partition the input (disjoint, union-complete).
func Partition(parentID string, members []Member) []Cluster {
	if len(members) == 0 {
		return nil
	}

	// Sort members by ID first so seeding and assignment are independent
	// of caller ordering.
	sorted := slices.Clone(members)
	slices.SortFunc(sorted, func(a, b Member) int { return strings.Compare(a.ID, b.ID) })

	points := make([]r2.Vec, len(sorted))
	for i, m := range sorted {
		points[i] = unitPoint(m.ID)
	}

	k := clampClusters(len(sorted))
	assign := kmeans(points, k)

	groups := make([][]int, k)
	for i, c := range assign {
		groups[c] = append(groups[c], i)
	}

	clusters := make([]Cluster, 0, k)
	for _, idxs := range groups {
		if len(idxs) == 0 {
			continue
		}
		c := Cluster{ParentID: parentID, Count: len(idxs)}
		var centroid r2.Vec
		for _, i := range idxs {
			c.MemberIDs = append(c.MemberIDs, sorted[i].ID)
			if t := sorted[i].Type; t != "" && !slices.Contains(c.Types, t) {
				c.Types = append(c.Types, t)
			}
			centroid = r2.Add(centroid, points[i])
		}
		c.Centroid = r2.Scale(1/float64(len(idxs)), centroid)
		slices.Sort(c.MemberIDs) // already sorted by construction, kept as invariant
		slices.Sort(c.Types)
		c.ID = clusterID(parentID, c.MemberIDs)
		clusters = append(clusters, c)
	}

	slices.SortFunc(clusters, func(a, b Cluster) int {
		aa, ba := azimuth(a.Centroid), azimuth(b.Centroid)
		switch {
		case aa < ba:
			return -1
		case aa > ba:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return clusters
}

// FindContaining returns the cluster containing id, or nil.
func FindContaining(clusters []Cluster, id string) *Cluster {
	for i := range clusters {
		if clusters[i].Contains(id) {
			return &clusters[i]
		}
	}
	return nil
}

// =============================================================================
// Internal Implementation
// =============================================================================

func clampClusters(n int) int {
	k := (n + membersPerCluster - 1) / membersPerCluster
	if k < minClusters {
		k = minClusters
	}
	if k > maxClusters {
		k = maxClusters
	}
	if k > n {
		k = n
	}
	return k
}

// unitPoint derives a deterministic pseudo-random point on the unit circle
// from a seeded hash of the ID. The point is a clustering feature only and
// is unrelated to the node's final render position.
func unitPoint(id string) r2.Vec {
	h := fnv.New64a()
	h.Write([]byte(id))
	angle := float64(h.Sum64()%1_000_000) / 1_000_000 * 2 * math.Pi
	return r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
}

// kmeans assigns each point to one of k groups. Centroids are seeded with
// evenly spaced points from the (already sorted) input, so the whole run is
// deterministic. A group that empties out keeps its previous centroid.
func kmeans(points []r2.Vec, k int) []int {
	centroids := make([]r2.Vec, k)
	for i := 0; i < k; i++ {
		centroids[i] = points[i*len(points)/k]
	}

	assign := make([]int, len(points))
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := assign[i], math.Inf(1)
			for c, ct := range centroids {
				d := distSq(p, ct)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([]r2.Vec, k)
		counts := make([]int, k)
		for i, p := range points {
			sums[assign[i]] = r2.Add(sums[assign[i]], p)
			counts[assign[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = r2.Scale(1/float64(counts[c]), sums[c])
			}
		}
	}
	return assign
}

func distSq(a, b r2.Vec) float64 {
	d := r2.Sub(a, b)
	return d.X*d.X + d.Y*d.Y
}

// azimuth returns the centroid angle normalized to [0, 2π).
func azimuth(v r2.Vec) float64 {
	a := math.Atan2(v.Y, v.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// clusterID builds a stable synthetic ID from the parent and the sorted
// member IDs. Identical membership always hashes to the same ID.
func clusterID(parentID string, memberIDs []string) string {
	h := fnv.New64a()
	for _, id := range memberIDs {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s::cluster-%016x", parentID, h.Sum64())
}
