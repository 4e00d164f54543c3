// Package quadtree implements the spatial index used for Barnes-Hut force
// approximation.
//
// The tree recursively partitions the 2D plane into four quadrants and keeps
// aggregate mass and center-of-mass per region, so the approximate repulsive
// force on a point from everything else in the plane can be answered in
// O(log n) instead of O(n).
//
// Nodes are stored in a flat arena and reference their children by index.
// This keeps the depth guard a plain counter, avoids pointer-heavy recursive
// ownership, and makes rebuilding the tree every tick a single allocation in
// the common case.
package quadtree

import "math"

// Defaults for the subdivision guard. Tuned empirically for canvas layout
// space; both are overridable via Options.
const (
	// DefaultMaxDepth caps recursion depth during insertion.
	DefaultMaxDepth = 15

	// DefaultMinSize is the smallest region edge (in layout units) that may
	// still be subdivided.
	DefaultMinSize = 1.0
)

// Point is a positioned mass to be indexed.
type Point struct {
	X, Y, Mass float64
}

// Bounds is an axis-aligned region of layout space.
type Bounds struct {
	X, Y, W, H float64
}

// Options configures tree construction.
type Options struct {
	// MaxDepth caps insertion recursion. Zero means DefaultMaxDepth.
	MaxDepth int

	// MinSize is the smallest subdividable region edge. Zero means DefaultMinSize.
	MinSize float64

	// Bounds overrides the computed bounding box when non-nil. The computed
	// box covers all points with 10% padding and is squared so quadrants
	// stay well proportioned under extreme aspect ratios.
	Bounds *Bounds
}

// Quadrant order for child indices.
const (
	quadNW = iota
	quadNE
	quadSW
	quadSE
)

// treeNode is one arena entry: either a leaf holding an aggregate of one or
// more co-located points, or an internal node with four children and the
// aggregate mass/center-of-mass of everything beneath it.
type treeNode struct {
	bounds     Bounds
	depth      int
	mass       float64
	comX, comY float64
	count      int
	children   [4]int32 // arena indices; -1 when absent
}

func (n *treeNode) leaf() bool { return n.children[0] < 0 }

// Tree is an immutable spatial index over a set of points. It is rebuilt
// from scratch every simulation tick and discarded afterwards; it has no
// identity beyond a single force-computation pass.
type Tree struct {
	nodes    []treeNode
	maxDepth int
	minSize  float64
}

// Build constructs an index covering all points. An empty point set yields
// an empty tree whose queries return zero force.
func Build(points []Point, opts Options) *Tree {
	t := &Tree{
		maxDepth: opts.MaxDepth,
		minSize:  opts.MinSize,
	}
	if t.maxDepth <= 0 {
		t.maxDepth = DefaultMaxDepth
	}
	if t.minSize <= 0 {
		t.minSize = DefaultMinSize
	}
	if len(points) == 0 {
		return t
	}

	var bounds Bounds
	if opts.Bounds != nil {
		bounds = *opts.Bounds
	} else {
		bounds = ComputeBounds(points)
	}

	t.nodes = make([]treeNode, 0, 2*len(points))
	t.newNode(bounds, 0)
	for _, p := range points {
		t.insert(0, p.X, p.Y, p.Mass, 1)
	}
	return t
}

// ComputeBounds returns a square bounding box covering all points with 10%
// padding. Squaring keeps quadrant aspect ratios sane when the point cloud
// is strongly elongated.
func ComputeBounds(points []Point) Bounds {
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	pad := math.Max(maxX-minX, maxY-minY) * 0.1
	if pad == 0 {
		pad = 1 // all points coincident; give the root a non-degenerate box
	}
	minX -= pad
	maxX += pad
	minY -= pad
	maxY += pad

	w := maxX - minX
	h := maxY - minY
	if w > h {
		minY -= (w - h) / 2
		h = w
	} else if h > w {
		minX -= (h - w) / 2
		w = h
	}
	return Bounds{X: minX, Y: minY, W: w, H: h}
}

// ForceOn returns the approximate net repulsive force exerted on a point of
// the given mass by all mass in the tree, using the Barnes-Hut criterion:
// a region whose width/distance ratio is below theta is treated as a single
// mass at its center of mass.
//
// The repulsion follows an inverse-square law with softening:
//
//	F = strength * mass * regionMass / (d² + softening²)
//
// directed away from the region's center of mass. A region whose center of
// mass coincides with the query point (the point itself, or a co-located
// cluster it belongs to) has no defined direction and contributes nothing.
func (t *Tree) ForceOn(x, y, mass, theta, softening, strength float64) (fx, fy float64) {
	if len(t.nodes) == 0 {
		return 0, 0
	}
	return t.forceFrom(0, x, y, mass, theta, softening, strength)
}

// TotalMass returns the aggregate mass of all indexed points.
func (t *Tree) TotalMass() float64 {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.nodes[0].mass
}

// Count returns the number of points indexed.
func (t *Tree) Count() int {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.nodes[0].count
}

// Depth returns the maximum node depth present in the tree.
func (t *Tree) Depth() int {
	max := 0
	for i := range t.nodes {
		if t.nodes[i].depth > max {
			max = t.nodes[i].depth
		}
	}
	return max
}

// =============================================================================
// Insertion
// =============================================================================

// insert places a point (or a pre-aggregated cluster of cnt points) into the
// subtree rooted at idx. Insertion is unconditionally terminating: every call
// either stores the point, aggregates it at a depth/size-limited leaf, or
// recurses strictly one level deeper. It never reports rejection.
func (t *Tree) insert(idx int32, x, y, m float64, cnt int) {
	n := &t.nodes[idx]

	if n.leaf() {
		if n.count == 0 {
			n.comX, n.comY = x, y
			n.mass = m
			n.count = cnt
			return
		}

		// Subdivision guard: at the depth or size limit the leaf keeps all
		// points that land here as a local aggregate, treated as co-located
		// for force purposes. Two points with numerically identical
		// coordinates terminate here instead of recursing forever.
		if n.depth >= t.maxDepth || n.bounds.W/2 < t.minSize || n.bounds.H/2 < t.minSize {
			total := n.mass + m
			n.comX = (n.comX*n.mass + x*m) / total
			n.comY = (n.comY*n.mass + y*m) / total
			n.mass = total
			n.count += cnt
			return
		}

		// Second point forces a split: push the resident aggregate down,
		// then fall through to the internal-node path for the new point.
		rx, ry, rm, rc := n.comX, n.comY, n.mass, n.count
		t.subdivide(idx)
		n = &t.nodes[idx]
		q := quadrantOf(n.bounds, rx, ry)
		t.insert(n.children[q], rx, ry, rm, rc)
		n = &t.nodes[idx] // arena may have grown during the recursive insert
	}

	// Internal node: fold the new point into this region's aggregate
	// (weighted center-of-mass average), then recurse into its quadrant.
	total := n.mass + m
	n.comX = (n.comX*n.mass + x*m) / total
	n.comY = (n.comY*n.mass + y*m) / total
	n.mass = total
	n.count += cnt

	q := quadrantOf(n.bounds, x, y)
	child := n.children[q]
	t.insert(child, x, y, m, cnt)
}

// subdivide splits the node at idx into four equal child quadrants.
func (t *Tree) subdivide(idx int32) {
	b := t.nodes[idx].bounds
	depth := t.nodes[idx].depth + 1
	hw, hh := b.W/2, b.H/2

	nw := t.newNode(Bounds{X: b.X, Y: b.Y, W: hw, H: hh}, depth)
	ne := t.newNode(Bounds{X: b.X + hw, Y: b.Y, W: hw, H: hh}, depth)
	sw := t.newNode(Bounds{X: b.X, Y: b.Y + hh, W: hw, H: hh}, depth)
	se := t.newNode(Bounds{X: b.X + hw, Y: b.Y + hh, W: hw, H: hh}, depth)

	n := &t.nodes[idx]
	n.children[quadNW] = nw
	n.children[quadNE] = ne
	n.children[quadSW] = sw
	n.children[quadSE] = se
}

// newNode appends an arena entry and returns its index.
func (t *Tree) newNode(b Bounds, depth int) int32 {
	t.nodes = append(t.nodes, treeNode{
		bounds:   b,
		depth:    depth,
		children: [4]int32{-1, -1, -1, -1},
	})
	return int32(len(t.nodes) - 1)
}

// quadrantOf picks the child quadrant containing (x, y). Points exactly on a
// subdivision boundary go east/south; the choice is arbitrary but must be
// deterministic so insertion and lookup agree.
func quadrantOf(b Bounds, x, y float64) int {
	midX := b.X + b.W/2
	midY := b.Y + b.H/2
	if x < midX {
		if y < midY {
			return quadNW
		}
		return quadSW
	}
	if y < midY {
		return quadNE
	}
	return quadSE
}

// =============================================================================
// Force Query
// =============================================================================

func (t *Tree) forceFrom(idx int32, x, y, m, theta, softening, strength float64) (float64, float64) {
	n := &t.nodes[idx]
	if n.count == 0 {
		return 0, 0
	}

	dx := x - n.comX
	dy := y - n.comY
	distSq := dx*dx + dy*dy
	dist := math.Sqrt(distSq)

	// Leaves are exact pairwise interactions. Internal regions far enough
	// away (width/distance < theta) collapse to one evaluation at the
	// center of mass; anything closer recurses into its quadrants.
	if n.leaf() || n.bounds.W/dist < theta {
		if dist < 1e-9 {
			return 0, 0
		}
		f := strength * m * n.mass / (distSq + softening*softening)
		return dx / dist * f, dy / dist * f
	}

	var fx, fy float64
	for _, c := range n.children {
		if c >= 0 {
			cfx, cfy := t.forceFrom(c, x, y, m, theta, softening, strength)
			fx += cfx
			fy += cfy
		}
	}
	return fx, fy
}
