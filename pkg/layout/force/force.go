// Package force provides the pure force model for the canvas layout
// simulation: pairwise repulsion, spring attraction along edges, and an
// optional centering pull.
//
// All functions are stateless and side-effect free; given two points the
// expected force is an exact closed-form value, which keeps them trivially
// testable in isolation. The Barnes-Hut index in package quadtree applies
// the same repulsion formula to aggregated regions.
package force

import "math"

// minDistance guards direction normalization. Two exactly coincident points
// have no defined force direction and contribute nothing to each other.
const minDistance = 1e-9

// Repulsion returns the inverse-square repulsive force on point a exerted by
// a mass aggregate at b:
//
//	F = strength * massA * massB / (d² + softening²)
//
// directed from b toward a. The softening term prevents the force from
// blowing up at near-zero separation.
func Repulsion(ax, ay, massA, bx, by, massB, strength, softening float64) (fx, fy float64) {
	dx := ax - bx
	dy := ay - by
	distSq := dx*dx + dy*dy
	dist := math.Sqrt(distSq)
	if dist < minDistance {
		return 0, 0
	}
	f := strength * massA * massB / (distSq + softening*softening)
	return dx / dist * f, dy / dist * f
}

// Spring returns the Hooke's-law force on point a from an edge to point b:
// proportional to the displacement from the rest length, attractive when the
// edge is stretched and repulsive when compressed past rest length.
func Spring(ax, ay, bx, by, restLength, stiffness float64) (fx, fy float64) {
	dx := bx - ax
	dy := by - ay
	dist := math.Hypot(dx, dy)
	if dist < minDistance {
		return 0, 0
	}
	f := stiffness * (dist - restLength)
	return dx / dist * f, dy / dist * f
}

// Centering returns a gentle pull on (x, y) toward the centroid (cx, cy),
// proportional to the offset. It keeps the graph from drifting unbounded in
// the absence of a rigid frame; strength 0 disables it.
func Centering(x, y, cx, cy, strength float64) (fx, fy float64) {
	return (cx - x) * strength, (cy - y) * strength
}
