// Package static provides deterministic single-pass layouts: a square grid
// and a BFS-based radial arrangement. They are useful as cheap alternatives
// to the force simulation and as initial placements for it.
package static

import (
	"math"
	"sort"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
)

// DefaultSpacing is the distance between adjacent grid cells and between
// concentric radial rings.
const DefaultSpacing = 150.0

// Grid arranges nodes row-major in a near-square grid, ordered by node ID.
// Nodes that already carry a position keep it. Spacing <= 0 means
// DefaultSpacing.
func Grid(g graph.Graph, spacing float64) (graph.Layout, error) {
	if err := graph.Validate(g); err != nil {
		return graph.Layout{}, err
	}
	if spacing <= 0 {
		spacing = DefaultSpacing
	}

	ids := sortedIDs(g)
	cols := int(math.Ceil(math.Sqrt(float64(len(ids)))))

	positions := make(graph.Positions, len(g.Nodes))
	placed := 0
	for _, n := range g.Nodes {
		if n.HasPosition() {
			positions[n.ID] = graph.Point{X: *n.X, Y: *n.Y}
		}
	}
	for _, id := range ids {
		if _, ok := positions[id]; ok {
			continue
		}
		positions[id] = graph.Point{
			X: float64(placed%cols) * spacing,
			Y: float64(placed/cols) * spacing,
		}
		placed++
	}

	return graph.Layout{
		Positions: positions,
		State:     "converged",
		Algorithm: "grid",
	}, nil
}

// Radial arranges nodes in concentric rings around the graph's roots. Roots
// are nodes with no incoming edge; a component without one (a pure cycle)
// falls back to its lexicographically smallest node. Ring k sits at radius
// k*spacing, with each ring's nodes spread evenly by angle.
//
// Unlike Grid, preset positions are ignored: the point of a radial layout is
// the ring structure.
func Radial(g graph.Graph, spacing float64) (graph.Layout, error) {
	if err := graph.Validate(g); err != nil {
		return graph.Layout{}, err
	}
	if spacing <= 0 {
		spacing = DefaultSpacing
	}

	adjacent := make(map[string][]string, len(g.Nodes))
	hasIncoming := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		// Rings follow connectivity, not direction.
		adjacent[e.From] = append(adjacent[e.From], e.To)
		adjacent[e.To] = append(adjacent[e.To], e.From)
		hasIncoming[e.To] = true
	}
	for id := range adjacent {
		sort.Strings(adjacent[id])
	}

	ids := sortedIDs(g)
	depth := make(map[string]int, len(ids))
	visited := make(map[string]bool, len(ids))

	bfs := func(root string) {
		queue := []string{root}
		visited[root] = true
		depth[root] = 0
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range adjacent[cur] {
				if !visited[next] {
					visited[next] = true
					depth[next] = depth[cur] + 1
					queue = append(queue, next)
				}
			}
		}
	}

	// Preferred roots first, then sweep up anything BFS never reached.
	for _, id := range ids {
		if !hasIncoming[id] && !visited[id] {
			bfs(id)
		}
	}
	for _, id := range ids {
		if !visited[id] {
			bfs(id)
		}
	}

	rings := map[int][]string{}
	maxDepth := 0
	for _, id := range ids {
		d := depth[id]
		rings[d] = append(rings[d], id)
		if d > maxDepth {
			maxDepth = d
		}
	}

	positions := make(graph.Positions, len(ids))
	for d := 0; d <= maxDepth; d++ {
		ring := rings[d]
		radius := float64(d) * spacing
		for i, id := range ring {
			angle := 2 * math.Pi * float64(i) / float64(len(ring))
			positions[id] = graph.Point{
				X: radius * math.Cos(angle),
				Y: radius * math.Sin(angle),
			}
		}
	}

	return graph.Layout{
		Positions: positions,
		State:     "converged",
		Algorithm: "radial",
	}, nil
}

func sortedIDs(g graph.Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}
