package graph

// =============================================================================
// Graph - Canvas Graph Serialization
// =============================================================================

// Graph is the canonical serialization format for canvas node-link graphs.
// Used for API requests, storage, caching, and cross-tool compatibility.
//
// The format is human-readable and designed for round-trip fidelity:
// import → layout → export → re-import produces identical structure.
type Graph struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// Node returns the node with the given ID and whether it exists.
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// =============================================================================
// Node
// =============================================================================

// Node is a canvas item supplied to the layout engine as plain data.
// The engine does not know about the richer domain entity (the tree item)
// a node represents.
//
// X and Y are pointers so that "no initial position" is distinguishable from
// position (0, 0); nodes without positions are randomized by the simulation.
type Node struct {
	ID     string         `json:"id" bson:"id"`
	Label  string         `json:"label,omitempty" bson:"label,omitempty"` // Display label (defaults to ID)
	X      *float64       `json:"x,omitempty" bson:"x,omitempty"`
	Y      *float64       `json:"y,omitempty" bson:"y,omitempty"`
	Mass   float64        `json:"mass,omitempty" bson:"mass,omitempty"` // 0 means default (1)
	Pinned bool           `json:"pinned,omitempty" bson:"pinned,omitempty"`
	Meta   map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// HasPosition reports whether the node carries an initial position.
func (n *Node) HasPosition() bool { return n.X != nil && n.Y != nil }

// EffectiveMass returns the node's mass, defaulting to 1 when unset.
func (n *Node) EffectiveMass() float64 {
	if n.Mass > 0 {
		return n.Mass
	}
	return 1
}

// =============================================================================
// Edge
// =============================================================================

// Edge represents a relationship between two nodes. Edges are immutable
// inputs for the duration of a layout pass.
//
// RestLength and Stiffness override the simulation defaults when non-zero.
type Edge struct {
	From       string  `json:"from" bson:"from"`
	To         string  `json:"to" bson:"to"`
	RestLength float64 `json:"rest_length,omitempty" bson:"rest_length,omitempty"`
	Stiffness  float64 `json:"stiffness,omitempty" bson:"stiffness,omitempty"`
}

// =============================================================================
// Positions - Layout Output
// =============================================================================

// Point is a 2D position in layout space.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Positions maps node IDs to computed positions. One snapshot is delivered
// per completed simulation tick.
type Positions map[string]Point

// Clone returns a copy of the position map. Callers rendering from another
// goroutine should hold a clone rather than reading the live map.
func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	for id, pt := range p {
		out[id] = pt
	}
	return out
}

// =============================================================================
// Layout - Finished Run Serialization
// =============================================================================

// Layout is the serialization format for a finished layout run: the position
// snapshot plus the terminal simulation state and summary statistics.
type Layout struct {
	Positions  Positions `json:"positions" bson:"positions"`
	State      string    `json:"state" bson:"state"`
	Iterations int       `json:"iterations" bson:"iterations"`
	Energy     float64   `json:"energy" bson:"energy"`
	GraphHash  string    `json:"graph_hash,omitempty" bson:"graph_hash,omitempty"`
	Algorithm  string    `json:"algorithm,omitempty" bson:"algorithm,omitempty"`
}
