package static

import (
	"math"
	"testing"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/errors"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
)

func ptr(v float64) *float64 { return &v }

func TestGrid(t *testing.T) {
	g := graph.Graph{
		Nodes: []graph.Node{
			{ID: "d"}, {ID: "a"}, {ID: "c"}, {ID: "b"},
		},
	}

	layout, err := Grid(g, 100)
	if err != nil {
		t.Fatalf("Grid() = %v", err)
	}

	// Four nodes form a 2x2 grid in ID order.
	want := graph.Positions{
		"a": {X: 0, Y: 0},
		"b": {X: 100, Y: 0},
		"c": {X: 0, Y: 100},
		"d": {X: 100, Y: 100},
	}
	for id, p := range want {
		if got := layout.Positions[id]; got != p {
			t.Errorf("node %s = %+v, want %+v", id, got, p)
		}
	}
	if layout.Algorithm != "grid" {
		t.Errorf("algorithm = %q", layout.Algorithm)
	}
}

func TestGridKeepsPresetPositions(t *testing.T) {
	g := graph.Graph{
		Nodes: []graph.Node{
			{ID: "a", X: ptr(999), Y: ptr(-1)},
			{ID: "b"},
		},
	}
	layout, err := Grid(g, 100)
	if err != nil {
		t.Fatal(err)
	}
	if p := layout.Positions["a"]; p.X != 999 || p.Y != -1 {
		t.Errorf("preset position overwritten: %+v", p)
	}
}

func TestGridRejectsInvalidGraph(t *testing.T) {
	g := graph.Graph{
		Nodes: []graph.Node{{ID: "a"}, {ID: "a"}},
	}
	if _, err := Grid(g, 0); errors.GetCode(err) != errors.ErrCodeDuplicateNode {
		t.Errorf("Grid() = %v, want duplicate_node", err)
	}
}

func TestRadial(t *testing.T) {
	// Star: root in the middle, three leaves on the first ring.
	g := graph.Graph{
		Nodes: []graph.Node{
			{ID: "root"}, {ID: "x"}, {ID: "y"}, {ID: "z"},
		},
		Edges: []graph.Edge{
			{From: "root", To: "x"},
			{From: "root", To: "y"},
			{From: "root", To: "z"},
		},
	}

	layout, err := Radial(g, 200)
	if err != nil {
		t.Fatalf("Radial() = %v", err)
	}

	if p := layout.Positions["root"]; p.X != 0 || p.Y != 0 {
		t.Errorf("root = %+v, want origin", p)
	}
	for _, id := range []string{"x", "y", "z"} {
		p := layout.Positions[id]
		r := math.Hypot(p.X, p.Y)
		if math.Abs(r-200) > 1e-9 {
			t.Errorf("leaf %s at radius %v, want 200", id, r)
		}
	}
}

func TestRadialLayers(t *testing.T) {
	// Chain a->b->c: rings at 0, 1, 2.
	g := graph.Graph{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []graph.Edge{
			{From: "a", To: "b"},
			{From: "b", To: "c"},
		},
	}
	layout, err := Radial(g, 100)
	if err != nil {
		t.Fatal(err)
	}

	wantRadius := map[string]float64{"a": 0, "b": 100, "c": 200}
	for id, want := range wantRadius {
		p := layout.Positions[id]
		if r := math.Hypot(p.X, p.Y); math.Abs(r-want) > 1e-9 {
			t.Errorf("node %s at radius %v, want %v", id, r, want)
		}
	}
}

func TestRadialPureCycle(t *testing.T) {
	// No node without incoming edges; the smallest ID becomes the root.
	g := graph.Graph{
		Nodes: []graph.Node{{ID: "b"}, {ID: "a"}, {ID: "c"}},
		Edges: []graph.Edge{
			{From: "a", To: "b"},
			{From: "b", To: "c"},
			{From: "c", To: "a"},
		},
	}
	layout, err := Radial(g, 100)
	if err != nil {
		t.Fatal(err)
	}

	if p := layout.Positions["a"]; p.X != 0 || p.Y != 0 {
		t.Errorf("cycle root = %+v, want origin", p)
	}
	if len(layout.Positions) != 3 {
		t.Errorf("placed %d nodes, want 3", len(layout.Positions))
	}
}

func TestRadialDisconnected(t *testing.T) {
	g := graph.Graph{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}, {ID: "solo"}},
		Edges: []graph.Edge{{From: "a", To: "b"}},
	}
	layout, err := Radial(g, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(layout.Positions) != 3 {
		t.Fatalf("placed %d nodes, want 3", len(layout.Positions))
	}
}
