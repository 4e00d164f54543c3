package render

import (
	"strings"
	"testing"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
)

func testGraph() graph.Graph {
	return graph.Graph{
		Nodes: []graph.Node{
			{ID: "a", Label: "Alpha", Meta: map[string]any{"kind": "task"}},
			{ID: "b"},
			{ID: "pinned", Pinned: true},
		},
		Edges: []graph.Edge{
			{From: "a", To: "b"},
			{From: "b", To: "pinned"},
		},
	}
}

func TestToDOT(t *testing.T) {
	positions := graph.Positions{
		"a":      {X: 0, Y: 0},
		"b":      {X: 72, Y: 144},
		"pinned": {X: -72, Y: 0},
	}
	dot := ToDOT(testGraph(), positions, Options{})

	checks := []string{
		"digraph G {",
		"layout=neato;",
		`"a" [label="Alpha", pos="0.000,-0.000!"]`,
		`"b" [label="b", pos="1.000,-2.000!"]`, // y axis flipped
		`"pinned" [label="pinned", pos="-1.000,-0.000!", style="rounded,filled,bold"]`,
		`"a" -> "b";`,
		`"b" -> "pinned";`,
	}
	for _, want := range checks {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTWithoutPositions(t *testing.T) {
	dot := ToDOT(testGraph(), nil, Options{})
	if strings.Contains(dot, "pos=") {
		t.Errorf("DOT should have no pos attributes without positions:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(testGraph(), nil, Options{Detailed: true})
	if !strings.Contains(dot, "kind: task") {
		t.Errorf("detailed DOT missing metadata:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="8pt" height="6pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg">body</svg>`)
	out := string(normalizeViewBox(in))

	if !strings.Contains(out, `viewBox="0 0 100.00 50.00"`) {
		t.Errorf("viewBox not normalized: %s", out)
	}
	if !strings.Contains(out, `width="100" height="50"`) {
		t.Errorf("dimensions not set: %s", out)
	}

	// SVG without a viewBox passes through untouched.
	plain := []byte("<svg>x</svg>")
	if got := string(normalizeViewBox(plain)); got != "<svg>x</svg>" {
		t.Errorf("passthrough changed: %s", got)
	}
}
