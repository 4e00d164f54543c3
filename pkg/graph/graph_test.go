package graph

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/errors"
)

func fptr(v float64) *float64 { return &v }

func TestMarshalGraph(t *testing.T) {
	tests := []struct {
		name      string
		graph     Graph
		wantNodes int
		wantEdges int
		check     func(t *testing.T, g Graph)
	}{
		{
			name:      "Empty",
			graph:     Graph{},
			wantNodes: 0,
			wantEdges: 0,
		},
		{
			name: "Simple",
			graph: Graph{
				Nodes: []Node{{ID: "a"}, {ID: "b"}},
				Edges: []Edge{{From: "a", To: "b"}},
			},
			wantNodes: 2,
			wantEdges: 1,
		},
		{
			name: "SortsNodesByID",
			graph: Graph{
				Nodes: []Node{{ID: "z"}, {ID: "a"}, {ID: "m"}},
			},
			wantNodes: 3,
			wantEdges: 0,
			check: func(t *testing.T, g Graph) {
				if g.Nodes[0].ID != "a" || g.Nodes[1].ID != "m" || g.Nodes[2].ID != "z" {
					t.Errorf("nodes not sorted: %v", g.Nodes)
				}
			},
		},
		{
			name: "PreservesPhysicsFields",
			graph: Graph{
				Nodes: []Node{{ID: "a", X: fptr(10), Y: fptr(-5), Mass: 2.5, Pinned: true}},
			},
			wantNodes: 1,
			wantEdges: 0,
			check: func(t *testing.T, g Graph) {
				n := g.Nodes[0]
				if !n.HasPosition() || *n.X != 10 || *n.Y != -5 {
					t.Errorf("position not preserved: %+v", n)
				}
				if n.Mass != 2.5 {
					t.Errorf("mass = %v, want 2.5", n.Mass)
				}
				if !n.Pinned {
					t.Error("pinned flag not preserved")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalGraph(tt.graph)
			if err != nil {
				t.Fatalf("MarshalGraph: %v", err)
			}

			var result Graph
			if err := json.Unmarshal(data, &result); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if got := len(result.Nodes); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := len(result.Edges); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}

			if tt.check != nil {
				tt.check(t, result)
			}
		})
	}
}

func TestReadGraph(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		wantEdges int
		wantErr   bool
		wantCode  errors.Code
	}{
		{
			name: "Valid",
			input: `{
				"nodes": [
					{"id": "A", "x": 1, "y": 2},
					{"id": "B", "pinned": true}
				],
				"edges": [
					{"from": "A", "to": "B", "rest_length": 50}
				]
			}`,
			wantNodes: 2,
			wantEdges: 1,
		},
		{
			name:      "Empty",
			input:     `{"nodes": [], "edges": []}`,
			wantNodes: 0,
			wantEdges: 0,
		},
		{
			name:    "InvalidJSON",
			input:   `{invalid json}`,
			wantErr: true,
		},
		{
			name: "DanglingEdge",
			input: `{
				"nodes": [{"id": "A"}],
				"edges": [{"from": "A", "to": "ghost"}]
			}`,
			wantErr:  true,
			wantCode: errors.ErrCodeDanglingEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadGraph(strings.NewReader(tt.input))

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.wantCode != "" && !errors.Is(err, tt.wantCode) {
					t.Errorf("error code = %s, want %s", errors.GetCode(err), tt.wantCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("ReadGraph: %v", err)
			}
			if got := g.NodeCount(); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := g.EdgeCount(); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}
		})
	}
}

func TestReadGraphFile(t *testing.T) {
	content := `{"nodes": [{"id": "A"}], "edges": []}`

	dir := t.TempDir()
	path := filepath.Join(dir, "test.json")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	g, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile: %v", err)
	}
	if g.NodeCount() != 1 {
		t.Errorf("nodes = %d, want 1", g.NodeCount())
	}
}

func TestReadGraphFileNotFound(t *testing.T) {
	_, err := ReadGraphFile("nonexistent.json")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	l := Layout{
		Positions:  Positions{"a": {X: 1.5, Y: -2.5}, "b": {X: 0, Y: 10}},
		State:      "converged",
		Iterations: 42,
		Energy:     0.0005,
		GraphHash:  "abc123",
		Algorithm:  "force",
	}

	var buf bytes.Buffer
	data, err := MarshalLayout(l)
	if err != nil {
		t.Fatalf("MarshalLayout: %v", err)
	}
	buf.Write(data)

	got, err := UnmarshalLayout(buf.Bytes())
	if err != nil {
		t.Fatalf("UnmarshalLayout: %v", err)
	}

	if got.State != l.State || got.Iterations != l.Iterations {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Positions["a"] != l.Positions["a"] {
		t.Errorf("positions mismatch: %+v", got.Positions)
	}
}

func TestPositionsClone(t *testing.T) {
	p := Positions{"a": {X: 1, Y: 2}}
	c := p.Clone()
	c["a"] = Point{X: 9, Y: 9}

	if p["a"].X != 1 {
		t.Error("clone mutated the original")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		graph    Graph
		wantCode errors.Code // empty means valid
	}{
		{
			name:  "Valid",
			graph: Graph{Nodes: []Node{{ID: "a"}, {ID: "b"}}, Edges: []Edge{{From: "a", To: "b"}}},
		},
		{
			name:     "EmptyNodeID",
			graph:    Graph{Nodes: []Node{{ID: ""}}},
			wantCode: errors.ErrCodeInvalidGraph,
		},
		{
			name:     "DuplicateNodeID",
			graph:    Graph{Nodes: []Node{{ID: "a"}, {ID: "a"}}},
			wantCode: errors.ErrCodeDuplicateNode,
		},
		{
			name:     "DanglingFrom",
			graph:    Graph{Nodes: []Node{{ID: "a"}}, Edges: []Edge{{From: "ghost", To: "a"}}},
			wantCode: errors.ErrCodeDanglingEdge,
		},
		{
			name:     "DanglingTo",
			graph:    Graph{Nodes: []Node{{ID: "a"}}, Edges: []Edge{{From: "a", To: "ghost"}}},
			wantCode: errors.ErrCodeDanglingEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.graph)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestValidateNamesDanglingReference(t *testing.T) {
	g := Graph{Nodes: []Node{{ID: "a"}}, Edges: []Edge{{From: "a", To: "ghost"}}}
	err := Validate(g)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error should name the dangling reference: %v", err)
	}
}
