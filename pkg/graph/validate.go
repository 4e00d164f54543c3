package graph

import (
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/errors"
)

// Validate checks graph structure before a layout pass begins.
//
// It rejects:
//   - nodes with empty IDs
//   - duplicate node IDs
//   - edges referencing node IDs not present in the node list (the dangling
//     reference is named in the error)
//
// A graph that fails validation never starts a run; the caller must fix the
// input. Validation is not retried automatically.
func Validate(g Graph) error {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return errors.New(errors.ErrCodeInvalidGraph, "node ID must not be empty")
		}
		if _, exists := ids[n.ID]; exists {
			return errors.New(errors.ErrCodeDuplicateNode, "duplicate node ID %q", n.ID)
		}
		ids[n.ID] = struct{}{}
	}

	for _, e := range g.Edges {
		if _, ok := ids[e.From]; !ok {
			return errors.New(errors.ErrCodeDanglingEdge,
				"edge %s→%s references unknown node %q", e.From, e.To, e.From)
		}
		if _, ok := ids[e.To]; !ok {
			return errors.New(errors.ErrCodeDanglingEdge,
				"edge %s→%s references unknown node %q", e.From, e.To, e.To)
		}
	}
	return nil
}
