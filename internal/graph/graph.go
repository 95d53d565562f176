// Package graph computes the execution order of a workflow's node graph.
package graph

import (
	"github.com/weftlabs/weft/pkg/api"
)

// Order returns the nodes in topological order over the given connections.
//
// Semantics:
//   - If connections is empty, nodes is returned verbatim: the input order
//     is already a valid, degenerate order.
//   - A node that appears in no connection is still included; a node with
//     zero connections must still run.
//   - Self-edges (from == to) only assert a node's presence and are never
//     treated as cycles.
//   - Edges referencing unknown node ids are ignored.
//   - Any real cycle yields *api.CycleError and no partial order.
//
// Ordering is deterministic: Kahn's algorithm with the ready queue kept in
// first-seen input order, so nodes with no mutual constraint keep their
// original relative order. UI rendering and tests depend on this being
// reproducible.
func Order(nodes []api.Node, connections []api.Connection) ([]api.Node, error) {
	if len(connections) == 0 {
		return nodes, nil
	}

	known := make(map[string]int, len(nodes))
	for i, n := range nodes {
		known[n.ID] = i
	}

	indegree := make(map[string]int, len(nodes))
	out := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		indegree[n.ID] = 0
	}
	seen := make(map[api.Connection]bool, len(connections))
	for _, c := range connections {
		if c.FromNodeID == c.ToNodeID {
			continue
		}
		if _, ok := known[c.FromNodeID]; !ok {
			continue
		}
		if _, ok := known[c.ToNodeID]; !ok {
			continue
		}
		// Fan-in may deliver the same edge twice; count it once.
		if seen[c] {
			continue
		}
		seen[c] = true
		out[c.FromNodeID] = append(out[c.FromNodeID], c.ToNodeID)
		indegree[c.ToNodeID]++
	}

	// Seed the ready queue in input order, not map order.
	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	ordered := make([]api.Node, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ordered = append(ordered, nodes[known[id]])
		for _, succ := range out[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(ordered) != len(nodes) {
		return nil, &api.CycleError{}
	}
	return ordered, nil
}
