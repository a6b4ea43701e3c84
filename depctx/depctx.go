// Package depctx computes the per-node DependencyContext (spec §4.3): two
// DFS passes over the resolved graph classify every node as
// runtime-relevant, dev-only, or both.
//
// Grounded on the teacher's project.go GetDirectDependencyNames, which
// walks reachable imports from the root project to classify direct
// dependencies; here the walk is generalized to the whole transitive graph
// and split into two passes (non-dev edges only, then all edges) instead
// of operating on a single package-tree import list.
package depctx

import "github.com/auditvet/auditvet/depgraph"

// Context is the per-node classification result.
type Context struct {
	NeededForRuntime bool
	NeededForDevOnly bool
}

// Compute runs the two reachability passes described in spec §4.3 and
// returns a context for every node in g.
func Compute(g *depgraph.Graph) map[depgraph.NodeID]Context {
	runtime := reachable(g, false)
	all := reachable(g, true)

	out := make(map[depgraph.NodeID]Context, len(g.Nodes))
	for _, n := range g.Nodes {
		inRuntime := runtime[n.ID]
		out[n.ID] = Context{
			NeededForRuntime: inRuntime,
			NeededForDevOnly: all[n.ID] && !inRuntime,
		}
	}
	return out
}

// reachable performs a DFS from every workspace root. When includeDev is
// false, only non-dev edges are followed (the runtime pass); when true,
// every edge is followed (the dev pass).
func reachable(g *depgraph.Graph, includeDev bool) map[depgraph.NodeID]bool {
	seen := make(map[depgraph.NodeID]bool)
	var stack []depgraph.NodeID
	stack = append(stack, g.Roots...)
	for _, r := range g.Roots {
		seen[r] = true
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := g.Node(id)
		for _, e := range n.Edges {
			if e.Kind.IsDev() && !includeDev {
				continue
			}
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return seen
}
