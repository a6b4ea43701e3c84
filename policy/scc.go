// Package policy implements the policy resolver (spec §4.4): propagating
// required criteria down the dependency graph, propagating satisfied
// criteria up from the audit graphs (C2), and reporting every node where
// the two disagree.
package policy

import "github.com/auditvet/auditvet/depgraph"

// sccResult is the strongly-connected-component condensation of a graph,
// used to process required/satisfied propagation a whole cycle at a time
// instead of node by node.
type sccResult struct {
	comp     []int     // comp[nodeID] = component index
	order    [][]depgraph.NodeID
	topo     []int     // component indices in topological order, root-first (dependents before their dependencies)
	children [][]int    // children[c] = component indices c has edges into
}

// tarjanSCC computes strongly-connected components of g using Tarjan's
// algorithm. Standard-library-only: the graphs involved are small
// in-memory structures local to one resolution, and no pack dependency
// offers a generic SCC routine worth the import for the ~80 lines this
// takes (see DESIGN.md).
func tarjanSCC(g *depgraph.Graph) *sccResult {
	n := len(g.Nodes)
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	visited := make([]bool, n)
	var stack []depgraph.NodeID
	var order [][]depgraph.NodeID
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}
	next := 0

	var strongconnect func(v depgraph.NodeID)
	strongconnect = func(v depgraph.NodeID) {
		index[v] = next
		lowlink[v] = next
		next++
		visited[v] = true
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range g.Node(v).Edges {
			w := e.To
			if !visited[w] {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var members []depgraph.NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp[w] = len(order)
				members = append(members, w)
				if w == v {
					break
				}
			}
			order = append(order, members)
		}
	}

	for v := 0; v < n; v++ {
		if !visited[v] {
			strongconnect(depgraph.NodeID(v))
		}
	}

	children := make([][]int, len(order))
	seen := make(map[[2]int]bool)
	for _, node := range g.Nodes {
		for _, e := range node.Edges {
			from, to := comp[node.ID], comp[e.To]
			if from == to {
				continue
			}
			key := [2]int{from, to}
			if !seen[key] {
				seen[key] = true
				children[from] = append(children[from], to)
			}
		}
	}

	// Tarjan emits components in reverse topological order (a component is
	// closed off only after everything it can reach has been): order[0] is
	// a sink of the condensation DAG, order[len-1] contains the roots'
	// component. topo lists component indices root-first.
	topo := make([]int, len(order))
	for i := range order {
		topo[i] = len(order) - 1 - i
	}

	return &sccResult{comp: comp, order: order, topo: topo, children: children}
}
