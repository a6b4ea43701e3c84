package depctx

import (
	"testing"

	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

func v(s string) version.Version { return version.MustParse(s) }

// root(normal)->A(dev)->B ; B is only dev-reachable.
func TestDevOnlyNeverRuntime(t *testing.T) {
	g := &depgraph.Graph{
		Nodes: []depgraph.Node{
			{ID: 0, Package: "root", Version: version.Root, FirstParty: true, Edges: []depgraph.Edge{{To: 1, Kind: depgraph.EdgeNormal}}},
			{ID: 1, Package: "A", Version: v("1.0.0"), Edges: []depgraph.Edge{{To: 2, Kind: depgraph.EdgeDev}}},
			{ID: 2, Package: "B", Version: v("1.0.0")},
		},
		Roots: []depgraph.NodeID{0},
	}
	ctx := Compute(g)
	if ctx[2].NeededForRuntime {
		t.Errorf("B should not be runtime-relevant")
	}
	if !ctx[2].NeededForDevOnly {
		t.Errorf("B should be dev-only")
	}
	if !ctx[1].NeededForRuntime {
		t.Errorf("A should be runtime-relevant")
	}
}

// A node reachable both through a normal edge and, separately, through a
// dev edge is runtime-relevant (NeededForDevOnly is only set when nothing
// else reaches it at runtime).
func TestNodeReachableBothWaysIsRuntime(t *testing.T) {
	g := &depgraph.Graph{
		Nodes: []depgraph.Node{
			{ID: 0, Package: "root", Version: version.Root, FirstParty: true, Edges: []depgraph.Edge{
				{To: 1, Kind: depgraph.EdgeNormal},
				{To: 2, Kind: depgraph.EdgeDev},
			}},
			{ID: 1, Package: "A", Version: v("1.0.0"), Edges: []depgraph.Edge{{To: 2, Kind: depgraph.EdgeNormal}}},
			{ID: 2, Package: "B", Version: v("1.0.0")},
		},
		Roots: []depgraph.NodeID{0},
	}
	ctx := Compute(g)
	if !ctx[2].NeededForRuntime {
		t.Errorf("B is reachable via a normal edge through A, should be runtime-relevant")
	}
	if ctx[2].NeededForDevOnly {
		t.Errorf("B should not additionally be marked dev-only once it's runtime-relevant")
	}
}

func TestCycleDoesNotHang(t *testing.T) {
	g := &depgraph.Graph{
		Nodes: []depgraph.Node{
			{ID: 0, Package: "root", Version: version.Root, FirstParty: true, Edges: []depgraph.Edge{{To: 1, Kind: depgraph.EdgeDev}}},
			{ID: 1, Package: "A", Version: v("1.0.0"), Edges: []depgraph.Edge{{To: 0, Kind: depgraph.EdgeDev}}},
		},
		Roots: []depgraph.NodeID{0},
	}
	ctx := Compute(g)
	if !ctx[1].NeededForDevOnly {
		t.Errorf("A should be dev-only reachable despite the cycle back to root")
	}
}
