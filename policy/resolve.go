package policy

import (
	"fmt"
	"sort"

	"github.com/auditvet/auditvet/auditstore"
	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depctx"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

// SignalKind classifies why a node failed to meet its required criteria.
type SignalKind int

const (
	// MissingAudit means the package has no audits, deltas, or exemptions
	// at all: there is nothing for the required criteria to be reached by.
	MissingAudit SignalKind = iota
	// NoPathForCriteria means the package has some audit-graph entries,
	// but no path from ∅ to this version carries the missing criterion.
	NoPathForCriteria
)

func (k SignalKind) String() string {
	switch k {
	case MissingAudit:
		return "missing-audit"
	case NoPathForCriteria:
		return "no-path-for-criteria"
	default:
		return "unknown"
	}
}

// Signal reports one criterion a node was required to meet but didn't.
type Signal struct {
	Node      depgraph.NodeID
	Package   depgraph.PackageID
	Version   version.Version
	Criterion string
	Kind      SignalKind
}

func (s Signal) String() string {
	return fmt.Sprintf("%s@%s: missing %q (%s)", s.Package, s.Version, s.Criterion, s.Kind)
}

// Report is the outcome of a full resolution: every node's required and
// satisfied criteria, and a signal per unmet requirement.
type Report struct {
	Required  map[depgraph.NodeID]criteria.Set
	Satisfied map[depgraph.NodeID]criteria.Set
	Signals   []Signal
}

// OK reports whether every node's requirements were met.
func (r *Report) OK() bool { return len(r.Signals) == 0 }

// defaultSelfCriteria is the policy applied to a node with no explicit
// PolicyEntry.SelfCriteria: safe-to-deploy if the node is ever needed at
// runtime, otherwise (dev-only) safe-to-run is enough.
func defaultSelfCriteria(u *criteria.Universe, ctx depctx.Context) criteria.Set {
	if ctx.NeededForRuntime {
		s, _ := criteria.NewSet(u, criteria.SafeToDeploy)
		return s
	}
	s, _ := criteria.NewSet(u, criteria.SafeToRun)
	return s
}

// downgradeForEdge applies the dev-edge downgrade (spec §4.4,
// depgraph.EdgeKind.IsDev doc): a safe-to-deploy requirement crossing a
// dev-only edge only demands safe-to-run of the far side.
func downgradeForEdge(u *criteria.Universe, need criteria.Set, kind depgraph.EdgeKind) criteria.Set {
	if !kind.IsDev() {
		return need
	}
	if need.Contains(criteria.SafeToRun) {
		runOnly, _ := criteria.NewSet(u, criteria.SafeToRun)
		return runOnly
	}
	return criteria.Empty(u)
}

// Resolve runs the full policy fixpoint over g: top-down required-criteria
// propagation, bottom-up satisfied-criteria propagation against the C2
// audit graphs in s, and collects a Signal for every node whose required
// criteria its satisfied criteria don't cover.
func Resolve(g *depgraph.Graph, ctxs map[depgraph.NodeID]depctx.Context, s *auditstore.Store, u *criteria.Universe) (*Report, error) {
	scc := tarjanSCC(g)

	required := make([]criteria.Set, len(g.Nodes))
	satisfied := make([]criteria.Set, len(g.Nodes))
	for i := range required {
		required[i] = criteria.Empty(u)
		satisfied[i] = criteria.Empty(u)
	}

	policyFor := func(pkg depgraph.PackageID) auditstore.PolicyEntry {
		return s.Policy[pkg]
	}

	// Seed roots with their own (or policy-overridden) self criteria.
	for _, r := range g.Roots {
		n := g.Node(r)
		p := policyFor(n.Package)
		if p.SelfCriteria != nil {
			required[r] = required[r].Union(*p.SelfCriteria)
		} else {
			required[r] = required[r].Union(defaultSelfCriteria(u, ctxs[r]))
		}
	}

	// Build one audit graph per package name up front; the top-down pass
	// consults it for audit-level dependency_criteria overrides, and the
	// bottom-up pass re-runs Reach against it each outer iteration as the
	// global satisfied state grows.
	graphs := make(map[depgraph.PackageID]*auditstore.Graph)
	byPkg := g.ByPackage()
	for pkg := range byPkg {
		graphs[pkg] = auditstore.Build(s, pkg)
	}

	// Top-down: process component-by-component in root-first order. Within
	// an SCC, relax repeatedly since cyclic components can feed each other.
	for _, ci := range scc.topo {
		members := scc.order[ci]
		for {
			changed := false
			for _, v := range members {
				n := g.Node(v)
				p := policyFor(n.Package)
				for _, e := range n.Edges {
					dep := g.Node(e.To)
					var need criteria.Set
					if override, ok := p.PerDependencyCriteria[dep.Package]; ok {
						need = override
					} else if override, ok := graphs[n.Package].DependencyOverridesAt(n.Version, dep.Package); ok {
						need = override
					} else {
						need = downgradeForEdge(u, required[v], e.Kind)
					}
					merged := required[e.To].Union(need)
					if !merged.Equal(required[e.To]) {
						required[e.To] = merged
						changed = true
					}
				}
			}
			if !changed {
				break
			}
		}
	}

	isAudited := func(n *depgraph.Node) bool {
		p := policyFor(n.Package)
		return !n.FirstParty || p.AuditAsThirdParty
	}

	// Bottom-up: process component-by-component in sink-first order so a
	// dependency's satisfied set is as complete as possible before its
	// dependents consult it; within an SCC, relax to a fixpoint.
	for _, members := range scc.order {
		for {
			changed := false
			for _, v := range members {
				n := g.Node(v)
				if !isAudited(n) {
					full := criteria.Full(u)
					if !satisfied[v].Equal(full) {
						satisfied[v] = full
						changed = true
					}
					continue
				}

				pkg := n.Package
				// at names a hop in pkg's own audit-graph history, which need
				// not correspond to any node actually reached from the roots;
				// what must hold is the dependency_criteria against n itself,
				// the real resolved node being checked this iteration.
				checker := func(at version.Version, need map[depgraph.PackageID]criteria.Set) bool {
					for depPkg, want := range need {
						found := false
						for _, e := range n.Edges {
							target := g.Node(e.To)
							if target.Package != depPkg {
								continue
							}
							found = true
							if !satisfied[e.To].Satisfies(want) {
								return false
							}
						}
						if !found {
							continue // dependency not present; vacuously satisfied
						}
					}
					return true
				}

				reach, err := graphs[pkg].Reach(u, checker)
				if err != nil {
					return nil, err
				}
				set, ok := reach[n.Version.Key()]
				if !ok {
					set = criteria.Empty(u)
				}
				merged := satisfied[v].Union(set)
				if !merged.Equal(satisfied[v]) {
					satisfied[v] = merged
					changed = true
				}
			}
			if !changed {
				break
			}
		}
	}

	report := &Report{
		Required:  make(map[depgraph.NodeID]criteria.Set, len(g.Nodes)),
		Satisfied: make(map[depgraph.NodeID]criteria.Set, len(g.Nodes)),
	}
	for _, n := range g.Nodes {
		report.Required[n.ID] = required[n.ID]
		report.Satisfied[n.ID] = satisfied[n.ID]
		if satisfied[n.ID].Satisfies(required[n.ID]) {
			continue
		}
		kind := NoPathForCriteria
		if len(s.Full[n.Package]) == 0 && len(s.Delta[n.Package]) == 0 && len(s.Exemptions[n.Package]) == 0 {
			kind = MissingAudit
		}
		for _, c := range required[n.ID].Names() {
			if satisfied[n.ID].Contains(c) {
				continue
			}
			report.Signals = append(report.Signals, Signal{
				Node: n.ID, Package: n.Package, Version: n.Version, Criterion: c, Kind: kind,
			})
		}
	}
	sort.Slice(report.Signals, func(i, j int) bool {
		a, b := report.Signals[i], report.Signals[j]
		if a.Package != b.Package {
			return a.Package < b.Package
		}
		if !a.Version.Equal(b.Version) {
			return a.Version.Less(b.Version)
		}
		return a.Criterion < b.Criterion
	})

	return report, nil
}
