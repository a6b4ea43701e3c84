package auditstore

import (
	"github.com/pkg/errors"

	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

// vertexNone is the synthetic "∅" vertex every full audit and exemption
// edge originates from (spec §4.2). It is always index 0.
const vertexNone = 0

// edge is one directed assertion in a package's audit graph: full audits
// and exemptions run from the ∅ vertex to their version; deltas run from
// one version to another.
type edge struct {
	from, to           int
	criteria           criteria.Set
	dependencyCriteria map[depgraph.PackageID]criteria.Set
}

// Graph is the per-package audit graph described in spec §4.2: a vertex per
// audited/exempted version plus the synthetic ∅ vertex, and an edge per
// full audit, delta audit, and exemption.
type Graph struct {
	pkg      depgraph.PackageID
	versions []version.Version // versions[0] is unused; real versions start at 1
	index    map[string]int
	edges    []edge
}

// Build constructs the audit graph for pkg from the matching entries of s.
func Build(s *Store, pkg depgraph.PackageID) *Graph {
	g := &Graph{pkg: pkg, index: make(map[string]int), versions: []version.Version{version.Root}}

	vertexFor := func(v version.Version) int {
		key := v.Key()
		if id, ok := g.index[key]; ok {
			return id
		}
		id := len(g.versions)
		g.versions = append(g.versions, v)
		g.index[key] = id
		return id
	}

	for _, a := range s.Full[pkg] {
		to := vertexFor(a.Version)
		g.edges = append(g.edges, edge{from: vertexNone, to: to, criteria: a.Criteria, dependencyCriteria: a.DependencyCriteria})
	}
	for _, d := range s.Delta[pkg] {
		from := vertexFor(d.From)
		to := vertexFor(d.To)
		g.edges = append(g.edges, edge{from: from, to: to, criteria: d.Criteria, dependencyCriteria: d.DependencyCriteria})
	}
	for _, e := range s.Exemptions[pkg] {
		to := vertexFor(e.Version)
		g.edges = append(g.edges, edge{from: vertexNone, to: to, criteria: e.Criteria, dependencyCriteria: e.DependencyCriteria})
	}

	return g
}

// Versions returns every concrete version named by an audit, delta
// endpoint, or exemption in the graph (excluding the synthetic ∅ vertex).
func (g *Graph) Versions() []version.Version {
	return g.versions[1:]
}

// DepsChecker reports whether, given the current global knowledge, the
// dependency requirements in need all hold for the package being
// evaluated at version v. It is supplied by the policy resolver (C4),
// which alone knows the real dependency graph and the criteria each
// dependency node currently satisfies.
type DepsChecker func(at version.Version, need map[depgraph.PackageID]criteria.Set) bool

// maxRelaxations bounds the relaxation loop so a logic error in the
// implication DAG or edge set fails loudly instead of hanging, per spec
// §9's note to guard fixpoint loops with a size-derived iteration cap.
func maxRelaxations(nVertices, nEdges int) int {
	n := (nVertices + 1) * (nEdges + 1)
	if n < 64 {
		n = 64
	}
	return n
}

// Reach computes, for every version in g, the maximum CriteriaSet
// reachable from ∅ given the current dependency knowledge exposed through
// depsOk (spec §4.2):
//
//	reach(∅) = Full(u)
//	reach(V) = ⋃_{edges (U,V,S)} (reach(U) ∩ S), restricted to edges whose
//	           dependency requirements currently hold.
//
// The result is keyed by version.Key().
func (g *Graph) Reach(u *criteria.Universe, depsOk DepsChecker) (map[string]criteria.Set, error) {
	reach := make([]criteria.Set, len(g.versions))
	for i := range reach {
		reach[i] = criteria.Empty(u)
	}
	reach[vertexNone] = criteria.Full(u)

	limit := maxRelaxations(len(g.versions), len(g.edges))
	for iter := 0; ; iter++ {
		if iter > limit {
			return nil, errors.Errorf("auditstore: reach fixpoint for %q did not converge within %d iterations", g.pkg, limit)
		}
		changed := false
		for _, e := range g.edges {
			if !depsOk(g.versions[e.to], e.dependencyCriteria) {
				continue
			}
			candidate := reach[e.from].Intersection(e.criteria)
			merged := reach[e.to].Union(candidate)
			if !merged.Equal(reach[e.to]) {
				reach[e.to] = merged
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	out := make(map[string]criteria.Set, len(g.versions)-1)
	for i := 1; i < len(g.versions); i++ {
		out[g.versions[i].Key()] = reach[i]
	}
	return out, nil
}

// AlwaysOk is a DepsChecker that ignores dependency requirements; useful
// for testing C2 in isolation from the policy resolver.
func AlwaysOk(version.Version, map[depgraph.PackageID]criteria.Set) bool { return true }

// DependencyOverridesAt unions the dependency_criteria declared for depPkg
// by the audit-graph edges that terminate directly at v (spec §4.2's
// audit-level override, as opposed to a PolicyEntry's package-level one):
// v's own full audit or exemption, and any delta whose "to" is v. An edge
// elsewhere in g's history — say, a stale dependency_criteria on some
// older audited version of the same package — has no bearing on what's
// required at v, the resolution-time version actually in the dependency
// graph, so it is not consulted. ok is false if v is unknown to g or
// nothing terminating at v says anything about depPkg.
func (g *Graph) DependencyOverridesAt(v version.Version, depPkg depgraph.PackageID) (want criteria.Set, ok bool) {
	id, known := g.index[v.Key()]
	if !known {
		return want, false
	}
	for _, e := range g.edges {
		if e.to != id {
			continue
		}
		w, has := e.dependencyCriteria[depPkg]
		if !has {
			continue
		}
		if !ok {
			want, ok = w, true
			continue
		}
		want = want.Union(w)
	}
	return want, ok
}
