// Package minimize implements the exemption minimizer (spec §4.6, C6):
// drop any exemption a package's real audits and deltas already make
// redundant, and narrow the rest to just the criteria nothing else covers.
//
// Grounded directly on the teacher's project.go FindIneffectualConstraints
// ("find declarations that have no effect, reported in a stable sorted
// order") — the same shape, applied to exemptions instead of manifest
// version constraints.
package minimize

import (
	"sort"

	"github.com/auditvet/auditvet/auditstore"
	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depctx"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/policy"
	"github.com/auditvet/auditvet/version"
)

// Outcome classifies what happened to one exemption.
type Outcome int

const (
	Kept Outcome = iota
	Narrowed
	Removed
)

func (o Outcome) String() string {
	switch o {
	case Kept:
		return "kept"
	case Narrowed:
		return "narrowed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change records what the minimizer did to one original exemption.
type Change struct {
	Package  depgraph.PackageID
	Version  version.Version
	Original criteria.Set
	Outcome  Outcome
	// Remaining is the narrowed criteria set; only meaningful when
	// Outcome == Narrowed.
	Remaining criteria.Set
}

// Minimize returns a new Store with every package's exemptions reduced to
// their minimal form, plus a sorted Change log. g and ctxs are the real
// dependency graph a redundancy test must hold up against: spec §8's
// minimizer-correctness property ("if R passes with exemption set E, R
// also passes with minimize(E)") is a statement about the whole graph, so
// the full policy resolver (C4) runs once up front for a baseline, and
// each exemption is then judged by a per-package reach check whose
// dependency_criteria are tested against what the real graph nodes'
// dependencies satisfy in that baseline.
func Minimize(g *depgraph.Graph, ctxs map[depgraph.NodeID]depctx.Context, s *auditstore.Store, u *criteria.Universe) (*auditstore.Store, []Change, error) {
	out := s.Clone()
	var changes []Change

	baseline, err := policy.Resolve(g, ctxs, s, u)
	if err != nil {
		return nil, nil, err
	}

	// Real graph nodes, keyed by package, so any audit-graph hop being
	// tested for pkg can be checked against what pkg's actual occurrence(s)
	// in the live graph need from their dependencies — regardless of
	// whether that hop's own version happens to coincide with a resolved
	// node. It usually doesn't: most hops in a delta chain are intermediate
	// provenance, not versions anything in g resolves to.
	nodesByPkg := make(map[depgraph.PackageID][]depgraph.NodeID)
	for _, n := range g.Nodes {
		nodesByPkg[n.Package] = append(nodesByPkg[n.Package], n.ID)
	}

	var pkgs []depgraph.PackageID
	for pkg := range s.Exemptions {
		pkgs = append(pkgs, pkg)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i] < pkgs[j] })

	for _, pkg := range pkgs {
		remaining := append([]auditstore.Exemption(nil), s.Exemptions[pkg]...)
		sort.SliceStable(remaining, func(i, j int) bool {
			return remaining[i].Version.Less(remaining[j].Version)
		})

		checker := dependencyChecker(g, baseline, nodesByPkg[pkg])

		pkgChanges, minimized, err := minimizePackage(s, pkg, remaining, u, checker)
		if err != nil {
			return nil, nil, err
		}
		out.Exemptions[pkg] = minimized
		changes = append(changes, pkgChanges...)
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Package != changes[j].Package {
			return changes[i].Package < changes[j].Package
		}
		return changes[i].Version.Less(changes[j].Version)
	})
	return out, changes, nil
}

// dependencyChecker builds the DepsChecker a package's minimization pass
// reaches with: whatever hop in pkg's own audit-graph history is being
// tested, every dependency it names must actually satisfy what's needed
// against pkg's real occurrence(s) in g, per baseline, the whole-graph
// resolution computed before any exemption was dropped. The hop's own
// version (at) is deliberately not consulted — it names a point in pkg's
// audit provenance, not a claim about which version of pkg is live in the
// dependency graph, and most hops in a delta chain don't correspond to any
// resolved node at all.
func dependencyChecker(g *depgraph.Graph, baseline *policy.Report, nodeIDs []depgraph.NodeID) auditstore.DepsChecker {
	return func(_ version.Version, need map[depgraph.PackageID]criteria.Set) bool {
		for _, nodeID := range nodeIDs {
			n := g.Node(nodeID)
			for depPkg, want := range need {
				found := false
				for _, e := range n.Edges {
					target := g.Node(e.To)
					if target.Package != depPkg {
						continue
					}
					found = true
					if !baseline.Satisfied[e.To].Satisfies(want) {
						return false
					}
				}
				if !found {
					continue // dependency not present on this node; vacuously satisfied
				}
			}
		}
		return true
	}
}

// minimizePackage relaxes to a fixpoint: each full pass tries to drop or
// narrow every surviving exemption against the audit graph formed by
// everything else (full audits, deltas, and the other exemptions), using
// checker to hold candidate paths to the same dependency_criteria gating
// the real policy resolver enforces; it repeats until a pass makes no
// further change.
func minimizePackage(s *auditstore.Store, pkg depgraph.PackageID, exemptions []auditstore.Exemption, u *criteria.Universe, checker auditstore.DepsChecker) ([]Change, []auditstore.Exemption, error) {
	var allChanges []Change
	for {
		changedThisPass := false
		var next []auditstore.Exemption

		for i, e := range exemptions {
			others := make([]auditstore.Exemption, 0, len(exemptions)-1)
			others = append(others, exemptions[:i]...)
			others = append(others, exemptions[i+1:]...)

			trial := auditstore.NewStore()
			trial.Full[pkg] = s.Full[pkg]
			trial.Delta[pkg] = s.Delta[pkg]
			trial.Exemptions[pkg] = others
			g := auditstore.Build(trial, pkg)

			reach, err := g.Reach(u, checker)
			if err != nil {
				return nil, nil, err
			}
			have, ok := reach[e.Version.Key()]
			if !ok {
				have = criteria.Empty(u)
			}

			switch {
			case have.Satisfies(e.Criteria):
				allChanges = append(allChanges, Change{Package: pkg, Version: e.Version, Original: e.Criteria, Outcome: Removed})
				changedThisPass = true
				// drop e entirely
			case have.IsEmpty():
				next = append(next, e)
			default:
				remainder := subtract(u, e.Criteria, have)
				if remainder.Equal(e.Criteria) {
					next = append(next, e)
					continue
				}
				narrowed := e
				narrowed.Criteria = remainder
				next = append(next, narrowed)
				allChanges = append(allChanges, Change{
					Package: pkg, Version: e.Version, Original: e.Criteria,
					Outcome: Narrowed, Remaining: remainder,
				})
				changedThisPass = true
			}
		}

		exemptions = next
		if !changedThisPass {
			return dedupeLastChangePerVersion(allChanges), exemptions, nil
		}
	}
}

// subtract returns the closed set of criteria in want that have are not
// already a closed subset of. Since neither want\have is generally closed
// on its own, the result is rebuilt from names and re-closed.
func subtract(u *criteria.Universe, want, have criteria.Set) criteria.Set {
	var names []string
	for _, n := range want.Names() {
		if !have.Contains(n) {
			names = append(names, n)
		}
	}
	s, _ := criteria.NewSet(u, names...)
	return s
}

// dedupeLastChangePerVersion keeps only the final recorded change per
// (package, version): a narrowed exemption might be narrowed again in a
// later pass, and only the last narrowing (against the fully-settled rest
// of the package's exemptions) is meaningful to report.
func dedupeLastChangePerVersion(changes []Change) []Change {
	last := make(map[string]Change)
	var order []string
	for _, c := range changes {
		key := string(c.Package) + "@" + c.Version.Key()
		if _, ok := last[key]; !ok {
			order = append(order, key)
		}
		last[key] = c
	}
	out := make([]Change, 0, len(order))
	for _, key := range order {
		out = append(out, last[key])
	}
	return out
}
