// Package auditstore holds the audit-graph domain types (spec §3 data
// model: FullAudit, DeltaAudit, Exemption, PolicyEntry) and the per-package
// reachability fixpoint described in spec §4.2.
//
// Grounded on the teacher's solver.go for the general shape of "assertions
// that jointly decide whether a version is acceptable", but the CDCL
// backtracking search itself is not ported: spec §8's Monotonicity property
// means a version's reachable CriteriaSet only ever grows as more audits,
// deltas, and exemptions are considered, so a simple relaxation loop
// (see graph.go) converges to the same fixpoint a SAT-style solver would
// have to search for.
package auditstore

import (
	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

// FullAudit asserts that, at Version, Package meets Criteria, provided each
// dependency named in DependencyCriteria itself meets the listed criteria.
type FullAudit struct {
	Package            depgraph.PackageID
	Version            version.Version
	Criteria           criteria.Set
	DependencyCriteria map[depgraph.PackageID]criteria.Set
	Who                string
	Notes              string
}

// DeltaAudit asserts that upgrading Package from From to To preserves
// Criteria (and, transitively, whatever From already satisfies), again
// conditioned on DependencyCriteria.
type DeltaAudit struct {
	Package            depgraph.PackageID
	From               version.Version
	To                 version.Version
	Criteria           criteria.Set
	DependencyCriteria map[depgraph.PackageID]criteria.Set
	Who                string
	Notes              string
}

// Exemption is a human-asserted, unreviewed claim that Package at Version
// meets Criteria. Exemptions behave like full audits for reachability
// purposes but are tracked separately so they can be minimized (C6) and
// flagged for suggestion (C5) via SuggestFlag.
type Exemption struct {
	Package            depgraph.PackageID
	Version            version.Version
	Criteria           criteria.Set
	DependencyCriteria map[depgraph.PackageID]criteria.Set
	SuggestFlag        bool
	Notes              string
}

// PolicyEntry overrides the criteria required of a package (spec §4.4). A
// nil SelfCriteria means "use the default policy for this package's role in
// the graph" (safe-to-deploy if runtime-relevant, else safe-to-run); the
// resolver seeds self criteria only at workspace roots.
type PolicyEntry struct {
	SelfCriteria          *criteria.Set
	PerDependencyCriteria map[depgraph.PackageID]criteria.Set
	AuditAsThirdParty     bool
}

// Store is the full collection of audits, deltas, and exemptions loaded for
// a resolution, grouped by package name for C2's per-package graphs.
type Store struct {
	Full       map[depgraph.PackageID][]FullAudit
	Delta      map[depgraph.PackageID][]DeltaAudit
	Exemptions map[depgraph.PackageID][]Exemption
	Policy     map[depgraph.PackageID]PolicyEntry
}

// NewStore builds an empty Store ready to be populated by the persistent
// store loader.
func NewStore() *Store {
	return &Store{
		Full:       make(map[depgraph.PackageID][]FullAudit),
		Delta:      make(map[depgraph.PackageID][]DeltaAudit),
		Exemptions: make(map[depgraph.PackageID][]Exemption),
		Policy:     make(map[depgraph.PackageID]PolicyEntry),
	}
}

// Clone returns a deep-enough copy of s that appending to the clone's
// per-package slices never mutates s. Used by the suggestion engine's
// guess-deeper mode (SPEC_FULL.md) to speculatively try a candidate repair
// without contaminating the audit graph other candidates are scored against.
func (s *Store) Clone() *Store {
	out := NewStore()
	for pkg, v := range s.Full {
		out.Full[pkg] = append([]FullAudit(nil), v...)
	}
	for pkg, v := range s.Delta {
		out.Delta[pkg] = append([]DeltaAudit(nil), v...)
	}
	for pkg, v := range s.Exemptions {
		out.Exemptions[pkg] = append([]Exemption(nil), v...)
	}
	for pkg, v := range s.Policy {
		out.Policy[pkg] = v
	}
	return out
}
