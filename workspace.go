package auditvet

import (
	"github.com/auditvet/auditvet/auditstore"
	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depctx"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/policy"
	"github.com/auditvet/auditvet/store"
)

// Workspace is a loaded audit store plus its filesystem location,
// analogous to the teacher's Project (AbsRoot + parsed Manifest/Lock).
type Workspace struct {
	Root     string
	Universe *criteria.Universe
	Store    *auditstore.Store
	Config   *store.Config
	Lock     *store.Lock // nil if imports.lock doesn't exist yet
}

// NewWorkspace constructs a Workspace directly from already-loaded parts,
// bypassing LoadWorkspace's filesystem walk. Used by tests and by callers
// that already have a parsed store (e.g. after store.LoadAudits).
func NewWorkspace(root string, u *criteria.Universe, s *auditstore.Store, cfg *store.Config, lock *store.Lock) *Workspace {
	if cfg == nil {
		cfg = &store.Config{}
	}
	return &Workspace{Root: root, Universe: u, Store: s, Config: cfg, Lock: lock}
}

// buildGraphs returns one auditstore.Graph per package named in g.
func buildGraphs(s *auditstore.Store, g *depgraph.Graph) map[depgraph.PackageID]*auditstore.Graph {
	out := make(map[depgraph.PackageID]*auditstore.Graph)
	for pkg := range g.ByPackage() {
		out[pkg] = auditstore.Build(s, pkg)
	}
	return out
}

// Vet resolves policy over g against w's store and returns the report.
// It does not touch the filesystem.
func Vet(w *Workspace, g *depgraph.Graph) (*policy.Report, error) {
	ctxs := depctx.Compute(g)
	return policy.Resolve(g, ctxs, w.Store, w.Universe)
}

// stripMovableExemptions returns a clone of s with every exemption whose
// SuggestFlag is true dropped. An exemption with suggest_flag=false is a
// deliberate, immovable policy decision; one with suggest_flag=true is a
// stopgap that the suggestion engine must see through, not count as
// satisfied, or treat as a reachable version to delta from.
func stripMovableExemptions(s *auditstore.Store) *auditstore.Store {
	out := s.Clone()
	for pkg, exemptions := range out.Exemptions {
		kept := exemptions[:0:0]
		for _, e := range exemptions {
			if e.SuggestFlag {
				continue
			}
			kept = append(kept, e)
		}
		out.Exemptions[pkg] = kept
	}
	return out
}
