package auditvet

import (
	"github.com/auditvet/auditvet/auditstore"
	"github.com/auditvet/auditvet/depctx"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/minimize"
)

// MinimizeExemptions runs the exemption-redundancy fixpoint (C6) over w's
// store against g, returning a new Store with every removable exemption
// dropped and every partially-redundant one narrowed, plus the list of
// changes made. w.Store itself is untouched; callers that want to keep the
// result call w.ReplaceStore with the returned Store before saving.
func MinimizeExemptions(w *Workspace, g *depgraph.Graph) (*auditstore.Store, []minimize.Change, error) {
	ctxs := depctx.Compute(g)
	return minimize.Minimize(g, ctxs, w.Store, w.Universe)
}
