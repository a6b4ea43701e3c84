package auditvet

import (
	"sort"

	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/policy"
	"github.com/auditvet/auditvet/store"
)

// Certify runs Vet and, if it passes, computes the imports.lock that
// should be written to record this resolution: one entry per resolved
// node plus a criteria-hash for every currently declared criterion, so a
// future `vet --locked` run can detect whether the criteria lattice (and
// therefore the meaning of every past audit) has shifted underneath it
// (SPEC_FULL.md supplement 1, accept-criteria-change).
func Certify(w *Workspace, g *depgraph.Graph) (*policy.Report, *store.Lock, error) {
	report, err := Vet(w, g)
	if err != nil {
		return nil, nil, err
	}
	if !report.OK() {
		return report, nil, nil
	}

	declared := w.Universe.Declared()
	lock := &store.Lock{CriteriaHashes: store.CriteriaHashes(declared)}
	seen := make(map[string]bool)
	for _, n := range g.Nodes {
		key := string(n.Package) + "@" + n.Version.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		lock.Packages = append(lock.Packages, store.LockedPackage{Package: n.Package, Version: n.Version})
	}
	sort.Slice(lock.Packages, func(i, j int) bool { return lock.Packages[i].Package < lock.Packages[j].Package })

	return report, lock, nil
}

// CheckLocked reports whether w.Lock (if present) still matches the
// criteria declared in w.Universe. A non-empty return means
// accept-criteria-change is required before `vet --locked` can trust the
// existing lock.
func CheckLocked(w *Workspace) []string {
	if w.Lock == nil {
		return nil
	}
	return w.Lock.CriteriaChanged(w.Universe.Declared())
}
