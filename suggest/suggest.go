// Package suggest implements the suggestion engine (spec §4.5): for every
// unmet policy.Signal, propose the cheapest ways to close it — a brand new
// full audit, a delta from an already-trusted version, or (as a last
// resort) an exemption — and, optionally, speculatively apply one to see
// what it would unlock elsewhere (guess-deeper).
//
// Grounded on
// _examples/AppleGamer22-osv-scanner/internal/remediation/in_place.go's
// ComputeInPlacePatches (enumerate version-change candidates that would
// fix a vulnerable node, cost them with an external oracle, prefer the
// cheapest) and on
// _examples/AppleGamer22-osv-scanner/internal/resolution/dependency_chain.go
// for walking dependency edges back toward the packages that need a fix.
package suggest

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/auditvet/auditvet/auditstore"
	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depctx"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/policy"
	"github.com/auditvet/auditvet/version"
)

// Kind identifies what shape of store entry a Candidate would add.
type Kind int

const (
	NewFullAudit Kind = iota
	DeltaFrom
	NewExemption
)

func (k Kind) String() string {
	switch k {
	case NewFullAudit:
		return "full-audit"
	case DeltaFrom:
		return "delta"
	case NewExemption:
		return "exemption"
	default:
		return "unknown"
	}
}

// exemptionPenalty is the fixed cost given to every exemption candidate so
// that a real audit or delta is always preferred. Diff-oracle
// costs are expected to be far smaller than this in practice; the ordering
// only needs exemptions to sort last, not the exact magnitude.
const exemptionPenalty = 1 << 30

// DiffOracle estimates the human review cost of adopting a version. It is
// an external interface: auditvet never fetches or diffs source itself
// (spec §1 places package-source retrieval out of scope), so callers wire
// in whatever diffing tool their ecosystem provides.
type DiffOracle interface {
	// FullReview estimates the cost of auditing pkg@at from scratch.
	FullReview(pkg depgraph.PackageID, at version.Version) (int, error)
	// Delta estimates the cost of reviewing the change from...to.
	Delta(pkg depgraph.PackageID, from, to version.Version) (int, error)
}

// Candidate is one proposed repair.
type Candidate struct {
	Kind    Kind
	Package depgraph.PackageID
	From    version.Version // meaningful only when Kind == DeltaFrom
	To      version.Version
	Missing criteria.Set // the criteria this candidate would supply
	Cost    int
}

// ForSignals groups sig by (package, version) and proposes a ranked
// candidate list, cheapest first, for the combined missing criteria of
// each group. graphs must hold one auditstore.Graph per package named in
// signals (signals commonly span many packages at once, unlike a single
// Resolve call's per-package Reach).
func ForSignals(signals []policy.Signal, u *criteria.Universe, graphs map[depgraph.PackageID]*auditstore.Graph, oracle DiffOracle) ([]Candidate, error) {
	type key struct {
		pkg depgraph.PackageID
		ver string
	}
	grouped := make(map[key]criteria.Set)
	at := make(map[key]version.Version)
	var order []key
	for _, sig := range signals {
		k := key{pkg: sig.Package, ver: sig.Version.Key()}
		if _, ok := grouped[k]; !ok {
			grouped[k] = criteria.Empty(u)
			at[k] = sig.Version
			order = append(order, k)
		}
		need, err := criteria.NewSet(u, sig.Criterion)
		if err != nil {
			return nil, errors.Wrapf(err, "suggest: signal for %s@%s", sig.Package, sig.Version)
		}
		grouped[k] = grouped[k].Union(need)
	}

	var out []Candidate
	for _, k := range order {
		g, ok := graphs[k.pkg]
		if !ok {
			return nil, errors.Errorf("suggest: no audit graph supplied for package %s", k.pkg)
		}
		cs, err := candidatesFor(u, k.pkg, at[k], grouped[k], g, oracle)
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)
	}
	return out, nil
}

func candidatesFor(u *criteria.Universe, pkg depgraph.PackageID, target version.Version, missing criteria.Set, g *auditstore.Graph, oracle DiffOracle) ([]Candidate, error) {
	var out []Candidate

	fullCost, err := oracle.FullReview(pkg, target)
	if err != nil {
		return nil, errors.Wrapf(err, "suggest: full review cost for %s@%s", pkg, target)
	}
	out = append(out, Candidate{Kind: NewFullAudit, Package: pkg, To: target, Missing: missing, Cost: fullCost})

	reach, err := g.Reach(u, auditstore.AlwaysOk)
	if err != nil {
		return nil, err
	}
	for _, v := range g.Versions() {
		have, ok := reach[v.Key()]
		if !ok || v.Equal(target) {
			continue
		}
		if !have.Satisfies(missing) {
			continue
		}
		cost, err := oracle.Delta(pkg, v, target)
		if err != nil {
			return nil, errors.Wrapf(err, "suggest: delta cost for %s %s->%s", pkg, v, target)
		}
		out = append(out, Candidate{Kind: DeltaFrom, Package: pkg, From: v, To: target, Missing: missing, Cost: cost})
	}

	out = append(out, Candidate{Kind: NewExemption, Package: pkg, To: target, Missing: missing, Cost: exemptionPenalty})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost < out[j].Cost
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[j].From.Less(out[i].From)
	})
	return out, nil
}

// Apply adds the store entry a Candidate describes to s (normally a
// Store.Clone(), never the live store a real Resolve call is using).
func Apply(s *auditstore.Store, c Candidate) {
	switch c.Kind {
	case NewFullAudit:
		s.Full[c.Package] = append(s.Full[c.Package], auditstore.FullAudit{
			Package: c.Package, Version: c.To, Criteria: c.Missing,
		})
	case DeltaFrom:
		s.Delta[c.Package] = append(s.Delta[c.Package], auditstore.DeltaAudit{
			Package: c.Package, From: c.From, To: c.To, Criteria: c.Missing,
		})
	case NewExemption:
		s.Exemptions[c.Package] = append(s.Exemptions[c.Package], auditstore.Exemption{
			Package: c.Package, Version: c.To, Criteria: c.Missing, SuggestFlag: true,
		})
	}
}

// GuessDeeper speculatively applies c to a clone of store and re-resolves
// the whole graph, reporting whatever signals remain. It never mutates
// store: each candidate is tried against its own independent clone so
// exploring one repair can't contaminate the score of another
// (SPEC_FULL.md guess-deeper requirement).
func GuessDeeper(c Candidate, g *depgraph.Graph, ctxs map[depgraph.NodeID]depctx.Context, store *auditstore.Store, u *criteria.Universe) (*policy.Report, error) {
	trial := store.Clone()
	Apply(trial, c)
	return policy.Resolve(g, ctxs, trial, u)
}
