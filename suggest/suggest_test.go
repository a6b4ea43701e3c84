package suggest

import (
	"testing"

	"github.com/auditvet/auditvet/auditstore"
	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depctx"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/policy"
	"github.com/auditvet/auditvet/version"
)

type fakeOracle struct {
	full  int
	delta int
}

func (f fakeOracle) FullReview(depgraph.PackageID, version.Version) (int, error) { return f.full, nil }
func (f fakeOracle) Delta(depgraph.PackageID, version.Version, version.Version) (int, error) {
	return f.delta, nil
}

const pkg depgraph.PackageID = "acme"

func universe(t *testing.T) *criteria.Universe {
	t.Helper()
	u, err := criteria.NewUniverse(nil)
	if err != nil {
		t.Fatalf("NewUniverse: %v", err)
	}
	return u
}

// A package with no existing audits at all offers only a new full audit
// and an exemption — no version exists yet to delta from.
func TestForSignalsNoExistingVersions(t *testing.T) {
	u := universe(t)
	s := auditstore.NewStore()
	g := auditstore.Build(s, pkg)

	sig := policy.Signal{Package: pkg, Version: version.MustParse("1.0.0"), Criterion: criteria.SafeToRun}
	graphs := map[depgraph.PackageID]*auditstore.Graph{pkg: g}
	cands, err := ForSignals([]policy.Signal{sig}, u, graphs, fakeOracle{full: 100, delta: 10})
	if err != nil {
		t.Fatalf("ForSignals: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected full-audit + exemption, got %d: %+v", len(cands), cands)
	}
	if cands[0].Kind != NewFullAudit {
		t.Errorf("cheapest candidate should be the full audit, got %v", cands[0].Kind)
	}
	if cands[len(cands)-1].Kind != NewExemption {
		t.Errorf("exemption should sort last, got %v", cands[len(cands)-1].Kind)
	}
}

// When a cheaper already-trusted version exists, its delta should be
// offered and, being cheaper than a full review, should rank first.
func TestForSignalsPrefersCheaperDelta(t *testing.T) {
	u := universe(t)
	s := auditstore.NewStore()
	run, _ := criteria.NewSet(u, criteria.SafeToRun)
	s.Full[pkg] = []auditstore.FullAudit{{Package: pkg, Version: version.MustParse("1.0.0"), Criteria: run}}
	g := auditstore.Build(s, pkg)

	sig := policy.Signal{Package: pkg, Version: version.MustParse("1.1.0"), Criterion: criteria.SafeToRun}
	graphs := map[depgraph.PackageID]*auditstore.Graph{pkg: g}
	cands, err := ForSignals([]policy.Signal{sig}, u, graphs, fakeOracle{full: 100, delta: 5})
	if err != nil {
		t.Fatalf("ForSignals: %v", err)
	}
	if cands[0].Kind != DeltaFrom {
		t.Errorf("the cheap delta from 1.0.0 should rank first, got %+v", cands[0])
	}
	if !cands[0].From.Equal(version.MustParse("1.0.0")) {
		t.Errorf("delta From = %s, want 1.0.0", cands[0].From)
	}
}

// Signals spanning more than one package must be scored against each
// package's own audit graph, not a single shared one.
func TestForSignalsAcrossMultiplePackages(t *testing.T) {
	u := universe(t)
	const other depgraph.PackageID = "widget"

	sRun, _ := criteria.NewSet(u, criteria.SafeToRun)
	sAcme := auditstore.NewStore()
	sAcme.Full[pkg] = []auditstore.FullAudit{{Package: pkg, Version: version.MustParse("1.0.0"), Criteria: sRun}}

	sWidget := auditstore.NewStore()
	sWidget.Full[other] = []auditstore.FullAudit{{Package: other, Version: version.MustParse("9.0.0"), Criteria: sRun}}

	graphs := map[depgraph.PackageID]*auditstore.Graph{
		pkg:   auditstore.Build(sAcme, pkg),
		other: auditstore.Build(sWidget, other),
	}

	signals := []policy.Signal{
		{Package: pkg, Version: version.MustParse("1.1.0"), Criterion: criteria.SafeToRun},
		{Package: other, Version: version.MustParse("9.1.0"), Criterion: criteria.SafeToRun},
	}
	cands, err := ForSignals(signals, u, graphs, fakeOracle{full: 100, delta: 5})
	if err != nil {
		t.Fatalf("ForSignals: %v", err)
	}

	var acmeDeltaFrom, widgetDeltaFrom []version.Version
	for _, c := range cands {
		if c.Kind != DeltaFrom {
			continue
		}
		switch c.Package {
		case pkg:
			acmeDeltaFrom = append(acmeDeltaFrom, c.From)
		case other:
			widgetDeltaFrom = append(widgetDeltaFrom, c.From)
		}
	}
	if len(acmeDeltaFrom) != 1 || !acmeDeltaFrom[0].Equal(version.MustParse("1.0.0")) {
		t.Errorf("acme deltas = %v, want just 1.0.0", acmeDeltaFrom)
	}
	if len(widgetDeltaFrom) != 1 || !widgetDeltaFrom[0].Equal(version.MustParse("9.0.0")) {
		t.Errorf("widget deltas = %v, want just 9.0.0", widgetDeltaFrom)
	}
}

// ForSignals should fail loudly rather than silently skip a package it
// wasn't given a graph for.
func TestForSignalsMissingGraphErrors(t *testing.T) {
	u := universe(t)
	sig := policy.Signal{Package: pkg, Version: version.MustParse("1.0.0"), Criterion: criteria.SafeToRun}
	if _, err := ForSignals([]policy.Signal{sig}, u, map[depgraph.PackageID]*auditstore.Graph{}, fakeOracle{}); err == nil {
		t.Fatal("expected an error when no graph is supplied for the signal's package")
	}
}

// Applying a candidate and re-resolving (guess-deeper) should actually
// close the signal it targeted.
func TestGuessDeeperClosesSignal(t *testing.T) {
	u := universe(t)
	g := &depgraph.Graph{
		Nodes: []depgraph.Node{
			{ID: 0, Package: "root", Version: version.Root, FirstParty: true, Edges: []depgraph.Edge{{To: 1, Kind: depgraph.EdgeNormal}}},
			{ID: 1, Package: pkg, Version: version.MustParse("1.0.0")},
		},
		Roots: []depgraph.NodeID{0},
	}
	s := auditstore.NewStore()
	deploy, _ := criteria.NewSet(u, criteria.SafeToDeploy)
	c := Candidate{Kind: NewFullAudit, Package: pkg, To: version.MustParse("1.0.0"), Missing: deploy}

	report, err := GuessDeeper(c, g, depctx.Compute(g), s, u)
	if err != nil {
		t.Fatalf("GuessDeeper: %v", err)
	}
	if !report.OK() {
		t.Errorf("expected guess-deeper to close the signal, got: %v", report.Signals)
	}
	if len(s.Full[pkg]) != 0 {
		t.Errorf("GuessDeeper must not mutate the original store, got %d entries", len(s.Full[pkg]))
	}
}
