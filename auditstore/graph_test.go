package auditstore

import (
	"testing"

	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

func testUniverse(t *testing.T) *criteria.Universe {
	t.Helper()
	u, err := criteria.NewUniverse([]criteria.Criterion{
		{Name: "c1"},
		{Name: "c2"},
	})
	if err != nil {
		t.Fatalf("NewUniverse: %v", err)
	}
	return u
}

func set(t *testing.T, u *criteria.Universe, names ...string) criteria.Set {
	t.Helper()
	s, err := criteria.NewSet(u, names...)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return s
}

const pkg depgraph.PackageID = "acme"

func reachOf(t *testing.T, g *Graph, u *criteria.Universe, v version.Version) criteria.Set {
	t.Helper()
	m, err := g.Reach(u, AlwaysOk)
	if err != nil {
		t.Fatalf("Reach: %v", err)
	}
	s, ok := m[v.Key()]
	if !ok {
		t.Fatalf("version %s not present in reach map", v)
	}
	return s
}

// Scenario seed: transitive missing. No audit or delta names 2.0, so it is
// never reached regardless of what 1.0 satisfies.
func TestTransitiveMissing(t *testing.T) {
	u := testUniverse(t)
	s := NewStore()
	s.Full[pkg] = []FullAudit{
		{Package: pkg, Version: version.MustParse("1.0.0"), Criteria: set(t, u, "c1")},
	}
	g := Build(s, pkg)
	m, err := g.Reach(u, AlwaysOk)
	if err != nil {
		t.Fatalf("Reach: %v", err)
	}
	if _, ok := m[version.MustParse("2.0.0").Key()]; ok {
		t.Errorf("2.0.0 should not appear in the reach map; nothing names it")
	}
}

// Scenario seed: delta chain to exemption. An exemption seeds 1.0, and a
// delta 1.0->2.0 carries its criteria forward.
func TestDeltaChainToExemption(t *testing.T) {
	u := testUniverse(t)
	s := NewStore()
	s.Exemptions[pkg] = []Exemption{
		{Package: pkg, Version: version.MustParse("1.0.0"), Criteria: set(t, u, "c1")},
	}
	s.Delta[pkg] = []DeltaAudit{
		{Package: pkg, From: version.MustParse("1.0.0"), To: version.MustParse("2.0.0"), Criteria: set(t, u, "c1")},
	}
	g := Build(s, pkg)
	r2 := reachOf(t, g, u, version.MustParse("2.0.0"))
	if !r2.Contains("c1") {
		t.Errorf("2.0.0 should inherit c1 through the delta from the exempted 1.0.0")
	}
}

// Scenario seed: delta overshoot. A delta claims more criteria than its
// source version actually has; the target only gains the intersection.
func TestDeltaOvershootClippedByIntersection(t *testing.T) {
	u := testUniverse(t)
	s := NewStore()
	s.Full[pkg] = []FullAudit{
		{Package: pkg, Version: version.MustParse("1.0.0"), Criteria: set(t, u, "c1")},
	}
	s.Delta[pkg] = []DeltaAudit{
		{Package: pkg, From: version.MustParse("1.0.0"), To: version.MustParse("2.0.0"), Criteria: set(t, u, "c1", "c2")},
	}
	g := Build(s, pkg)
	r2 := reachOf(t, g, u, version.MustParse("2.0.0"))
	if !r2.Contains("c1") {
		t.Errorf("2.0.0 should still gain c1")
	}
	if r2.Contains("c2") {
		t.Errorf("2.0.0 should not gain c2: the delta's source (1.0.0) never had it")
	}
}

// A version reachable by both a direct full audit and an otherwise
// unreachable delta only gains what the full audit itself grants; an
// unreachable edge's claimed criteria never leak in just because it
// targets the same version.
func TestFullAuditIndependentOfUnreachableDelta(t *testing.T) {
	u := testUniverse(t)
	s := NewStore()
	s.Full[pkg] = []FullAudit{
		{Package: pkg, Version: version.MustParse("2.0.0"), Criteria: set(t, u, "c1")},
	}
	s.Delta[pkg] = []DeltaAudit{
		{Package: pkg, From: version.MustParse("1.0.0"), To: version.MustParse("2.0.0"), Criteria: set(t, u, "c1", "c2")},
	}
	g := Build(s, pkg)
	r2 := reachOf(t, g, u, version.MustParse("2.0.0"))
	if !r2.Contains("c1") {
		t.Errorf("2.0.0's own full audit should grant c1 regardless of the unreachable delta")
	}
	if r2.Contains("c2") {
		t.Errorf("c2 was never granted by any edge actually rooted at ∅")
	}
}

// Scenario seed: cycle among deltas. A delta cycle 1.0<->2.0 must not
// prevent the fixpoint from converging, and an entry point (full audit on
// 1.0) should still propagate around the cycle.
func TestCycleAmongDeltasConverges(t *testing.T) {
	u := testUniverse(t)
	s := NewStore()
	s.Full[pkg] = []FullAudit{
		{Package: pkg, Version: version.MustParse("1.0.0"), Criteria: set(t, u, "c1")},
	}
	s.Delta[pkg] = []DeltaAudit{
		{Package: pkg, From: version.MustParse("1.0.0"), To: version.MustParse("2.0.0"), Criteria: set(t, u, "c1")},
		{Package: pkg, From: version.MustParse("2.0.0"), To: version.MustParse("1.0.0"), Criteria: set(t, u, "c1")},
	}
	g := Build(s, pkg)
	r1 := reachOf(t, g, u, version.MustParse("1.0.0"))
	r2 := reachOf(t, g, u, version.MustParse("2.0.0"))
	if !r1.Contains("c1") || !r2.Contains("c1") {
		t.Errorf("c1 should propagate around the cycle to both versions")
	}
}

// Scenario seed: broken cycle. A delta cycle with no full audit or
// exemption anywhere in it never reaches anything, and the fixpoint still
// terminates.
func TestBrokenCycleStaysEmpty(t *testing.T) {
	u := testUniverse(t)
	s := NewStore()
	s.Delta[pkg] = []DeltaAudit{
		{Package: pkg, From: version.MustParse("1.0.0"), To: version.MustParse("2.0.0"), Criteria: set(t, u, "c1")},
		{Package: pkg, From: version.MustParse("2.0.0"), To: version.MustParse("1.0.0"), Criteria: set(t, u, "c1")},
	}
	g := Build(s, pkg)
	r1 := reachOf(t, g, u, version.MustParse("1.0.0"))
	r2 := reachOf(t, g, u, version.MustParse("2.0.0"))
	if !r1.IsEmpty() || !r2.IsEmpty() {
		t.Errorf("a delta cycle with no entry point should reach nothing, got %v / %v", r1.Names(), r2.Names())
	}
}

// A full audit's own dependency_criteria requirement, when unmet, prevents
// its edge from contributing at all.
func TestDepsCheckerGatesEdge(t *testing.T) {
	u := testUniverse(t)
	s := NewStore()
	need := map[depgraph.PackageID]criteria.Set{"libfoo": set(t, u, "c1")}
	s.Full[pkg] = []FullAudit{
		{Package: pkg, Version: version.MustParse("1.0.0"), Criteria: set(t, u, "c1"), DependencyCriteria: need},
	}
	g := Build(s, pkg)

	reject := func(version.Version, map[depgraph.PackageID]criteria.Set) bool { return false }
	m, err := g.Reach(u, reject)
	if err != nil {
		t.Fatalf("Reach: %v", err)
	}
	if r := m[version.MustParse("1.0.0").Key()]; !r.IsEmpty() {
		t.Errorf("edge with unmet dependency requirements should not contribute, got %v", r.Names())
	}

	accept := func(version.Version, map[depgraph.PackageID]criteria.Set) bool { return true }
	m2, err := g.Reach(u, accept)
	if err != nil {
		t.Fatalf("Reach: %v", err)
	}
	if r := m2[version.MustParse("1.0.0").Key()]; !r.Contains("c1") {
		t.Errorf("edge with met dependency requirements should contribute c1")
	}
}

// DependencyOverridesAt unions dependency_criteria for a named dependency
// across every edge terminating at the queried version, and reports
// ok=false when nothing terminating there mentions it, or the version is
// unknown to the graph altogether.
func TestDependencyOverridesAtUnionsEdgesTerminatingAtVersion(t *testing.T) {
	u := testUniverse(t)
	s := NewStore()
	s.Full[pkg] = []FullAudit{
		{
			Package: pkg, Version: version.MustParse("2.0.0"), Criteria: set(t, u, "c1"),
			DependencyCriteria: map[depgraph.PackageID]criteria.Set{"libfoo": set(t, u, "c1")},
		},
	}
	s.Delta[pkg] = []DeltaAudit{
		{
			Package: pkg, From: version.MustParse("1.0.0"), To: version.MustParse("2.0.0"), Criteria: set(t, u, "c1"),
			DependencyCriteria: map[depgraph.PackageID]criteria.Set{"libfoo": set(t, u, "c2")},
		},
	}
	g := Build(s, pkg)

	want, ok := g.DependencyOverridesAt(version.MustParse("2.0.0"), "libfoo")
	if !ok {
		t.Fatal("expected an override for libfoo at 2.0.0")
	}
	if !want.Contains("c1") || !want.Contains("c2") {
		t.Errorf("expected the union of both edges terminating at 2.0.0, got %v", want.Names())
	}

	if _, ok := g.DependencyOverridesAt(version.MustParse("2.0.0"), "nonexistent"); ok {
		t.Error("expected ok=false for a package nothing terminating at 2.0.0 mentions")
	}
	if _, ok := g.DependencyOverridesAt(version.MustParse("9.9.9"), "libfoo"); ok {
		t.Error("expected ok=false for a version the graph doesn't know about")
	}
}

// An override attached to a different version of the same package must
// not leak into the requirement computed for the version actually
// resolved in the dependency graph.
func TestDependencyOverridesAtIgnoresOtherVersions(t *testing.T) {
	u := testUniverse(t)
	s := NewStore()
	s.Full[pkg] = []FullAudit{
		{
			Package: pkg, Version: version.MustParse("1.0.0"), Criteria: set(t, u, "c1"),
			DependencyCriteria: map[depgraph.PackageID]criteria.Set{"libfoo": set(t, u, "c1")},
		},
		{
			Package: pkg, Version: version.MustParse("2.0.0"), Criteria: set(t, u, "c1"),
			DependencyCriteria: map[depgraph.PackageID]criteria.Set{"libfoo": set(t, u, "c2")},
		},
	}
	g := Build(s, pkg)

	want, ok := g.DependencyOverridesAt(version.MustParse("2.0.0"), "libfoo")
	if !ok {
		t.Fatal("expected an override for libfoo at 2.0.0")
	}
	if want.Contains("c1") || !want.Contains("c2") {
		t.Errorf("1.0.0's override must not leak into 2.0.0's, got %v", want.Names())
	}
}
