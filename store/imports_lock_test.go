package store

import (
	"strings"
	"testing"

	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

func TestLoadLock(t *testing.T) {
	const raw = `
[criteria-hashes]
"safe-to-run" = "abc123"

[[packages]]
name = "foo"
version = "1.0.0"
`
	l, err := LoadLock(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("LoadLock: %v", err)
	}
	if l.CriteriaHashes["safe-to-run"] != "abc123" {
		t.Fatalf("unexpected criteria hashes: %+v", l.CriteriaHashes)
	}
	if len(l.Packages) != 1 || l.Packages[0].Package != depgraph.PackageID("foo") {
		t.Fatalf("unexpected packages: %+v", l.Packages)
	}
}

func TestLockRoundTrip(t *testing.T) {
	l := &Lock{
		CriteriaHashes: map[string]string{"safe-to-run": "deadbeef"},
		Packages: []LockedPackage{
			{Package: depgraph.PackageID("zeta"), Version: version.MustParse("2.0.0")},
			{Package: depgraph.PackageID("alpha"), Version: version.MustParse("1.0.0")},
		},
	}
	out, err := MarshalLock(l)
	if err != nil {
		t.Fatalf("MarshalLock: %v", err)
	}
	l2, err := LoadLock(strings.NewReader(string(out)))
	if err != nil {
		t.Fatalf("reload imports.lock: %v\n%s", err, out)
	}
	if len(l2.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(l2.Packages))
	}
	if l2.Packages[0].Package != depgraph.PackageID("alpha") {
		t.Fatalf("expected sorted output, alpha first, got %+v", l2.Packages)
	}
}

func TestCriterionHashStable(t *testing.T) {
	a := criteria.Criterion{Name: "safe-to-deploy", Implies: []string{"safe-to-run", "crypto-reviewed"}}
	b := criteria.Criterion{Name: "safe-to-deploy", Implies: []string{"crypto-reviewed", "safe-to-run"}}
	if CriterionHash(a) != CriterionHash(b) {
		t.Fatal("CriterionHash should be insensitive to Implies order")
	}
}

func TestCriteriaChanged(t *testing.T) {
	declared := []criteria.Criterion{
		{Name: "safe-to-run"},
		{Name: "safe-to-deploy", Implies: []string{"safe-to-run"}},
	}
	l := &Lock{CriteriaHashes: CriteriaHashes(declared)}

	if changed := l.CriteriaChanged(declared); len(changed) != 0 {
		t.Fatalf("expected no changes against matching lock, got %v", changed)
	}

	mutated := []criteria.Criterion{
		{Name: "safe-to-run"},
		{Name: "safe-to-deploy", Implies: []string{"safe-to-run", "crypto-reviewed"}},
	}
	changed := l.CriteriaChanged(mutated)
	if len(changed) != 1 || changed[0] != "safe-to-deploy" {
		t.Fatalf("expected safe-to-deploy flagged as changed, got %v", changed)
	}
}

func TestCriteriaChangedMissingFromLock(t *testing.T) {
	l := &Lock{CriteriaHashes: map[string]string{}}
	declared := []criteria.Criterion{{Name: "safe-to-run"}}
	changed := l.CriteriaChanged(declared)
	if len(changed) != 1 || changed[0] != "safe-to-run" {
		t.Fatalf("expected safe-to-run flagged when absent from lock, got %v", changed)
	}
}
