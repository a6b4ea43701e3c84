package store

import (
	"strings"
	"testing"

	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depgraph"
)

const sampleAudits = `
[[criteria]]
name = "safe-to-run"

[[criteria]]
name = "safe-to-deploy"
implies = ["safe-to-run"]

[[criteria]]
name = "crypto-reviewed"

[[audits.foo]]
version = "1.0.0"
criteria = ["safe-to-deploy"]
who = "alice"

[[deltas.foo]]
from = "1.0.0"
to = "1.1.0"
criteria = ["safe-to-deploy"]

[[exemptions.bar]]
version = "2.0.0"
criteria = ["safe-to-run"]
suggest = true

[policy.baz]
criteria = ["safe-to-deploy", "crypto-reviewed"]
audit-as-third-party = true
`

func TestLoadAudits(t *testing.T) {
	u, s, err := LoadAudits(strings.NewReader(sampleAudits))
	if err != nil {
		t.Fatalf("LoadAudits: %v", err)
	}

	if u.Len() != 3 {
		t.Fatalf("expected 3 declared criteria, got %d", u.Len())
	}

	fooAudits := s.Full[depgraph.PackageID("foo")]
	if len(fooAudits) != 1 || fooAudits[0].Who != "alice" {
		t.Fatalf("unexpected foo full audits: %+v", fooAudits)
	}
	if !fooAudits[0].Criteria.Contains("safe-to-deploy") {
		t.Fatalf("expected foo audit to contain safe-to-deploy")
	}

	fooDeltas := s.Delta[depgraph.PackageID("foo")]
	if len(fooDeltas) != 1 || fooDeltas[0].From.String() != "1.0.0" || fooDeltas[0].To.String() != "1.1.0" {
		t.Fatalf("unexpected foo deltas: %+v", fooDeltas)
	}

	barExemptions := s.Exemptions[depgraph.PackageID("bar")]
	if len(barExemptions) != 1 || !barExemptions[0].SuggestFlag {
		t.Fatalf("unexpected bar exemptions: %+v", barExemptions)
	}

	bazPolicy, ok := s.Policy[depgraph.PackageID("baz")]
	if !ok || !bazPolicy.AuditAsThirdParty || bazPolicy.SelfCriteria == nil {
		t.Fatalf("unexpected baz policy: %+v", bazPolicy)
	}
	if !bazPolicy.SelfCriteria.Contains("crypto-reviewed") {
		t.Fatalf("expected baz policy to require crypto-reviewed")
	}
}

func TestLoadAuditsRejectsUnknownCriterion(t *testing.T) {
	const bad = `
[[criteria]]
name = "safe-to-run"

[[audits.foo]]
version = "1.0.0"
criteria = ["does-not-exist"]
`
	if _, _, err := LoadAudits(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for unknown criterion")
	}
}

func TestMarshalAuditsRoundTrip(t *testing.T) {
	u, s, err := LoadAudits(strings.NewReader(sampleAudits))
	if err != nil {
		t.Fatalf("LoadAudits: %v", err)
	}

	declared := []criteria.Criterion{
		{Name: "safe-to-run"},
		{Name: "safe-to-deploy", Implies: []string{"safe-to-run"}},
		{Name: "crypto-reviewed"},
	}

	out, err := MarshalAudits(u, s, declared)
	if err != nil {
		t.Fatalf("MarshalAudits: %v", err)
	}

	u2, s2, err := LoadAudits(strings.NewReader(string(out)))
	if err != nil {
		t.Fatalf("reload marshaled audits.toml: %v\n%s", err, out)
	}
	if u2.Len() != u.Len() {
		t.Fatalf("criteria count changed across round trip: %d vs %d", u2.Len(), u.Len())
	}
	if len(s2.Full[depgraph.PackageID("foo")]) != len(s.Full[depgraph.PackageID("foo")]) {
		t.Fatalf("full audit count changed across round trip")
	}
}
