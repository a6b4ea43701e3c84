package version

import "testing"

func TestParseAndCompare(t *testing.T) {
	v1, err := Parse("1.2.3")
	if err != nil {
		t.Fatalf("Parse(1.2.3): %v", err)
	}
	v2, err := Parse("1.10.0")
	if err != nil {
		t.Fatalf("Parse(1.10.0): %v", err)
	}
	if !v1.Less(v2) {
		t.Errorf("expected %s < %s", v1, v2)
	}
	if v2.Less(v1) {
		t.Errorf("did not expect %s < %s", v2, v1)
	}
}

func TestRootSortsFirst(t *testing.T) {
	v, _ := Parse("0.0.1")
	if !Root.Less(v) {
		t.Errorf("expected Root < %s", v)
	}
	if v.Less(Root) {
		t.Errorf("did not expect %s < Root", v)
	}
	if !Root.Equal(Root) {
		t.Errorf("Root should equal itself")
	}
}

func TestNonSemverFallsBackToLexicographic(t *testing.T) {
	a, err := Parse("deadbeef")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	b, err := Parse("feedface")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !a.Less(b) {
		t.Errorf("expected lexicographic fallback ordering")
	}
}

func TestEmptyVersionIsError(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Errorf("expected error for empty version string")
	}
}

func TestKeyDisambiguatesRoot(t *testing.T) {
	named, _ := Parse("root")
	if named.Key() == Root.Key() {
		t.Errorf("literal package version %q should not collide with the Root sentinel key", "root")
	}
}
