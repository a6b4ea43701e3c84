package store

import (
	"path/filepath"
	"testing"

	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

func TestDiffCacheMissThenHit(t *testing.T) {
	c, err := OpenDiffCache(filepath.Join(t.TempDir(), DiffCacheName))
	if err != nil {
		t.Fatalf("OpenDiffCache: %v", err)
	}

	foo := depgraph.PackageID("foo")
	v1, v2 := version.MustParse("1.0.0"), version.MustParse("1.1.0")

	if _, ok, err := c.Lookup(foo, v1, v2); err != nil || ok {
		t.Fatalf("expected cache miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Store(foo, v1, v2, 42); err != nil {
		t.Fatalf("Store: %v", err)
	}

	cost, ok, err := c.Lookup(foo, v1, v2)
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if cost != 42 {
		t.Fatalf("got cost %d, want 42", cost)
	}
}

func TestCachingOracleCallsUnderlyingOnlyOnce(t *testing.T) {
	c, err := OpenDiffCache(filepath.Join(t.TempDir(), DiffCacheName))
	if err != nil {
		t.Fatalf("OpenDiffCache: %v", err)
	}

	calls := 0
	oracle := &CachingOracle{
		Cache: c,
		FullReviewFunc: func(pkg depgraph.PackageID, at version.Version) (int, error) {
			calls++
			return 7, nil
		},
		DeltaFunc: func(pkg depgraph.PackageID, from, to version.Version) (int, error) {
			t.Fatal("DeltaFunc should not be called in this test")
			return 0, nil
		},
	}

	foo := depgraph.PackageID("foo")
	v1 := version.MustParse("1.0.0")

	for i := 0; i < 3; i++ {
		cost, err := oracle.FullReview(foo, v1)
		if err != nil {
			t.Fatalf("FullReview: %v", err)
		}
		if cost != 7 {
			t.Fatalf("got cost %d, want 7", cost)
		}
	}

	if calls != 1 {
		t.Fatalf("expected underlying FullReviewFunc called once, got %d", calls)
	}
}

func TestDiffCacheDistinguishesFullReviewFromDelta(t *testing.T) {
	foo := depgraph.PackageID("foo")
	v1 := version.MustParse("1.0.0")

	if fullReviewKey(foo, v1) == diffCacheKey(foo, v1, v1) {
		t.Fatal("full-review key collided with a from==to delta key")
	}
}
