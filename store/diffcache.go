package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

// DiffCacheName is the subdirectory of the store root holding cached
// suggest.DiffOracle results.
const DiffCacheName = "diff-cache"

// DiffCache persists suggest.DiffOracle outputs on disk, keyed by the
// package and version pair the oracle was asked about, so that `suggest`
// doesn't re-fetch and re-diff a source tree it already scored in a
// previous run. The content-addressing of the key is grounded on the
// teacher's hash.go HashInputs idiom (sha256 over sorted/concatenated
// fields); a github.com/theckman/go-flock advisory lock on the cache
// directory keeps two concurrent auditvet processes from racing on the
// same entry.
type DiffCache struct {
	root string
	lock *flock.Flock
}

// OpenDiffCache prepares a DiffCache rooted at dir, creating dir if it
// does not already exist.
func OpenDiffCache(dir string) (*DiffCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "store: unable to create diff cache dir %s", dir)
	}
	return &DiffCache{
		root: dir,
		lock: flock.NewFlock(filepath.Join(dir, ".lock")),
	}, nil
}

func diffCacheKey(pkg depgraph.PackageID, from, to version.Version) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", pkg, from.Key(), to.Key())
	return hex.EncodeToString(h.Sum(nil))
}

// fullReviewKey is the diffCacheKey degenerate case for a full review: the
// "from" side is the empty version, matching the audit graph's synthetic
// ∅ vertex (spec §4.2).
func fullReviewKey(pkg depgraph.PackageID, at version.Version) string {
	return diffCacheKey(pkg, version.Version{}, at)
}

// Lookup returns the cached cost for (pkg, from->to) and true if present.
// from may be the zero Version to look up a full-review entry.
func (c *DiffCache) Lookup(pkg depgraph.PackageID, from, to version.Version) (int, bool, error) {
	if err := c.lock.Lock(); err != nil {
		return 0, false, errors.Wrap(err, "store: unable to lock diff cache")
	}
	defer c.lock.Unlock()

	path := filepath.Join(c.root, diffCacheKey(pkg, from, to))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "store: unable to read diff cache entry for %s", pkg)
	}

	var cost int
	if _, err := fmt.Sscanf(string(data), "%d", &cost); err != nil {
		return 0, false, errors.Wrapf(err, "store: corrupt diff cache entry for %s", pkg)
	}
	return cost, true, nil
}

// Store records cost as the cached result for (pkg, from->to).
func (c *DiffCache) Store(pkg depgraph.PackageID, from, to version.Version, cost int) error {
	if err := c.lock.Lock(); err != nil {
		return errors.Wrap(err, "store: unable to lock diff cache")
	}
	defer c.lock.Unlock()

	path := filepath.Join(c.root, diffCacheKey(pkg, from, to))
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d", cost)), 0o644); err != nil {
		return errors.Wrapf(err, "store: unable to write diff cache entry for %s", pkg)
	}
	return nil
}

// CachingOracle wraps a suggest.DiffOracle-shaped pair of functions with a
// DiffCache, so repeated FullReview/Delta calls for the same pair hit disk
// instead of re-invoking the (expensive, externally supplied) underlying
// oracle.
type CachingOracle struct {
	Cache      *DiffCache
	FullReviewFunc func(pkg depgraph.PackageID, at version.Version) (int, error)
	DeltaFunc      func(pkg depgraph.PackageID, from, to version.Version) (int, error)
}

// FullReview implements suggest.DiffOracle.
func (o *CachingOracle) FullReview(pkg depgraph.PackageID, at version.Version) (int, error) {
	if cost, ok, err := o.Cache.Lookup(pkg, version.Version{}, at); err != nil {
		return 0, err
	} else if ok {
		return cost, nil
	}
	cost, err := o.FullReviewFunc(pkg, at)
	if err != nil {
		return 0, err
	}
	return cost, o.Cache.Store(pkg, version.Version{}, at, cost)
}

// Delta implements suggest.DiffOracle.
func (o *CachingOracle) Delta(pkg depgraph.PackageID, from, to version.Version) (int, error) {
	if cost, ok, err := o.Cache.Lookup(pkg, from, to); err != nil {
		return 0, err
	} else if ok {
		return cost, nil
	}
	cost, err := o.DeltaFunc(pkg, from, to)
	if err != nil {
		return 0, err
	}
	return cost, o.Cache.Store(pkg, from, to, cost)
}
