package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

// ImportsLockName is the resolved-state lock file: one entry per resolved
// package version plus a hash of every criterion's declaration, so `vet`
// can detect when a criterion's meaning changed underneath an existing
// lock (SPEC_FULL.md's accept-criteria-change requirement) instead of
// silently trusting stale audits.
const ImportsLockName = "imports.lock"

// Lock is the parsed imports.lock: which version of each package the last
// successful resolution settled on, and the criteria hashes it was
// computed against.
type Lock struct {
	CriteriaHashes map[string]string // criterion name -> sha256 hex of its declaration
	Packages       []LockedPackage
}

// LockedPackage records the resolved version of one package.
type LockedPackage struct {
	Package depgraph.PackageID
	Version version.Version
}

type rawLockedPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type rawLock struct {
	CriteriaHashes map[string]string  `toml:"criteria-hashes,omitempty"`
	Packages       []rawLockedPackage `toml:"packages,omitempty"`
}

// CriterionHash hashes a single criterion's name and sorted implies list,
// grounded on the teacher's hash.go HashInputs idiom (sort, then hash
// concatenated fields with sha256) generalized from manifest dependency
// constraints to criterion declarations.
func CriterionHash(c criteria.Criterion) string {
	implies := append([]string(nil), c.Implies...)
	sort.Strings(implies)
	h := sha256.New()
	h.Write([]byte(c.Name))
	for _, i := range implies {
		h.Write([]byte(i))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CriteriaHashes computes CriterionHash for every declared criterion,
// keyed by name.
func CriteriaHashes(declared []criteria.Criterion) map[string]string {
	out := make(map[string]string, len(declared))
	for _, c := range declared {
		out[c.Name] = CriterionHash(c)
	}
	return out
}

// LoadLock parses r as imports.lock.
func LoadLock(r io.Reader) (*Lock, error) {
	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "store: unable to read imports.lock")
	}
	var raw rawLock
	if err := toml.Unmarshal(buf.Bytes(), &raw); err != nil {
		return nil, errors.Wrap(err, "store: unable to parse imports.lock")
	}

	l := &Lock{CriteriaHashes: raw.CriteriaHashes}
	for _, p := range raw.Packages {
		v, err := version.Parse(p.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "store: imports.lock entry for %s", p.Name)
		}
		l.Packages = append(l.Packages, LockedPackage{Package: depgraph.PackageID(p.Name), Version: v})
	}
	return l, nil
}

// MarshalLock serializes l to imports.lock bytes, with packages sorted by
// name for deterministic output.
func MarshalLock(l *Lock) ([]byte, error) {
	sorted := append([]LockedPackage(nil), l.Packages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Package < sorted[j].Package })

	raw := rawLock{CriteriaHashes: l.CriteriaHashes}
	for _, p := range sorted {
		raw.Packages = append(raw.Packages, rawLockedPackage{Name: string(p.Package), Version: p.Version.String()})
	}
	out, err := toml.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "store: unable to marshal imports.lock")
	}
	return out, nil
}

// CriteriaChanged reports which declared criteria hash differently than
// what's recorded in l (including criteria missing from l entirely), per
// SPEC_FULL.md's accept-criteria-change requirement: `vet -locked` fails
// on a non-empty result rather than silently re-trusting audits written
// against a criterion whose meaning has since changed.
func (l *Lock) CriteriaChanged(declared []criteria.Criterion) []string {
	var changed []string
	for _, c := range declared {
		want := CriterionHash(c)
		if got, ok := l.CriteriaHashes[c.Name]; !ok || got != want {
			changed = append(changed, c.Name)
		}
	}
	sort.Strings(changed)
	return changed
}
