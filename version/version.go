// Package version implements the ordered Version type used throughout
// auditvet: a semantic version with a distinguished ROOT value standing in
// for "the project itself".
package version

import (
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// Version is a concrete, ordered package version. Build one with Parse or
// use Root; the zero Version is not a parsed version.
type Version struct {
	// raw is the exact string the version was parsed from. It is kept so
	// that non-semver version strings (revision hashes, "unreleased" tags
	// some ecosystems use) still round-trip losslessly through the store.
	raw string

	// sv is non-nil when raw parses as a semantic version. Comparison and
	// ordering use sv when both sides have it; otherwise Version falls back
	// to a lexicographic compare of raw, which applies to the opaque
	// non-semver strings Parse accepts (ROOT is ordered by its own flag).
	sv *semver.Version

	root bool
}

// Root is the sentinel Version representing the first-party project itself.
// It has no source content, so it can only ever be reached by the implicit
// first-party full audit, never by a delta chain (spec invariant: ROOT is
// never the target of a crates-style delta).
var Root = Version{raw: "root", root: true}

// IsRoot reports whether v is the Root sentinel.
func (v Version) IsRoot() bool { return v.root }

// Parse interprets s as a package version. Semver strings ("1.2.3",
// "v1.2.3") parse through Masterminds/semver; anything else is kept as an
// opaque, order-by-string value so that ecosystems with non-semver version
// schemes still load without a fatal error.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, errors.New("empty version string")
	}
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{raw: s}, nil
	}
	return Version{raw: s, sv: sv}, nil
}

// MustParse is Parse, panicking on error. Intended for tests and
// compile-time-known constants, never for untrusted input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original textual representation of v.
func (v Version) String() string {
	if v.root {
		return "(root)"
	}
	return v.raw
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// o. Root sorts before every other version.
func (v Version) Compare(o Version) int {
	switch {
	case v.root && o.root:
		return 0
	case v.root:
		return -1
	case o.root:
		return 1
	}
	if v.sv != nil && o.sv != nil {
		return v.sv.Compare(o.sv)
	}
	switch {
	case v.raw < o.raw:
		return -1
	case v.raw > o.raw:
		return 1
	default:
		return 0
	}
}

// Less reports whether v sorts strictly before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// Key returns a value suitable for use as a map key, distinct from
// String() only in that it disambiguates Root from a package that happens
// to be literally named "root".
func (v Version) Key() string {
	if v.root {
		return "\x00root"
	}
	return v.raw
}

// GoString supports %#v formatting in test failures.
func (v Version) GoString() string {
	return fmt.Sprintf("version.Version{%s}", v.String())
}
