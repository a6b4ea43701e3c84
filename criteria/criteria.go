// Package criteria implements the criteria lattice (spec §4.1): a universe
// of named trust predicates with a declared implication DAG, and closed
// CriteriaSets represented as dense bit vectors for O(words) union/subset.
//
// The bitset idiom is adapted from the teacher's flags.go, which packs a
// small, fixed enumeration of constraint kinds into a uint8 with 1<<iota;
// here the universe is open-ended (declared in the store), so ids are
// assigned densely at load time and the set is backed by a []uint64 word
// vector instead of a single machine word.
package criteria

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/pkg/errors"
)

// Built-in criteria present in every universe.
const (
	SafeToRun    = "safe-to-run"
	SafeToDeploy = "safe-to-deploy"
)

// Criterion is one named predicate in the universe, along with the other
// criteria it implies.
type Criterion struct {
	Name        string
	Implies     []string
	Description string
}

// Universe is the full set of criteria known for a resolution, with a
// stable (resolution-scoped) dense id assigned to each name and the
// implication relation pre-expanded into an id-indexed adjacency list.
type Universe struct {
	ids          map[string]int
	names        []string
	implies      [][]int // implies[id] = ids directly implied by id
	descriptions map[string]string
}

// NewUniverse builds a Universe from the criteria declared in the store.
// safe-to-deploy implies safe-to-run is wired in automatically even if the
// store doesn't repeat it, per spec §4.1. An unknown name referenced by an
// `implies` list is a fatal load-time error (spec §4.1 Failure modes).
func NewUniverse(declared []Criterion) (*Universe, error) {
	u := &Universe{ids: make(map[string]int), descriptions: make(map[string]string)}

	have := func(name string) bool {
		_, ok := u.ids[name]
		return ok
	}

	ensureBuiltin := func(name string) {
		if !have(name) {
			u.ids[name] = len(u.names)
			u.names = append(u.names, name)
		}
	}
	ensureBuiltin(SafeToRun)
	ensureBuiltin(SafeToDeploy)

	for _, c := range declared {
		if c.Description != "" {
			u.descriptions[c.Name] = c.Description
		}
		if have(c.Name) {
			continue
		}
		u.ids[c.Name] = len(u.names)
		u.names = append(u.names, c.Name)
	}

	u.implies = make([][]int, len(u.names))

	addImplies := func(name string, implies []string) error {
		id, ok := u.ids[name]
		if !ok {
			return errors.Errorf("criteria: unknown criterion %q", name)
		}
		for _, dep := range implies {
			depID, ok := u.ids[dep]
			if !ok {
				return errors.Errorf("criteria: %q implies unknown criterion %q", name, dep)
			}
			dup := false
			for _, existing := range u.implies[id] {
				if existing == depID {
					dup = true
					break
				}
			}
			if !dup {
				u.implies[id] = append(u.implies[id], depID)
			}
		}
		return nil
	}

	if err := addImplies(SafeToDeploy, []string{SafeToRun}); err != nil {
		return nil, err
	}
	for _, c := range declared {
		if err := addImplies(c.Name, c.Implies); err != nil {
			return nil, err
		}
	}

	return u, nil
}

// ID returns the dense id for name, or (-1, false) if unknown.
func (u *Universe) ID(name string) (int, bool) {
	id, ok := u.ids[name]
	if !ok {
		return -1, false
	}
	return id, true
}

// Name returns the declared name for a dense id.
func (u *Universe) Name(id int) string {
	return u.names[id]
}

// Len returns the number of criteria in the universe.
func (u *Universe) Len() int { return len(u.names) }

// Description returns the human-readable description declared for name, if
// any.
func (u *Universe) Description(name string) string { return u.descriptions[name] }

// Declared reconstructs the full []Criterion this Universe was built from,
// including the implicit safe-to-deploy->safe-to-run edge, so that a loaded
// store can be re-marshaled without keeping the original raw TOML around.
func (u *Universe) Declared() []Criterion {
	out := make([]Criterion, len(u.names))
	for id, name := range u.names {
		implies := make([]string, len(u.implies[id]))
		for i, depID := range u.implies[id] {
			implies[i] = u.names[depID]
		}
		out[id] = Criterion{Name: name, Implies: implies, Description: u.descriptions[name]}
	}
	return out
}

func (u *Universe) words() int { return (len(u.names) + 63) / 64 }

// Set is a closed CriteriaSet: a bit vector indexed by the Universe's dense
// ids. The zero Set is the empty set. Sets are only ever compared/combined
// within the Universe that produced them.
type Set struct {
	u     *Universe
	words []uint64
}

// NewSet builds the closure of names against u. An unknown name is a fatal
// load-time error.
func NewSet(u *Universe, names ...string) (Set, error) {
	s := Set{u: u, words: make([]uint64, u.words())}
	for _, n := range names {
		id, ok := u.ID(n)
		if !ok {
			return Set{}, errors.Errorf("criteria: unknown criterion %q", n)
		}
		s.setBit(id)
	}
	s.closeInPlace()
	return s, nil
}

// Empty returns the empty (but still closed, trivially) set over u.
func Empty(u *Universe) Set {
	return Set{u: u, words: make([]uint64, u.words())}
}

// Full returns the set containing every criterion in u. It is used as the
// reachability value of the synthetic "∅" audit-graph vertex (spec §4.2):
// intersecting Full with an edge's own CriteriaSet yields exactly that
// edge's CriteriaSet, which is how full audits and exemptions seed
// reachability from nothing.
func Full(u *Universe) Set {
	s := Set{u: u, words: make([]uint64, u.words())}
	for id := 0; id < u.Len(); id++ {
		s.setBit(id)
	}
	return s
}

func (s *Set) setBit(id int) {
	s.words[id/64] |= 1 << uint(id%64)
}

func (s Set) hasBit(id int) bool {
	return s.words[id/64]&(1<<uint(id%64)) != 0
}

// closeInPlace expands s by repeatedly adding implies-successors until a
// fixpoint, per spec §4.1 closure(). Criteria sets are finite and the
// implication relation is acyclic (an invariant enforced by the caller
// that builds the Universe), so this always terminates.
func (s *Set) closeInPlace() {
	for {
		grew := false
		for id := 0; id < s.u.Len(); id++ {
			if !s.hasBit(id) {
				continue
			}
			for _, dep := range s.u.implies[id] {
				if !s.hasBit(dep) {
					s.setBit(dep)
					grew = true
				}
			}
		}
		if !grew {
			return
		}
	}
}

// Contains reports whether s (already closed) contains c.
func (s Set) Contains(name string) bool {
	id, ok := s.u.ID(name)
	if !ok {
		return false
	}
	return s.hasBit(id)
}

// Union returns the closed union of s and o.
func (s Set) Union(o Set) Set {
	r := Set{u: s.u, words: make([]uint64, len(s.words))}
	for i := range r.words {
		r.words[i] = s.words[i] | o.words[i]
	}
	// Union of two closed sets is already closed: every bit set in s or o
	// was itself already closed under implies.
	return r
}

// Intersection returns the closed intersection of s and o. The intersection
// of two closed sets is itself closed (every implies-successor of a bit in
// both s and o is also in both); the result is re-closed anyway as a cheap
// safeguard.
func (s Set) Intersection(o Set) Set {
	r := Set{u: s.u, words: make([]uint64, len(s.words))}
	for i := range r.words {
		r.words[i] = s.words[i] & o.words[i]
	}
	r.closeInPlace()
	return r
}

// Satisfies reports whether need ⊆ closure(have) — spec §4.1 satisfies().
// Both sets are assumed already closed (NewSet/Union/Intersection always
// return closed sets), so this is a plain subset test.
func (have Set) Satisfies(need Set) bool {
	for i := range need.words {
		if need.words[i]&^have.words[i] != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether s and o contain exactly the same criteria.
func (s Set) Equal(o Set) bool {
	for i := range s.words {
		if s.words[i] != o.words[i] {
			return false
		}
	}
	return true
}

// IsEmpty reports whether s has no criteria set.
func (s Set) IsEmpty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Len returns the number of criteria contained in s.
func (s Set) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Names returns the contained criteria names, sorted for deterministic
// output (spec §5 Ordering guarantees).
func (s Set) Names() []string {
	var out []string
	for id := 0; id < s.u.Len(); id++ {
		if s.hasBit(id) {
			out = append(out, s.u.Name(id))
		}
	}
	sort.Strings(out)
	return out
}

// String renders s as a sorted, comma-separated list for diagnostics.
func (s Set) String() string {
	return fmt.Sprintf("%v", s.Names())
}
