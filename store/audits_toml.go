// Package store implements the persistent, on-disk representation of a
// resolution: the criteria/audits/exemptions/policy store (audits.toml),
// workspace-wide configuration (config.toml), and the resolved-state lock
// file (imports.lock), which records the resolved package versions and the
// criteria hashes used to detect a changed criterion.
//
// The TOML round trip is grounded on the teacher's registry_config.go
// (toml.Marshal/toml.Unmarshal over a raw struct) rather than its older
// manual TomlTree.Query-based mapper in toml.go. Library:
// github.com/pelletier/go-toml.
package store

import (
	"bytes"
	"io"
	"sort"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/auditvet/auditvet/auditstore"
	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

// AuditsName is the store file name holding criteria, audits, deltas,
// exemptions, and per-package policy.
const AuditsName = "audits.toml"

type rawCriterion struct {
	Name        string   `toml:"name"`
	Implies     []string `toml:"implies,omitempty"`
	Description string   `toml:"description,omitempty"`
}

type rawFullAudit struct {
	Version      string              `toml:"version"`
	Criteria     []string            `toml:"criteria"`
	Dependencies map[string][]string `toml:"dependencies,omitempty"`
	Who          string              `toml:"who,omitempty"`
	Notes        string              `toml:"notes,omitempty"`
}

type rawDeltaAudit struct {
	From         string              `toml:"from"`
	To           string              `toml:"to"`
	Criteria     []string            `toml:"criteria"`
	Dependencies map[string][]string `toml:"dependencies,omitempty"`
	Who          string              `toml:"who,omitempty"`
	Notes        string              `toml:"notes,omitempty"`
}

type rawExemption struct {
	Version      string              `toml:"version"`
	Criteria     []string            `toml:"criteria"`
	Dependencies map[string][]string `toml:"dependencies,omitempty"`
	Suggest      bool                `toml:"suggest,omitempty"`
	Notes        string              `toml:"notes,omitempty"`
}

type rawPolicy struct {
	Criteria          []string            `toml:"criteria,omitempty"`
	Dependencies      map[string][]string `toml:"dependency-criteria,omitempty"`
	AuditAsThirdParty bool                `toml:"audit-as-third-party,omitempty"`
}

type rawAudits struct {
	Criteria   []rawCriterion            `toml:"criteria,omitempty"`
	Audits     map[string][]rawFullAudit `toml:"audits,omitempty"`
	Deltas     map[string][]rawDeltaAudit `toml:"deltas,omitempty"`
	Exemptions map[string][]rawExemption `toml:"exemptions,omitempty"`
	Policy     map[string]rawPolicy      `toml:"policy,omitempty"`
}

// LoadAudits parses r as audits.toml, returning the built criteria
// Universe and a populated auditstore.Store.
func LoadAudits(r io.Reader) (*criteria.Universe, *auditstore.Store, error) {
	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, nil, errors.Wrap(err, "store: unable to read audits.toml")
	}

	var raw rawAudits
	if err := toml.Unmarshal(buf.Bytes(), &raw); err != nil {
		return nil, nil, errors.Wrap(err, "store: unable to parse audits.toml")
	}

	declared := make([]criteria.Criterion, len(raw.Criteria))
	for i, c := range raw.Criteria {
		declared[i] = criteria.Criterion{Name: c.Name, Implies: c.Implies, Description: c.Description}
	}
	u, err := criteria.NewUniverse(declared)
	if err != nil {
		return nil, nil, errors.Wrap(err, "store: invalid criteria declarations")
	}

	s := auditstore.NewStore()

	for pkg, audits := range raw.Audits {
		for _, a := range audits {
			v, err := version.Parse(a.Version)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: audit for %s", pkg)
			}
			cs, err := criteria.NewSet(u, a.Criteria...)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: audit for %s@%s", pkg, a.Version)
			}
			deps, err := parseDepCriteria(u, a.Dependencies)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: audit for %s@%s", pkg, a.Version)
			}
			s.Full[depgraph.PackageID(pkg)] = append(s.Full[depgraph.PackageID(pkg)], auditstore.FullAudit{
				Package: depgraph.PackageID(pkg), Version: v, Criteria: cs,
				DependencyCriteria: deps, Who: a.Who, Notes: a.Notes,
			})
		}
	}

	for pkg, deltas := range raw.Deltas {
		for _, d := range deltas {
			from, err := version.Parse(d.From)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: delta for %s", pkg)
			}
			to, err := version.Parse(d.To)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: delta for %s", pkg)
			}
			cs, err := criteria.NewSet(u, d.Criteria...)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: delta for %s %s->%s", pkg, d.From, d.To)
			}
			deps, err := parseDepCriteria(u, d.Dependencies)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: delta for %s %s->%s", pkg, d.From, d.To)
			}
			s.Delta[depgraph.PackageID(pkg)] = append(s.Delta[depgraph.PackageID(pkg)], auditstore.DeltaAudit{
				Package: depgraph.PackageID(pkg), From: from, To: to, Criteria: cs,
				DependencyCriteria: deps, Who: d.Who, Notes: d.Notes,
			})
		}
	}

	for pkg, exemptions := range raw.Exemptions {
		for _, e := range exemptions {
			v, err := version.Parse(e.Version)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: exemption for %s", pkg)
			}
			cs, err := criteria.NewSet(u, e.Criteria...)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: exemption for %s@%s", pkg, e.Version)
			}
			deps, err := parseDepCriteria(u, e.Dependencies)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: exemption for %s@%s", pkg, e.Version)
			}
			s.Exemptions[depgraph.PackageID(pkg)] = append(s.Exemptions[depgraph.PackageID(pkg)], auditstore.Exemption{
				Package: depgraph.PackageID(pkg), Version: v, Criteria: cs,
				DependencyCriteria: deps, SuggestFlag: e.Suggest, Notes: e.Notes,
			})
		}
	}

	for pkg, p := range raw.Policy {
		entry := auditstore.PolicyEntry{AuditAsThirdParty: p.AuditAsThirdParty}
		if len(p.Criteria) > 0 {
			cs, err := criteria.NewSet(u, p.Criteria...)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "store: policy for %s", pkg)
			}
			entry.SelfCriteria = &cs
		}
		deps, err := parseDepCriteria(u, p.Dependencies)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "store: policy for %s", pkg)
		}
		entry.PerDependencyCriteria = deps
		s.Policy[depgraph.PackageID(pkg)] = entry
	}

	return u, s, nil
}

func parseDepCriteria(u *criteria.Universe, raw map[string][]string) (map[depgraph.PackageID]criteria.Set, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[depgraph.PackageID]criteria.Set, len(raw))
	for dep, names := range raw {
		cs, err := criteria.NewSet(u, names...)
		if err != nil {
			return nil, errors.Wrapf(err, "dependency %s", dep)
		}
		out[depgraph.PackageID(dep)] = cs
	}
	return out, nil
}

// MarshalAudits serializes u's declared criteria and s back into
// audits.toml bytes, with every map/slice sorted for deterministic output
// (spec §5 Ordering guarantees).
func MarshalAudits(u *criteria.Universe, s *auditstore.Store, declared []criteria.Criterion) ([]byte, error) {
	raw := rawAudits{
		Audits:     make(map[string][]rawFullAudit),
		Deltas:     make(map[string][]rawDeltaAudit),
		Exemptions: make(map[string][]rawExemption),
		Policy:     make(map[string]rawPolicy),
	}

	sortedCriteria := append([]criteria.Criterion(nil), declared...)
	sort.Slice(sortedCriteria, func(i, j int) bool { return sortedCriteria[i].Name < sortedCriteria[j].Name })
	for _, c := range sortedCriteria {
		implies := append([]string(nil), c.Implies...)
		sort.Strings(implies)
		raw.Criteria = append(raw.Criteria, rawCriterion{Name: c.Name, Implies: implies, Description: c.Description})
	}

	for pkg, audits := range s.Full {
		sorted := append([]auditstore.FullAudit(nil), audits...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version.Less(sorted[j].Version) })
		for _, a := range sorted {
			raw.Audits[string(pkg)] = append(raw.Audits[string(pkg)], rawFullAudit{
				Version: a.Version.String(), Criteria: a.Criteria.Names(),
				Dependencies: marshalDepCriteria(a.DependencyCriteria), Who: a.Who, Notes: a.Notes,
			})
		}
	}
	for pkg, deltas := range s.Delta {
		sorted := append([]auditstore.DeltaAudit(nil), deltas...)
		sort.Slice(sorted, func(i, j int) bool {
			if !sorted[i].From.Equal(sorted[j].From) {
				return sorted[i].From.Less(sorted[j].From)
			}
			return sorted[i].To.Less(sorted[j].To)
		})
		for _, d := range sorted {
			raw.Deltas[string(pkg)] = append(raw.Deltas[string(pkg)], rawDeltaAudit{
				From: d.From.String(), To: d.To.String(), Criteria: d.Criteria.Names(),
				Dependencies: marshalDepCriteria(d.DependencyCriteria), Who: d.Who, Notes: d.Notes,
			})
		}
	}
	for pkg, exemptions := range s.Exemptions {
		sorted := append([]auditstore.Exemption(nil), exemptions...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version.Less(sorted[j].Version) })
		for _, e := range sorted {
			raw.Exemptions[string(pkg)] = append(raw.Exemptions[string(pkg)], rawExemption{
				Version: e.Version.String(), Criteria: e.Criteria.Names(),
				Dependencies: marshalDepCriteria(e.DependencyCriteria), Suggest: e.SuggestFlag, Notes: e.Notes,
			})
		}
	}
	for pkg, p := range s.Policy {
		rp := rawPolicy{AuditAsThirdParty: p.AuditAsThirdParty, Dependencies: marshalDepCriteria(p.PerDependencyCriteria)}
		if p.SelfCriteria != nil {
			rp.Criteria = p.SelfCriteria.Names()
		}
		raw.Policy[string(pkg)] = rp
	}

	out, err := toml.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "store: unable to marshal audits.toml")
	}
	return out, nil
}

func marshalDepCriteria(m map[depgraph.PackageID]criteria.Set) map[string][]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string][]string, len(m))
	for pkg, cs := range m {
		out[string(pkg)] = cs.Names()
	}
	return out
}
