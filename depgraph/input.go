package depgraph

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/auditvet/auditvet/version"
)

// rawSource mirrors spec §3's external dependency-graph input shape: a
// list of packages, each with its declared dependency edges, plus the
// workspace-root ids. This is the one place encoding/json (rather than
// go-toml) is used, grounded on the teacher's lock.go rawLock JSON
// shape — this is a foreign, pre-existing wire format produced by the
// external manifest parser (spec §1 Non-goal: "parsing the project's
// package manifest"), not part of this tool's own store.
type rawSource struct {
	Packages []rawPackage `json:"packages"`
	Roots    []string     `json:"roots"`
}

type rawPackage struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Source       string       `json:"source"`
	FirstParty   bool         `json:"first_party"`
	Dependencies []rawDepEdge `json:"dependencies"`
}

type rawDepEdge struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func parseEdgeKind(s string) (EdgeKind, error) {
	switch s {
	case "", "normal":
		return EdgeNormal, nil
	case "build":
		return EdgeBuild, nil
	case "dev":
		return EdgeDev, nil
	default:
		return 0, errors.Errorf("depgraph: unknown edge kind %q", s)
	}
}

// LoadGraph parses r as the external dependency-graph input (spec §3,
// §6): one entry per resolved package id, edges referencing other ids by
// name, plus a set of workspace-root ids. Dependency edges carry only a
// name and a kind, never an id, so a name that resolves to more than one
// version in the input is ambiguous: the first package listed with that
// name wins, and the other versions of that name are never the target of
// an edge.
func LoadGraph(r io.Reader) (*Graph, error) {
	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "depgraph: unable to read dependency graph input")
	}

	var raw rawSource
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		return nil, errors.Wrap(err, "depgraph: unable to parse dependency graph input")
	}

	idIndex := make(map[string]int, len(raw.Packages))
	nameIndex := make(map[string][]int, len(raw.Packages))
	g := &Graph{Nodes: make([]Node, len(raw.Packages))}

	for i, p := range raw.Packages {
		v, err := version.Parse(p.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "depgraph: package %s", p.ID)
		}
		g.Nodes[i] = Node{
			ID:         NodeID(i),
			Package:    PackageID(p.Name),
			Version:    v,
			FirstParty: p.FirstParty,
		}
		idIndex[p.ID] = i
		nameIndex[p.Name] = append(nameIndex[p.Name], i)
	}

	for i, p := range raw.Packages {
		for _, e := range p.Dependencies {
			kind, err := parseEdgeKind(e.Kind)
			if err != nil {
				return nil, errors.Wrapf(err, "depgraph: package %s", p.ID)
			}
			candidates, ok := nameIndex[e.Name]
			if !ok || len(candidates) == 0 {
				return nil, errors.Errorf("depgraph: package %s depends on unknown package %q", p.ID, e.Name)
			}
			sort.Ints(candidates)
			g.Nodes[i].Edges = append(g.Nodes[i].Edges, Edge{To: NodeID(candidates[0]), Kind: kind})
		}
	}

	for _, rootID := range raw.Roots {
		idx, ok := idIndex[rootID]
		if !ok {
			return nil, errors.Errorf("depgraph: workspace root %q not found among packages", rootID)
		}
		g.Roots = append(g.Roots, NodeID(idx))
	}

	return g, nil
}
