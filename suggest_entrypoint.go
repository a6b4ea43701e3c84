package auditvet

import (
	"github.com/auditvet/auditvet/depctx"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/policy"
	"github.com/auditvet/auditvet/suggest"
)

// Suggest resolves g against a copy of w's store with every movable
// (suggest_flag=true) exemption stripped out, then proposes ranked repair
// candidates for every resulting signal via oracle. A package passing only
// thanks to a movable exemption must surface as a signal here, and must
// never be treated as a reachable delta source, or suggest would just keep
// recommending the stopgap it's supposed to replace. It never mutates
// w.Store.
func Suggest(w *Workspace, g *depgraph.Graph, oracle suggest.DiffOracle) ([]suggest.Candidate, *policy.Report, error) {
	stripped := stripMovableExemptions(w.Store)

	ctxs := depctx.Compute(g)
	report, err := policy.Resolve(g, ctxs, stripped, w.Universe)
	if err != nil {
		return nil, nil, err
	}
	if report.OK() {
		return nil, report, nil
	}

	graphs := buildGraphs(stripped, g)
	candidates, err := suggest.ForSignals(report.Signals, w.Universe, graphs, oracle)
	if err != nil {
		return nil, nil, err
	}
	return candidates, report, nil
}

// GuessDeeperOutcome pairs a candidate with what applying it alone, to an
// otherwise-unmodified clone of the store, would unlock across the whole
// graph.
type GuessDeeperOutcome struct {
	Candidate suggest.Candidate
	Report    *policy.Report
}

// GuessDeeper speculatively applies each of candidates to its own
// independent clone of the same movable-exemption-stripped baseline
// Suggest scored candidates against, and re-resolves the whole graph (spec
// §4.5 item 4 / SPEC_FULL.md supplement 2: "suggest --guess-deeper"), so
// one candidate's trial score can never leak into another's, and no unlock
// can be credited to a stopgap exemption the candidate is meant to
// replace. w.Store is left untouched.
func GuessDeeper(w *Workspace, g *depgraph.Graph, candidates []suggest.Candidate) ([]GuessDeeperOutcome, error) {
	stripped := stripMovableExemptions(w.Store)
	ctxs := depctx.Compute(g)
	out := make([]GuessDeeperOutcome, len(candidates))
	for i, c := range candidates {
		report, err := suggest.GuessDeeper(c, g, ctxs, stripped, w.Universe)
		if err != nil {
			return nil, err
		}
		out[i] = GuessDeeperOutcome{Candidate: c, Report: report}
	}
	return out, nil
}
