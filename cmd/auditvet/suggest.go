package main

import (
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"

	auditvet "github.com/auditvet/auditvet"
	"github.com/auditvet/auditvet/suggest"
)

const suggestShortHelp = `Propose repairs for a failing vet`
const suggestLongHelp = `
Runs 'vet' and, for every unmet criterion, proposes the cheapest repair: a
new full audit, a delta from an already-trusted version, or (as a last
resort) an exemption. Cost estimates come from -oracle-cmd, or a constant
placeholder if it isn't set.

With -guess-deeper, each proposed candidate is additionally speculatively
applied (to an isolated copy of the store) and re-resolved, so its listed
"unlocks" column shows what else it would fix without actually writing
anything.
`

type suggestCommand struct {
	guessDeeper bool
}

func (cmd *suggestCommand) Name() string      { return "suggest" }
func (cmd *suggestCommand) Args() string      { return "[root]" }
func (cmd *suggestCommand) ShortHelp() string { return suggestShortHelp }
func (cmd *suggestCommand) LongHelp() string  { return suggestLongHelp }
func (cmd *suggestCommand) Hidden() bool      { return false }

func (cmd *suggestCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.guessDeeper, "guess-deeper", false, "speculatively apply each candidate and report what it would unlock")
}

func (cmd *suggestCommand) Run(c *cliCtx, args []string) error {
	w, err := loadWorkspaceArg(c, args)
	if err != nil {
		return err
	}
	g, err := loadGraphInput(c)
	if err != nil {
		return err
	}
	oracle, err := c.buildOracle(w.Root)
	if err != nil {
		return err
	}

	candidates, report, err := auditvet.Suggest(w, g, oracle)
	if err != nil {
		return err
	}

	out, closeOut, err := c.openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	if report.OK() {
		fmt.Fprintln(out, "auditvet: all criteria satisfied, nothing to suggest")
		return nil
	}

	var outcomes []auditvet.GuessDeeperOutcome
	if cmd.guessDeeper {
		outcomes, err = auditvet.GuessDeeper(w, g, candidates)
		if err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	header := "KIND\tPACKAGE\tFROM\tTO\tMISSING\tCOST"
	if cmd.guessDeeper {
		header += "\tUNLOCKS"
	}
	fmt.Fprintln(tw, header)
	for i, cand := range candidates {
		from := ""
		if cand.Kind == suggest.DeltaFrom {
			from = cand.From.String()
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%d", cand.Kind, cand.Package, from, cand.To, cand.Missing.Names(), cand.Cost)
		if cmd.guessDeeper {
			unlocks := len(report.Signals) - len(outcomes[i].Report.Signals)
			line += fmt.Sprintf("\t%d", unlocks)
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()

	return errors.Errorf("%d unmet criteria, %d candidates proposed", len(report.Signals), len(candidates))
}
