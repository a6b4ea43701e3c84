package main

import (
	"flag"

	"github.com/pkg/errors"

	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/version"
)

const diffShortHelp = `Cost a version change via the configured diff oracle`
const diffLongHelp = `
Estimates (and caches) the review cost of a version change, using the same
-oracle-cmd diff oracle 'suggest' uses internally. Useful for
pre-warming the diff cache before a large suggest run.

  auditvet diff <package> <to>          # cost of a full review at <to>
  auditvet diff <package> <from> <to>   # cost of a delta from <from> to <to>
`

type diffCommand struct{}

func (cmd *diffCommand) Name() string              { return "diff" }
func (cmd *diffCommand) Args() string              { return "<package> [from] <to>" }
func (cmd *diffCommand) ShortHelp() string         { return diffShortHelp }
func (cmd *diffCommand) LongHelp() string          { return diffLongHelp }
func (cmd *diffCommand) Hidden() bool              { return false }
func (cmd *diffCommand) Register(fs *flag.FlagSet) {}

func (cmd *diffCommand) Run(c *cliCtx, args []string) error {
	w, err := c.ctx.LoadWorkspace(c.workingDir)
	if err != nil {
		return err
	}
	oracle, err := c.buildOracle(w.Root)
	if err != nil {
		return err
	}

	switch len(args) {
	case 2:
		pkg := depgraph.PackageID(args[0])
		to, err := version.Parse(args[1])
		if err != nil {
			return err
		}
		cost, err := oracle.FullReview(pkg, to)
		if err != nil {
			return err
		}
		c.out.Logf("%s@%s: full review cost %d\n", pkg, to, cost)
	case 3:
		pkg := depgraph.PackageID(args[0])
		from, err := version.Parse(args[1])
		if err != nil {
			return err
		}
		to, err := version.Parse(args[2])
		if err != nil {
			return err
		}
		cost, err := oracle.Delta(pkg, from, to)
		if err != nil {
			return err
		}
		c.out.Logf("%s@%s..%s: delta cost %d\n", pkg, from, to, cost)
	default:
		return errors.Errorf("expected 2 or 3 args, got %d", len(args))
	}
	return nil
}
