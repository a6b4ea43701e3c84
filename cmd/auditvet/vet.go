package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"

	auditvet "github.com/auditvet/auditvet"
	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/policy"
)

const vetShortHelp = `Check a resolved dependency graph against the audit store`
const vetLongHelp = `
Reads a resolved dependency graph (see -input) and checks every node against
the criteria required of it, propagating audits, deltas, and exemptions
across the graph. Exits non-zero and lists every unmet requirement if the
graph doesn't pass.

With -locked, a stale imports.lock (one whose recorded criteria hashes no
longer match audits.toml) is treated as a hard failure instead of being
silently ignored; run 'auditvet accept-criteria-change' first.
`

type vetCommand struct{}

func (cmd *vetCommand) Name() string      { return "vet" }
func (cmd *vetCommand) Args() string      { return "[root]" }
func (cmd *vetCommand) ShortHelp() string { return vetShortHelp }
func (cmd *vetCommand) LongHelp() string  { return vetLongHelp }
func (cmd *vetCommand) Hidden() bool      { return false }
func (cmd *vetCommand) Register(fs *flag.FlagSet) {}

func (cmd *vetCommand) Run(c *cliCtx, args []string) error {
	w, err := loadWorkspaceArg(c, args)
	if err != nil {
		return err
	}

	if c.lockedOnly {
		if changed := auditvet.CheckLocked(w); len(changed) > 0 {
			return errors.Errorf("imports.lock is stale for criteria %v; run accept-criteria-change", changed)
		}
	}

	g, err := loadGraphInput(c)
	if err != nil {
		return err
	}

	report, err := auditvet.Vet(w, g)
	if err != nil {
		return err
	}

	out, closeOut, err := c.openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	printReport(out, report)
	if !report.OK() {
		return errors.Errorf("%d unmet criteria", len(report.Signals))
	}
	return nil
}

// loadWorkspaceArg loads the workspace rooted at args[0] if given, otherwise
// searches upward from the working directory.
func loadWorkspaceArg(c *cliCtx, args []string) (*auditvet.Workspace, error) {
	if len(args) > 1 {
		return nil, errors.Errorf("too many args (%d)", len(args))
	}
	path := c.workingDir
	if len(args) == 1 {
		path = args[0]
	}
	return c.ctx.LoadWorkspace(path)
}

// loadGraphInput reads and parses c's configured dependency-graph input.
func loadGraphInput(c *cliCtx) (*depgraph.Graph, error) {
	r, err := c.openInput()
	if err != nil {
		return nil, errors.Wrap(err, "opening dependency-graph input")
	}
	defer r.Close()
	return depgraph.LoadGraph(r)
}

// printReport writes a one-line-per-signal summary, the same
// tabwriter-column-alignment idiom the teacher's status.go uses for its
// project listings.
func printReport(w io.Writer, report *policy.Report) {
	if report.OK() {
		io.WriteString(w, "auditvet: all criteria satisfied\n")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tVERSION\tCRITERION\tREASON")
	for _, s := range report.Signals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Package, s.Version, s.Criterion, s.Kind)
	}
	tw.Flush()
}
