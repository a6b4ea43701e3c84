package main

import (
	"flag"

	"github.com/pkg/errors"

	auditvet "github.com/auditvet/auditvet"
)

const certifyShortHelp = `Vet the graph and, on success, write imports.lock`
const certifyLongHelp = `
Runs the same check as 'vet'. If every node meets its required criteria, the
resolved (package, version) set and the current criteria hashes are written
to imports.lock, so a future 'vet -locked' run can detect whether the
criteria lattice has shifted underneath an existing lock.
`

type certifyCommand struct{}

func (cmd *certifyCommand) Name() string              { return "certify" }
func (cmd *certifyCommand) Args() string              { return "[root]" }
func (cmd *certifyCommand) ShortHelp() string         { return certifyShortHelp }
func (cmd *certifyCommand) LongHelp() string          { return certifyLongHelp }
func (cmd *certifyCommand) Hidden() bool              { return false }
func (cmd *certifyCommand) Register(fs *flag.FlagSet) {}

func (cmd *certifyCommand) Run(c *cliCtx, args []string) error {
	w, err := loadWorkspaceArg(c, args)
	if err != nil {
		return err
	}
	g, err := loadGraphInput(c)
	if err != nil {
		return err
	}

	report, lock, err := auditvet.Certify(w, g)
	if err != nil {
		return err
	}

	out, closeOut, err := c.openOutput()
	if err != nil {
		return err
	}
	defer closeOut()
	printReport(out, report)

	if lock == nil {
		return errors.Errorf("%d unmet criteria, imports.lock not written", len(report.Signals))
	}

	if err := w.Save(lock); err != nil {
		return errors.Wrap(err, "writing imports.lock")
	}
	c.out.Logf("wrote imports.lock for %d packages\n", len(lock.Packages))
	return nil
}
