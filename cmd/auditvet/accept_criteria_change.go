package main

import (
	"flag"

	"github.com/pkg/errors"

	"github.com/auditvet/auditvet/store"
)

const acceptCriteriaChangeShortHelp = `Re-stamp imports.lock after reviewing a criteria change`
const acceptCriteriaChangeLongHelp = `
Recomputes imports.lock's criteria-hashes map from the criteria currently
declared in audits.toml and writes it back, without touching the locked
package list. Run this after reviewing what a criterion's implies list
changed to and confirming existing audits still mean what they used to.
`

type acceptCriteriaChangeCommand struct{}

func (cmd *acceptCriteriaChangeCommand) Name() string      { return "accept-criteria-change" }
func (cmd *acceptCriteriaChangeCommand) Args() string      { return "[root]" }
func (cmd *acceptCriteriaChangeCommand) ShortHelp() string { return acceptCriteriaChangeShortHelp }
func (cmd *acceptCriteriaChangeCommand) LongHelp() string  { return acceptCriteriaChangeLongHelp }
func (cmd *acceptCriteriaChangeCommand) Hidden() bool      { return false }
func (cmd *acceptCriteriaChangeCommand) Register(fs *flag.FlagSet) {}

func (cmd *acceptCriteriaChangeCommand) Run(c *cliCtx, args []string) error {
	w, err := loadWorkspaceArg(c, args)
	if err != nil {
		return err
	}
	if w.Lock == nil {
		return errors.New("no imports.lock to update; run certify first")
	}

	updated := &store.Lock{
		CriteriaHashes: store.CriteriaHashes(w.Universe.Declared()),
		Packages:       w.Lock.Packages,
	}
	if err := w.Save(updated); err != nil {
		return err
	}
	c.out.Logf("accepted criteria change for %s\n", w.Root)
	return nil
}
