package main

import (
	"flag"
)

const fmtShortHelp = `Canonicalize audits.toml and config.toml`
const fmtLongHelp = `
Parses the store and re-serializes it through the same writer 'vet' itself
uses, without changing semantic content. Useful after hand-editing
audits.toml to normalize key order and whitespace.
`

type fmtCommand struct{}

func (cmd *fmtCommand) Name() string              { return "fmt" }
func (cmd *fmtCommand) Args() string              { return "[root]" }
func (cmd *fmtCommand) ShortHelp() string         { return fmtShortHelp }
func (cmd *fmtCommand) LongHelp() string          { return fmtLongHelp }
func (cmd *fmtCommand) Hidden() bool              { return false }
func (cmd *fmtCommand) Register(fs *flag.FlagSet) {}

func (cmd *fmtCommand) Run(c *cliCtx, args []string) error {
	w, err := loadWorkspaceArg(c, args)
	if err != nil {
		return err
	}
	if err := w.Save(w.Lock); err != nil {
		return err
	}
	c.out.Logf("formatted %s\n", w.Root)
	return nil
}
