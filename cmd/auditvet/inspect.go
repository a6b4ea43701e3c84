package main

import (
	"flag"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/auditvet/auditvet/depgraph"
)

const inspectShortHelp = `Print the criteria lattice and audit store contents`
const inspectLongHelp = `
Prints every declared criterion (with its implies list and, if present, its
description) and every package's full audits, deltas, and exemptions. Useful
for reviewing what's actually recorded without re-running a full vet.
`

type inspectCommand struct{}

func (cmd *inspectCommand) Name() string              { return "inspect" }
func (cmd *inspectCommand) Args() string              { return "[root]" }
func (cmd *inspectCommand) ShortHelp() string         { return inspectShortHelp }
func (cmd *inspectCommand) LongHelp() string          { return inspectLongHelp }
func (cmd *inspectCommand) Hidden() bool              { return false }
func (cmd *inspectCommand) Register(fs *flag.FlagSet) {}

func (cmd *inspectCommand) Run(c *cliCtx, args []string) error {
	w, err := loadWorkspaceArg(c, args)
	if err != nil {
		return err
	}

	out, closeOut, err := c.openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	declared := w.Universe.Declared()
	sort.Slice(declared, func(i, j int) bool { return declared[i].Name < declared[j].Name })

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CRITERION\tIMPLIES\tDESCRIPTION")
	for _, crit := range declared {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", crit.Name, crit.Implies, crit.Description)
	}
	tw.Flush()
	fmt.Fprintln(out)

	var pkgs []depgraph.PackageID
	seen := make(map[depgraph.PackageID]bool)
	for pkg := range w.Store.Full {
		if !seen[pkg] {
			seen[pkg] = true
			pkgs = append(pkgs, pkg)
		}
	}
	for pkg := range w.Store.Delta {
		if !seen[pkg] {
			seen[pkg] = true
			pkgs = append(pkgs, pkg)
		}
	}
	for pkg := range w.Store.Exemptions {
		if !seen[pkg] {
			seen[pkg] = true
			pkgs = append(pkgs, pkg)
		}
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i] < pkgs[j] })

	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tKIND\tFROM\tTO\tCRITERIA\tWHO")
	for _, pkg := range pkgs {
		for _, a := range w.Store.Full[pkg] {
			fmt.Fprintf(tw, "%s\tfull\t\t%s\t%s\t%s\n", pkg, a.Version, a.Criteria.Names(), a.Who)
		}
		for _, a := range w.Store.Delta[pkg] {
			fmt.Fprintf(tw, "%s\tdelta\t%s\t%s\t%s\t%s\n", pkg, a.From, a.To, a.Criteria.Names(), a.Who)
		}
		for _, e := range w.Store.Exemptions[pkg] {
			fmt.Fprintf(tw, "%s\texemption\t\t%s\t%s\t\n", pkg, e.Version, e.Criteria.Names())
		}
	}
	tw.Flush()

	return nil
}
