// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command auditvet resolves a dependency graph's supply-chain audit
// coverage against a criteria-based audit store.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	auditvet "github.com/auditvet/auditvet"
	"github.com/auditvet/auditvet/internal/dlog"
)

type command interface {
	Name() string           // "foobar"
	Args() string           // "<baz> [quux...]"
	ShortHelp() string      // "Foo the first bar"
	LongHelp() string       // "Foo the first bar meeting the following conditions..."
	Register(*flag.FlagSet) // command-specific flags
	Hidden() bool           // indicates whether the command should be hidden from help output
	Run(*cliCtx, []string) error
}

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory", err)
		os.Exit(1)
	}
	c := &Config{
		Args:       os.Args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
	}
	os.Exit(c.Run())
}

// Config specifies a full configuration for an auditvet execution.
type Config struct {
	WorkingDir     string
	Args           []string
	Stdout, Stderr io.Writer
}

// cliCtx bundles what every subcommand needs beyond auditvet.Ctx: the
// resolved working directory, loggers, the writer command output goes to by
// default, and the global flag values (the dependency-graph input path is
// kept here; commands that need the graph parse it themselves).
type cliCtx struct {
	ctx        *auditvet.Ctx
	workingDir string
	out, err   *dlog.Logger
	stdout     io.Writer

	inputPath  string
	diffCache  string
	lockedOnly bool
	oracleCmd  string
	outputFile string
}

// Run executes a configuration and returns an exit code.
func (c *Config) Run() (exitCode int) {
	commands := []command{
		&initCommand{},
		&vetCommand{},
		&certifyCommand{},
		&suggestCommand{},
		&inspectCommand{},
		&diffCommand{},
		&fmtCommand{},
		&acceptCriteriaChangeCommand{},
	}

	examples := [][2]string{
		{"auditvet init", "set up a new audit-vet store"},
		{"auditvet vet -input deps.json", "check the resolved graph against the store"},
		{"auditvet suggest -input deps.json", "propose repairs for unmet criteria"},
		{"auditvet certify -input deps.json", "vet and, on success, write imports.lock"},
	}

	outLogger := dlog.New(c.Stdout)
	errLogger := dlog.New(c.Stderr)

	usage := func() {
		errLogger.Logln("auditvet checks a resolved dependency graph against a criteria-based audit store")
		errLogger.Logln()
		errLogger.Logln("Usage: auditvet <command>")
		errLogger.Logln()
		errLogger.Logln("Commands:")
		errLogger.Logln()
		w := tabwriter.NewWriter(c.Stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			if !cmd.Hidden() {
				fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
			}
		}
		w.Flush()
		errLogger.Logln()
		errLogger.Logln("Examples:")
		for _, example := range examples {
			fmt.Fprintf(w, "\t%s\t%s\n", example[0], example[1])
		}
		w.Flush()
		errLogger.Logln()
		errLogger.Logln(`Use "auditvet help <command>" for more information about a command.`)
	}

	cmdName, printCommandHelp, exit := parseArgs(c.Args)
	if exit {
		usage()
		return 1
	}

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}

		fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		verbose := fs.Bool("v", false, "enable verbose logging")
		input := fs.String("input", "", "path to the dependency-graph JSON input (default: stdin)")
		diffCache := fs.String("diff-cache", "", "directory holding the diff-oracle cost cache (default: <store>/diff-cache)")
		locked := fs.Bool("locked", false, "fail instead of re-resolving if imports.lock is stale")
		oracleCmd := fs.String("oracle-cmd", "", "external command invoked as '<cmd> full-review PKG VERSION' / '<cmd> delta PKG FROM TO' to cost a review; a constant placeholder cost is used when unset")
		outputFile := fs.String("output-file", "", "write command output here instead of stdout")
		logFile := fs.String("log-file", "", "redirect log output to this file instead of stderr/stdout")

		cmd.Register(fs)
		resetUsage(errLogger, fs, cmdName, cmd.Args(), cmd.LongHelp())

		if printCommandHelp {
			fs.Usage()
			return 1
		}

		if err := fs.Parse(c.Args[2:]); err != nil {
			return 1
		}

		cmdOut, cmdErr := outLogger, errLogger
		if *logFile != "" {
			f, ferr := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if ferr != nil {
				errLogger.LogAuditvetfln("opening -log-file %s: %v", *logFile, ferr)
				return 1
			}
			defer f.Close()
			cmdOut, cmdErr = dlog.New(f), dlog.New(f)
		}
		cmdOut.Verbose = *verbose
		cmdErr.Verbose = *verbose

		cctx := &cliCtx{
			ctx:        &auditvet.Ctx{DiffCacheDir: *diffCache},
			workingDir: c.WorkingDir,
			out:        cmdOut,
			err:        cmdErr,
			stdout:     c.Stdout,
			inputPath:  *input,
			diffCache:  *diffCache,
			lockedOnly: *locked,
			oracleCmd:  *oracleCmd,
			outputFile: *outputFile,
		}

		if err := cmd.Run(cctx, fs.Args()); err != nil {
			cmdErr.LogAuditvetfln("%v", err)
			return 1
		}
		return 0
	}

	errLogger.LogAuditvetfln("%s: no such command", cmdName)
	usage()
	return 1
}

func resetUsage(logger *dlog.Logger, fs *flag.FlagSet, name, args, longHelp string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		defValue := f.DefValue
		if defValue == "" {
			defValue = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, defValue)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		logger.Logf("Usage: auditvet %s %s\n", name, args)
		logger.Logln()
		logger.Logln(strings.TrimSpace(longHelp))
		logger.Logln()
		if hasFlags {
			logger.Logln("Flags:")
			logger.Logln()
			logger.Logln(flagBlock.String())
		}
	}
}

// parseArgs determines the name of the auditvet command and whether the
// user asked for help to be printed.
func parseArgs(args []string) (cmdName string, printCmdUsage bool, exit bool) {
	isHelpArg := func() bool {
		return strings.Contains(strings.ToLower(args[1]), "help") || strings.ToLower(args[1]) == "-h"
	}

	switch len(args) {
	case 0, 1:
		exit = true
	case 2:
		if isHelpArg() {
			exit = true
		}
		cmdName = args[1]
	default:
		if isHelpArg() {
			cmdName = args[2]
			printCmdUsage = true
		} else {
			cmdName = args[1]
		}
	}
	return cmdName, printCmdUsage, exit
}

// openInput opens c.inputPath, or stdin when it's empty.
func (c *cliCtx) openInput() (io.ReadCloser, error) {
	if c.inputPath == "" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(c.inputPath)
}

// openOutput opens c.outputFile, or returns the command's stdout (Config.Stdout)
// when it's empty. Callers should not close the returned writer when it is
// stdout.
func (c *cliCtx) openOutput() (io.Writer, func() error, error) {
	if c.outputFile == "" {
		return c.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(c.outputFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
