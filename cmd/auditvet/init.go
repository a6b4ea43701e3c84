// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	auditvet "github.com/auditvet/auditvet"
	"github.com/auditvet/auditvet/auditstore"
	"github.com/auditvet/auditvet/criteria"
	"github.com/auditvet/auditvet/internal/fsutil"
	"github.com/auditvet/auditvet/store"
)

const initShortHelp = `Create a new audit-vet store`
const initLongHelp = `
Initializes the audit-vet directory at filepath root, writing a starter
audits.toml with the two built-in criteria (safe-to-run, safe-to-deploy) and
no audits. If root isn't specified, use the current directory.
`

// defaultCriteria seeds a fresh store with the two criteria spec §2
// describes as always present: safe-to-run and safe-to-deploy, with
// safe-to-deploy implying safe-to-run.
var defaultCriteria = []criteria.Criterion{
	{Name: criteria.SafeToRun, Description: "safe to execute, with no ability to cause lasting damage"},
	{Name: criteria.SafeToDeploy, Implies: []string{criteria.SafeToRun}, Description: "safe to deploy to production"},
}

type initCommand struct{}

func (cmd *initCommand) Name() string              { return "init" }
func (cmd *initCommand) Args() string              { return "[root]" }
func (cmd *initCommand) ShortHelp() string         { return initShortHelp }
func (cmd *initCommand) LongHelp() string          { return initLongHelp }
func (cmd *initCommand) Hidden() bool              { return false }
func (cmd *initCommand) Register(fs *flag.FlagSet) {}

func (cmd *initCommand) Run(c *cliCtx, args []string) error {
	if len(args) > 1 {
		return errors.Errorf("too many args (%d)", len(args))
	}

	root := c.workingDir
	if len(args) == 1 {
		root = args[0]
		if !filepath.IsAbs(root) {
			root = filepath.Join(c.workingDir, root)
		}
		if err := os.MkdirAll(root, 0o777); err != nil {
			return errors.Wrapf(err, "init failed: unable to create a directory at %s", root)
		}
	}

	storeDir := filepath.Join(root, auditvet.StoreDirName)
	if ok, err := fsutil.IsDir(storeDir); err != nil {
		return err
	} else if ok {
		return errors.Errorf("init aborted: %s already exists", storeDir)
	}

	if err := os.MkdirAll(storeDir, 0o777); err != nil {
		return errors.Wrapf(err, "init failed: unable to create %s", storeDir)
	}

	u, err := criteria.NewUniverse(defaultCriteria)
	if err != nil {
		return err
	}
	s := auditstore.NewStore()

	audits, err := store.MarshalAudits(u, s, defaultCriteria)
	if err != nil {
		return err
	}
	config, err := store.MarshalConfig(&store.Config{})
	if err != nil {
		return err
	}

	sw := &store.SafeWriter{Payload: &store.SafeWriterPayload{Audits: audits, Config: config}}
	if err := sw.Write(storeDir); err != nil {
		return err
	}

	c.out.Logf("initialized %s\n", storeDir)
	return nil
}
