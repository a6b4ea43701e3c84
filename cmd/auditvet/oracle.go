package main

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/auditvet/auditvet/depgraph"
	"github.com/auditvet/auditvet/store"
	"github.com/auditvet/auditvet/suggest"
	"github.com/auditvet/auditvet/version"
)

// oracleTimeout bounds how long an external oracle command may run before
// it's killed, the same monitored-process discipline as the teacher's
// cmd.go monitoredCmd, simplified to a flat timeout since review-cost
// estimation has no meaningful "still making progress" signal to watch.
const oracleTimeout = 2 * time.Minute

// placeholderCost is returned by constOracle when no -oracle-cmd is
// configured: a deliberately uninformative but deterministic score so
// `suggest`'s ranking degrades to "fewest unknowns first" instead of
// erroring outright.
const placeholderCost = 100

// constOracle is the fallback suggest.DiffOracle used when the operator
// hasn't wired in a real reviewer-cost estimator.
type constOracle struct{}

func (constOracle) FullReview(depgraph.PackageID, version.Version) (int, error) {
	return placeholderCost, nil
}

func (constOracle) Delta(depgraph.PackageID, version.Version, version.Version) (int, error) {
	return placeholderCost / 2, nil
}

// commandOracle shells out to an external program to estimate review cost,
// since auditvet itself never fetches or diffs package source (spec §1).
// The command is invoked as:
//
//	<cmd> full-review <package> <version>
//	<cmd> delta <package> <from> <to>
//
// and is expected to print a single non-negative integer to stdout.
type commandOracle struct {
	path string
}

func (o commandOracle) run(args ...string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), oracleTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, o.path, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return 0, errors.Wrapf(err, "oracle command %q", append([]string{o.path}, args...))
	}

	cost, err := strconv.Atoi(strings.TrimSpace(stdout.String()))
	if err != nil {
		return 0, errors.Wrapf(err, "oracle command %q printed a non-integer cost %q", o.path, stdout.String())
	}
	return cost, nil
}

func (o commandOracle) FullReview(pkg depgraph.PackageID, at version.Version) (int, error) {
	return o.run("full-review", string(pkg), at.String())
}

func (o commandOracle) Delta(pkg depgraph.PackageID, from, to version.Version) (int, error) {
	return o.run("delta", string(pkg), from.String(), to.String())
}

// buildOracle wires c.oracleCmd (if any) through a diff cache so repeated
// suggest/diff runs over the same workspace don't re-invoke the external
// reviewer for a (package, from, to) triple already costed.
func (c *cliCtx) buildOracle(storeDir string) (suggest.DiffOracle, error) {
	var base suggest.DiffOracle = constOracle{}
	if c.oracleCmd != "" {
		base = commandOracle{path: c.oracleCmd}
	}

	dir := c.diffCache
	if dir == "" {
		dir = filepath.Join(storeDir, store.DiffCacheName)
	}
	cache, err := store.OpenDiffCache(dir)
	if err != nil {
		return nil, errors.Wrap(err, "opening diff cache")
	}
	return &store.CachingOracle{
		Cache:          cache,
		FullReviewFunc: base.FullReview,
		DeltaFunc:      base.Delta,
	}, nil
}
