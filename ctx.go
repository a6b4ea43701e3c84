// Package auditvet resolves a dependency graph's supply-chain audit
// coverage: it loads a store of criteria, audits, deltas, and exemptions,
// propagates per-package policy requirements across a resolved dependency
// graph, and reports every package version that falls short.
package auditvet

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/auditvet/auditvet/internal/fsutil"
	"github.com/auditvet/auditvet/store"
)

// StoreDirName is the directory, conventionally checked into version
// control alongside the workspace manifest, holding audits.toml,
// config.toml, and imports.lock.
const StoreDirName = "audit-vet"

var errWorkspaceNotFound = errors.Errorf("could not find a %s directory, use `auditvet init` to create one", StoreDirName)

// Ctx carries the ambient state every subcommand needs: where the
// diff cache lives. Grounded on the
// teacher's context.go Ctx, trimmed to what this tool actually needs
// (GOPATH resolution has no analog here since auditvet isn't tied to a
// single build toolchain's workspace layout).
type Ctx struct {
	DiffCacheDir string
}

// findStoreRoot searches from the starting directory upwards for a
// directory named StoreDirName, the same upward walk as the teacher's
// project.go findProjectRoot, generalized to stop at a directory rather
// than a single marker file.
func findStoreRoot(from string) (string, error) {
	for {
		sp := filepath.Join(from, StoreDirName)
		if ok, err := fsutil.IsDir(sp); err != nil {
			return "", err
		} else if ok {
			return sp, nil
		}

		parent := filepath.Dir(from)
		if parent == from {
			return "", errWorkspaceNotFound
		}
		from = parent
	}
}

// LoadWorkspace finds and parses the audit store rooted at or above path.
// An empty path searches upward from the current working directory.
func (c *Ctx) LoadWorkspace(path string) (*Workspace, error) {
	var err error
	var start string
	if path == "" {
		start, err = os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "auditvet: getting working directory")
		}
	} else {
		start, err = filepath.Abs(path)
		if err != nil {
			return nil, errors.Wrapf(err, "auditvet: resolving %s", path)
		}
	}

	root, err := findStoreRoot(start)
	if err != nil {
		return nil, err
	}

	return loadWorkspaceFrom(root)
}

func loadWorkspaceFrom(root string) (*Workspace, error) {
	w := &Workspace{Root: root}

	af, err := os.Open(filepath.Join(root, store.AuditsName))
	if err != nil {
		return nil, errors.Wrapf(err, "auditvet: opening %s", store.AuditsName)
	}
	defer af.Close()
	w.Universe, w.Store, err = store.LoadAudits(af)
	if err != nil {
		return nil, err
	}

	cp := filepath.Join(root, store.ConfigName)
	if ok, err := fsutil.IsRegular(cp); err != nil {
		return nil, err
	} else if ok {
		cf, err := os.Open(cp)
		if err != nil {
			return nil, errors.Wrapf(err, "auditvet: opening %s", store.ConfigName)
		}
		defer cf.Close()
		w.Config, err = store.LoadConfig(cf)
		if err != nil {
			return nil, err
		}
	} else {
		w.Config = &store.Config{}
	}

	lp := filepath.Join(root, store.ImportsLockName)
	if ok, err := fsutil.IsRegular(lp); err != nil {
		return nil, err
	} else if ok {
		lf, err := os.Open(lp)
		if err != nil {
			return nil, errors.Wrapf(err, "auditvet: opening %s", store.ImportsLockName)
		}
		defer lf.Close()
		w.Lock, err = store.LoadLock(lf)
		if err != nil {
			return nil, err
		}
	}

	return w, nil
}
