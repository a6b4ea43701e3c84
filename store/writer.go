package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/auditvet/auditvet/internal/fsutil"
)

// SafeWriter transactionalizes writes of audits.toml, config.toml, and
// imports.lock into a single pseudo-atomic action with rollback, adapted
// from the teacher's txn_writer.go SafeWriter/SafeWriterPayload.
type SafeWriter struct {
	Payload *SafeWriterPayload
}

// SafeWriterPayload is the set of files SafeWriter.Write will replace.
// A nil field means "leave this file untouched".
type SafeWriterPayload struct {
	Audits []byte
	Config []byte
	Lock   []byte
}

func (p *SafeWriterPayload) hasAudits() bool { return p.Audits != nil }
func (p *SafeWriterPayload) hasConfig() bool { return p.Config != nil }
func (p *SafeWriterPayload) hasLock() bool   { return p.Lock != nil }

// Write saves whichever of Audits/Config/Lock are non-nil beneath root.
// It first writes every file to a temp dir, then renames them into place
// only once every write has succeeded. If a later rename fails, every
// original file already moved aside is restored over its replacement; a
// file that did not exist under root before the call stays in place.
func (sw *SafeWriter) Write(root string) error {
	if sw.Payload == nil {
		return errors.New("store: cannot call SafeWriter.Write before setting Payload")
	}
	p := sw.Payload
	if !p.hasAudits() && !p.hasConfig() && !p.hasLock() {
		return nil
	}

	if ok, err := fsutil.IsDir(root); !ok {
		if err != nil {
			return err
		}
		return errors.Errorf("store: root path %q does not exist", root)
	}

	td, err := os.MkdirTemp("", "auditvet")
	if err != nil {
		return errors.Wrap(err, "store: unable to create temp dir for atomic write")
	}
	defer os.RemoveAll(td)

	type staged struct {
		name string
		data []byte
	}
	var files []staged
	if p.hasAudits() {
		files = append(files, staged{AuditsName, p.Audits})
	}
	if p.hasConfig() {
		files = append(files, staged{ConfigName, p.Config})
	}
	if p.hasLock() {
		files = append(files, staged{ImportsLockName, p.Lock})
	}

	for _, f := range files {
		if err := os.WriteFile(filepath.Join(td, f.name), f.data, 0o644); err != nil {
			return errors.Wrapf(err, "store: failed to stage %s", f.name)
		}
	}

	type pathpair struct{ from, to string }
	var restore []pathpair
	var failErr error

	for _, f := range files {
		dest := filepath.Join(root, f.name)
		if _, err := os.Stat(dest); err == nil {
			backup := filepath.Join(td, f.name+".orig")
			if failErr = fsutil.RenameWithFallback(dest, backup); failErr != nil {
				goto fail
			}
			restore = append(restore, pathpair{from: backup, to: dest})
		}
		if failErr = fsutil.RenameWithFallback(filepath.Join(td, f.name), dest); failErr != nil {
			goto fail
		}
	}
	return nil

fail:
	for _, pair := range restore {
		fsutil.RenameWithFallback(pair.from, pair.to)
	}
	return failErr
}

// PrintPreparedActions prints what Write would do, without writing
// anything. No command calls it.
func (sw *SafeWriter) PrintPreparedActions(w *os.File) {
	p := sw.Payload
	if p.hasAudits() {
		fmt.Fprintf(w, "Would have written the following %s:\n%s\n", AuditsName, p.Audits)
	}
	if p.hasConfig() {
		fmt.Fprintf(w, "Would have written the following %s:\n%s\n", ConfigName, p.Config)
	}
	if p.hasLock() {
		fmt.Fprintf(w, "Would have written the following %s:\n%s\n", ImportsLockName, p.Lock)
	}
}
