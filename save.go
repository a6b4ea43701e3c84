package auditvet

import (
	"github.com/auditvet/auditvet/auditstore"
	"github.com/auditvet/auditvet/store"
)

// Save writes w's store, config, and (if non-nil) lock back to w.Root as
// a single transactional multi-file write (store.SafeWriter). Only the
// non-nil payload fields are written, matching SafeWriterPayload's
// "nil means untouched" convention.
func (w *Workspace) Save(lock *store.Lock) error {
	audits, err := store.MarshalAudits(w.Universe, w.Store, w.Universe.Declared())
	if err != nil {
		return err
	}
	config, err := store.MarshalConfig(w.Config)
	if err != nil {
		return err
	}

	payload := &store.SafeWriterPayload{Audits: audits, Config: config}
	if lock != nil {
		lockBytes, err := store.MarshalLock(lock)
		if err != nil {
			return err
		}
		payload.Lock = lockBytes
		w.Lock = lock
	}

	sw := &store.SafeWriter{Payload: payload}
	return sw.Write(w.Root)
}

// ReplaceStore swaps w.Store for s, e.g. after MinimizeExemptions. Callers
// still need to call Save to persist the change.
func (w *Workspace) ReplaceStore(s *auditstore.Store) {
	w.Store = s
}
