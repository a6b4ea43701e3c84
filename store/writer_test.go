package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriterWritesAllFiles(t *testing.T) {
	dir := t.TempDir()
	sw := &SafeWriter{Payload: &SafeWriterPayload{
		Audits: []byte("audits-content"),
		Config: []byte("config-content"),
		Lock:   []byte("lock-content"),
	}}
	if err := sw.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}

	for name, want := range map[string]string{
		AuditsName:      "audits-content",
		ConfigName:      "config-content",
		ImportsLockName: "lock-content",
	} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if string(got) != want {
			t.Fatalf("%s: got %q, want %q", name, got, want)
		}
	}
}

func TestSafeWriterOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, AuditsName), []byte("old"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sw := &SafeWriter{Payload: &SafeWriterPayload{Audits: []byte("new")}}
	if err := sw.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, AuditsName))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "new" {
		t.Fatalf("got %q, want %q", got, "new")
	}
}

func TestSafeWriterNilPayloadFieldsLeaveFileUntouched(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigName), []byte("untouched"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sw := &SafeWriter{Payload: &SafeWriterPayload{Audits: []byte("new-audits")}}
	if err := sw.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, ConfigName))
	if err != nil {
		t.Fatalf("read back config: %v", err)
	}
	if string(got) != "untouched" {
		t.Fatalf("expected config.toml untouched, got %q", got)
	}
}

func TestSafeWriterRejectsMissingRoot(t *testing.T) {
	sw := &SafeWriter{Payload: &SafeWriterPayload{Audits: []byte("x")}}
	if err := sw.Write(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatal("expected error writing to a nonexistent root")
	}
}

func TestSafeWriterNoPayloadFieldsIsNoop(t *testing.T) {
	dir := t.TempDir()
	sw := &SafeWriter{Payload: &SafeWriterPayload{}}
	if err := sw.Write(dir); err != nil {
		t.Fatalf("Write with empty payload should be a no-op, got: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files written, got %v", entries)
	}
}
