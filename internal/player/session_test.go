package player

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSessionStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	store := &FileSessionStore{Path: path}

	id, err := store.SessionID()
	if err != nil {
		t.Fatalf("SessionID: %v", err)
	}
	if id == "" {
		t.Fatal("empty session id")
	}

	again, err := store.SessionID()
	if err != nil {
		t.Fatalf("SessionID: %v", err)
	}
	if again != id {
		t.Errorf("session id not stable: %q then %q", id, again)
	}

	// A fresh store over the same file resolves the same id.
	other := &FileSessionStore{Path: path}
	fromDisk, err := other.SessionID()
	if err != nil {
		t.Fatalf("SessionID: %v", err)
	}
	if fromDisk != id {
		t.Errorf("persisted id = %q, want %q", fromDisk, id)
	}
}

func TestFileSessionStoreIgnoresEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := &FileSessionStore{Path: path}
	id, err := store.SessionID()
	if err != nil {
		t.Fatalf("SessionID: %v", err)
	}
	if id == "" {
		t.Error("expected a generated id for an empty file")
	}
}
