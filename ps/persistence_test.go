package ps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/op"
)

var testIdentity = core.Identity{Name: "Test User", Email: "test@example.com"}

func TestNewMemoryPersistence(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create memory persistence: %v", err)
	}

	if !persistence.IsInitialized() {
		t.Error("Expected persistence to be initialized")
	}
	if !persistence.LatestTransaction().IsZero() {
		t.Error("Expected no transaction in a fresh repository")
	}
}

func TestPersistenceNotInitialized(t *testing.T) {
	var persistence *Persistence

	if persistence.IsInitialized() {
		t.Error("Expected nil persistence to report uninitialized")
	}
	if _, err := persistence.SaveRegistry(op.NewRegistry("main"), testIdentity, ""); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if _, err := persistence.LoadRegistry("main"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if !persistence.LatestTransaction().IsZero() {
		t.Error("Expected zero transaction")
	}
}

func TestFilePersistenceReopen(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	registry := shopRegistry(t)
	txn, err := first.SaveRegistry(registry, testIdentity, "initial")
	if err != nil {
		t.Fatalf("SaveRegistry failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "shop", "users", "rows.json")); err != nil {
		t.Errorf("Expected worktree to be checked out: %v", err)
	}

	second, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to reopen file persistence: %v", err)
	}
	if got := second.LatestTransaction(); got.ID != txn.ID {
		t.Errorf("Expected HEAD %s after reopen, got %s", txn.ID, got.ID)
	}

	loaded, err := second.LoadRegistry("shop")
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}
	users, err := loaded.GetTable("users")
	if err != nil {
		t.Fatalf("GetTable failed: %v", err)
	}
	if users.Len() != 2 {
		t.Errorf("Expected 2 users, got %d", users.Len())
	}
}
