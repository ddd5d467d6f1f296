// Package testutil provides shared test helpers for databases and vaults.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/outline/internal/storage"
	"github.com/starford/outline/internal/store"
)

// TestDB opens a temporary SQLite node store that is removed after the test.
func TestDB(t testing.TB) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "outline-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			os.Remove(dbFile.Name() + suffix)
		}
	})

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary export vault.
func TestVault(t testing.TB) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	vault, err := storage.NewFS(vaultDir, false)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, vault
}
