// Package testutil provides shared test helpers for setting up vaults,
// caches and a live URL index.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/linkdex/internal/metacache"
	"github.com/starford/linkdex/internal/settings"
	"github.com/starford/linkdex/internal/storage"
	"github.com/starford/linkdex/internal/urlindex"
	"github.com/starford/linkdex/internal/vault"
)

// TestCache creates a temporary metadata cache that is automatically cleaned up.
func TestCache(t *testing.T) *metacache.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "linkdex-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := metacache.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory, writes files into it
// (path → content) and returns the loaded store.
func TestVault(t *testing.T, files map[string]string) (string, *vault.Store) {
	t.Helper()
	vaultDir := t.TempDir()
	for rel, content := range files {
		WriteFile(t, vaultDir, rel, content)
	}
	fs, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	store := vault.New(fs, nil, nil)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestIndex builds a URL index over store with cfg and closes it at the
// end of the test.
func TestIndex(t *testing.T, store *vault.Store, cfg settings.Settings) (*urlindex.Index, *settings.Holder) {
	t.Helper()
	holder := settings.NewHolder(cfg)
	ix := urlindex.New(store, holder, nil)
	ix.Initialize()
	t.Cleanup(ix.Close)
	return ix, holder
}

// WriteFile writes content to rel under dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
