package metacache

import (
	"os"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "linkdex-cache-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sample(path string) Entry {
	return Entry{
		Path:        path,
		Size:        42,
		ModTime:     time.Date(2024, 6, 1, 12, 0, 0, 123, time.UTC),
		Checksum:    "sha-" + path,
		Fingerprint: "fp-" + path,
		Frontmatter: map[string]any{
			"source":  []any{"https://example.com/a"},
			"year":    2024,
			"created": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		Tags:  []string{"go"},
		Title: "Sample",
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
}

func TestPutAndGet(t *testing.T) {
	db := testDB(t)
	in := sample("a.md")
	if err := db.Put(in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := db.Get("a.md")
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if !got.Fresh(in.Size, in.ModTime) {
		t.Errorf("entry should be fresh: size=%d mod=%v", got.Size, got.ModTime)
	}
	if got.Fresh(in.Size+1, in.ModTime) || got.Fresh(in.Size, in.ModTime.Add(time.Second)) {
		t.Error("entry should be stale after size or mod time change")
	}
	src, ok := got.Frontmatter["source"].([]any)
	if !ok || len(src) != 1 || src[0] != "https://example.com/a" {
		t.Errorf("source = %#v", got.Frontmatter["source"])
	}
	if got.Frontmatter["created"] != "2024-01-02T00:00:00Z" {
		t.Errorf("created = %#v", got.Frontmatter["created"])
	}
	if len(got.Tags) != 1 || got.Tags[0] != "go" || got.Title != "Sample" {
		t.Errorf("tags=%v title=%q", got.Tags, got.Title)
	}
}

func TestGet_Missing(t *testing.T) {
	db := testDB(t)
	got, err := db.Get("nope.md")
	if err != nil || got != nil {
		t.Errorf("got %v, %v; want nil, nil", got, err)
	}
}

func TestByFingerprint(t *testing.T) {
	db := testDB(t)
	_ = db.Put(sample("a.md"))

	got, err := db.ByFingerprint("fp-a.md")
	if err != nil || got == nil || got.Path != "a.md" {
		t.Fatalf("ByFingerprint = %v, %v", got, err)
	}
	if got, _ := db.ByFingerprint(""); got != nil {
		t.Error("empty fingerprint should never match")
	}
}

func TestRenameReplacesTarget(t *testing.T) {
	db := testDB(t)
	_ = db.Put(sample("old.md"))
	_ = db.Put(sample("new.md"))

	if err := db.Rename("old.md", "new.md"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got, _ := db.Get("old.md"); got != nil {
		t.Error("old path still cached")
	}
	got, _ := db.Get("new.md")
	if got == nil || got.Checksum != "sha-old.md" {
		t.Errorf("new.md = %+v, want the renamed entry", got)
	}
}

func TestPrune(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"a.md", "b.md", "c.md"} {
		_ = db.Put(sample(p))
	}

	n, err := db.Prune(map[string]struct{}{"b.md": {}})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
	paths, _ := db.AllPaths()
	if len(paths) != 1 {
		t.Errorf("remaining = %v", paths)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	_ = db.Put(sample("d.md"))
	if err := db.Delete("d.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := db.Delete("d.md"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if got, _ := db.Get("d.md"); got != nil {
		t.Error("entry survived delete")
	}
}
