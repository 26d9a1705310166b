package metacache

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Entry is the cached metadata of one note.
type Entry struct {
	Path        string
	Size        int64
	ModTime     time.Time
	Checksum    string
	Fingerprint string
	Frontmatter map[string]any
	Tags        []string
	Title       string
}

// Fresh reports whether e still describes a file of the given size and
// modification time.
func (e *Entry) Fresh(size int64, mod time.Time) bool {
	return e != nil && e.Size == size && e.ModTime.UnixNano() == mod.UnixNano()
}

// Cache is the surface the vault needs. *DB satisfies it.
type Cache interface {
	Get(path string) (*Entry, error)
	ByFingerprint(fp string) (*Entry, error)
	Put(e Entry) error
	Delete(path string) error
	Rename(oldPath, newPath string) error
	Prune(keep map[string]struct{}) (int, error)
}

var _ Cache = (*DB)(nil)

const selectCols = `path, size, mod_time, checksum, fingerprint, frontmatter, tags, title`

// Get returns the entry for path, or nil when absent.
func (db *DB) Get(path string) (*Entry, error) {
	row := db.conn.QueryRow(`SELECT `+selectCols+` FROM documents WHERE path = ?`, path)
	return scanEntry(row)
}

// ByFingerprint returns any entry with the given content fingerprint, or
// nil when none exists.
func (db *DB) ByFingerprint(fp string) (*Entry, error) {
	if fp == "" {
		return nil, nil
	}
	row := db.conn.QueryRow(`SELECT `+selectCols+` FROM documents WHERE fingerprint = ? LIMIT 1`, fp)
	return scanEntry(row)
}

func scanEntry(row *sql.Row) (*Entry, error) {
	var (
		e       Entry
		modNano int64
		fmJSON  string
		tagJSON string
	)
	err := row.Scan(&e.Path, &e.Size, &modNano, &e.Checksum, &e.Fingerprint, &fmJSON, &tagJSON, &e.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metacache: scan: %w", err)
	}
	e.ModTime = time.Unix(0, modNano)
	dec := json.NewDecoder(bytes.NewReader([]byte(fmJSON)))
	dec.UseNumber()
	if err := dec.Decode(&e.Frontmatter); err != nil {
		return nil, fmt.Errorf("metacache: decode frontmatter %s: %w", e.Path, err)
	}
	if err := json.Unmarshal([]byte(tagJSON), &e.Tags); err != nil {
		return nil, fmt.Errorf("metacache: decode tags %s: %w", e.Path, err)
	}
	return &e, nil
}

// Put inserts or replaces an entry.
func (db *DB) Put(e Entry) error {
	fmJSON, err := json.Marshal(jsonSafe(e.Frontmatter))
	if err != nil {
		return fmt.Errorf("metacache: encode frontmatter %s: %w", e.Path, err)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	tagJSON, _ := json.Marshal(e.Tags)

	_, err = db.conn.Exec(`
		INSERT INTO documents (path, size, mod_time, checksum, fingerprint, frontmatter, tags, title)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size        = excluded.size,
			mod_time    = excluded.mod_time,
			checksum    = excluded.checksum,
			fingerprint = excluded.fingerprint,
			frontmatter = excluded.frontmatter,
			tags        = excluded.tags,
			title       = excluded.title
	`, e.Path, e.Size, e.ModTime.UnixNano(), e.Checksum, e.Fingerprint, string(fmJSON), string(tagJSON), e.Title)
	if err != nil {
		return fmt.Errorf("metacache: put %s: %w", e.Path, err)
	}
	return nil
}

// Delete removes the entry for path. Missing entries are not an error.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("metacache: delete %s: %w", path, err)
	}
	return nil
}

// Rename moves an entry to a new path, replacing any entry already there.
func (db *DB) Rename(oldPath, newPath string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("metacache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, newPath); err != nil {
		return fmt.Errorf("metacache: rename clear %s: %w", newPath, err)
	}
	if _, err := tx.Exec(`UPDATE documents SET path = ? WHERE path = ?`, newPath, oldPath); err != nil {
		return fmt.Errorf("metacache: rename %s: %w", oldPath, err)
	}
	return tx.Commit()
}

// AllPaths returns every cached path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("metacache: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// Prune deletes every entry whose path is not in keep and returns how many
// were removed.
func (db *DB) Prune(keep map[string]struct{}) (int, error) {
	paths, err := db.AllPaths()
	if err != nil {
		return 0, err
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("metacache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	n := 0
	for p := range paths {
		if _, ok := keep[p]; ok {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, p); err != nil {
			return 0, fmt.Errorf("metacache: prune %s: %w", p, err)
		}
		n++
	}
	return n, tx.Commit()
}

// jsonSafe converts YAML-decoded values into JSON-encodable ones:
// map[any]any keys are stringified and timestamps are kept as RFC 3339.
func jsonSafe(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = jsonSafe(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = jsonSafe(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = jsonSafe(item)
		}
		return out
	case time.Time:
		return val.Format(time.RFC3339)
	}
	return v
}
