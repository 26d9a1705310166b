package vault

import (
	"sync"
	"time"

	"github.com/starford/linkdex/internal/models"
)

// File is the live handle of one note. The vault hands out exactly one
// *File per note; a rename updates its path in place so the handle keeps
// its identity.
type File struct {
	mu          sync.RWMutex
	path        string
	size        int64
	mod         time.Time
	fingerprint string
}

func newFile(info models.FileInfo) *File {
	return &File{path: info.Path, size: info.Size, mod: info.ModTime}
}

// Path returns the current vault-relative path.
func (f *File) Path() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.path
}

// ModTime returns the last observed modification time.
func (f *File) ModTime() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mod
}

// Size returns the last observed size in bytes.
func (f *File) Size() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.size
}

// Info returns a snapshot of the file's listing data.
func (f *File) Info() models.FileInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return models.FileInfo{Path: f.path, Size: f.size, ModTime: f.mod}
}

// Fingerprint returns the xxhash of the content last read, or "".
func (f *File) Fingerprint() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fingerprint
}

func (f *File) setFingerprint(fp string) {
	f.mu.Lock()
	f.fingerprint = fp
	f.mu.Unlock()
}

func (f *File) setPath(p string) {
	f.mu.Lock()
	f.path = p
	f.mu.Unlock()
}

// update records new stat data and reports whether it differs.
func (f *File) update(info models.FileInfo) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.size == info.Size && f.mod.Equal(info.ModTime) {
		return false
	}
	f.size, f.mod = info.Size, info.ModTime
	f.fingerprint = ""
	return true
}
