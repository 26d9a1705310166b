package urlindex

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// memDoc is a comparable document handle whose path can change on rename.
type memDoc struct {
	path string
	mod  time.Time
}

func (d *memDoc) Path() string       { return d.path }
func (d *memDoc) ModTime() time.Time { return d.mod }

var errBadFrontmatter = errors.New("bad frontmatter")

// memStore is an in-memory Store that drives the index like a host would.
type memStore struct {
	mu       sync.Mutex
	docs     map[string]*memDoc
	meta     map[*memDoc]map[string]any
	broken   map[*memDoc]bool
	handlers map[int]ChangeHandler
	nextID   int
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		docs:     make(map[string]*memDoc),
		meta:     make(map[*memDoc]map[string]any),
		broken:   make(map[*memDoc]bool),
		handlers: make(map[int]ChangeHandler),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *memStore) Documents() []Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out
}

func (s *memStore) Metadata(doc Document) (*Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := doc.(*memDoc)
	if s.broken[d] {
		return nil, errBadFrontmatter
	}
	return &Metadata{Frontmatter: s.meta[d]}, nil
}

func (s *memStore) Resolve(path string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[path]
	if !ok {
		return nil, false
	}
	return d, true
}

func (s *memStore) Subscribe(h ChangeHandler) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = h
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

func (s *memStore) subscribers() []ChangeHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChangeHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		out = append(out, h)
	}
	return out
}

// put adds a document without notifying subscribers.
func (s *memStore) put(path string, fm map[string]any) *memDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &memDoc{path: path, mod: s.tick()}
	s.docs[path] = d
	s.meta[d] = fm
	return d
}

func (s *memStore) create(path string, fm map[string]any) *memDoc {
	d := s.put(path, fm)
	for _, h := range s.subscribers() {
		h.OnCreated(d)
	}
	return d
}

func (s *memStore) modify(d *memDoc, fm map[string]any) {
	s.mu.Lock()
	s.meta[d] = fm
	d.mod = s.tick()
	s.mu.Unlock()
	for _, h := range s.subscribers() {
		h.OnChanged(d)
	}
}

func (s *memStore) remove(d *memDoc) {
	s.mu.Lock()
	delete(s.docs, d.path)
	delete(s.meta, d)
	s.mu.Unlock()
	for _, h := range s.subscribers() {
		h.OnDeleted(d)
	}
}

func (s *memStore) rename(d *memDoc, newPath string) {
	s.mu.Lock()
	old := d.path
	delete(s.docs, old)
	d.path = newPath
	s.docs[newPath] = d
	s.mu.Unlock()
	for _, h := range s.subscribers() {
		h.OnRenamed(d, old)
	}
}

func src(urls ...string) map[string]any {
	vals := make([]any, len(urls))
	for i, u := range urls {
		vals[i] = u
	}
	return map[string]any{"source": vals}
}
