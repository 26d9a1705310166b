// Package urlindex maintains an in-memory, incrementally updated index from
// URLs found in note front-matter to the notes that reference them.
//
// The index keeps three forward maps (raw URL, normalized URL, domain), a
// reverse map from document path to the raw URLs it contributed, and a
// capped most-recent list of documents that carry URLs. The reverse map is
// the only source used to undo a document's contribution; stale content is
// never re-parsed to find out what to remove.
//
// Mutations are serialized by a dedicated mutex held from reading the
// store through the swap, so a rebuild and an incremental update never
// interleave. Map access takes a write lock; queries take a read lock and
// never mutate. "Updated" listeners run after both locks are released and
// may query or mutate the index.
package urlindex

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/starford/linkdex/internal/platform"
	"github.com/starford/linkdex/internal/settings"
	"github.com/starford/linkdex/internal/urlnorm"
)

type docSet map[Document]struct{}

type urlSet map[string]struct{}

// Index is the live URL index. The zero value is not usable; call New.
type Index struct {
	store    Store
	settings settings.Source
	logger   *slog.Logger

	// wmu serializes mutations, including their store reads.
	wmu sync.Mutex

	mu         sync.RWMutex
	exact      map[string]docSet
	normalized map[string]docSet
	domains    map[string]docSet
	docURLs    map[string]urlSet
	recent     []Document

	lmu       sync.Mutex
	listeners map[uint64]func()
	nextID    uint64

	// lifecycle guards unsubscribe.
	lifecycle   sync.Mutex
	unsubscribe func()
}

// Stats summarises index size.
type Stats struct {
	Documents   int `json:"documents"`
	URLs        int `json:"urls"`
	Normalized  int `json:"normalized"`
	Domains     int `json:"domains"`
	RecentCount int `json:"recent"`
}

// New creates an empty index over store. Call Initialize to build it and
// start following the store's change stream.
func New(store Store, src settings.Source, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Index{
		store:     store,
		settings:  src,
		logger:    logger,
		listeners: make(map[uint64]func()),
	}
	ix.reset()
	return ix
}

// Initialize rebuilds the index from scratch and subscribes to the store.
// Calling it again rebuilds without subscribing twice.
func (ix *Index) Initialize() {
	ix.RebuildIndex()

	ix.lifecycle.Lock()
	defer ix.lifecycle.Unlock()
	if ix.unsubscribe == nil {
		ix.unsubscribe = ix.store.Subscribe(ix)
	}
}

// Close unsubscribes from the store and drops all index state. It is safe
// to call more than once.
func (ix *Index) Close() {
	ix.lifecycle.Lock()
	unsub := ix.unsubscribe
	ix.unsubscribe = nil
	ix.lifecycle.Unlock()

	if unsub != nil {
		unsub()
	}

	ix.mu.Lock()
	ix.reset()
	ix.mu.Unlock()
}

// Subscribe registers fn to run after every mutation that changed index
// membership. The returned dispose function is idempotent.
func (ix *Index) Subscribe(fn func()) (dispose func()) {
	ix.lmu.Lock()
	id := ix.nextID
	ix.nextID++
	ix.listeners[id] = fn
	ix.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ix.lmu.Lock()
			delete(ix.listeners, id)
			ix.lmu.Unlock()
		})
	}
}

func (ix *Index) emit() {
	ix.lmu.Lock()
	fns := make([]func(), 0, len(ix.listeners))
	for _, fn := range ix.listeners {
		fns = append(fns, fn)
	}
	ix.lmu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// RebuildIndex clears every map, re-indexes all documents of the store and
// emits exactly one update notification at the end.
func (ix *Index) RebuildIndex() {
	ix.wmu.Lock()
	cfg := ix.settings.Current()
	docs := ix.store.Documents()

	// Parse outside the map lock, then swap the result in.
	type entry struct {
		doc  Document
		urls []string
	}
	entries := make([]entry, 0, len(docs))
	for _, d := range docs {
		if urls := ix.collectURLs(d, cfg.URLFields); len(urls) > 0 {
			entries = append(entries, entry{doc: d, urls: urls})
		}
	}

	ix.mu.Lock()
	ix.reset()
	withURLs := make([]Document, 0, len(entries))
	for _, e := range entries {
		ix.insert(e.doc, e.urls)
		withURLs = append(withURLs, e.doc)
	}
	SortByRecency(withURLs)
	ix.recent = truncate(withURLs, recentCap(cfg))
	stats := ix.statsLocked()
	ix.mu.Unlock()
	ix.wmu.Unlock()

	ix.logger.Info("urlindex: rebuilt",
		slog.Int("documents", stats.Documents),
		slog.Int("urls", stats.URLs),
		slog.Int("domains", stats.Domains))
	ix.emit()
}

// UpdateFileIndex re-indexes doc: its previous entries are removed via the
// reverse map and its current URLs inserted. Emits an update only when the
// document's URL set or its place in the recency list changed.
func (ix *Index) UpdateFileIndex(doc Document) {
	ix.wmu.Lock()
	cfg := ix.settings.Current()
	urls := ix.collectURLs(doc, cfg.URLFields)

	ix.mu.Lock()
	before := ix.docURLs[doc.Path()]
	sameURLs := sameSet(before, urls)
	atFront := len(ix.recent) > 0 && ix.recent[0] == doc

	ix.removeLocked(doc)
	if len(urls) > 0 {
		ix.insert(doc, urls)
		ix.recent = truncate(append([]Document{doc}, ix.recent...), recentCap(cfg))
	} else {
		ix.recent = truncate(ix.recent, recentCap(cfg))
	}
	recencyChanged := len(urls) > 0 && !atFront
	ix.mu.Unlock()
	ix.wmu.Unlock()

	if !sameURLs || recencyChanged {
		ix.logger.Debug("urlindex: updated",
			slog.String("path", doc.Path()),
			slog.Int("urls", len(urls)))
		ix.emit()
	}
}

// RemoveFileFromIndex drops every entry doc contributed, as recorded in
// the reverse map. It reports whether anything was removed and does not
// notify listeners.
func (ix *Index) RemoveFileFromIndex(doc Document) bool {
	ix.wmu.Lock()
	defer ix.wmu.Unlock()
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.removeLocked(doc)
}

// OnCreated implements ChangeHandler.
func (ix *Index) OnCreated(doc Document) { ix.UpdateFileIndex(doc) }

// OnChanged implements ChangeHandler.
func (ix *Index) OnChanged(doc Document) { ix.UpdateFileIndex(doc) }

// OnDeleted implements ChangeHandler.
func (ix *Index) OnDeleted(doc Document) {
	if ix.RemoveFileFromIndex(doc) {
		ix.logger.Debug("urlindex: removed", slog.String("path", doc.Path()))
		ix.emit()
	}
}

// OnRenamed implements ChangeHandler. The reverse-map entry moves from
// oldPath to the document's current path; forward maps are untouched
// because they reference the document itself. A different document still
// indexed under the new path is displaced and its entries dropped.
func (ix *Index) OnRenamed(doc Document, oldPath string) {
	newPath := doc.Path()
	if newPath == oldPath {
		return
	}

	ix.wmu.Lock()
	ix.mu.Lock()
	urls, ok := ix.docURLs[oldPath]
	if ok {
		current, clash := ix.docURLs[newPath]
		if clash {
			if other := ix.ownerOf(newPath, current, doc); other != nil {
				ix.removeLocked(other)
				clash = false
			}
		}
		if clash {
			// doc was already re-indexed under its new path; the old
			// entry is stale and must be undone without touching the
			// fresh one.
			ix.removeEntry(oldPath, doc, urls)
			ix.insert(doc, keys(current))
		} else {
			ix.docURLs[newPath] = urls
			delete(ix.docURLs, oldPath)
		}
	}
	ix.mu.Unlock()
	ix.wmu.Unlock()

	if ok {
		ix.logger.Debug("urlindex: renamed",
			slog.String("from", oldPath),
			slog.String("to", newPath))
		ix.emit()
	}
}

// ownerOf returns the document other than doc that contributed urls under
// path, or nil when doc itself owns them.
func (ix *Index) ownerOf(path string, urls urlSet, doc Document) Document {
	for u := range urls {
		for d := range ix.exact[u] {
			if d != doc && d.Path() == path {
				return d
			}
		}
	}
	return nil
}

// FilesForURL returns documents whose front-matter holds exactly url.
func (ix *Index) FilesForURL(url string) []Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedDocs(ix.exact[url])
}

// FilesForNormalizedURL normalizes url and returns the documents indexed
// under that key.
func (ix *Index) FilesForNormalizedURL(url string) []Document {
	key := urlnorm.NormalizeURL(url)
	if key == "" {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedDocs(ix.normalized[key])
}

// FilesForDomain returns documents with at least one URL on domain.
func (ix *Index) FilesForDomain(domain string) []Document {
	if domain == "" {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedDocs(ix.domains[domain])
}

// FilesForDomains returns the union of documents for every indexed domain
// accepted by match.
func (ix *Index) FilesForDomains(match func(domain string) bool) []Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	union := make(docSet)
	for domain, set := range ix.domains {
		if !match(domain) {
			continue
		}
		for d := range set {
			union[d] = struct{}{}
		}
	}
	return sortedDocs(union)
}

// Domains lists every indexed domain in lexical order.
func (ix *Index) Domains() []string {
	ix.mu.RLock()
	out := make([]string, 0, len(ix.domains))
	for d := range ix.domains {
		out = append(out, d)
	}
	ix.mu.RUnlock()
	sort.Strings(out)
	return out
}

// AllFilesWithURLs resolves every reverse-map path to its live document.
// Paths that no longer resolve are skipped.
func (ix *Index) AllFilesWithURLs() []Document {
	ix.mu.RLock()
	paths := make([]string, 0, len(ix.docURLs))
	for p := range ix.docURLs {
		paths = append(paths, p)
	}
	ix.mu.RUnlock()

	out := make([]Document, 0, len(paths))
	for _, p := range paths {
		if d, ok := ix.store.Resolve(p); ok {
			out = append(out, d)
		}
	}
	SortByRecency(out)
	return out
}

// URLsForPath returns the raw URLs indexed for path, sorted.
func (ix *Index) URLsForPath(path string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := keys(ix.docURLs[path])
	sort.Strings(out)
	return out
}

// RecentFiles returns up to limit of the most recently modified documents
// with URLs. The result never exceeds the configured cap.
func (ix *Index) RecentFiles(limit int) []Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if limit > len(ix.recent) {
		limit = len(ix.recent)
	}
	if limit <= 0 {
		return nil
	}
	out := make([]Document, limit)
	copy(out, ix.recent[:limit])
	return out
}

// Metadata returns the store's metadata for doc.
func (ix *Index) Metadata(doc Document) (*Metadata, error) {
	return ix.store.Metadata(doc)
}

// Stats returns current map sizes.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.statsLocked()
}

func (ix *Index) statsLocked() Stats {
	return Stats{
		Documents:   len(ix.docURLs),
		URLs:        len(ix.exact),
		Normalized:  len(ix.normalized),
		Domains:     len(ix.domains),
		RecentCount: len(ix.recent),
	}
}

// collectURLs reads the configured URL fields of doc and returns its
// distinct valid URLs in field order. Unreadable metadata yields none.
func (ix *Index) collectURLs(doc Document, fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	meta, err := ix.store.Metadata(doc)
	if err != nil {
		ix.logger.Debug("urlindex: metadata unavailable",
			slog.String("path", doc.Path()),
			slog.String("error", err.Error()))
		return nil
	}
	if meta == nil {
		return nil
	}
	seen := make(urlSet)
	var out []string
	for _, v := range platform.FieldValues(meta.Frontmatter, fields) {
		if !urlnorm.IsValidURL(v) {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (ix *Index) reset() {
	ix.exact = make(map[string]docSet)
	ix.normalized = make(map[string]docSet)
	ix.domains = make(map[string]docSet)
	ix.docURLs = make(map[string]urlSet)
	ix.recent = nil
}

func (ix *Index) insert(doc Document, urls []string) {
	set := make(urlSet, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
		add(ix.exact, u, doc)
		if n := urlnorm.NormalizeURL(u); n != "" {
			add(ix.normalized, n, doc)
		}
		if d := urlnorm.ExtractDomain(u); d != "" {
			add(ix.domains, d, doc)
		}
	}
	ix.docURLs[doc.Path()] = set
}

func (ix *Index) removeLocked(doc Document) bool {
	removed := false
	if urls, ok := ix.docURLs[doc.Path()]; ok {
		ix.removeEntry(doc.Path(), doc, urls)
		removed = true
	}
	for i, d := range ix.recent {
		if d == doc {
			ix.recent = append(ix.recent[:i:i], ix.recent[i+1:]...)
			removed = true
			break
		}
	}
	return removed
}

func (ix *Index) removeEntry(path string, doc Document, urls urlSet) {
	for u := range urls {
		del(ix.exact, u, doc)
		if n := urlnorm.NormalizeURL(u); n != "" {
			del(ix.normalized, n, doc)
		}
		if d := urlnorm.ExtractDomain(u); d != "" {
			del(ix.domains, d, doc)
		}
	}
	delete(ix.docURLs, path)
}

func add(m map[string]docSet, key string, doc Document) {
	set, ok := m[key]
	if !ok {
		set = make(docSet)
		m[key] = set
	}
	set[doc] = struct{}{}
}

func del(m map[string]docSet, key string, doc Document) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, doc)
	if len(set) == 0 {
		delete(m, key)
	}
}

func recentCap(cfg settings.Settings) int {
	if cfg.RecentCap < 0 {
		return 0
	}
	return cfg.RecentCap
}

func truncate(docs []Document, n int) []Document {
	if len(docs) > n {
		return docs[:n:n]
	}
	return docs
}

func sameSet(a urlSet, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, u := range b {
		if _, ok := a[u]; !ok {
			return false
		}
	}
	return true
}

func keys(s urlSet) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

func sortedDocs(set docSet) []Document {
	if len(set) == 0 {
		return nil
	}
	out := make([]Document, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	SortByRecency(out)
	return out
}

// SortByRecency orders docs by modification time, newest first, breaking
// ties by path.
func SortByRecency(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		ti, tj := docs[i].ModTime(), docs[j].ModTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return docs[i].Path() < docs[j].Path()
	})
}
