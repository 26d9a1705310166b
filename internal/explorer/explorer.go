// Package explorer groups every indexed note along one dimension (tag,
// subreddit, YouTube channel, Twitter/X user, GitHub repository or site)
// independently of any target URL.
package explorer

import (
	"sort"
	"strings"

	"github.com/starford/linkdex/internal/platform"
	"github.com/starford/linkdex/internal/settings"
	"github.com/starford/linkdex/internal/urlindex"
	"github.com/starford/linkdex/internal/urlnorm"
)

// Dimension names a grouping.
type Dimension string

// Supported dimensions.
const (
	Tags         Dimension = "tags"
	Subreddits   Dimension = "subreddits"
	Channels     Dimension = "channels"
	TwitterUsers Dimension = "users"
	GitHubRepos  Dimension = "repos"
	Domains      Dimension = "domains"
)

// Dimensions lists every supported dimension.
var Dimensions = []Dimension{Tags, Subreddits, Channels, TwitterUsers, GitHubRepos, Domains}

// ParseDimension maps a dimension name to its Dimension.
func ParseDimension(s string) (Dimension, bool) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// Index is the read-only index surface aggregators need.
type Index interface {
	AllFilesWithURLs() []urlindex.Document
	FilesForDomains(match func(domain string) bool) []urlindex.Document
	Metadata(doc urlindex.Document) (*urlindex.Metadata, error)
}

// Entry is one document in a group, with the URL that placed it there
// (empty for metadata-derived groups such as tags and channels).
type Entry struct {
	Document urlindex.Document
	URL      string
}

// Groups maps a group key to its entries, newest first.
type Groups map[string][]Entry

// Keys returns the group keys, largest group first, then alphabetical.
func (g Groups) Keys() []string {
	out := make([]string, 0, len(g))
	for k := range g {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(g[out[i]]) != len(g[out[j]]) {
			return len(g[out[i]]) > len(g[out[j]])
		}
		return out[i] < out[j]
	})
	return out
}

// Group dispatches to the aggregator for dim. Unknown or disabled
// dimensions yield an empty map.
func Group(dim Dimension, cfg settings.Settings, ix Index) Groups {
	switch dim {
	case Tags:
		return ByTag(cfg, ix)
	case Subreddits:
		return BySubreddit(cfg, ix)
	case Channels:
		return ByChannel(cfg, ix)
	case TwitterUsers:
		return ByTwitterUser(cfg, ix)
	case GitHubRepos:
		return ByGitHubRepo(cfg, ix)
	case Domains:
		return ByDomain(cfg, ix)
	}
	return Groups{}
}

// ByTag groups notes with URLs by their tags: the configured front-matter
// tag fields unioned with inline tags. A non-empty allowlist keeps only
// the listed tags.
func ByTag(cfg settings.Settings, ix Index) Groups {
	out := Groups{}
	if !cfg.Explorer.Tags {
		return out
	}
	allow := cfg.Allowlist()
	b := newBuilder(out)
	for _, doc := range ix.AllFilesWithURLs() {
		meta, err := ix.Metadata(doc)
		if err != nil || meta == nil {
			continue
		}
		for _, tag := range TagsOf(meta, cfg.TagFields) {
			if allow != nil {
				if _, ok := allow[tag]; !ok {
					continue
				}
			}
			b.add(tag, doc, "")
		}
	}
	return b.finish()
}

// BySubreddit groups Reddit notes by "r/<name>".
func BySubreddit(cfg settings.Settings, ix Index) Groups {
	if !cfg.Explorer.Subreddits {
		return Groups{}
	}
	return byURLKey(cfg, ix, isRedditHost, platform.ExtractSubreddit)
}

// ByTwitterUser groups Twitter/X notes by "@handle".
func ByTwitterUser(cfg settings.Settings, ix Index) Groups {
	if !cfg.Explorer.TwitterUsers {
		return Groups{}
	}
	return byURLKey(cfg, ix, platform.IsTwitterHost, platform.ExtractUser)
}

// ByGitHubRepo groups GitHub notes by "owner/repo".
func ByGitHubRepo(cfg settings.Settings, ix Index) Groups {
	if !cfg.Explorer.GitHubRepos {
		return Groups{}
	}
	return byURLKey(cfg, ix, platform.IsGitHubHost, platform.ExtractRepo)
}

// ByDomain groups every note with URLs by registrable domain.
func ByDomain(cfg settings.Settings, ix Index) Groups {
	out := Groups{}
	if !cfg.Explorer.Domains {
		return out
	}
	b := newBuilder(out)
	for _, doc := range ix.AllFilesWithURLs() {
		for _, u := range urlsOf(ix, doc, cfg.URLFields) {
			if !urlnorm.IsValidURL(u) {
				continue
			}
			if key := urlnorm.BaseDomain(u); key != "" {
				b.add(key, doc, u)
			}
		}
	}
	return b.finish()
}

// ByChannel groups YouTube notes by the channel named in their own
// front-matter.
func ByChannel(cfg settings.Settings, ix Index) Groups {
	out := Groups{}
	if !cfg.Explorer.Channels {
		return out
	}
	b := newBuilder(out)
	for _, doc := range ix.FilesForDomains(platform.IsYouTubeHost) {
		meta, err := ix.Metadata(doc)
		if err != nil || meta == nil {
			continue
		}
		if ch := platform.ExtractChannel(meta.Frontmatter, cfg.ChannelFields); ch != "" {
			b.add(ch, doc, "")
		}
	}
	return b.finish()
}

func byURLKey(cfg settings.Settings, ix Index, host func(string) bool, key func(string) string) Groups {
	b := newBuilder(Groups{})
	for _, doc := range ix.FilesForDomains(host) {
		for _, u := range urlsOf(ix, doc, cfg.URLFields) {
			if k := key(u); k != "" {
				b.add(k, doc, u)
			}
		}
	}
	return b.finish()
}

func urlsOf(ix Index, doc urlindex.Document, fields []string) []string {
	meta, err := ix.Metadata(doc)
	if err != nil || meta == nil {
		return nil
	}
	return platform.FieldValues(meta.Frontmatter, fields)
}

// TagsOf returns the normalized ("#name") tags of a note: the values of the
// configured front-matter tag fields followed by inline tags, deduplicated.
func TagsOf(meta *urlindex.Metadata, fields []string) []string {
	seen := make(map[string]struct{})
	var out []string
	addTag := func(raw any) {
		if t := platform.NormalizeTag(raw); t != "" {
			if _, dup := seen[t]; !dup {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	for _, f := range fields {
		switch v := meta.Frontmatter[f].(type) {
		case []any:
			for _, item := range v {
				addTag(item)
			}
		case []string:
			for _, item := range v {
				addTag(item)
			}
		case string:
			// "tags: a, b" is common shorthand.
			for _, item := range splitTagString(v) {
				addTag(item)
			}
		}
	}
	for _, t := range meta.Tags {
		addTag(t)
	}
	return out
}

func splitTagString(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

func isRedditHost(d string) bool {
	return platform.IsRedditDomain("https://" + d)
}

// builder deduplicates documents within each group.
type builder struct {
	groups Groups
	seen   map[string]map[urlindex.Document]struct{}
}

func newBuilder(g Groups) *builder {
	return &builder{groups: g, seen: make(map[string]map[urlindex.Document]struct{})}
}

func (b *builder) add(key string, doc urlindex.Document, url string) {
	set, ok := b.seen[key]
	if !ok {
		set = make(map[urlindex.Document]struct{})
		b.seen[key] = set
	}
	if _, dup := set[doc]; dup {
		return
	}
	set[doc] = struct{}{}
	b.groups[key] = append(b.groups[key], Entry{Document: doc, URL: url})
}

func (b *builder) finish() Groups {
	for _, entries := range b.groups {
		sortEntries(entries)
	}
	return b.groups
}

func sortEntries(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		ti, tj := es[i].Document.ModTime(), es[j].Document.ModTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return es[i].Document.Path() < es[j].Document.Path()
	})
}
