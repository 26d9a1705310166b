// Package matcher answers "which notes reference this URL or its site" on
// top of the URL index.
//
// The matcher is stateless: every call reads the index and the current
// settings. It does not sort its output; SortByRecency orders a bucket for
// presentation.
package matcher

import (
	"sort"
	"strings"

	"github.com/starford/linkdex/internal/platform"
	"github.com/starford/linkdex/internal/settings"
	"github.com/starford/linkdex/internal/urlindex"
	"github.com/starford/linkdex/internal/urlnorm"
)

// Index is the read-only index surface the matcher needs.
type Index interface {
	FilesForDomain(domain string) []urlindex.Document
	FilesForDomains(match func(domain string) bool) []urlindex.Document
	FilesForNormalizedURL(url string) []urlindex.Document
	Metadata(doc urlindex.Document) (*urlindex.Metadata, error)
}

// Match is one document matched against a target URL. Field and URL record
// the first front-matter value that qualified.
type Match struct {
	Document urlindex.Document
	Field    string
	URL      string
}

// Result groups the documents matching a target URL. A document appears in
// at most one of Exact and SameDomain.
type Result struct {
	Exact      []Match
	SameDomain []Match
	// PlatformGroups buckets same-domain matches by platform key, e.g.
	// "r/golang". Nil unless a grouping rule is enabled.
	PlatformGroups map[string][]Match
	// MatchedChannel is the YouTube channel used to narrow SameDomain.
	MatchedChannel string
}

// Empty reports whether the result holds no matches at all.
func (r Result) Empty() bool {
	return len(r.Exact) == 0 && len(r.SameDomain) == 0 && len(r.PlatformGroups) == 0
}

// candidate is a document with the URL values of its configured fields.
type candidate struct {
	doc    urlindex.Document
	meta   *urlindex.Metadata
	values []fieldValue
}

type fieldValue struct {
	field string
	url   string
}

// FindMatches classifies indexed documents against targetURL. Invalid
// targets yield an empty result.
func FindMatches(targetURL string, cfg settings.Settings, ix Index) Result {
	if urlnorm.NormalizeURL(targetURL) == "" {
		return Result{}
	}

	targetIsYouTube := platform.IsYouTubeDomain(targetURL)
	var exact, sameDomain []Match
	var exactCands, sameCands []candidate

	for _, c := range candidates(targetURL, targetIsYouTube, ix, cfg.URLFields) {
		if m, ok := firstExact(c, targetURL); ok {
			exact = append(exact, m)
			exactCands = append(exactCands, c)
			continue
		}
		if !cfg.TLDSearch {
			continue
		}
		if m, ok := firstSameDomain(c, targetURL, targetIsYouTube); ok {
			sameDomain = append(sameDomain, m)
			sameCands = append(sameCands, c)
		}
	}

	sameDomain, sameCands = withoutExact(sameDomain, sameCands, exact)
	res := Result{Exact: exact, SameDomain: sameDomain}

	if cfg.SubredditGrouping {
		for _, m := range res.SameDomain {
			if sub := platform.ExtractSubreddit(m.URL); sub != "" {
				if res.PlatformGroups == nil {
					res.PlatformGroups = make(map[string][]Match)
				}
				res.PlatformGroups[sub] = append(res.PlatformGroups[sub], m)
			}
		}
	}

	if cfg.SubredditFilter {
		if sub := platform.ExtractSubreddit(targetURL); sub != "" {
			res.SameDomain, sameCands = filter(res.SameDomain, sameCands, func(c candidate) bool {
				for _, v := range c.values {
					if platform.ExtractSubreddit(v.url) == sub {
						return true
					}
				}
				return false
			})
		}
	}

	if cfg.YouTubeChannelFilter && targetIsYouTube && len(exactCands) > 0 {
		channel := platform.ExtractChannel(frontmatter(exactCands[0]), cfg.ChannelFields)
		if channel != "" {
			res.MatchedChannel = channel
			res.SameDomain, _ = filter(res.SameDomain, sameCands, func(c candidate) bool {
				return strings.EqualFold(platform.ExtractChannel(frontmatter(c), cfg.ChannelFields), channel)
			})
		}
	}

	return res
}

// candidates bounds the scan to documents sharing the target's domain or
// normalized URL. Platforms spread over several hosts (YouTube mirrors,
// old./new.reddit.com) widen the domain lookup to every variant.
func candidates(targetURL string, targetIsYouTube bool, ix Index, fields []string) []candidate {
	seen := make(map[urlindex.Document]struct{})
	var docs []urlindex.Document
	collect := func(list []urlindex.Document) {
		for _, d := range list {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			docs = append(docs, d)
		}
	}

	collect(ix.FilesForDomain(urlnorm.ExtractDomain(targetURL)))
	collect(ix.FilesForNormalizedURL(targetURL))
	switch {
	case targetIsYouTube:
		collect(ix.FilesForDomains(platform.IsYouTubeHost))
	case platform.IsRedditDomain(targetURL):
		collect(ix.FilesForDomains(func(d string) bool {
			return d == "reddit.com" || strings.HasSuffix(d, ".reddit.com")
		}))
	}
	urlindex.SortByRecency(docs)

	out := make([]candidate, 0, len(docs))
	for _, d := range docs {
		meta, err := ix.Metadata(d)
		if err != nil || meta == nil {
			continue
		}
		c := candidate{doc: d, meta: meta}
		for _, field := range fields {
			for _, v := range platform.StringValues(meta.Frontmatter[field]) {
				c.values = append(c.values, fieldValue{field: field, url: v})
			}
		}
		out = append(out, c)
	}
	return out
}

func firstExact(c candidate, target string) (Match, bool) {
	for _, v := range c.values {
		if urlnorm.URLsMatch(v.url, target) || platform.IsSamePost(v.url, target) {
			return Match{Document: c.doc, Field: v.field, URL: v.url}, true
		}
	}
	return Match{}, false
}

func firstSameDomain(c candidate, target string, targetIsYouTube bool) (Match, bool) {
	for _, v := range c.values {
		if urlnorm.IsSameDomain(v.url, target) || (targetIsYouTube && platform.IsYouTubeDomain(v.url)) {
			return Match{Document: c.doc, Field: v.field, URL: v.url}, true
		}
	}
	return Match{}, false
}

func withoutExact(same []Match, cands []candidate, exact []Match) ([]Match, []candidate) {
	if len(exact) == 0 {
		return same, cands
	}
	taken := make(map[urlindex.Document]struct{}, len(exact))
	for _, m := range exact {
		taken[m.Document] = struct{}{}
	}
	return filter(same, cands, func(c candidate) bool {
		_, dup := taken[c.doc]
		return !dup
	})
}

// filter keeps the matches whose parallel candidate satisfies keep.
func filter(ms []Match, cands []candidate, keep func(candidate) bool) ([]Match, []candidate) {
	var outM []Match
	var outC []candidate
	for i, c := range cands {
		if keep(c) {
			outM = append(outM, ms[i])
			outC = append(outC, c)
		}
	}
	return outM, outC
}

func frontmatter(c candidate) map[string]any {
	if c.meta == nil {
		return nil
	}
	return c.meta.Frontmatter
}

// SortByRecency orders matches by document modification time, newest first.
func SortByRecency(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		ti, tj := ms[i].Document.ModTime(), ms[j].Document.ModTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ms[i].Document.Path() < ms[j].Document.Path()
	})
}
