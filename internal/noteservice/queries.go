package noteservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/linkdex/internal/apperr"
	"github.com/starford/linkdex/internal/explorer"
	"github.com/starford/linkdex/internal/matcher"
	"github.com/starford/linkdex/internal/models"
	"github.com/starford/linkdex/internal/urlindex"
	"github.com/starford/linkdex/internal/urlnorm"
)

// MatchItem is one matched note with the front-matter value that matched.
type MatchItem struct {
	models.LinkNote
	Field      string `json:"field"`
	MatchedURL string `json:"matched_url"`
}

// MatchesResult is the presentation form of matcher.Result. Every bucket
// is ordered newest first.
type MatchesResult struct {
	URL            string                 `json:"url"`
	Normalized     string                 `json:"normalized"`
	Exact          []MatchItem            `json:"exact"`
	SameDomain     []MatchItem            `json:"same_domain"`
	PlatformGroups map[string][]MatchItem `json:"platform_groups,omitempty"`
	MatchedChannel string                 `json:"matched_channel,omitempty"`
}

// URLLookup lists the notes holding a URL verbatim and those holding an
// equivalent URL.
type URLLookup struct {
	URL        string            `json:"url"`
	Normalized string            `json:"normalized"`
	Exact      []models.LinkNote `json:"exact"`
	Equivalent []models.LinkNote `json:"equivalent"`
}

// Group is one explorer bucket.
type Group struct {
	Key   string      `json:"key"`
	Count int         `json:"count"`
	Notes []GroupNote `json:"notes"`
}

// GroupNote is a note inside a group, with the URL that placed it there.
type GroupNote struct {
	models.LinkNote
	MatchedURL string `json:"matched_url,omitempty"`
}

// Stats reports vault and index sizes.
type Stats struct {
	Notes int            `json:"notes"`
	Index urlindex.Stats `json:"index"`
}

// Matches classifies the vault's notes against url.
func (s *Service) Matches(_ context.Context, url string) (*MatchesResult, error) {
	norm := urlnorm.NormalizeURL(url)
	if norm == "" {
		return nil, fmt.Errorf("noteservice: matches %q: %w", url, apperr.ErrInvalidArgument)
	}
	res := matcher.FindMatches(url, s.settings.Current(), s.index)

	out := &MatchesResult{
		URL:            url,
		Normalized:     norm,
		Exact:          s.matchItems(res.Exact),
		SameDomain:     s.matchItems(res.SameDomain),
		MatchedChannel: res.MatchedChannel,
	}
	if len(res.PlatformGroups) > 0 {
		out.PlatformGroups = make(map[string][]MatchItem, len(res.PlatformGroups))
		for k, ms := range res.PlatformGroups {
			out.PlatformGroups[k] = s.matchItems(ms)
		}
	}
	return out, nil
}

func (s *Service) matchItems(ms []matcher.Match) []MatchItem {
	sorted := append([]matcher.Match(nil), ms...)
	matcher.SortByRecency(sorted)
	out := make([]MatchItem, len(sorted))
	for i, m := range sorted {
		out[i] = MatchItem{LinkNote: s.Describe(m.Document), Field: m.Field, MatchedURL: m.URL}
	}
	return out
}

// Lookup returns the raw-key and normalized-key index entries for url.
func (s *Service) Lookup(_ context.Context, url string) (*URLLookup, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("noteservice: lookup: empty url: %w", apperr.ErrInvalidArgument)
	}
	return &URLLookup{
		URL:        url,
		Normalized: urlnorm.NormalizeURL(url),
		Exact:      s.describeAll(s.index.FilesForURL(url)),
		Equivalent: s.describeAll(s.index.FilesForNormalizedURL(url)),
	}, nil
}

// ForDomain lists the notes holding a URL on domain, newest first. The
// domain may be given as a URL or with a leading "www.".
func (s *Service) ForDomain(_ context.Context, domain string) ([]models.LinkNote, error) {
	d := urlnorm.ExtractDomain(domain)
	if d == "" {
		return nil, fmt.Errorf("noteservice: domain %q: %w", domain, apperr.ErrInvalidArgument)
	}
	return s.describeAll(s.index.FilesForDomain(d)), nil
}

// Domains lists every indexed domain.
func (s *Service) Domains(_ context.Context) []string {
	return nonNilSlice(s.index.Domains())
}

// Recent returns up to limit of the most recently modified notes with
// URLs. A non-positive limit returns the whole recency list.
func (s *Service) Recent(_ context.Context, limit int) []models.LinkNote {
	if limit <= 0 {
		limit = s.settings.Current().RecentCap
	}
	return s.describeAll(s.index.RecentFiles(limit))
}

// Explore groups the vault's notes along dim. A non-empty allowlist
// overrides the configured tag allowlist for this call.
func (s *Service) Explore(_ context.Context, dim string, allowlist string) ([]Group, error) {
	d, ok := explorer.ParseDimension(dim)
	if !ok {
		return nil, fmt.Errorf("noteservice: unknown dimension %q: %w", dim, apperr.ErrInvalidArgument)
	}
	cfg := s.settings.Current()
	if allowlist != "" {
		cfg.TagAllowlist = allowlist
	}
	groups := explorer.Group(d, cfg, s.index)

	out := make([]Group, 0, len(groups))
	for _, key := range groups.Keys() {
		entries := groups[key]
		g := Group{Key: key, Count: len(entries), Notes: make([]GroupNote, len(entries))}
		for i, e := range entries {
			g.Notes[i] = GroupNote{LinkNote: s.Describe(e.Document), MatchedURL: e.URL}
		}
		out = append(out, g)
	}
	return out, nil
}

// Stats reports vault and index sizes.
func (s *Service) Stats(_ context.Context) Stats {
	return Stats{Notes: s.vault.Len(), Index: s.index.Stats()}
}
