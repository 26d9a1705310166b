// Package settings holds the runtime-tunable link matching settings.
//
// The index, matcher and explorer read settings through a Source at every
// call instead of caching them, so a config reload takes effect on the next
// mutation or query.
package settings

import (
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/linkdex/internal/platform"
)

// DefaultRecentCap bounds the recency cache independently of any
// consumer's requested limit.
const DefaultRecentCap = 150

// Settings controls which front-matter fields are indexed and which
// grouping and filter rules the matcher applies.
type Settings struct {
	// URLFields lists front-matter properties holding a URL or a list of
	// URLs, in priority order.
	URLFields []string `yaml:"url_fields"`
	// ChannelFields lists front-matter properties naming a YouTube channel.
	ChannelFields []string `yaml:"channel_fields"`
	// TagFields lists front-matter properties holding tags.
	TagFields []string `yaml:"tag_fields"`
	RecentCap int      `yaml:"recent_cap"`

	TLDSearch            bool `yaml:"tld_search"`
	SubredditGrouping    bool `yaml:"subreddit_grouping"`
	SubredditFilter      bool `yaml:"subreddit_filter"`
	YouTubeChannelFilter bool `yaml:"youtube_channel_filter"`

	// TagAllowlist is a comma or whitespace separated list of tags. Empty
	// means every tag is shown.
	TagAllowlist string `yaml:"tag_allowlist"`

	Explorer ExplorerSettings `yaml:"explorer"`
}

// ExplorerSettings enables the full-corpus grouping dimensions.
type ExplorerSettings struct {
	Tags         bool `yaml:"tags"`
	Subreddits   bool `yaml:"subreddits"`
	Channels     bool `yaml:"channels"`
	TwitterUsers bool `yaml:"twitter_users"`
	GitHubRepos  bool `yaml:"github_repos"`
	Domains      bool `yaml:"domains"`
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.URLFields, validation.Each(validation.Required)),
		validation.Field(&s.ChannelFields, validation.Each(validation.Required)),
		validation.Field(&s.TagFields, validation.Each(validation.Required)),
		validation.Field(&s.RecentCap, validation.Min(0)),
	)
}

// Allowlist parses TagAllowlist into a set of "#tag" keys.
func (s Settings) Allowlist() map[string]struct{} {
	fields := strings.FieldsFunc(s.TagAllowlist, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if tag := platform.NormalizeTag(f); tag != "" {
			out[tag] = struct{}{}
		}
	}
	return out
}

// Default returns settings with every grouping and filter enabled.
func Default() Settings {
	return Settings{
		URLFields:            []string{"source", "url", "link"},
		ChannelFields:        []string{"channel", "author"},
		TagFields:            []string{"tags"},
		RecentCap:            DefaultRecentCap,
		TLDSearch:            true,
		SubredditGrouping:    true,
		SubredditFilter:      true,
		YouTubeChannelFilter: true,
		Explorer: ExplorerSettings{
			Tags:         true,
			Subreddits:   true,
			Channels:     true,
			TwitterUsers: true,
			GitHubRepos:  true,
			Domains:      true,
		},
	}
}

// Source supplies the current settings.
type Source interface {
	Current() Settings
}

// Static is a Source that always returns the same settings.
type Static Settings

// Current implements Source.
func (s Static) Current() Settings { return Settings(s) }

// Holder is a Source whose value can be swapped at runtime.
type Holder struct {
	v atomic.Pointer[Settings]
}

// NewHolder creates a Holder initialised with s.
func NewHolder(s Settings) *Holder {
	h := &Holder{}
	h.Set(s)
	return h
}

// Current implements Source.
func (h *Holder) Current() Settings {
	if p := h.v.Load(); p != nil {
		return *p
	}
	return Default()
}

// Set replaces the held settings.
func (h *Holder) Set(s Settings) {
	h.v.Store(&s)
}
