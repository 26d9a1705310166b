package platform

import (
	"regexp"
	"strings"

	"github.com/starford/linkdex/internal/urlnorm"
)

var youtubeHostRe = regexp.MustCompile(
	`^(?:(?:www|m|mobile|music)\.)?(?:youtube\.(?:com|[a-z]{2,3}|com?\.[a-z]{2})|youtu\.be|youtube-nocookie\.com)$`)

// IsYouTubeDomain reports whether url points at any YouTube domain variant:
// youtube.com, youtu.be, m./mobile. subdomains, youtube-nocookie.com and
// country-coded TLDs such as youtube.de or youtube.co.uk.
func IsYouTubeDomain(url string) bool {
	return IsYouTubeHost(urlnorm.ExtractDomain(url))
}

// IsYouTubeHost is IsYouTubeDomain for an already extracted host.
func IsYouTubeHost(host string) bool {
	return host != "" && youtubeHostRe.MatchString(host)
}

// ExtractChannel reads the channel name from a note's own front-matter,
// trying fields in order. The first non-empty string, or the first element
// of an array value, wins. Wiki-link brackets are stripped.
func ExtractChannel(fm map[string]any, fields []string) string {
	if fm == nil {
		return ""
	}
	for _, field := range fields {
		raw, ok := fm[field]
		if !ok || raw == nil {
			continue
		}
		var candidate string
		switch v := raw.(type) {
		case string:
			candidate = v
		case []any:
			if len(v) > 0 {
				candidate, _ = v[0].(string)
			}
		case []string:
			if len(v) > 0 {
				candidate = v[0]
			}
		}
		if c := StripWikiLink(candidate); c != "" {
			return c
		}
	}
	return ""
}

// StripWikiLink turns "[[Channel]]" into "Channel"; other input is trimmed.
func StripWikiLink(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[[") && strings.HasSuffix(s, "]]") {
		s = strings.TrimSpace(s[2 : len(s)-2])
	}
	return s
}
