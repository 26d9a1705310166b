package platform

import (
	"regexp"
	"strings"

	"github.com/starford/linkdex/internal/urlnorm"
)

var (
	subredditRe = regexp.MustCompile(`(?i)(?:^|[/.])reddit\.com/r/([A-Za-z0-9_]+)`)
	postIDRe    = regexp.MustCompile(`(?i)/comments/([a-z0-9]+)(?:[/?#]|$)`)
)

// ExtractSubreddit returns "r/<name>" for reddit.com/r/<name> URLs,
// including www., old. and new. subdomains. Subreddit names are case
// insensitive, so name is lower-cased.
func ExtractSubreddit(url string) string {
	if !isRedditHost(urlnorm.ExtractDomain(url)) {
		return ""
	}
	m := subredditRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return "r/" + strings.ToLower(m[1])
}

// ExtractPostID returns the post id from a /comments/<id>/ permalink.
func ExtractPostID(url string) string {
	m := postIDRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// IsSamePost reports whether a and b are permalinks to the same Reddit post.
// Permalinks embed a mutable title slug after the id, so plain URL
// normalization does not catch them.
func IsSamePost(a, b string) bool {
	if !containsFold(a, "reddit.com") || !containsFold(b, "reddit.com") {
		return false
	}
	id := ExtractPostID(a)
	return id != "" && id == ExtractPostID(b)
}

// IsRedditDomain reports whether url is hosted on reddit.com or a subdomain.
func IsRedditDomain(url string) bool {
	return isRedditHost(urlnorm.ExtractDomain(url))
}

func isRedditHost(host string) bool {
	return host == "reddit.com" || strings.HasSuffix(host, ".reddit.com")
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}
