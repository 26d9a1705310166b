package platform

import (
	"regexp"
	"strings"

	"github.com/starford/linkdex/internal/urlnorm"
)

var twitterUserRe = regexp.MustCompile(`(?i)(?:^|[/.])(?:twitter|x)\.com/([A-Za-z0-9_]{1,15})(?:[/?#]|$)`)

// Paths under twitter.com / x.com that are not user handles.
var twitterReserved = reserved(
	"home", "explore", "notifications", "messages", "search",
	"settings", "i", "compose", "hashtag",
)

// ExtractUser returns "@<handle>" for twitter.com or x.com profile and
// status URLs.
func ExtractUser(url string) string {
	if !IsTwitterDomain(url) {
		return ""
	}
	m := twitterUserRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	if _, skip := twitterReserved[strings.ToLower(m[1])]; skip {
		return ""
	}
	return "@" + m[1]
}

// IsTwitterDomain reports whether url is hosted on twitter.com or x.com.
func IsTwitterDomain(url string) bool {
	return IsTwitterHost(urlnorm.ExtractDomain(url))
}

// IsTwitterHost is IsTwitterDomain for an already extracted host.
func IsTwitterHost(host string) bool {
	switch host {
	case "twitter.com", "x.com", "mobile.twitter.com", "mobile.x.com":
		return true
	}
	return false
}
