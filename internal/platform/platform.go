// Package platform derives platform-specific grouping keys from URLs and
// note front-matter: subreddits, YouTube channels, Twitter/X handles and
// GitHub repositories.
//
// Extractors return "" when the input does not match and never panic.
package platform

import "strings"

// Kind names a platform dimension.
type Kind string

// Supported platforms.
const (
	Reddit  Kind = "reddit"
	YouTube Kind = "youtube"
	Twitter Kind = "twitter"
	GitHub  Kind = "github"
)

// Detect returns the platform a URL belongs to, or "" for generic sites.
func Detect(url string) Kind {
	switch {
	case IsRedditDomain(url):
		return Reddit
	case IsYouTubeDomain(url):
		return YouTube
	case IsTwitterDomain(url):
		return Twitter
	case IsGitHubDomain(url):
		return GitHub
	}
	return ""
}

func reserved(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}
