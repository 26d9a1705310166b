package platform

import (
	"regexp"
	"strings"

	"github.com/starford/linkdex/internal/urlnorm"
)

var githubRepoRe = regexp.MustCompile(`(?i)(?:^|[/.])github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)`)

// Top-level github.com paths that look like an owner but are site pages.
var githubReserved = reserved(
	"settings", "notifications", "search", "explore", "marketplace",
	"topics", "collections", "trending", "sponsors", "pricing",
	"features", "enterprise", "team", "customer-stories", "security",
	"readme", "premium-support", "join",
)

// ExtractRepo returns "<owner>/<repo>" for github.com repository URLs.
func ExtractRepo(url string) string {
	if !IsGitHubDomain(url) {
		return ""
	}
	m := githubRepoRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	owner, repo := m[1], strings.TrimSuffix(m[2], ".git")
	if repo == "" {
		return ""
	}
	if _, skip := githubReserved[strings.ToLower(owner)]; skip {
		return ""
	}
	return owner + "/" + repo
}

// IsGitHubDomain reports whether url is hosted on github.com.
func IsGitHubDomain(url string) bool {
	return IsGitHubHost(urlnorm.ExtractDomain(url))
}

// IsGitHubHost is IsGitHubDomain for an already extracted host.
func IsGitHubHost(host string) bool {
	return host == "github.com"
}
