// Package urlnorm converts raw URL strings into comparable keys.
//
// Every function is total: invalid input yields "" or false, never a panic
// or an error. An empty string plays the role of "no value".
package urlnorm

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// IsValidURL reports whether s is an absolute http or https URL with a host.
// Bare domains such as "example.com" are not valid here.
func IsValidURL(s string) bool {
	_, ok := parseStrict(s)
	return ok
}

// NormalizeURL returns the comparison key for s: scheme and leading "www."
// removed, host lower-cased, trailing slash trimmed. Query and fragment are
// kept as-is. Returns "" when s is not a valid URL.
func NormalizeURL(s string) string {
	u, ok := parseStrict(s)
	if !ok {
		return ""
	}
	host := stripWWW(strings.ToLower(u.Host))
	path := strings.TrimSuffix(u.EscapedPath(), "/")

	var b strings.Builder
	b.Grow(len(host) + len(path) + len(u.RawQuery) + len(u.Fragment) + 2)
	b.WriteString(host)
	b.WriteString(path)
	if u.RawQuery != "" || u.ForceQuery {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String()
}

// ExtractDomain returns the lower-cased host of s without "www." and port.
// Unlike IsValidURL it accepts scheme-less input ("example.com/path").
func ExtractDomain(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		if strings.Contains(s, "://") {
			return ""
		}
		u, err = url.Parse("https://" + s)
		if err != nil || u.Host == "" {
			return ""
		}
	}
	return stripWWW(strings.ToLower(u.Hostname()))
}

// BaseDomain returns the registrable domain (eTLD+1) of s, e.g.
// "m.youtube.com" -> "youtube.com", "foo.bar.co.uk" -> "bar.co.uk".
// Hosts without a registrable part (IP addresses, "localhost") are
// returned unchanged.
func BaseDomain(s string) string {
	host := ExtractDomain(s)
	if host == "" {
		return ""
	}
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return host
	}
	base, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return base
}

// URLsMatch reports whether a and b normalize to the same non-empty key.
func URLsMatch(a, b string) bool {
	na := NormalizeURL(a)
	return na != "" && na == NormalizeURL(b)
}

// IsSameDomain reports whether a and b have the same non-empty domain.
func IsSameDomain(a, b string) bool {
	da := ExtractDomain(a)
	return da != "" && da == ExtractDomain(b)
}

func parseStrict(s string) (*url.URL, bool) {
	if s == "" {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, false
	}
	if u.Host == "" || u.Hostname() == "" {
		return nil, false
	}
	return u, true
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}
