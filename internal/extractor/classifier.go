package extractor

import (
	"net/url"
	"regexp"
	"strings"
)

// Permalink shapes per platform. A tracked query must represent a
// search, never one ad, so these are rejected even on the right host.
var (
	kufarItemRe    = regexp.MustCompile(`(?:^|/)(?:item|vi)/`)
	onlinerTopicRe = regexp.MustCompile(`/viewtopic\.php`)
	trailingNumRe  = regexp.MustCompile(`/\d+/?$`)
	olxItemRe      = regexp.MustCompile(`/obyavlenie/|-ID[0-9A-Za-z]+\.html$`)
)

// DetectPlatform inspects an arbitrary URL and determines which platform
// it belongs to, by host-substring matching. Specific subdomains
// (re.kufar.by, baraholka.onliner.by) match alongside the general domain.
func DetectPlatform(rawURL string) (Platform, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case strings.Contains(host, "kufar.by"):
		return PlatformKufar, true
	case strings.Contains(host, "onliner.by"):
		return PlatformOnliner, true
	case strings.Contains(host, "olx.by"), strings.Contains(host, "olx.ua"):
		return PlatformOlx, true
	}
	return "", false
}

// ValidateSearchShape reports whether the URL looks like a search page
// for the given platform, excluding single-item permalink shapes.
func ValidateSearchShape(rawURL string, platform Platform) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.EscapedPath()

	switch platform {
	case PlatformKufar:
		if kufarItemRe.MatchString(path) {
			return false
		}
		// Search listings live under /l/<category>/<locality>.
		return path == "/l" || strings.HasPrefix(path, "/l/")
	case PlatformOnliner:
		if onlinerTopicRe.MatchString(path) || trailingNumRe.MatchString(path) {
			return false
		}
		return path == "/search" || strings.HasPrefix(path, "/kupi/") || strings.HasPrefix(path, "/prodam/")
	case PlatformOlx:
		if olxItemRe.MatchString(path) {
			return false
		}
		return path != "" && path != "/"
	}
	return false
}
