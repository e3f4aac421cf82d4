package restore

import (
	"net/url"
	"strings"
)

// isExactKeyMatch compares the way the cache service stores keys, which is
// case insensitive.
func isExactKeyMatch(key, cacheKey string) bool {
	return cacheKey != "" && strings.EqualFold(key, cacheKey)
}

// IsGhes reports whether serverURL points at a GitHub Enterprise Server.
func IsGhes(serverURL string) bool {
	if serverURL == "" {
		serverURL = "https://github.com"
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return false
	}
	hostname := strings.ToUpper(strings.TrimSpace(u.Hostname()))
	isGitHubHost := hostname == "GITHUB.COM"
	isGitHubEnterpriseCloudHost := strings.HasSuffix(hostname, ".GHE.COM")
	isLocalHost := strings.HasSuffix(hostname, ".LOCALHOST")
	return !isGitHubHost && !isGitHubEnterpriseCloudHost && !isLocalHost
}

func unavailableMessage(ghes bool) string {
	if ghes {
		return "Cache action is only supported on GHES version >= 3.5. If you are on version >=3.5 Please check with GHES admin if Actions cache service is enabled or not."
	}
	return "An internal error has occurred in cache backend. Please check https://www.githubstatus.com/ for any ongoing issue in actions."
}
