package cascade

import (
	"net/url"
	"strings"
)

// NormalizeURL reduces a product URL to its stable core: lowercased scheme
// and host, no query string, no fragment, no trailing slash. Retailers
// routinely append tracking parameters and rewrite slashes between scans;
// two URLs that normalize identically are treated as trivially equal.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")

	return u.String()
}
