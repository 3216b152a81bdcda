package grouping

import (
	"net/url"
	"strings"
)

// UnknownKey is the grouping key for addresses that cannot be parsed.
const UnknownKey = "unknown"

// hostSchemes always carry an authority; an empty host means a malformed
// address.
var hostSchemes = map[string]bool{
	"http": true, "https": true, "ws": true, "wss": true, "ftp": true,
}

// Key derives the grouping key for a tab address: its lowercased hostname
// with one leading "www." removed. Anything that is not an absolute URL
// maps to UnknownKey.
func Key(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return UnknownKey
	}
	host := strings.ToLower(u.Hostname())
	if host == "" && hostSchemes[u.Scheme] {
		return UnknownKey
	}
	return strings.TrimPrefix(host, "www.")
}
