package grouping

import (
	"strings"

	"github.com/lotas/tabgruppen/internal/types"
)

// internalPrefixes are address prefixes of browser-owned pages. Such tabs
// never show up in suggestions.
var internalPrefixes = []string{
	"about:",
	"brave://",
	"chrome://",
	"chrome-extension://",
	"devtools://",
	"edge://",
	"moz-extension://",
	"view-source:",
}

// IsInternal reports whether rawURL is a browser page or belongs to the
// extension identified by ownOrigin (may be empty).
func IsInternal(rawURL, ownOrigin string) bool {
	if ownOrigin != "" && strings.HasPrefix(rawURL, ownOrigin) {
		return true
	}
	for _, p := range internalPrefixes {
		if strings.HasPrefix(rawURL, p) {
			return true
		}
	}
	return false
}

// Filter returns the tabs that are neither internal pages nor pages of
// the extension itself. The input is not modified.
func Filter(tabs []types.RawTab, ownOrigin string) []types.RawTab {
	out := make([]types.RawTab, 0, len(tabs))
	for _, t := range tabs {
		if IsInternal(t.URL, ownOrigin) {
			continue
		}
		out = append(out, t)
	}
	return out
}
