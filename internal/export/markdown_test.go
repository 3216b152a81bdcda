package export

import (
	"strings"
	"testing"
	"time"

	"github.com/lotas/tabgruppen/internal/types"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func sampleGroups() []types.GroupSuggestion {
	return []types.GroupSuggestion{
		{
			Key:           "Research",
			CustomName:    "Research",
			Source:        4,
			GroupSelected: false,
			Tabs: []types.TabRecord{
				{ID: 1, Title: "Go docs", URL: "https://go.dev/doc", Selected: true},
				{ID: 2, Title: "Bubble Tea", URL: "https://github.com/charmbracelet/bubbletea", Selected: false},
			},
		},
		{
			Key:           "example.com",
			Source:        types.NoGroup,
			GroupSelected: true,
			Tabs: []types.TabRecord{
				{ID: 3, Title: "Example [beta]", URL: "https://example.com", Selected: true},
			},
		},
	}
}

func TestMarkdown_GroupsAndMarks(t *testing.T) {
	result := Markdown("live", sampleGroups(), fixedNow)

	checks := []string{
		"# Tab groups: live",
		"> Generated 2026-05-04 09:30",
		"## Research *(existing group)* (2 tabs)",
		"## example.com (1 tab)",
		"- [x] [Go docs](https://go.dev/doc)",
		"- [ ] [Bubble Tea](https://github.com/charmbracelet/bubbletea)",
		`- [x] [Example \[beta\]](https://example.com)`,
	}
	for _, want := range checks {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q, got:\n%s", want, result)
		}
	}

	// Group order is preserved.
	if strings.Index(result, "## Research") > strings.Index(result, "## example.com") {
		t.Errorf("groups out of order:\n%s", result)
	}
}

func TestMarkdown_Empty(t *testing.T) {
	result := Markdown("default", nil, fixedNow)
	if !strings.Contains(result, "No groupable tabs.") {
		t.Errorf("expected empty notice, got:\n%s", result)
	}
}
