package export

import (
	"encoding/json"
	"time"

	"github.com/lotas/tabgruppen/internal/types"
)

type jsonExport struct {
	Source      string      `json:"source"`
	GeneratedAt time.Time   `json:"generated_at"`
	Groups      []jsonGroup `json:"groups"`
}

type jsonGroup struct {
	Key        string    `json:"key"`
	Name       string    `json:"name"`
	CustomName string    `json:"custom_name,omitempty"`
	Existing   *int      `json:"existing_group,omitempty"`
	Selected   bool      `json:"selected"`
	Tabs       []jsonTab `json:"tabs"`
}

type jsonTab struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Selected bool   `json:"selected"`
}

// JSON formats group suggestions as a JSON document.
func JSON(source string, groups []types.GroupSuggestion, now time.Time) (string, error) {
	out := jsonExport{
		Source:      source,
		GeneratedAt: now.UTC(),
		Groups:      make([]jsonGroup, 0, len(groups)),
	}

	for _, g := range groups {
		group := jsonGroup{
			Key:        g.Key,
			Name:       g.Name(),
			CustomName: g.CustomName,
			Selected:   g.GroupSelected,
			Tabs:       make([]jsonTab, 0, len(g.Tabs)),
		}
		if g.Source != types.NoGroup {
			id := int(g.Source)
			group.Existing = &id
		}
		for _, tab := range g.Tabs {
			group.Tabs = append(group.Tabs, jsonTab{
				ID:       int(tab.ID),
				Title:    tab.Title,
				URL:      tab.URL,
				Selected: tab.Selected,
			})
		}
		out.Groups = append(out.Groups, group)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
