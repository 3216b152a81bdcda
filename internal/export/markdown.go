package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/tabgruppen/internal/types"
)

// Markdown formats group suggestions as a markdown checklist.
func Markdown(source string, groups []types.GroupSuggestion, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tab groups: %s\n", source)
	fmt.Fprintf(&b, "> Generated %s\n", now.Format("2006-01-02 15:04"))

	if len(groups) == 0 {
		b.WriteString("\nNo groupable tabs.\n")
		return b.String()
	}

	for _, g := range groups {
		n := len(g.Tabs)
		noun := "tabs"
		if n == 1 {
			noun = "tab"
		}
		heading := g.Name()
		if g.Source != types.NoGroup {
			heading += " *(existing group)*"
		}
		fmt.Fprintf(&b, "\n## %s (%d %s)\n\n", heading, n, noun)

		for _, tab := range g.Tabs {
			mark := " "
			if tab.Selected {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] [%s](%s)\n", mark, escape(tab.Title), tab.URL)
		}
	}

	return b.String()
}

func escape(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
