// Package selection holds the user's include/exclude choices over a set
// of group suggestions. Every mutation keeps each group's flag equal to
// the AND of its tabs' flags.
package selection

import (
	"fmt"

	"github.com/lotas/tabgruppen/internal/types"
)

// Model is the in-memory selection state. It is not safe for concurrent
// use; callers mutate it from a single goroutine.
type Model struct {
	groups []types.GroupSuggestion
}

// New returns a model over a private copy of groups.
func New(groups []types.GroupSuggestion) *Model {
	m := &Model{}
	m.Replace(groups)
	return m
}

// Replace discards the current state and adopts a copy of groups.
func (m *Model) Replace(groups []types.GroupSuggestion) {
	m.groups = make([]types.GroupSuggestion, len(groups))
	for i, g := range groups {
		c := g.Clone()
		c.GroupSelected = allSelected(c.Tabs)
		m.groups[i] = c
	}
}

// Groups returns a deep copy of the current suggestions.
func (m *Model) Groups() []types.GroupSuggestion {
	out := make([]types.GroupSuggestion, len(m.groups))
	for i, g := range m.groups {
		out[i] = g.Clone()
	}
	return out
}

// Len returns the number of groups.
func (m *Model) Len() int { return len(m.groups) }

// Group returns a copy of the group at i.
func (m *Model) Group(i int) types.GroupSuggestion {
	return m.group(i).Clone()
}

// ToggleGroup flips the group flag and writes the new value to every tab
// in the group.
func (m *Model) ToggleGroup(i int) {
	g := m.group(i)
	v := !g.GroupSelected
	for j := range g.Tabs {
		g.Tabs[j].Selected = v
	}
	g.GroupSelected = allSelected(g.Tabs)
}

// ToggleTab flips a single tab and recomputes its group's flag.
func (m *Model) ToggleTab(gi, ti int) {
	g := m.group(gi)
	if ti < 0 || ti >= len(g.Tabs) {
		panic(fmt.Sprintf("selection: tab index %d out of range [0,%d) in group %d", ti, len(g.Tabs), gi))
	}
	g.Tabs[ti].Selected = !g.Tabs[ti].Selected
	g.GroupSelected = allSelected(g.Tabs)
}

// SetCustomName sets the title used for the group. An empty name falls
// back to the grouping key.
func (m *Model) SetCustomName(i int, name string) {
	m.group(i).CustomName = name
}

// HasAnySelected reports whether at least one tab is selected.
func (m *Model) HasAnySelected() bool {
	for _, g := range m.groups {
		for _, t := range g.Tabs {
			if t.Selected {
				return true
			}
		}
	}
	return false
}

// Counts returns the number of selected tabs and the total tab count.
func (m *Model) Counts() (selected, total int) {
	for _, g := range m.groups {
		total += len(g.Tabs)
		for _, t := range g.Tabs {
			if t.Selected {
				selected++
			}
		}
	}
	return selected, total
}

func (m *Model) group(i int) *types.GroupSuggestion {
	if i < 0 || i >= len(m.groups) {
		panic(fmt.Sprintf("selection: group index %d out of range [0,%d)", i, len(m.groups)))
	}
	return &m.groups[i]
}

func allSelected(tabs []types.TabRecord) bool {
	for _, t := range tabs {
		if !t.Selected {
			return false
		}
	}
	return true
}
