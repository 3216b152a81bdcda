package selection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/tabgruppen/internal/types"
)

func sample() []types.GroupSuggestion {
	mk := func(key string, ids ...int) types.GroupSuggestion {
		g := types.GroupSuggestion{Key: key, GroupSelected: true, Source: types.NoGroup}
		for _, id := range ids {
			g.Tabs = append(g.Tabs, types.TabRecord{ID: types.TabID(id), Title: key, URL: "https://" + key, Selected: true})
		}
		return g
	}
	return []types.GroupSuggestion{mk("a.com", 1, 2, 3), mk("b.com", 4), mk("c.com", 5, 6)}
}

func assertInvariant(t *testing.T, m *Model) {
	t.Helper()
	for i, g := range m.Groups() {
		want := true
		for _, tab := range g.Tabs {
			want = want && tab.Selected
		}
		require.Equalf(t, want, g.GroupSelected, "group %d (%s) flag drifted", i, g.Key)
	}
}

func TestToggleGroupPropagates(t *testing.T) {
	m := New(sample())

	m.ToggleGroup(0)
	g := m.Group(0)
	assert.False(t, g.GroupSelected)
	for _, tab := range g.Tabs {
		assert.False(t, tab.Selected)
	}
	assert.True(t, m.Group(1).GroupSelected, "other groups untouched")
	assertInvariant(t, m)
}

func TestToggleGroupOverwritesPartialSelection(t *testing.T) {
	m := New(sample())
	m.ToggleTab(0, 1)
	require.False(t, m.Group(0).GroupSelected)

	m.ToggleGroup(0)
	for _, tab := range m.Group(0).Tabs {
		assert.True(t, tab.Selected)
	}
	assertInvariant(t, m)
}

func TestToggleGroupTwiceRestoresUniformGroup(t *testing.T) {
	for _, start := range []bool{true, false} {
		m := New(sample())
		if !start {
			m.ToggleGroup(2)
		}
		before := m.Group(2)

		m.ToggleGroup(2)
		m.ToggleGroup(2)
		assert.Equal(t, before, m.Group(2))
	}
}

func TestToggleTabRecomputesGroup(t *testing.T) {
	m := New(sample())

	m.ToggleTab(0, 2)
	assert.False(t, m.Group(0).GroupSelected, "deselecting any tab clears the group")

	m.ToggleTab(0, 2)
	assert.True(t, m.Group(0).GroupSelected, "reselecting the last tab restores the group")
	assertInvariant(t, m)
}

func TestSetCustomNameKeepsSelection(t *testing.T) {
	m := New(sample())
	m.ToggleTab(1, 0)
	m.SetCustomName(1, "Reading")

	g := m.Group(1)
	assert.Equal(t, "Reading", g.CustomName)
	assert.Equal(t, "Reading", g.Name())
	assert.False(t, g.Tabs[0].Selected)

	m.SetCustomName(1, "")
	assert.Equal(t, "b.com", m.Group(1).Name())
}

func TestHasAnySelected(t *testing.T) {
	m := New(sample())
	assert.True(t, m.HasAnySelected())

	for i := 0; i < m.Len(); i++ {
		m.ToggleGroup(i)
	}
	assert.False(t, m.HasAnySelected())

	m.ToggleTab(2, 1)
	assert.True(t, m.HasAnySelected())

	sel, total := m.Counts()
	assert.Equal(t, 1, sel)
	assert.Equal(t, 6, total)
}

func TestHasAnySelectedEmptyModel(t *testing.T) {
	assert.False(t, New(nil).HasAnySelected())
}

func TestGroupsReturnsCopy(t *testing.T) {
	m := New(sample())
	gs := m.Groups()
	gs[0].Tabs[0].Selected = false
	assert.True(t, m.Group(0).Tabs[0].Selected)
}

func TestNewNormalizesGroupFlag(t *testing.T) {
	in := sample()
	in[0].Tabs[0].Selected = false // flag still claims true
	m := New(in)
	assert.False(t, m.Group(0).GroupSelected)
}

func TestOutOfRangePanics(t *testing.T) {
	m := New(sample())
	assert.Panics(t, func() { m.ToggleGroup(3) })
	assert.Panics(t, func() { m.ToggleGroup(-1) })
	assert.Panics(t, func() { m.ToggleTab(1, 1) })
	assert.Panics(t, func() { m.SetCustomName(9, "x") })
}

func TestRandomTogglesKeepInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := New(sample())
	for step := 0; step < 2000; step++ {
		gi := rng.Intn(m.Len())
		if rng.Intn(3) == 0 {
			m.ToggleGroup(gi)
		} else {
			m.ToggleTab(gi, rng.Intn(len(m.Group(gi).Tabs)))
		}
		assertInvariant(t, m)
	}
}
