package organizer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/tabgruppen/internal/facility"
	"github.com/lotas/tabgruppen/internal/types"
)

type memJournal struct {
	runs []Run
	err  error
}

func (j *memJournal) RecordRun(ctx context.Context, run Run) (int64, error) {
	j.runs = append(j.runs, run)
	return int64(len(j.runs)), j.err
}

func browser() *facility.Memory {
	m := facility.NewMemory(1)
	m.AddGroup(types.GroupInfo{ID: 10, Title: "a.com", Color: types.ColorRed, Collapsed: true})
	m.AddGroup(types.GroupInfo{ID: 20, Title: "b.com", Color: types.ColorGreen})
	m.AddTab(types.RawTab{ID: 1, URL: "https://a.com/1", Title: "A1", GroupID: 10})
	m.AddTab(types.RawTab{ID: 2, URL: "https://b.com/1", Title: "B1", GroupID: 20, Active: true})
	m.AddTab(types.RawTab{ID: 3, URL: "https://www.a.com/2", Title: "A2", GroupID: types.NoGroup})
	m.AddTab(types.RawTab{ID: 4, URL: "chrome://settings", Title: "Settings", GroupID: types.NoGroup})
	return m
}

func tabIDs(g types.GroupSuggestion) []types.TabID {
	var ids []types.TabID
	for _, t := range g.Tabs {
		ids = append(ids, t.ID)
	}
	return ids
}

func assertAllSelected(t *testing.T, groups []types.GroupSuggestion) {
	t.Helper()
	for _, g := range groups {
		assert.Truef(t, g.GroupSelected, "group %q not selected", g.Key)
		for _, tab := range g.Tabs {
			assert.Truef(t, tab.Selected, "tab %d not selected", tab.ID)
		}
	}
}

func TestLoadBuildsFreshView(t *testing.T) {
	s := New(browser())
	require.NoError(t, s.Load(context.Background()))

	groups := s.Model().Groups()
	require.Len(t, groups, 2, "internal pages are filtered")
	assert.Equal(t, "a.com", groups[0].Key)
	assert.Equal(t, []types.TabID{1, 3}, tabIDs(groups[0]))
	assert.Equal(t, "b.com", groups[1].Key)
	assertAllSelected(t, groups)
}

func TestOrganizeJoinsExistingGroupsAndPreservesCollapsed(t *testing.T) {
	ctx := context.Background()
	m := browser()
	s := New(m)
	require.NoError(t, s.Load(ctx))

	_, err := s.Organize(ctx)
	require.NoError(t, err)

	assert.Equal(t, []types.TabID{1, 3}, m.Members(10))
	a, _ := m.Group(10)
	assert.True(t, a.Collapsed)
	b, _ := m.Group(20)
	assert.False(t, b.Collapsed)

	want := []types.GroupSuggestion{
		{Key: "a.com", CustomName: "a.com", Source: 10, GroupSelected: true, Tabs: []types.TabRecord{
			{ID: 1, Title: "A1", URL: "https://a.com/1", Selected: true},
			{ID: 3, Title: "A2", URL: "https://www.a.com/2", Selected: true},
		}},
		{Key: "b.com", CustomName: "b.com", Source: 20, GroupSelected: true, Tabs: []types.TabRecord{
			{ID: 2, Title: "B1", URL: "https://b.com/1", Selected: true},
		}},
	}
	if diff := cmp.Diff(want, s.Model().Groups()); diff != "" {
		t.Errorf("resync view mismatch (-want +got):\n%s", diff)
	}
}

func TestOrganizeDeselectedTabEndsUpUngrouped(t *testing.T) {
	ctx := context.Background()
	m := browser()
	s := New(m)
	require.NoError(t, s.Load(ctx))

	s.Model().ToggleTab(0, 0) // tab 1 in a.com
	_, err := s.Organize(ctx)
	require.NoError(t, err)

	tab, err := m.GetTab(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.NoGroup, tab.GroupID)

	var found bool
	for _, g := range s.Model().Groups() {
		for _, id := range tabIDs(g) {
			if id != 1 {
				continue
			}
			found = true
			assert.Equal(t, types.NoGroup, g.Source)
			assert.Equal(t, "a.com", g.Key)
			assert.Empty(t, g.CustomName)
		}
	}
	assert.True(t, found, "tab 1 missing from resync view")
	assertAllSelected(t, s.Model().Groups())
}

func TestOrganizeSameCustomNameKeepsSeparateGroups(t *testing.T) {
	ctx := context.Background()
	m := facility.NewMemory(1)
	m.AddTab(types.RawTab{ID: 1, URL: "https://a.com", Title: "A", GroupID: types.NoGroup})
	m.AddTab(types.RawTab{ID: 2, URL: "https://b.com", Title: "B", GroupID: types.NoGroup})
	s := New(m)
	require.NoError(t, s.Load(ctx))
	s.Model().SetCustomName(0, "Work")
	s.Model().SetCustomName(1, "Work")

	_, err := s.Organize(ctx)
	require.NoError(t, err)

	groups := s.Model().Groups()
	require.Len(t, groups, 2, "two browser groups that happen to share a title")
	assert.Equal(t, "Work", groups[0].Name())
	assert.Equal(t, "Work", groups[1].Name())
	assert.NotEqual(t, groups[0].Source, groups[1].Source)
}

func TestOrganizeNothingSelected(t *testing.T) {
	ctx := context.Background()
	m := browser()
	s := New(m)
	require.NoError(t, s.Load(ctx))
	for i := 0; i < s.Model().Len(); i++ {
		s.Model().ToggleGroup(i)
	}

	_, err := s.Organize(ctx)
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Empty(t, m.Calls())
}

func TestOrganizeFatalLeavesModelUntouched(t *testing.T) {
	ctx := context.Background()
	m := browser()
	j := &memJournal{}
	s := New(m, WithJournal(j))
	require.NoError(t, s.Load(ctx))
	s.Model().ToggleTab(1, 0)
	before := s.Model().Groups()

	boom := errors.New("extension disconnected")
	m.FailNext("ListTabs", boom) // resync read fails after reconciliation

	_, err := s.Organize(ctx)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, before, s.Model().Groups())

	require.Len(t, j.runs, 1)
	assert.ErrorIs(t, j.runs[0].Err, boom)
	assert.NotNil(t, j.runs[0].Report)
}

func TestOrganizeJournalFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	s := New(browser(), WithJournal(&memJournal{err: errors.New("disk full")}))
	require.NoError(t, s.Load(ctx))

	_, err := s.Organize(ctx)
	assert.NoError(t, err)
}

func TestResyncTreatsVanishedGroupAsUngrouped(t *testing.T) {
	ctx := context.Background()
	m := browser()
	m.FailNext("GetGroup", facility.ErrNotFound)

	groups, err := Resync(ctx, m, "")
	require.NoError(t, err)

	// Group 10 lookup failed, so tab 1 joins the hostname bucket with tab 3.
	require.Len(t, groups, 2)
	assert.Equal(t, types.GroupID(20), groups[0].Source)
	assert.Equal(t, []types.TabID{1, 3}, tabIDs(groups[1]))
	assertAllSelected(t, groups)
}

func TestActiveTab(t *testing.T) {
	s := New(browser())
	id, err := s.ActiveTab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TabID(2), id)
}

func TestExtensionOriginFiltered(t *testing.T) {
	m := facility.NewMemory(1)
	m.AddTab(types.RawTab{ID: 1, URL: "https://popup.local/index.html", Title: "Popup", GroupID: types.NoGroup})
	m.AddTab(types.RawTab{ID: 2, URL: "https://a.com", Title: "A", GroupID: types.NoGroup})
	s := New(m, WithExtensionOrigin("https://popup.local/"))
	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, 1, s.Model().Len())
	assert.Equal(t, "a.com", s.Model().Group(0).Key)
}
