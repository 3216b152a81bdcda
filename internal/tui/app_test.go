package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lotas/tabgruppen/internal/facility"
	"github.com/lotas/tabgruppen/internal/organizer"
	"github.com/lotas/tabgruppen/internal/types"
)

func browser() *facility.Memory {
	m := facility.NewMemory(1)
	m.AddGroup(types.GroupInfo{ID: 10, Title: "a.com", Color: types.ColorRed})
	m.AddTab(types.RawTab{ID: 1, URL: "https://a.com/1", Title: "A1", GroupID: 10})
	m.AddTab(types.RawTab{ID: 2, URL: "https://b.com/1", Title: "B1", Active: true})
	m.AddTab(types.RawTab{ID: 3, URL: "https://www.a.com/2", Title: "A2"})
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds msg to the model and drops any resulting command.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// step feeds msg to the model and runs any resulting command synchronously
// once, feeding its message back in.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		if out := cmd(); out != nil {
			if _, isQuit := out.(tea.QuitMsg); !isQuit {
				next, _ = m.Update(out)
				m = next.(Model)
			}
		}
	}
	return m
}

func loaded(t *testing.T, fac facility.Facility) Model {
	t.Helper()
	m := NewModel(organizer.New(fac), nil, "test")
	msg := m.Init()()
	return step(t, m, msg)
}

func TestLoadPopulatesTree(t *testing.T) {
	m := loaded(t, browser())

	if m.loading || m.err != nil {
		t.Fatalf("loading=%v err=%v", m.loading, m.err)
	}
	if got := m.session.Model().Len(); got != 2 {
		t.Fatalf("expected 2 groups, got %d", got)
	}
	if m.tree.Active != 2 {
		t.Errorf("active tab = %d, want 2", m.tree.Active)
	}
	// a.com header, A1, A2, b.com header, B1
	if n := len(m.tree.VisibleNodes()); n != 5 {
		t.Errorf("expected 5 visible rows, got %d", n)
	}
	view := m.View()
	for _, want := range []string{"a.com", "b.com", "3/3 tabs selected"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSpaceTogglesGroupAndTab(t *testing.T) {
	m := loaded(t, browser())

	// Cursor on the a.com header.
	m = press(t, m, key(" "))
	if g := m.session.Model().Group(0); g.GroupSelected || g.Tabs[0].Selected || g.Tabs[1].Selected {
		t.Fatalf("group toggle did not propagate: %+v", g)
	}

	// Re-select the first tab only.
	m = press(t, m, key("j"))
	m = press(t, m, key(" "))
	g := m.session.Model().Group(0)
	if !g.Tabs[0].Selected || g.Tabs[1].Selected || g.GroupSelected {
		t.Errorf("tab toggle: %+v", g)
	}
	if sel, total := m.session.Model().Counts(); sel != 2 || total != 3 {
		t.Errorf("counts = %d/%d", sel, total)
	}
}

func TestRenameSetsCustomName(t *testing.T) {
	m := loaded(t, browser())

	m = press(t, m, key("r"))
	if !m.renaming {
		t.Fatal("expected rename prompt")
	}
	for _, r := range "Work" {
		m = press(t, m, key(string(r)))
	}
	m = press(t, m, key("enter"))
	if m.renaming {
		t.Fatal("rename prompt still open")
	}
	if got := m.session.Model().Group(0).Name(); got != "Work" {
		t.Errorf("name = %q, want Work", got)
	}
}

func TestRenameEscapeKeepsName(t *testing.T) {
	m := loaded(t, browser())
	m = press(t, m, key("r"))
	m = press(t, m, key("X"))
	m = press(t, m, key("esc"))
	if got := m.session.Model().Group(0).CustomName; got != "" {
		t.Errorf("custom name = %q, want empty", got)
	}
}

func TestOrganizeAppliesAndResyncs(t *testing.T) {
	fac := browser()
	m := loaded(t, fac)

	m = step(t, m, key("o"))
	if m.busy || m.err != nil {
		t.Fatalf("busy=%v err=%v", m.busy, m.err)
	}
	if !strings.HasPrefix(m.notice, "Organized:") {
		t.Errorf("notice = %q", m.notice)
	}
	if members := fac.Members(10); len(members) != 2 {
		t.Errorf("a.com group members = %v, want tabs 1 and 3", members)
	}
	groups := m.session.Model().Groups()
	if len(groups) != 2 || groups[0].Source == types.NoGroup || groups[1].Source == types.NoGroup {
		t.Errorf("expected two existing groups after resync, got %+v", groups)
	}
}

func TestOrganizeNothingSelected(t *testing.T) {
	fac := browser()
	m := loaded(t, fac)

	m = press(t, m, key(" ")) // a.com off
	m = press(t, m, key("h")) // collapse a.com
	m = press(t, m, key("j")) // b.com header
	m = press(t, m, key(" ")) // b.com off
	fac.ResetCalls()

	m = step(t, m, key("o"))
	if !errors.Is(m.err, organizer.ErrNothingSelected) {
		t.Fatalf("err = %v, want ErrNothingSelected", m.err)
	}
	if calls := fac.Calls(); len(calls) != 0 {
		t.Errorf("expected no browser mutations, got %v", calls)
	}
	if !strings.Contains(m.View(), "Nothing selected.") {
		t.Errorf("view missing notice:\n%s", m.View())
	}
}

func TestOrganizeFailureKeepsSelection(t *testing.T) {
	fac := browser()
	m := loaded(t, fac)
	m = press(t, m, key("j"))
	m = press(t, m, key(" ")) // deselect A1
	before := m.session.Model().Groups()

	fac.FailNext("Ungroup", errors.New("bridge gone"))
	m = step(t, m, key("o"))
	if m.err == nil || !strings.Contains(m.err.Error(), "bridge gone") {
		t.Fatalf("err = %v", m.err)
	}
	after := m.session.Model().Groups()
	if len(after) != len(before) || after[0].Tabs[0].Selected {
		t.Errorf("model changed after failure: %+v", after)
	}
}

func TestConnectFailureShowsError(t *testing.T) {
	m := NewModel(organizer.New(browser()), func(context.Context) error {
		return context.DeadlineExceeded
	}, "live")
	m = step(t, m, m.Init()())
	if m.loading || !errors.Is(m.err, context.DeadlineExceeded) {
		t.Fatalf("loading=%v err=%v", m.loading, m.err)
	}
}

func TestKeysIgnoredWhileBusy(t *testing.T) {
	m := loaded(t, browser())
	m.busy = true
	next, cmd := m.Update(key(" "))
	m = next.(Model)
	if cmd != nil {
		t.Error("expected no command while busy")
	}
	if !m.session.Model().Group(0).GroupSelected {
		t.Error("toggle applied while busy")
	}
}
