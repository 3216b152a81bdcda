package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/organizer"
	"github.com/lotas/tabgruppen/internal/reconcile"
	"github.com/lotas/tabgruppen/internal/types"
)

// --- Messages ---

type connectedMsg struct{ err error }

type loadedMsg struct {
	groups []types.GroupSuggestion
	active types.TabID
	err    error
}

type organizedMsg struct {
	report *reconcile.Report
	view   []types.GroupSuggestion
	err    error
}

// --- Commands ---

func waitConnected(connect func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return connectedMsg{err: connect(context.Background())}
	}
}

func loadGroups(s *organizer.Session) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		groups, err := s.Fetch(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		active, err := s.ActiveTab(ctx)
		if err != nil {
			// Highlighting is cosmetic.
			applog.Warn("tui.active_tab", err)
		}
		return loadedMsg{groups: groups, active: active}
	}
}

func organize(s *organizer.Session, groups []types.GroupSuggestion) tea.Cmd {
	return func() tea.Msg {
		report, view, err := s.Apply(context.Background(), groups)
		return organizedMsg{report: report, view: view, err: err}
	}
}

// --- Model ---

// Model is the interactive grouping screen.
type Model struct {
	session *organizer.Session
	connect func(context.Context) error
	label   string

	tree      TreeModel
	input     textinput.Model
	renaming  bool
	renameIdx int

	loading bool
	busy    bool
	err     error
	notice  string
	width   int
	height  int
}

// NewModel builds the screen. When connect is non-nil it is awaited before
// the first load; label names the tab source in the top bar.
func NewModel(s *organizer.Session, connect func(context.Context) error, label string) Model {
	ti := textinput.New()
	ti.Placeholder = "group name (empty resets)"
	ti.CharLimit = 64
	return Model{
		session: s,
		connect: connect,
		label:   label,
		tree:    NewTreeModel(s.Model()),
		input:   ti,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	if m.connect != nil {
		return waitConnected(m.connect)
	}
	return loadGroups(m.session)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.tree.Width = m.width - 4
		m.tree.Height = m.height - 6 // top bar, bottom bars, border
		m.input.Width = m.width - 20
		return m, nil

	case connectedMsg:
		if msg.err != nil {
			m.loading = false
			m.err = fmt.Errorf("waiting for browser: %w", msg.err)
			return m, nil
		}
		return m, loadGroups(m.session)

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.session.Model().Replace(msg.groups)
		m.tree.Reset()
		m.tree.Active = msg.active
		return m, nil

	case organizedMsg:
		m.busy = false
		if msg.err != nil {
			// The model still holds the selection that failed.
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.session.Model().Replace(msg.view)
		m.tree.Reset()
		m.notice = "Organized: " + msg.report.Summary()
		return m, nil

	case tea.KeyMsg:
		if m.renaming {
			return m.updateRename(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.session.Model().SetCustomName(m.renameIdx, strings.TrimSpace(m.input.Value()))
		m.renaming = false
		m.input.Blur()
		return m, nil
	case "esc":
		m.renaming = false
		m.input.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()
	case "h":
		m.tree.CollapseOrParent()
	case "l", "enter":
		m.tree.ExpandOrEnter()
	}

	// Everything below edits or replaces the model.
	if m.busy || m.loading {
		return m, nil
	}

	switch msg.String() {
	case " ":
		m.tree.ToggleSelected()
	case "r":
		node := m.tree.SelectedNode()
		if node == nil {
			return m, nil
		}
		m.renaming = true
		m.renameIdx = node.Group
		m.input.SetValue(m.session.Model().Group(node.Group).CustomName)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "R":
		m.loading = true
		m.notice = ""
		return m, loadGroups(m.session)
	case "o":
		if !m.session.Model().HasAnySelected() {
			m.err = organizer.ErrNothingSelected
			return m, nil
		}
		m.busy = true
		m.err = nil
		m.notice = ""
		return m, organize(m.session, m.session.Model().Groups())
	}
	return m, nil
}

func (m Model) View() string {
	topBarStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
	noticeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Padding(0, 1)
	treeBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62"))

	var b strings.Builder
	b.WriteString(topBarStyle.Render(fmt.Sprintf("tabgruppen · %s · %d groups", m.label, m.session.Model().Len())))
	b.WriteString("\n")

	switch {
	case m.loading && m.connect != nil && m.session.Model().Len() == 0:
		b.WriteString(treeBorder.Render("Waiting for the browser extension..."))
	case m.loading:
		b.WriteString(treeBorder.Render("Loading tabs..."))
	default:
		b.WriteString(treeBorder.Render(m.tree.View()))
	}
	b.WriteString("\n")

	switch {
	case m.renaming:
		b.WriteString(topBarStyle.Render("Rename: ") + m.input.View())
	case m.err != nil:
		text := "Error: " + m.err.Error()
		if errors.Is(m.err, organizer.ErrNothingSelected) {
			text = "Nothing selected."
		}
		b.WriteString(errStyle.Render(text))
	case m.busy:
		b.WriteString(noticeStyle.Render("Organizing..."))
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n")

	selected, total := m.session.Model().Counts()
	help := fmt.Sprintf("%d/%d tabs selected · space toggle · r rename · o organize · R reload · q quit", selected, total)
	b.WriteString(bottomBarStyle.Render(help))
	return b.String()
}
