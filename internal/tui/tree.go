package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabgruppen/internal/selection"
	"github.com/lotas/tabgruppen/internal/types"
)

// TreeNode represents a visible row in the tree.
type TreeNode struct {
	Group int // index into the selection model
	Tab   int // index into the group's tabs, -1 for the group header
}

// IsGroup reports whether the node is a group header.
func (n TreeNode) IsGroup() bool { return n.Tab < 0 }

// TreeModel renders a selection model as a collapsible checklist.
type TreeModel struct {
	Sel      *selection.Model
	Expanded map[int]bool // group index -> expanded
	Active   types.TabID
	Cursor   int
	Offset   int // scroll offset
	Width    int
	Height   int
}

func NewTreeModel(sel *selection.Model) TreeModel {
	m := TreeModel{Sel: sel}
	m.Reset()
	return m
}

// Reset expands every group and moves the cursor to the top. Group indexes
// do not survive a model replacement, so per-group state is dropped.
func (m *TreeModel) Reset() {
	m.Expanded = make(map[int]bool, m.Sel.Len())
	for i := 0; i < m.Sel.Len(); i++ {
		m.Expanded[i] = true
	}
	m.Cursor = 0
	m.Offset = 0
}

// VisibleNodes returns the flat list of currently visible nodes.
func (m TreeModel) VisibleNodes() []TreeNode {
	var nodes []TreeNode
	for gi := 0; gi < m.Sel.Len(); gi++ {
		nodes = append(nodes, TreeNode{Group: gi, Tab: -1})
		if m.Expanded[gi] {
			for ti := range m.Sel.Group(gi).Tabs {
				nodes = append(nodes, TreeNode{Group: gi, Tab: ti})
			}
		}
	}
	return nodes
}

// SelectedNode returns the node under the cursor, or nil.
func (m TreeModel) SelectedNode() *TreeNode {
	nodes := m.VisibleNodes()
	if m.Cursor >= 0 && m.Cursor < len(nodes) {
		return &nodes[m.Cursor]
	}
	return nil
}

func (m TreeModel) rows() int {
	visibleRows := m.Height - 2 // account for padding
	if visibleRows < 1 {
		visibleRows = 1
	}
	return visibleRows
}

// MoveUp moves the cursor up.
func (m *TreeModel) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
}

// MoveDown moves the cursor down.
func (m *TreeModel) MoveDown() {
	nodes := m.VisibleNodes()
	if m.Cursor < len(nodes)-1 {
		m.Cursor++
	}
	if m.Cursor >= m.Offset+m.rows() {
		m.Offset = m.Cursor - m.rows() + 1
	}
}

// ToggleSelected flips the inclusion flag of the node under the cursor.
func (m *TreeModel) ToggleSelected() {
	node := m.SelectedNode()
	if node == nil {
		return
	}
	if node.IsGroup() {
		m.Sel.ToggleGroup(node.Group)
		return
	}
	m.Sel.ToggleTab(node.Group, node.Tab)
}

// CollapseOrParent collapses the group under the cursor, or jumps to the
// parent group header if the cursor is on a tab.
func (m *TreeModel) CollapseOrParent() {
	node := m.SelectedNode()
	if node == nil {
		return
	}
	if node.IsGroup() {
		m.Expanded[node.Group] = false
		return
	}
	nodes := m.VisibleNodes()
	for i := m.Cursor - 1; i >= 0; i-- {
		if nodes[i].IsGroup() {
			m.Cursor = i
			if m.Cursor < m.Offset {
				m.Offset = m.Cursor
			}
			return
		}
	}
}

// ExpandOrEnter expands the group under the cursor if collapsed, or moves
// into its first tab.
func (m *TreeModel) ExpandOrEnter() {
	node := m.SelectedNode()
	if node == nil || !node.IsGroup() {
		return
	}
	if !m.Expanded[node.Group] {
		m.Expanded[node.Group] = true
		return
	}
	nodes := m.VisibleNodes()
	if m.Cursor+1 < len(nodes) && !nodes[m.Cursor+1].IsGroup() {
		m.MoveDown()
	}
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// View renders the tree.
func (m TreeModel) View() string {
	nodes := m.VisibleNodes()
	if len(nodes) == 0 {
		return "No groupable tabs in this window."
	}

	visibleRows := m.Height
	if visibleRows < 1 {
		visibleRows = 20
	}
	end := m.Offset + visibleRows
	if end > len(nodes) {
		end = len(nodes)
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	groupStyle := lipgloss.NewStyle().Bold(true)
	existingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	offStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var b strings.Builder
	for i := m.Offset; i < end; i++ {
		node := nodes[i]
		g := m.Sel.Group(node.Group)
		var line string

		if node.IsGroup() {
			icon := "▶"
			if m.Expanded[node.Group] {
				icon = "▼"
			}
			label := fmt.Sprintf("%s %s %s (%d tabs)", icon, checkbox(g.GroupSelected), g.Name(), len(g.Tabs))
			line = groupStyle.Render(label)
			if g.Source != types.NoGroup {
				line += " " + existingStyle.Render("●")
			}
		} else {
			tab := g.Tabs[node.Tab]
			prefix := "    " + checkbox(tab.Selected) + " "
			maxLen := m.Width - len(prefix) - 2
			if maxLen < 10 {
				maxLen = 10
			}
			title := tab.Title
			if len(title) > maxLen {
				title = title[:maxLen-1] + "…"
			}
			switch {
			case tab.ID == m.Active:
				title = activeStyle.Render(title)
			case !tab.Selected:
				title = offStyle.Render(title)
			}
			line = prefix + title
		}

		if i == m.Cursor {
			for lipgloss.Width(line) < m.Width {
				line += " "
			}
			line = cursorStyle.Render(line)
		}

		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
