package facility

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/lotas/tabgruppen/internal/types"
)

// Call is one recorded operation against a Memory facility.
type Call struct {
	Method  string
	TabIDs  []types.TabID
	GroupID types.GroupID
}

// Memory is an in-process Facility with browser semantics: group ids are
// assigned in increasing order, a group disappears once its last tab
// leaves, and stale handles yield ErrNotFound.
type Memory struct {
	mu        sync.Mutex
	window    int
	tabs      []types.RawTab
	groups    map[types.GroupID]*types.GroupInfo
	nextGroup types.GroupID
	calls     []Call
	faults    map[string]error
}

// NewMemory returns an empty facility whose current window is windowID.
func NewMemory(windowID int) *Memory {
	return &Memory{
		window:    windowID,
		groups:    make(map[types.GroupID]*types.GroupInfo),
		nextGroup: 1,
		faults:    make(map[string]error),
	}
}

// AddGroup registers an existing group. Its id must be unused.
func (m *Memory) AddGroup(info types.GroupInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := info
	m.groups[info.ID] = &g
	if info.ID >= m.nextGroup {
		m.nextGroup = info.ID + 1
	}
}

// AddTab opens a tab. A zero WindowID places it in the current window.
func (m *Memory) AddTab(t types.RawTab) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.WindowID == 0 {
		t.WindowID = m.window
	}
	if t.GroupID == 0 {
		t.GroupID = types.NoGroup
	}
	t.Index = len(m.tabs)
	m.tabs = append(m.tabs, t)
}

// CloseTab removes a tab as if the user closed it.
func (m *Memory) CloseTab(id types.TabID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return
	}
	gid := m.tabs[i].GroupID
	m.tabs = slices.Delete(m.tabs, i, i+1)
	m.dissolveIfEmpty(gid)
}

// FailNext makes the next call to method return err.
func (m *Memory) FailNext(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[method] = err
}

// Calls returns the mutating operations issued so far.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// ResetCalls clears the call log.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Group returns the current attributes of gid and whether it exists.
func (m *Memory) Group(gid types.GroupID) (types.GroupInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[gid]
	if !ok {
		return types.GroupInfo{}, false
	}
	return *g, true
}

// Members returns the ids of the tabs in gid, in tab order.
func (m *Memory) Members(gid types.GroupID) []types.TabID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []types.TabID
	for _, t := range m.tabs {
		if t.GroupID == gid {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func (m *Memory) ListTabs(ctx context.Context, scope Scope) ([]types.RawTab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("ListTabs"); err != nil {
		return nil, err
	}
	var out []types.RawTab
	for _, t := range m.tabs {
		if scope == ScopeCurrentWindow && t.WindowID != m.window {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *Memory) CurrentWindow(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("CurrentWindow"); err != nil {
		return 0, err
	}
	return m.window, nil
}

func (m *Memory) ActiveTab(ctx context.Context, windowID int) (types.RawTab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("ActiveTab"); err != nil {
		return types.RawTab{}, err
	}
	for _, t := range m.tabs {
		if t.WindowID == windowID && t.Active {
			return t, nil
		}
	}
	return types.RawTab{}, fmt.Errorf("active tab in window %d: %w", windowID, ErrNotFound)
}

func (m *Memory) GetTab(ctx context.Context, id types.TabID) (types.RawTab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("GetTab"); err != nil {
		return types.RawTab{}, err
	}
	i := m.indexOf(id)
	if i < 0 {
		return types.RawTab{}, fmt.Errorf("tab %d: %w", id, ErrNotFound)
	}
	return m.tabs[i], nil
}

func (m *Memory) CreateGroup(ctx context.Context, ids []types.TabID) (types.GroupID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateGroup", ids, types.NoGroup)
	if err := m.fault("CreateGroup"); err != nil {
		return types.NoGroup, err
	}
	if len(ids) == 0 {
		return types.NoGroup, errors.New("facility: create group: no tabs")
	}
	if err := m.checkTabs(ids); err != nil {
		return types.NoGroup, err
	}
	gid := m.nextGroup
	m.nextGroup++
	m.groups[gid] = &types.GroupInfo{ID: gid, Color: types.ColorGrey}
	m.move(ids, gid)
	return gid, nil
}

func (m *Memory) AddToGroup(ctx context.Context, gid types.GroupID, ids []types.TabID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("AddToGroup", ids, gid)
	if err := m.fault("AddToGroup"); err != nil {
		return err
	}
	if _, ok := m.groups[gid]; !ok {
		return fmt.Errorf("group %d: %w", gid, ErrNotFound)
	}
	if err := m.checkTabs(ids); err != nil {
		return err
	}
	m.move(ids, gid)
	return nil
}

func (m *Memory) Ungroup(ctx context.Context, id types.TabID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Ungroup", []types.TabID{id}, types.NoGroup)
	if err := m.fault("Ungroup"); err != nil {
		return err
	}
	if err := m.checkTabs([]types.TabID{id}); err != nil {
		return err
	}
	m.move([]types.TabID{id}, types.NoGroup)
	return nil
}

func (m *Memory) GetGroup(ctx context.Context, gid types.GroupID) (types.GroupInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("GetGroup"); err != nil {
		return types.GroupInfo{}, err
	}
	g, ok := m.groups[gid]
	if !ok {
		return types.GroupInfo{}, fmt.Errorf("group %d: %w", gid, ErrNotFound)
	}
	return *g, nil
}

func (m *Memory) UpdateGroup(ctx context.Context, gid types.GroupID, upd types.GroupUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpdateGroup", nil, gid)
	if err := m.fault("UpdateGroup"); err != nil {
		return err
	}
	g, ok := m.groups[gid]
	if !ok {
		return fmt.Errorf("group %d: %w", gid, ErrNotFound)
	}
	if !upd.Color.Valid() {
		return fmt.Errorf("facility: invalid color %q", upd.Color)
	}
	g.Title = upd.Title
	g.Color = upd.Color
	g.Collapsed = upd.Collapsed
	return nil
}

func (m *Memory) fault(method string) error {
	err, ok := m.faults[method]
	if !ok {
		return nil
	}
	delete(m.faults, method)
	return err
}

func (m *Memory) record(method string, ids []types.TabID, gid types.GroupID) {
	m.calls = append(m.calls, Call{Method: method, TabIDs: slices.Clone(ids), GroupID: gid})
}

func (m *Memory) indexOf(id types.TabID) int {
	for i, t := range m.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) checkTabs(ids []types.TabID) error {
	for _, id := range ids {
		if m.indexOf(id) < 0 {
			return fmt.Errorf("tab %d: %w", id, ErrNotFound)
		}
	}
	return nil
}

// move reassigns tabs to gid and dissolves groups left empty.
func (m *Memory) move(ids []types.TabID, gid types.GroupID) {
	left := make(map[types.GroupID]bool)
	for _, id := range ids {
		i := m.indexOf(id)
		if old := m.tabs[i].GroupID; old != gid && old != types.NoGroup {
			left[old] = true
		}
		m.tabs[i].GroupID = gid
	}
	for old := range left {
		m.dissolveIfEmpty(old)
	}
}

func (m *Memory) dissolveIfEmpty(gid types.GroupID) {
	if gid == types.NoGroup {
		return
	}
	for _, t := range m.tabs {
		if t.GroupID == gid {
			return
		}
	}
	delete(m.groups, gid)
}
