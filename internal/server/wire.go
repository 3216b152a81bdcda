package server

import (
	"encoding/json"
	"fmt"

	"github.com/lotas/tabgruppen/internal/types"
)

// IncomingMsg is a message from the extension: either a reply to a call
// (ID set) or an unsolicited event.
type IncomingMsg struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"` // "not_found" for stale handles

	Tabs     json.RawMessage `json:"tabs,omitempty"`
	Tab      json.RawMessage `json:"tab,omitempty"`
	Group    json.RawMessage `json:"group,omitempty"`
	GroupID  int             `json:"groupId,omitempty"`
	WindowID int             `json:"windowId,omitempty"`
}

// GroupUpdatePayload carries every attribute of a group update; none are
// optional on the wire.
type GroupUpdatePayload struct {
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

// OutgoingMsg is a command to the extension.
type OutgoingMsg struct {
	ID       string              `json:"id"`
	Action   string              `json:"action"`
	Scope    string              `json:"scope,omitempty"`
	WindowID int                 `json:"windowId,omitempty"`
	TabID    int                 `json:"tabId,omitempty"`
	TabIDs   []int               `json:"tabIds,omitempty"`
	GroupID  *int                `json:"groupId,omitempty"` // nil on tabs.group creates a new group
	Update   *GroupUpdatePayload `json:"update,omitempty"`
}

// Actions understood by the extension.
const (
	ActionQueryTabs     = "tabs.query"
	ActionCurrentWindow = "windows.current"
	ActionActiveTab     = "tabs.active"
	ActionGetTab        = "tabs.get"
	ActionGroupTabs     = "tabs.group"
	ActionUngroupTab    = "tabs.ungroup"
	ActionGetGroup      = "tabGroups.get"
	ActionUpdateGroup   = "tabGroups.update"
)

// CodeNotFound marks a reply about a tab or group that no longer exists.
const CodeNotFound = "not_found"

// wireTab mirrors the browser's tabs.Tab; groupId is -1 when ungrouped.
type wireTab struct {
	ID       int    `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	GroupID  *int   `json:"groupId"`
	WindowID int    `json:"windowId"`
	Index    int    `json:"index"`
	Active   bool   `json:"active"`
}

type wireGroup struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

func (wt wireTab) raw() types.RawTab {
	gid := types.NoGroup
	if wt.GroupID != nil && *wt.GroupID >= 0 {
		gid = types.GroupID(*wt.GroupID)
	}
	return types.RawTab{
		ID:       types.TabID(wt.ID),
		URL:      wt.URL,
		Title:    wt.Title,
		GroupID:  gid,
		WindowID: wt.WindowID,
		Index:    wt.Index,
		Active:   wt.Active,
	}
}

// ParseTabs converts the tabs field of a reply into raw tabs.
func ParseTabs(raw json.RawMessage) ([]types.RawTab, error) {
	var wts []wireTab
	if err := json.Unmarshal(raw, &wts); err != nil {
		return nil, fmt.Errorf("parse tabs: %w", err)
	}
	tabs := make([]types.RawTab, len(wts))
	for i, wt := range wts {
		tabs[i] = wt.raw()
	}
	return tabs, nil
}

// ParseTab converts a single tab field.
func ParseTab(raw json.RawMessage) (types.RawTab, error) {
	var wt wireTab
	if err := json.Unmarshal(raw, &wt); err != nil {
		return types.RawTab{}, fmt.Errorf("parse tab: %w", err)
	}
	return wt.raw(), nil
}

// ParseGroup converts a group field.
func ParseGroup(raw json.RawMessage) (types.GroupInfo, error) {
	var wg wireGroup
	if err := json.Unmarshal(raw, &wg); err != nil {
		return types.GroupInfo{}, fmt.Errorf("parse group: %w", err)
	}
	return types.GroupInfo{
		ID:        types.GroupID(wg.ID),
		Title:     wg.Title,
		Color:     types.Color(wg.Color),
		Collapsed: wg.Collapsed,
	}, nil
}

func groupRef(gid types.GroupID) *int {
	id := int(gid)
	return &id
}

func tabIDs(ids []types.TabID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
