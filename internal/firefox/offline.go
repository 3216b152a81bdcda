package firefox

import (
	"context"
	"errors"
	"fmt"

	"github.com/lotas/tabgruppen/internal/facility"
	"github.com/lotas/tabgruppen/internal/types"
)

// ErrReadOnly is returned by every mutating call on an Offline facility.
var ErrReadOnly = errors.New("firefox: session file is read-only")

// Offline serves a session Snapshot through the facility contract so the
// same suggestion code runs without a connected browser. Mutations fail
// with ErrReadOnly.
type Offline struct {
	snap *Snapshot
}

// NewOffline wraps snap.
func NewOffline(snap *Snapshot) *Offline {
	return &Offline{snap: snap}
}

var _ facility.Facility = (*Offline)(nil)

func (o *Offline) ListTabs(ctx context.Context, scope facility.Scope) ([]types.RawTab, error) {
	var out []types.RawTab
	for _, t := range o.snap.Tabs {
		if scope == facility.ScopeCurrentWindow && t.WindowID != o.snap.CurrentWindow {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (o *Offline) CurrentWindow(ctx context.Context) (int, error) {
	return o.snap.CurrentWindow, nil
}

func (o *Offline) ActiveTab(ctx context.Context, windowID int) (types.RawTab, error) {
	for _, t := range o.snap.Tabs {
		if t.WindowID == windowID && t.Active {
			return t, nil
		}
	}
	return types.RawTab{}, fmt.Errorf("active tab in window %d: %w", windowID, facility.ErrNotFound)
}

func (o *Offline) GetTab(ctx context.Context, id types.TabID) (types.RawTab, error) {
	for _, t := range o.snap.Tabs {
		if t.ID == id {
			return t, nil
		}
	}
	return types.RawTab{}, fmt.Errorf("tab %d: %w", id, facility.ErrNotFound)
}

func (o *Offline) GetGroup(ctx context.Context, gid types.GroupID) (types.GroupInfo, error) {
	g, ok := o.snap.Groups[gid]
	if !ok {
		return types.GroupInfo{}, fmt.Errorf("group %d: %w", gid, facility.ErrNotFound)
	}
	return g, nil
}

func (o *Offline) CreateGroup(ctx context.Context, ids []types.TabID) (types.GroupID, error) {
	return types.NoGroup, ErrReadOnly
}

func (o *Offline) AddToGroup(ctx context.Context, gid types.GroupID, ids []types.TabID) error {
	return ErrReadOnly
}

func (o *Offline) Ungroup(ctx context.Context, id types.TabID) error {
	return ErrReadOnly
}

func (o *Offline) UpdateGroup(ctx context.Context, gid types.GroupID, upd types.GroupUpdate) error {
	return ErrReadOnly
}
