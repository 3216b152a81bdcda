// Package facility defines the contract of the browser's tab grouping
// service. Implementations suspend the caller until each operation has
// completed; callers issue one operation at a time.
package facility

import (
	"context"
	"errors"

	"github.com/lotas/tabgruppen/internal/types"
)

// ErrNotFound is returned when the addressed tab or group no longer exists.
var ErrNotFound = errors.New("facility: tab or group not found")

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Scope restricts a tab listing.
type Scope int

const (
	ScopeCurrentWindow Scope = iota
	ScopeAllWindows
)

func (s Scope) String() string {
	if s == ScopeAllWindows {
		return "all"
	}
	return "current"
}

// Facility is the browser's tab and tab group API.
type Facility interface {
	ListTabs(ctx context.Context, scope Scope) ([]types.RawTab, error)
	CurrentWindow(ctx context.Context) (int, error)
	ActiveTab(ctx context.Context, windowID int) (types.RawTab, error)
	GetTab(ctx context.Context, id types.TabID) (types.RawTab, error)

	CreateGroup(ctx context.Context, ids []types.TabID) (types.GroupID, error)
	AddToGroup(ctx context.Context, gid types.GroupID, ids []types.TabID) error
	Ungroup(ctx context.Context, id types.TabID) error
	GetGroup(ctx context.Context, gid types.GroupID) (types.GroupInfo, error)
	UpdateGroup(ctx context.Context, gid types.GroupID, upd types.GroupUpdate) error
}
