package organizer

import (
	"context"
	"fmt"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/facility"
	"github.com/lotas/tabgruppen/internal/grouping"
	"github.com/lotas/tabgruppen/internal/types"
)

// Resync reads the browser's current tabs and groups and rebuilds the
// suggestion view from them, fully selected. Groups that vanish between
// the listing and the lookup leave their tabs ungrouped in the view.
func Resync(ctx context.Context, fac facility.Facility, ownOrigin string) ([]types.GroupSuggestion, error) {
	tabs, err := fac.ListTabs(ctx, facility.ScopeCurrentWindow)
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	tabs = grouping.Filter(tabs, ownOrigin)

	infos := make(map[types.GroupID]types.GroupInfo)
	gone := make(map[types.GroupID]bool)
	for _, t := range tabs {
		if !t.Grouped() {
			continue
		}
		if _, ok := infos[t.GroupID]; ok || gone[t.GroupID] {
			continue
		}
		info, err := fac.GetGroup(ctx, t.GroupID)
		if facility.IsNotFound(err) {
			applog.Warn("resync.group.missing", err, "groupId", t.GroupID)
			gone[t.GroupID] = true
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get group %d: %w", t.GroupID, err)
		}
		infos[t.GroupID] = info
	}

	groups := grouping.Resync(tabs, infos)
	applog.Info("resync.done", "tabs", len(tabs), "groups", len(infos), "suggestions", len(groups))
	return groups, nil
}
