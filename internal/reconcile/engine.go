// Package reconcile drives the browser's tab groups toward a selection
// with as few mutating calls as possible.
package reconcile

import (
	"context"
	"fmt"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/facility"
	"github.com/lotas/tabgruppen/internal/types"
)

// Engine applies group suggestions to a facility. Calls are issued one at
// a time, in suggestion order.
type Engine struct {
	fac   facility.Facility
	color types.Color
}

// Option configures an Engine.
type Option func(*Engine)

// WithColor overrides the color written to every group.
func WithColor(c types.Color) Option {
	return func(e *Engine) {
		if c.Valid() {
			e.color = c
		}
	}
}

// New returns an Engine bound to fac.
func New(fac facility.Facility, opts ...Option) *Engine {
	e := &Engine{fac: fac, color: types.DefaultGroupColor}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Reconcile makes the browser's grouping match groups. Vanished tabs and
// groups are skipped; any other failure stops the run and is returned
// together with the operations issued so far.
func (e *Engine) Reconcile(ctx context.Context, groups []types.GroupSuggestion) (*Report, error) {
	r := &Report{}
	for _, g := range groups {
		if err := e.apply(ctx, g, r); err != nil {
			applog.Error("reconcile.abort", err, "group", g.Name())
			return r, fmt.Errorf("reconcile group %q: %w", g.Name(), err)
		}
	}
	applog.Info("reconcile.done", "groups", len(groups), "created", r.Created,
		"added", r.Added, "ungrouped", r.Ungrouped, "updated", r.Updated, "skipped", r.Skipped)
	return r, nil
}

// member is a selected tab as the browser currently reports it.
type member struct {
	id    types.TabID
	group types.GroupID
}

func (e *Engine) apply(ctx context.Context, g types.GroupSuggestion, r *Report) error {
	name := g.Name()

	var selected, unselected []types.TabID
	for _, t := range g.Tabs {
		if t.Selected {
			selected = append(selected, t.ID)
		} else {
			unselected = append(unselected, t.ID)
		}
	}

	for _, id := range unselected {
		if err := e.release(ctx, name, id, r); err != nil {
			return err
		}
	}
	if len(selected) == 0 {
		return nil
	}

	live, err := e.lookup(ctx, name, selected, r)
	if err != nil {
		return err
	}
	if len(live) == 0 {
		return nil
	}

	target, collapsed, found, err := e.adopt(ctx, name, live, r)
	if err != nil {
		return err
	}

	if found {
		var missing []types.TabID
		for _, m := range live {
			if m.group != target {
				missing = append(missing, m.id)
			}
		}
		if len(missing) > 0 {
			op := Op{Kind: OpAdd, Group: name, TabIDs: missing, GroupID: target}
			if _, err := r.fold(op, e.fac.AddToGroup(ctx, target, missing)); err != nil {
				return err
			}
		}
		r.Targets = append(r.Targets, target)
	} else {
		ids := make([]types.TabID, len(live))
		for i, m := range live {
			ids[i] = m.id
		}
		gid, err := e.fac.CreateGroup(ctx, ids)
		if err != nil {
			gid = types.NoGroup
		}
		ok, err := r.fold(Op{Kind: OpCreate, Group: name, TabIDs: ids, GroupID: gid}, err)
		if err != nil || !ok {
			return err
		}
		target = gid
	}

	upd := types.GroupUpdate{Title: name, Color: e.color, Collapsed: collapsed}
	_, err = r.fold(Op{Kind: OpUpdate, Group: name, GroupID: target}, e.fac.UpdateGroup(ctx, target, upd))
	return err
}

// release ungroups a deselected tab if it is currently in any group.
func (e *Engine) release(ctx context.Context, name string, id types.TabID, r *Report) error {
	tab, err := e.fac.GetTab(ctx, id)
	if ok, err := r.fold(Op{Kind: OpLookupTab, Group: name, TabIDs: []types.TabID{id}, GroupID: types.NoGroup}, err); err != nil || !ok {
		return err
	}
	if !tab.Grouped() {
		return nil
	}
	op := Op{Kind: OpUngroup, Group: name, TabIDs: []types.TabID{id}, GroupID: tab.GroupID}
	_, err = r.fold(op, e.fac.Ungroup(ctx, id))
	return err
}

// lookup resolves the current membership of the selected tabs, dropping
// tabs that no longer exist.
func (e *Engine) lookup(ctx context.Context, name string, ids []types.TabID, r *Report) ([]member, error) {
	live := make([]member, 0, len(ids))
	for _, id := range ids {
		tab, err := e.fac.GetTab(ctx, id)
		ok, err := r.fold(Op{Kind: OpLookupTab, Group: name, TabIDs: []types.TabID{id}, GroupID: types.NoGroup}, err)
		if err != nil {
			return nil, err
		}
		if ok {
			live = append(live, member{id: id, group: tab.GroupID})
		}
	}
	return live, nil
}

// adopt picks the group of the first selected tab that already has one.
// Memberships of later tabs in other groups are ignored; those tabs get
// moved into the adopted group.
func (e *Engine) adopt(ctx context.Context, name string, live []member, r *Report) (types.GroupID, bool, bool, error) {
	for _, m := range live {
		if m.group == types.NoGroup {
			continue
		}
		info, err := e.fac.GetGroup(ctx, m.group)
		ok, err := r.fold(Op{Kind: OpLookupGroup, Group: name, GroupID: m.group}, err)
		if err != nil {
			return types.NoGroup, false, false, err
		}
		if ok {
			return m.group, info.Collapsed, true, nil
		}
	}
	return types.NoGroup, false, false, nil
}
