package grouping

import "github.com/lotas/tabgruppen/internal/types"

// ordered is an insertion-ordered association from a bucket identity to a
// suggestion under construction.
type ordered[K comparable] struct {
	index  map[K]int
	groups []types.GroupSuggestion
}

func newOrdered[K comparable]() *ordered[K] {
	return &ordered[K]{index: make(map[K]int)}
}

// add appends tab to the bucket for k, creating it with key/name on first
// sight.
func (o *ordered[K]) add(k K, key, name string, source types.GroupID, tab types.TabRecord) {
	i, ok := o.index[k]
	if !ok {
		i = len(o.groups)
		o.index[k] = i
		o.groups = append(o.groups, types.GroupSuggestion{
			Key:        key,
			CustomName: name,
			Source:     source,
		})
	}
	o.groups[i].Tabs = append(o.groups[i].Tabs, tab)
}

// snapshot returns the buckets with every tab and group marked selected.
// The returned slice shares nothing with o.
func (o *ordered[K]) snapshot() []types.GroupSuggestion {
	out := make([]types.GroupSuggestion, len(o.groups))
	for i, g := range o.groups {
		c := g.Clone()
		for j := range c.Tabs {
			c.Tabs[j].Selected = true
		}
		c.GroupSelected = true
		out[i] = c
	}
	return out
}

// usable reports whether a tab can be acted upon later.
func usable(t types.RawTab) bool {
	return t.ID.Valid() && t.URL != "" && t.Title != ""
}

func record(t types.RawTab) types.TabRecord {
	return types.TabRecord{ID: t.ID, Title: t.Title, URL: t.URL, Selected: true}
}

// Fresh partitions tabs by hostname for the initial view. Current group
// membership is ignored; every tab and group starts selected.
func Fresh(tabs []types.RawTab) []types.GroupSuggestion {
	byHost := newOrdered[string]()
	for _, t := range tabs {
		if !usable(t) {
			continue
		}
		k := Key(t.URL)
		byHost.add(k, k, "", types.NoGroup, record(t))
	}
	return byHost.snapshot()
}

// Resync rebuilds the view from the browser's post-mutation state. Tabs in
// a known group are merged per group and listed first, titled by the
// group; the rest are partitioned by hostname. A tab whose group is not in
// groups is treated as ungrouped.
func Resync(tabs []types.RawTab, groups map[types.GroupID]types.GroupInfo) []types.GroupSuggestion {
	byGroup := newOrdered[types.GroupID]()
	byHost := newOrdered[string]()
	for _, t := range tabs {
		if !usable(t) {
			continue
		}
		if info, ok := groups[t.GroupID]; ok && t.Grouped() {
			key := info.Title
			if key == "" {
				key = Key(t.URL)
			}
			byGroup.add(t.GroupID, key, info.Title, t.GroupID, record(t))
			continue
		}
		k := Key(t.URL)
		byHost.add(k, k, "", types.NoGroup, record(t))
	}
	return append(byGroup.snapshot(), byHost.snapshot()...)
}
