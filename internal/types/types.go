package types

// TabID is a browser-assigned tab handle. It is only meaningful while the
// browser still reports the tab; values <= 0 mean "no id".
type TabID int

// GroupID is a browser-assigned tab group handle.
type GroupID int

// NoGroup marks a tab that is not a member of any tab group.
const NoGroup GroupID = -1

// Valid reports whether the id can address a live tab.
func (id TabID) Valid() bool { return id > 0 }

// Color is a tab group color from the browser's palette.
type Color string

const (
	ColorGrey   Color = "grey"
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorPink   Color = "pink"
	ColorPurple Color = "purple"
	ColorCyan   Color = "cyan"
	ColorOrange Color = "orange"
)

// DefaultGroupColor is applied to every group we create or update.
const DefaultGroupColor = ColorBlue

// Palette lists every color the browser accepts, in display order.
var Palette = []Color{
	ColorGrey, ColorBlue, ColorRed, ColorYellow, ColorGreen,
	ColorPink, ColorPurple, ColorCyan, ColorOrange,
}

// Valid reports whether c is part of the palette.
func (c Color) Valid() bool {
	for _, p := range Palette {
		if c == p {
			return true
		}
	}
	return false
}

// RawTab is one entry of the browser's live tab listing.
type RawTab struct {
	ID       TabID
	URL      string
	Title    string
	GroupID  GroupID // NoGroup if ungrouped
	WindowID int
	Index    int
	Active   bool
}

// Grouped reports whether the tab currently belongs to a tab group.
func (t RawTab) Grouped() bool { return t.GroupID != NoGroup }

// GroupInfo holds the display attributes of an existing tab group.
type GroupInfo struct {
	ID        GroupID
	Title     string
	Color     Color
	Collapsed bool
}

// GroupUpdate is the full set of attributes written to a tab group.
type GroupUpdate struct {
	Title     string
	Color     Color
	Collapsed bool
}

// TabRecord is a tab inside a group suggestion together with its
// inclusion flag.
type TabRecord struct {
	ID       TabID
	Title    string
	URL      string
	Selected bool
}

// GroupSuggestion is a proposed or observed bucket of tabs.
type GroupSuggestion struct {
	Key           string // grouping key or external group title
	Tabs          []TabRecord
	GroupSelected bool   // always the AND of Tabs[i].Selected
	CustomName    string // empty when unset
	Source        GroupID
}

// Name returns the title a group should carry in the browser.
func (g GroupSuggestion) Name() string {
	if g.CustomName != "" {
		return g.CustomName
	}
	return g.Key
}

// Clone returns a copy that shares no tab storage with g.
func (g GroupSuggestion) Clone() GroupSuggestion {
	c := g
	c.Tabs = append([]TabRecord(nil), g.Tabs...)
	return c
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}
