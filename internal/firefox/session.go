package firefox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lotas/tabgruppen/internal/types"
	"github.com/pierrec/lz4/v4"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// sessionFiles are tried in order inside sessionstore-backups.
var sessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	for i := range mozLz4Magic {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}

	dst := make([]byte, binary.LittleEndian.Uint32(data[8:12]))
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries []rawEntry `json:"entries"`
	Index   int        `json:"index"`
	Group   string     `json:"groupId"`
}

type rawGroup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

type rawWindow struct {
	Tabs     []rawTab   `json:"tabs"`
	Groups   []rawGroup `json:"groups"`
	Selected int        `json:"selected"` // 1-based tab index
}

type rawSession struct {
	Windows        []rawWindow `json:"windows"`
	SelectedWindow int         `json:"selectedWindow"` // 1-based
}

// Snapshot is the tab and group state recorded in a session file. Tab and
// group handles are assigned while parsing and mean nothing to a running
// browser.
type Snapshot struct {
	Tabs          []types.RawTab
	Groups        map[types.GroupID]types.GroupInfo
	CurrentWindow int
}

// ParseSession converts session JSON into a Snapshot. Windows are numbered
// from 1 in file order; tab handles are assigned from 1 in the same order.
func ParseSession(data []byte) (*Snapshot, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	snap := &Snapshot{
		Groups:        make(map[types.GroupID]types.GroupInfo),
		CurrentWindow: raw.SelectedWindow,
	}
	if snap.CurrentWindow < 1 || snap.CurrentWindow > len(raw.Windows) {
		snap.CurrentWindow = 1
	}

	nextTab := types.TabID(1)
	nextGroup := types.GroupID(1)
	for w, window := range raw.Windows {
		windowID := w + 1

		byName := make(map[string]types.GroupID, len(window.Groups))
		for _, rg := range window.Groups {
			gid := nextGroup
			nextGroup++
			byName[rg.ID] = gid
			snap.Groups[gid] = types.GroupInfo{
				ID:        gid,
				Title:     rg.Name,
				Color:     types.Color(rg.Color),
				Collapsed: rg.Collapsed,
			}
		}

		for i, rt := range window.Tabs {
			if len(rt.Entries) == 0 {
				continue
			}
			// index is 1-based; current page is entries[index-1].
			e := rt.Index - 1
			if e < 0 || e >= len(rt.Entries) {
				e = len(rt.Entries) - 1
			}
			gid, ok := byName[rt.Group]
			if !ok || rt.Group == "" {
				gid = types.NoGroup
			}
			snap.Tabs = append(snap.Tabs, types.RawTab{
				ID:       nextTab,
				URL:      rt.Entries[e].URL,
				Title:    rt.Entries[e].Title,
				GroupID:  gid,
				WindowID: windowID,
				Index:    i,
				Active:   window.Selected == i+1,
			})
			nextTab++
		}
	}
	return snap, nil
}

// ReadSessionFile reads the session of the given profile directory.
// It tries recovery.jsonlz4 first (active session), then previous.jsonlz4.
func ReadSessionFile(profileDir string) (*Snapshot, error) {
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	var data []byte
	var err error
	for _, name := range sessionFiles {
		data, err = os.ReadFile(filepath.Join(backupDir, name))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("no session file found in %s", backupDir)
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}
	return ParseSession(decompressed)
}
