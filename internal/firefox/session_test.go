package firefox

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/lotas/tabgruppen/internal/facility"
	"github.com/lotas/tabgruppen/internal/types"
	"github.com/pierrec/lz4/v4"
)

func TestDecompressMozLz4(t *testing.T) {
	t.Run("valid mozlz4 payload", func(t *testing.T) {
		original := []byte(`{"windows":[{"tabs":[]}]}`)

		// Compress with lz4 block compression.
		dst := make([]byte, lz4.CompressBlockBound(len(original)))
		n, err := lz4.CompressBlock(original, dst, nil)
		if err != nil {
			t.Fatalf("lz4.CompressBlock failed: %v", err)
		}
		compressed := dst[:n]

		// Build mozlz4 payload: 8-byte magic + 4-byte LE uint32 size + compressed data.
		magic := []byte("mozLz40\x00")
		sizeBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(sizeBytes, uint32(len(original)))

		payload := make([]byte, 0, len(magic)+len(sizeBytes)+len(compressed))
		payload = append(payload, magic...)
		payload = append(payload, sizeBytes...)
		payload = append(payload, compressed...)

		result, err := DecompressMozLz4(payload)
		if err != nil {
			t.Fatalf("DecompressMozLz4 returned error: %v", err)
		}
		if string(result) != string(original) {
			t.Errorf("expected %q, got %q", string(original), string(result))
		}
	})

	t.Run("invalid header returns error", func(t *testing.T) {
		// Wrong magic bytes.
		bad := []byte("BADMAGIC\x00\x00\x00\x00some data here")
		_, err := DecompressMozLz4(bad)
		if err == nil {
			t.Fatal("expected error for invalid header, got nil")
		}
	})

	t.Run("too short data returns error", func(t *testing.T) {
		short := []byte("mozLz40")
		_, err := DecompressMozLz4(short)
		if err == nil {
			t.Fatal("expected error for too-short data, got nil")
		}
	})
}

const sessionJSON = `{
	"selectedWindow": 2,
	"windows": [
		{
			"tabs": [
				{"entries": [{"url": "https://background.com", "title": "Background"}], "index": 1}
			]
		},
		{
			"selected": 2,
			"tabs": [
				{"entries": [{"url": "https://example.com", "title": "Example"}], "index": 1, "groupId": "group-1"},
				{"entries": [{"url": "https://old.com", "title": "Old Page"}, {"url": "https://current.com", "title": "Current Page"}], "index": 2},
				{"entries": [], "index": 1},
				{"entries": [{"url": "https://x.com", "title": "X"}], "index": 1, "groupId": "missing"}
			],
			"groups": [
				{"id": "group-1", "name": "Work", "color": "blue", "collapsed": true}
			]
		}
	]
}`

func TestParseSession(t *testing.T) {
	snap, err := ParseSession([]byte(sessionJSON))
	if err != nil {
		t.Fatalf("ParseSession returned error: %v", err)
	}

	if snap.CurrentWindow != 2 {
		t.Errorf("CurrentWindow = %d, want 2", snap.CurrentWindow)
	}
	if len(snap.Tabs) != 4 {
		t.Fatalf("expected 4 tabs (empty entry skipped), got %d", len(snap.Tabs))
	}
	if len(snap.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(snap.Groups))
	}

	work := snap.Tabs[1]
	if work.ID != 2 || work.WindowID != 2 || work.GroupID == types.NoGroup {
		t.Errorf("work tab = %+v", work)
	}
	g := snap.Groups[work.GroupID]
	if g.Title != "Work" || g.Color != types.ColorBlue || !g.Collapsed {
		t.Errorf("group = %+v", g)
	}

	// index=2 means entries[1] is the current page.
	cur := snap.Tabs[2]
	if cur.URL != "https://current.com" || cur.Title != "Current Page" {
		t.Errorf("history tab = %q %q", cur.URL, cur.Title)
	}
	if !cur.Active {
		t.Error("selected tab should be active")
	}
	if snap.Tabs[3].GroupID != types.NoGroup {
		t.Error("tab referencing an undefined group should be ungrouped")
	}
}

func TestParseSessionInvalidJSON(t *testing.T) {
	if _, err := ParseSession([]byte("{")); err == nil {
		t.Fatal("expected error")
	}
}

func writeSessionFile(t *testing.T, profileDir, content string) {
	t.Helper()
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		t.Fatal(err)
	}
	raw := []byte(content)
	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	header := make([]byte, 12)
	copy(header, mozLz4Magic)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(raw)))
	if err := os.WriteFile(filepath.Join(backupDir, "recovery.jsonlz4"), append(header, compressed[:n]...), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOfflineFacility(t *testing.T) {
	ctx := context.Background()
	profileDir := t.TempDir()
	writeSessionFile(t, profileDir, sessionJSON)

	snap, err := ReadSessionFile(profileDir)
	if err != nil {
		t.Fatalf("ReadSessionFile: %v", err)
	}
	off := NewOffline(snap)

	tabs, _ := off.ListTabs(ctx, facility.ScopeCurrentWindow)
	if len(tabs) != 3 {
		t.Errorf("current window tabs = %d, want 3", len(tabs))
	}
	all, _ := off.ListTabs(ctx, facility.ScopeAllWindows)
	if len(all) != 4 {
		t.Errorf("all tabs = %d, want 4", len(all))
	}

	win, _ := off.CurrentWindow(ctx)
	active, err := off.ActiveTab(ctx, win)
	if err != nil || active.URL != "https://current.com" {
		t.Errorf("ActiveTab = %+v, %v", active, err)
	}
	if _, err := off.GetTab(ctx, 99); !facility.IsNotFound(err) {
		t.Errorf("GetTab(99) = %v, want ErrNotFound", err)
	}
	if _, err := off.CreateGroup(ctx, []types.TabID{1}); err != ErrReadOnly {
		t.Errorf("CreateGroup = %v, want ErrReadOnly", err)
	}
	if err := off.Ungroup(ctx, 1); err != ErrReadOnly {
		t.Errorf("Ungroup = %v, want ErrReadOnly", err)
	}
}

func TestReadSessionFileMissing(t *testing.T) {
	if _, err := ReadSessionFile(t.TempDir()); err == nil {
		t.Fatal("expected error for profile without session file")
	}
}
