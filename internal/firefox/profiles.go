package firefox

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lotas/tabgruppen/internal/types"
)

// FindFirefoxDir returns the platform-specific Firefox profile directory.
func FindFirefoxDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "linux":
		return filepath.Join(home, ".mozilla", "firefox")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	default:
		return ""
	}
}

// ParseProfilesINI reads profiles.ini and returns the profiles that have a
// session file to read.
func ParseProfilesINI(iniPath, firefoxDir string) ([]types.Profile, error) {
	f, err := os.Open(iniPath)
	if err != nil {
		return nil, fmt.Errorf("open profiles.ini: %w", err)
	}
	defer f.Close()

	var (
		all     []types.Profile
		current *types.Profile
	)
	flush := func() {
		if current != nil {
			all = append(all, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if section, ok := strings.CutPrefix(line, "["); ok && strings.HasSuffix(section, "]") {
			flush()
			if strings.HasPrefix(section, "Profile") {
				current = &types.Profile{}
			}
			continue
		}
		if current == nil {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "Name":
			current.Name = value
		case "Path":
			current.Path = value
		case "IsRelative":
			current.IsRelative = value == "1"
		case "Default":
			current.IsDefault = value == "1"
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan profiles.ini: %w", err)
	}

	var usable []types.Profile
	for _, p := range all {
		if p.IsRelative {
			p.Path = filepath.Join(firefoxDir, p.Path)
		}
		if hasSession(p.Path) {
			usable = append(usable, p)
		}
	}
	return usable, nil
}

func hasSession(profileDir string) bool {
	for _, name := range sessionFiles {
		if _, err := os.Stat(filepath.Join(profileDir, "sessionstore-backups", name)); err == nil {
			return true
		}
	}
	return false
}

// DiscoverProfiles finds and parses Firefox profiles under dir, or under
// the platform default when dir is empty.
func DiscoverProfiles(dir string) ([]types.Profile, error) {
	if dir == "" {
		dir = FindFirefoxDir()
	}
	if dir == "" {
		return nil, fmt.Errorf("could not find Firefox directory for %s", runtime.GOOS)
	}
	return ParseProfilesINI(filepath.Join(dir, "profiles.ini"), dir)
}

// ResolveProfile picks the named profile, or the default one (falling back
// to the first) when name is empty.
func ResolveProfile(profiles []types.Profile, name string) (types.Profile, error) {
	if len(profiles) == 0 {
		return types.Profile{}, fmt.Errorf("no Firefox profiles found")
	}
	if name != "" {
		for _, p := range profiles {
			if p.Name == name {
				return p, nil
			}
		}
		return types.Profile{}, fmt.Errorf("profile %q not found", name)
	}
	for _, p := range profiles {
		if p.IsDefault {
			return p, nil
		}
	}
	return profiles[0], nil
}
