// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubdex/pkg/types"
)

// ProfileFileName returns the file name a profile is stored under:
// the "name@org" cache key with filesystem-hostile runes replaced.
func ProfileFileName(name, org string) string {
	key := authorKey(name, org)
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, key)
	return sanitized + ".yaml"
}

// WriteProfile writes the profile as YAML under dir and returns the path.
// The directory is created if needed; the file is written via tmp + rename.
func WriteProfile(dir string, profile *types.AuthorProfile) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating profile directory: %w", err)
	}

	b, err := yaml.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("encoding profile: %w", err)
	}

	path := filepath.Join(dir, ProfileFileName(profile.Name, profile.Org))
	f, err := os.CreateTemp(dir, ".profile-*.tmp")
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ReadProfile loads one profile file.
func ReadProfile(path string) (*types.AuthorProfile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	var profile types.AuthorProfile
	if err := yaml.Unmarshal(b, &profile); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return &profile, nil
}

// ReadProfiles loads every .yaml profile under dir, sorted by file name.
func ReadProfiles(dir string) ([]*types.AuthorProfile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	sort.Strings(matches)

	profiles := make([]*types.AuthorProfile, 0, len(matches))
	for _, path := range matches {
		profile, err := ReadProfile(path)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}
