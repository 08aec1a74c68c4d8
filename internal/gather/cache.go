// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/pubdex/internal/cachefile"
)

// Cache file names under the gather cache directory.
const (
	authorIDFile     = "author_id_map.json"
	authorPapersFile = "author_papers_map.json"
	paperDetailsFile = "paper_details_map.json"
)

// Cache holds the three aggregator request caches. Author-keyed entries use
// "name@org" keys; paper details are keyed by aggregator paper id.
type Cache struct {
	authorIDs    *cachefile.Map
	authorPapers *cachefile.Map
	paperDetails *cachefile.Map
}

// OpenCache opens the caches under dir, creating the directory if needed.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{
		authorIDs:    cachefile.Open(filepath.Join(dir, authorIDFile)),
		authorPapers: cachefile.Open(filepath.Join(dir, authorPapersFile)),
		paperDetails: cachefile.Open(filepath.Join(dir, paperDetailsFile)),
	}, nil
}

// authorKey builds the cache key for an author lookup.
func authorKey(name, org string) string {
	if org == "" {
		return name
	}
	return name + "@" + org
}
