package roster

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/pubdex/pkg/types"
)

// Filter applies cfg's filters in order: country, institution, area, then
// the top-K cuts, then the random sample. The kept faculty come back
// name-sorted so repeated runs with the same seed produce identical files.
func Filter(ds *Dataset, cfg types.RosterConfig) []types.Faculty {
	kept := make([]types.Faculty, len(ds.Faculty))
	copy(kept, ds.Faculty)

	if len(cfg.Countries) > 0 {
		allowed := toSet(lowered(cfg.Countries))
		kept = keep(kept, func(f types.Faculty) bool {
			return allowed[ds.CountryOf[f.Affiliation]]
		})
	}

	if len(cfg.Institutions) > 0 {
		allowed := toSet(cfg.Institutions)
		kept = keep(kept, func(f types.Faculty) bool {
			return allowed[f.Affiliation]
		})
	}

	if len(cfg.Areas) > 0 {
		wanted := toSet(cfg.Areas)
		kept = keep(kept, func(f types.Faculty) bool {
			return intersects(ds.AreasFor(f.Name), wanted)
		})
	}

	if cfg.TopKInstitutions > 0 {
		counts := make(map[string]int)
		for _, f := range kept {
			counts[f.Affiliation]++
		}
		top := topKeys(counts, cfg.TopKInstitutions)
		kept = keep(kept, func(f types.Faculty) bool {
			return top[f.Affiliation]
		})
	}

	if cfg.TopKAreas > 0 {
		counts := make(map[string]int)
		for _, f := range kept {
			for area := range ds.AreasFor(f.Name) {
				counts[area]++
			}
		}
		top := topKeys(counts, cfg.TopKAreas)
		kept = keep(kept, func(f types.Faculty) bool {
			return intersects(ds.AreasFor(f.Name), top)
		})
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })

	if cfg.TopKAuthors > 0 && len(kept) > cfg.TopKAuthors {
		kept = kept[:cfg.TopKAuthors]
	}

	if cfg.RandomK > 0 && len(kept) > cfg.RandomK {
		seed := cfg.RandomSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		r := rand.New(rand.NewSource(seed))
		r.Shuffle(len(kept), func(i, j int) {
			kept[i], kept[j] = kept[j], kept[i]
		})
		kept = kept[:cfg.RandomK]
		sort.Slice(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })
	}

	return kept
}

// WriteFaculty writes the filtered faculty CSV. When includeAliases is set,
// each canonical row is followed by rows for its alias spellings carrying
// the same affiliation, homepage, and scholar id.
func WriteFaculty(path string, ds *Dataset, kept []types.Faculty, includeAliases bool) error {
	rows := make([][]string, 0, len(kept))
	for _, f := range kept {
		rows = append(rows, []string{f.Name, f.Affiliation, f.Homepage, f.ScholarID})
		if !includeAliases {
			continue
		}
		for _, alias := range ds.Aliases[f.Name] {
			rows = append(rows, []string{alias, f.Affiliation, f.Homepage, f.ScholarID})
		}
	}
	return writeCSV(path, []string{"name", "affiliation", "homepage", "scholarid"}, rows)
}

// keep filters in place, preserving order.
func keep(facs []types.Faculty, pred func(types.Faculty) bool) []types.Faculty {
	out := facs[:0]
	for _, f := range facs {
		if pred(f) {
			out = append(out, f)
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

func lowered(items []string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.ToLower(it)
	}
	return out
}

func intersects(have map[string]bool, want map[string]bool) bool {
	for k := range want {
		if have[k] {
			return true
		}
	}
	return false
}

// topKeys returns the k keys with the highest counts, ties broken by name
// so the cut is deterministic.
func topKeys(counts map[string]int, k int) map[string]bool {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return toSet(keys)
}

// writeCSV writes header and rows to path through a temp file in the same
// directory so a failed run leaves no partial output.
func writeCSV(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".roster-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	werr := w.Write(header)
	for _, row := range rows {
		if werr != nil {
			break
		}
		werr = w.Write(row)
	}
	if werr == nil {
		w.Flush()
		werr = w.Error()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmpPath, path)
	}
	if werr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, werr)
	}
	return nil
}
