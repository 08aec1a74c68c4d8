// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package roster loads, filters, and checks the faculty datasets: the
// faculty CSV, the alias map, the institution-to-country table, and the
// scan-generated author-info CSV.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/pubdex/pkg/types"
)

// Dataset file names inside the data directory.
const (
	FacultyFile    = "faculty.csv"
	AliasFile      = "aliases.csv"
	CountryFile    = "country-info.csv"
	AuthorInfoFile = "author-info.csv"
)

// Dataset holds the loaded roster files. Only the faculty file is
// required; the others default to empty.
type Dataset struct {
	// Faculty holds the canonical rows in file order. Rows whose name is
	// a known alias are folded into their canonical entry.
	Faculty []types.Faculty

	// Aliases maps canonical names to their alias spellings, sorted.
	Aliases map[string][]string

	// Canonical maps alias spellings back to canonical names.
	Canonical map[string]string

	// CountryOf maps institutions to lower-case two-letter country codes.
	CountryOf map[string]string

	// AreasOf maps author names to the set of areas they publish in,
	// loaded from the author-info CSV.
	AreasOf map[string]map[string]bool
}

// LoadDataset reads the roster files from dataDir.
func LoadDataset(dataDir string) (*Dataset, error) {
	ds := &Dataset{
		Aliases:   make(map[string][]string),
		Canonical: make(map[string]string),
		CountryOf: make(map[string]string),
		AreasOf:   make(map[string]map[string]bool),
	}

	rows, err := readCSV(filepath.Join(dataDir, FacultyFile),
		"name", "affiliation", "homepage", "scholarid")
	if err != nil {
		return nil, fmt.Errorf("loading faculty: %w", err)
	}
	seen := make(map[string]bool, len(rows))
	all := make([]types.Faculty, 0, len(rows))
	for _, row := range rows {
		name := row["name"]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		fac := types.Faculty{
			Name:        name,
			Affiliation: row["affiliation"],
			Homepage:    strings.TrimRight(row["homepage"], "/"),
			ScholarID:   row["scholarid"],
		}
		if fac.Affiliation == "" {
			fac.Affiliation = "unknown"
		}
		if fac.ScholarID == "" {
			fac.ScholarID = types.NoScholarPage
		}
		all = append(all, fac)
	}

	aliasRows, err := loadOptional(filepath.Join(dataDir, AliasFile), "alias", "name")
	if err != nil {
		return nil, fmt.Errorf("loading aliases: %w", err)
	}
	for _, row := range aliasRows {
		alias, name := row["alias"], row["name"]
		if alias == "" || name == "" {
			continue
		}
		if _, dup := ds.Canonical[alias]; dup {
			continue
		}
		ds.Canonical[alias] = name
		ds.Aliases[name] = append(ds.Aliases[name], alias)
	}
	for _, aliases := range ds.Aliases {
		sort.Strings(aliases)
	}

	for _, fac := range all {
		if _, isAlias := ds.Canonical[fac.Name]; !isAlias {
			ds.Faculty = append(ds.Faculty, fac)
		}
	}

	countryRows, err := loadOptional(filepath.Join(dataDir, CountryFile),
		"institution", "countryabbrv")
	if err != nil {
		return nil, fmt.Errorf("loading country info: %w", err)
	}
	for _, row := range countryRows {
		if inst := row["institution"]; inst != "" {
			ds.CountryOf[inst] = strings.ToLower(row["countryabbrv"])
		}
	}

	infoRows, err := loadOptional(filepath.Join(dataDir, AuthorInfoFile), "name", "area")
	if err != nil {
		return nil, fmt.Errorf("loading author info: %w", err)
	}
	for _, row := range infoRows {
		name, area := row["name"], row["area"]
		if name == "" || area == "" {
			continue
		}
		areas := ds.AreasOf[name]
		if areas == nil {
			areas = make(map[string]bool)
			ds.AreasOf[name] = areas
		}
		areas[area] = true
	}

	return ds, nil
}

// AreasFor returns the union of publication areas recorded for a canonical
// name and its aliases.
func (ds *Dataset) AreasFor(name string) map[string]bool {
	areas := make(map[string]bool)
	for a := range ds.AreasOf[name] {
		areas[a] = true
	}
	for _, alias := range ds.Aliases[name] {
		for a := range ds.AreasOf[alias] {
			areas[a] = true
		}
	}
	return areas
}

// readCSV reads a headered CSV file into column-keyed rows. Cells are
// trimmed; short rows leave their trailing columns empty.
func readCSV(path string, required ...string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, name)
		}
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		row := make(map[string]string, len(col))
		for name, i := range col {
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// loadOptional reads a CSV that may be absent, returning no rows when it is.
func loadOptional(path string, required ...string) ([]map[string]string, error) {
	rows, err := readCSV(path, required...)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return rows, err
}
