//go:build mage

package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Gather fetches publication metadata for every author in the filtered
// faculty CSV.
func Gather() error {
	mg.Deps(Build)
	names, err := facultyNames(filepath.Join(dataDir, "faculty-filtered.csv"))
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no faculty in the filtered CSV: run 'mage roster' first")
	}
	args := append([]string{"gather"}, names...)
	return runPubdex(args...)
}

// facultyNames reads the name column of a faculty CSV.
func facultyNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s not found: run 'mage roster' first", path)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var names []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue
		}
		names = append(names, row[0])
	}
	return names, nil
}
