//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Scan derives the author-info and publication-record CSVs from the
// repaired dump.
func Scan() error {
	mg.Deps(Build)
	dump, err := repairedDump()
	if err != nil {
		return err
	}
	return runPubdex("scan", dump,
		"--output", filepath.Join(dataDir, "author-info.csv"),
		"--records", filepath.Join(dataDir, "pub-records.csv"))
}
