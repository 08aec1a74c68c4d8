//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Roster filters the faculty datasets into the working subset.
func Roster() error {
	mg.Deps(Build)
	return runPubdex("roster",
		"--data-dir", dataDir,
		"--output", filepath.Join(dataDir, "faculty-filtered.csv"))
}

// Lint checks roster scholar ids and homepage URLs.
func Lint() error {
	mg.Deps(Build)
	return runPubdex("lint", "--data-dir", dataDir)
}

// Missing lists roster names absent from the repaired dump.
func Missing() error {
	mg.Deps(Build)
	dump, err := repairedDump()
	if err != nil {
		return err
	}
	return runPubdex("missing", dump,
		"--data-dir", dataDir,
		"--output", filepath.Join(dataDir, "missing-names.txt"),
		"--csv", filepath.Join(dataDir, "missing-names.csv"))
}
