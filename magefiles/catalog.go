//go:build mage

package main

import "github.com/magefile/mage/mg"

// Catalog ingests gathered profiles into the SQLite paper catalog.
func Catalog() error {
	mg.Deps(Build)
	return runPubdex("catalog", "ingest")
}
