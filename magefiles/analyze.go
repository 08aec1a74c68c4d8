//go:build mage

package main

import "github.com/magefile/mage/mg"

// Analyze summarizes the gathered corpus into the markdown report and
// BibTeX export.
func Analyze() error {
	mg.Deps(Build)
	return runPubdex("analyze")
}
