//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Repair repairs every compressed dump under data/ into validated XML.
func Repair() error {
	mg.Deps(Build)
	dumps, err := filepath.Glob(filepath.Join(dataDir, "*.xml.gz"))
	if err != nil {
		return err
	}
	if len(dumps) == 0 {
		fmt.Printf("[repair] no compressed dumps under %s/\n", dataDir)
		return nil
	}
	args := append([]string{"repair", "--out-dir", dataDir}, dumps...)
	return runPubdex(args...)
}
