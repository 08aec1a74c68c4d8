// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package roster

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/pubdex/internal/dblp"
)

// normalizeName puts a name into the form used for dump matching: NFKC
// composition, trimmed, lower-cased. Dump exports and roster files disagree
// on combining characters for accented names; NFKC folds both sides.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(name)))
}

// MissingRow diagnoses one canonical roster name against the dump.
type MissingRow struct {
	// Name is the canonical spelling from the roster.
	Name string

	// Checked lists the normalized spellings tested (the canonical name
	// and its aliases), sorted.
	Checked []string

	// Found holds the per-spelling verdicts, aligned with Checked.
	Found []bool

	// InDump is true when any checked spelling appears in the dump.
	InDump bool
}

// MissingReport is the outcome of diffing the roster against a dump.
type MissingReport struct {
	// Missing lists canonical spellings with no dump match, in normalized
	// name order.
	Missing []string

	// Rows holds one diagnostic row per canonical name, same order.
	Rows []MissingRow
}

// FindMissing diffs the roster's canonical names, plus their aliases,
// against the set of author spellings in the dump at dumpPath. Matching is
// NFKC-normalized and case-insensitive.
func FindMissing(ctx context.Context, ds *Dataset, dumpPath string) (*MissingReport, error) {
	authors, err := dblp.AuthorSet(ctx, dumpPath)
	if err != nil {
		return nil, err
	}
	inDump := make(map[string]bool, len(authors))
	for name := range authors {
		inDump[normalizeName(name)] = true
	}

	// Alias map under normalization.
	aliasesOf := make(map[string][]string)
	isAlias := make(map[string]bool)
	for alias, canonical := range ds.Canonical {
		na, nc := normalizeName(alias), normalizeName(canonical)
		aliasesOf[nc] = append(aliasesOf[nc], na)
		isAlias[na] = true
	}

	type entry struct{ norm, orig string }
	var canon []entry
	seen := make(map[string]bool, len(ds.Faculty))
	for _, fac := range ds.Faculty {
		n := normalizeName(fac.Name)
		if seen[n] || isAlias[n] {
			continue
		}
		seen[n] = true
		canon = append(canon, entry{n, fac.Name})
	}
	sort.Slice(canon, func(i, j int) bool { return canon[i].norm < canon[j].norm })

	rep := &MissingReport{}
	for _, e := range canon {
		checked := append([]string{e.norm}, aliasesOf[e.norm]...)
		sort.Strings(checked)
		checked = dedup(checked)

		row := MissingRow{Name: e.orig, Checked: checked, Found: make([]bool, len(checked))}
		for i, spelling := range checked {
			row.Found[i] = inDump[spelling]
			if row.Found[i] {
				row.InDump = true
			}
		}
		if !row.InDump {
			rep.Missing = append(rep.Missing, e.orig)
		}
		rep.Rows = append(rep.Rows, row)
	}
	return rep, nil
}

// WriteMissingReport writes the missing-names list to txtPath, one name per
// line, and the per-name diagnostic CSV to csvPath. Each CSV row carries the
// author-page lookup key so unmatched names can be checked against the live
// bibliography site by hand.
func WriteMissingReport(txtPath, csvPath string, rep *MissingReport) error {
	var b strings.Builder
	for _, name := range rep.Missing {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(txtPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", txtPath, err)
	}

	rows := make([][]string, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		verdicts := make([]string, len(row.Checked))
		for i, spelling := range row.Checked {
			verdict := "no"
			if row.Found[i] {
				verdict = "yes"
			}
			verdicts[i] = spelling + "=" + verdict
		}
		found := "no"
		if row.InDump {
			found = "yes"
		}
		rows = append(rows, []string{row.Name, strings.Join(verdicts, "; "), found, TranslateNameToDump(row.Name)})
	}
	return writeCSV(csvPath, []string{"Canonical Name", "Aliases Checked", "Found in DBLP", "Lookup Key"}, rows)
}

// dedup removes adjacent duplicates from a sorted slice.
func dedup(sorted []string) []string {
	out := sorted[:0]
	for _, s := range sorted {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}
	return out
}
