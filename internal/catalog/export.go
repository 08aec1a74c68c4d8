// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// exportLimit caps export size while staying far above realistic corpora.
const exportLimit = 100000

// ExportCSV writes the selected papers as CSV to w, one row per paper with
// a header line. List fields join with "; ".
func (s *Store) ExportCSV(ctx context.Context, opts QueryOptions, w io.Writer) error {
	results, err := s.searchForExport(ctx, opts)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "title", "authors", "venue", "area", "year", "citations", "keywords", "url", "sources", "abstract"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, r := range results {
		year := ""
		if r.Year > 0 {
			year = strconv.Itoa(r.Year)
		}
		row := []string{
			r.ID,
			r.Title,
			strings.Join(r.Authors, "; "),
			r.Venue,
			r.Area,
			year,
			strconv.Itoa(r.Citations),
			strings.Join(r.Keywords, "; "),
			r.URL,
			strings.Join(r.Sources, "; "),
			r.Abstract,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names follow the CSL-JSON schema so that output is
// consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Author         []CSLName `json:"author,omitempty"`
	ContainerTitle string    `json:"container-title,omitempty"`
	Abstract       string    `json:"abstract,omitempty"`
	Issued         *CSLDate  `json:"issued,omitempty"`
	URL            string    `json:"URL,omitempty"`
	DOI            string    `json:"DOI,omitempty"`
	Keyword        string    `json:"keyword,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `json:"family,omitempty"`
	Given   string `json:"given,omitempty"`
	Literal string `json:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `json:"date-parts"`
}

// ExportCSLJSON writes the selected papers as a CSL-JSON array to w.
func (s *Store) ExportCSLJSON(ctx context.Context, opts QueryOptions, w io.Writer) error {
	results, err := s.searchForExport(ctx, opts)
	if err != nil {
		return err
	}

	items := make([]CSLItem, len(results))
	for i, r := range results {
		items[i] = toCSLItem(r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// searchForExport runs a Search with the export limit unless the caller
// asked for fewer results.
func (s *Store) searchForExport(ctx context.Context, opts QueryOptions) ([]Result, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = exportLimit
	}
	return s.Search(ctx, opts)
}

// toCSLItem converts a catalog result to a CSLItem.
func toCSLItem(r Result) CSLItem {
	item := CSLItem{
		ID:             r.ID,
		Type:           "article",
		Title:          r.Title,
		ContainerTitle: r.Venue,
		Abstract:       r.Abstract,
		URL:            r.URL,
		Keyword:        strings.Join(r.Keywords, ", "),
	}

	for _, a := range r.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}

	if r.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{r.Year}}}
	}

	// Set DOI if the identifier looks like one.
	if strings.HasPrefix(r.ID, "10.") {
		item.DOI = r.ID
	}

	return item
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
