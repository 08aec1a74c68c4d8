// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/pubdex/pkg/types"
)

// QueryOptions selects papers from the catalog. A non-empty Query runs a
// full-text match over title, abstract, and keywords; the remaining fields
// narrow the result set. All set fields combine with AND.
type QueryOptions struct {
	// Query is an FTS5 match expression (a bare word, a phrase in quotes,
	// or operators like AND/OR/NOT).
	Query string

	// Author keeps only papers listing this exact author name.
	Author string

	// Area keeps only papers classified into this research area.
	Area string

	// Venue keeps only papers from this venue (case-insensitive).
	Venue string

	// YearFrom and YearTo bound the publication year inclusively; zero
	// leaves the bound open. Papers with an unknown year never match a
	// year bound.
	YearFrom int
	YearTo   int

	// MaxResults caps the result count; zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether no selection criteria are set.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Author == "" && q.Area == "" && q.Venue == "" &&
		q.YearFrom == 0 && q.YearTo == 0
}

// Result is one catalog paper with its research-area classification.
type Result struct {
	types.Paper `yaml:",inline"`

	// Area is the research area the venue classified into at ingest.
	Area string `json:"area,omitempty" yaml:"area,omitempty"`
}

// Search runs a catalog query. Full-text queries order by FTS rank;
// structured queries order by year descending, then citations, then title.
// An empty QueryOptions lists the most recent papers up to the limit.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]Result, error) {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = s.maxResults
	}

	var sb strings.Builder
	var args []interface{}

	const columns = `p.id, p.title, p.authors, p.venue, p.area, p.year, p.abstract, p.keywords, p.citations, p.url, p.sources`

	fts := strings.TrimSpace(opts.Query) != ""
	if fts {
		sb.WriteString(`SELECT ` + columns + `
			FROM papers_fts
			JOIN papers p ON p.rowid = papers_fts.rowid
			WHERE papers_fts MATCH ?`)
		args = append(args, strings.TrimSpace(opts.Query))
	} else {
		sb.WriteString(`SELECT ` + columns + ` FROM papers p WHERE 1=1`)
	}

	if opts.Author != "" {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM paper_authors pa WHERE pa.paper_id = p.id AND pa.author = ?)`)
		args = append(args, opts.Author)
	}
	if opts.Area != "" {
		sb.WriteString(` AND p.area = ?`)
		args = append(args, strings.ToLower(strings.TrimSpace(opts.Area)))
	}
	if opts.Venue != "" {
		sb.WriteString(` AND p.venue = ? COLLATE NOCASE`)
		args = append(args, opts.Venue)
	}
	if opts.YearFrom > 0 {
		sb.WriteString(` AND p.year >= ?`)
		args = append(args, opts.YearFrom)
	}
	if opts.YearTo > 0 {
		sb.WriteString(` AND p.year > 0 AND p.year <= ?`)
		args = append(args, opts.YearTo)
	}

	if fts {
		sb.WriteString(` ORDER BY papers_fts.rank`)
	} else {
		sb.WriteString(` ORDER BY p.year DESC, p.citations DESC, p.title`)
	}
	sb.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var authorsJSON, keywordsJSON, sourcesJSON string
		err := rows.Scan(&r.ID, &r.Title, &authorsJSON, &r.Venue, &r.Area, &r.Year,
			&r.Abstract, &keywordsJSON, &r.Citations, &r.URL, &sourcesJSON)
		if err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		json.Unmarshal([]byte(authorsJSON), &r.Authors)
		json.Unmarshal([]byte(keywordsJSON), &r.Keywords)
		json.Unmarshal([]byte(sourcesJSON), &r.Sources)
		results = append(results, r)
	}
	return results, rows.Err()
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(results []Result, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-18s  %-4s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Venue", "Year", "Cites", "Area")
	fmt.Fprintln(w, strings.Repeat("-", 126))

	for i, r := range results {
		title := truncate(r.Title, 60)
		year := ""
		if r.Year > 0 {
			year = fmt.Sprintf("%d", r.Year)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-18s  %-4s  %-6d  %s\n",
			i+1, title, formatAuthors(r.Authors), truncate(r.Venue, 18), year, r.Citations, r.Area)
	}

	fmt.Fprintf(w, "\n%d results\n", len(results))
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(results []Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
