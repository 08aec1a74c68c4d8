// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubdex/internal/catalog"
	"github.com/pdiddy/pubdex/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the paper catalog (ingest, query, authors, export)",
	Long: `Catalog manages a local SQLite index built from gathered author profiles.
Use subcommands to ingest profiles, query papers, list indexed authors,
or export papers for reference managers.`,
}

// --- ingest subcommand ---

var catalogIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index gathered profiles into the catalog",
	Long: `Ingest reads profile YAML files from the profile directory, indexes their
papers into a SQLite database with FTS5 search, and classifies each paper
into a research area by venue. Unchanged profiles are skipped on
subsequent runs.`,
	RunE: runCatalogIngest,
}

func runCatalogIngest(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d profile(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- query subcommand ---

var catalogQueryCmd = &cobra.Command{
	Use:   "query [terms...]",
	Short: "Search the catalog with full-text search and filters",
	Long: `Query searches indexed papers with FTS5 full-text search over titles,
abstracts, and keywords, structured filters (author, area, venue, year
range), or a combination of both. Results are ranked by relevance for
text queries and by year and citations otherwise.`,
	RunE: runCatalogQuery,
}

func runCatalogQuery(cmd *cobra.Command, args []string) error {
	opts := catalogOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide search terms, --author, --area, --venue, --from, or --to")
	}

	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Search(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return catalog.FormatJSON(results, os.Stdout)
	}
	catalog.FormatTable(results, os.Stdout)
	return nil
}

// --- authors subcommand ---

var catalogAuthorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "List indexed authors with paper counts",
	RunE:  runCatalogAuthors,
}

func runCatalogAuthors(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Authors(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No authors indexed.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-28s  %-24s  %8s  %8s  %s\n",
		"Name", "Org", "Reported", "Indexed", "Fetched")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 84))
	for _, e := range entries {
		name := e.Name
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		org := e.Org
		if len(org) > 24 {
			org = org[:21] + "..."
		}
		fetched := ""
		if !e.FetchedAt.IsZero() {
			fetched = e.FetchedAt.Format("2006-01-02")
		}
		fmt.Fprintf(os.Stdout, "%-28s  %-24s  %8d  %8d  %s\n",
			name, org, e.TotalPapers, e.Indexed, fetched)
	}
	fmt.Fprintf(os.Stdout, "\n%d authors\n", len(entries))
	return nil
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export catalog papers to CSV or CSL-JSON",
	Long: `Export writes the selected papers (all papers by default, or a subset
selected with the query flags) as CSV or as CSL-JSON for reference
managers. Output goes to stdout unless --output names a file.`,
	RunE: runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")

	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := catalogOptsFromFlags(cmd, args)

	var out io.Writer = os.Stdout
	var f *os.File
	if outPath != "" {
		f, err = os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		out = f
	}

	switch format {
	case "csv", "":
		err = store.ExportCSV(context.Background(), opts, out)
	case "csl", "csl-json":
		err = store.ExportCSLJSON(context.Background(), opts, out)
	default:
		err = fmt.Errorf("unsupported format %q: use csv or csl-json", format)
	}
	if f != nil {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return err
	}

	if outPath != "" {
		fmt.Printf("Exported to %s\n", outPath)
	}
	return nil
}

// --- shared helpers ---

func openCatalog(cmd *cobra.Command) (*catalog.Store, error) {
	indexDir, _ := cmd.Flags().GetString("index-dir")
	profileDir, _ := cmd.Flags().GetString("profile-dir")
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return catalog.NewStore(types.CatalogConfig{
		IndexDir:   indexDir,
		ProfileDir: profileDir,
		MaxResults: maxResults,
	})
}

func catalogOptsFromFlags(cmd *cobra.Command, args []string) catalog.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	author, _ := cmd.Flags().GetString("author")
	area, _ := cmd.Flags().GetString("area")
	venue, _ := cmd.Flags().GetString("venue")
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	limit, _ := cmd.Flags().GetInt("limit")

	return catalog.QueryOptions{
		Query:      queryText,
		Author:     author,
		Area:       area,
		Venue:      venue,
		YearFrom:   from,
		YearTo:     to,
		MaxResults: limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	catalogCmd.PersistentFlags().String("index-dir", "index", "directory holding the SQLite database")
	catalogCmd.PersistentFlags().String("profile-dir", "profiles", "directory of gathered profile YAML files")
	catalogCmd.PersistentFlags().Int("max-results", 20, "default maximum number of query results")

	// Query flags.
	catalogQueryCmd.Flags().String("query", "", "full-text search query")
	catalogQueryCmd.Flags().String("author", "", "filter by author name (exact)")
	catalogQueryCmd.Flags().String("area", "", "filter by research area")
	catalogQueryCmd.Flags().String("venue", "", "filter by venue (case-insensitive)")
	catalogQueryCmd.Flags().Int("from", 0, "filter by publication year lower bound")
	catalogQueryCmd.Flags().Int("to", 0, "filter by publication year upper bound")
	catalogQueryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	catalogQueryCmd.Flags().Bool("json", false, "output results as JSON")

	// Authors flags.
	catalogAuthorsCmd.Flags().Bool("json", false, "output the author list as JSON")

	// Export flags.
	catalogExportCmd.Flags().String("format", "csv", "export format: csv or csl-json")
	catalogExportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	catalogExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	catalogExportCmd.Flags().String("author", "", "filter by author name for partial export")
	catalogExportCmd.Flags().String("area", "", "filter by research area for partial export")
	catalogExportCmd.Flags().String("venue", "", "filter by venue for partial export")
	catalogExportCmd.Flags().Int("from", 0, "filter by publication year lower bound")
	catalogExportCmd.Flags().Int("to", 0, "filter by publication year upper bound")
	catalogExportCmd.Flags().Int("limit", 0, "maximum papers to export (0 = all)")

	// Wire subcommands.
	catalogCmd.AddCommand(catalogIngestCmd)
	catalogCmd.AddCommand(catalogQueryCmd)
	catalogCmd.AddCommand(catalogAuthorsCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	rootCmd.AddCommand(catalogCmd)
}
