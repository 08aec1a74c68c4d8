package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/pubdex/internal/gather"
	"github.com/pdiddy/pubdex/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	profileDir := filepath.Join(tmpDir, "profiles")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := types.CatalogConfig{
		IndexDir:   filepath.Join(tmpDir, "index"),
		ProfileDir: profileDir,
		MaxResults: 20,
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, profileDir
}

func writeProfile(t *testing.T, dir string, profile *types.AuthorProfile) string {
	t.Helper()
	path, err := gather.WriteProfile(dir, profile)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleProfile(name string) *types.AuthorProfile {
	slug := strings.ToLower(strings.Fields(name)[0])
	return &types.AuthorProfile{
		Name:         name,
		Org:          "ETH Zurich",
		AggregatorID: "agg-" + slug,
		TotalPapers:  3,
		FetchedAt:    time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Papers: []types.Paper{
			{
				ID:        slug + "-p1",
				Title:     "Efficient Graph Neural Network Training",
				Authors:   []string{name, "K He"},
				Venue:     "NeurIPS",
				Year:      2021,
				Abstract:  "We train graph neural networks faster by sampling neighborhoods.",
				Keywords:  []string{"Graph Learning", "sampling"},
				Citations: 120,
				URL:       "https://example.org/" + slug + "-p1",
				Sources:   []string{"aggregator", "scholar"},
			},
			{
				ID:        slug + "-p2",
				Title:     "Congestion Control for Datacenter Fabrics",
				Authors:   []string{name},
				Venue:     "SIGCOMM",
				Year:      2019,
				Abstract:  "A congestion control scheme tuned for datacenter traffic.",
				Keywords:  []string{"networking"},
				Citations: 80,
				Sources:   []string{"aggregator"},
			},
			{
				ID:      slug + "-p3",
				Title:   "Notes from an Obscure Workshop",
				Authors: []string{name},
				Venue:   "Workshop on Miscellaneous Topics",
				Sources: []string{"scholar"},
			},
		},
	}
}

func ingestHelper(t *testing.T, store *Store, profileDir, name string) {
	t.Helper()
	writeProfile(t, profileDir, sampleProfile(name))
	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
}

// --- schema tests ---

func TestNewStoreCreatesSchema(t *testing.T) {
	store, _ := testSetup(t)

	tables := []string{"authors", "papers", "paper_authors", "keywords", "papers_fts", "ingest_status"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := types.CatalogConfig{
		IndexDir:   filepath.Join(tmpDir, "index"),
		ProfileDir: tmpDir,
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	dbPath := filepath.Join(tmpDir, "index", dbFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}
}

// --- ingest tests ---

func TestIngest(t *testing.T) {
	tests := []struct {
		name        string
		authors     []string
		wantIndexed int
	}{
		{"single profile", []string{"Ada Lovelace"}, 1},
		{"multiple profiles", []string{"Ada Lovelace", "Grace Hopper", "Zoe Chen"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, profileDir := testSetup(t)

			for _, author := range tt.authors {
				writeProfile(t, profileDir, sampleProfile(author))
			}

			var buf strings.Builder
			summary, err := store.Ingest(context.Background(), &buf)
			if err != nil {
				t.Fatalf("Ingest: %v", err)
			}
			if summary.Indexed != tt.wantIndexed {
				t.Errorf("Indexed = %d, want %d", summary.Indexed, tt.wantIndexed)
			}
			if summary.Failed != 0 {
				t.Errorf("Failed = %d, want 0; output: %s", summary.Failed, buf.String())
			}
		})
	}
}

func TestIngestStoresAllFields(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	results, err := store.Search(context.Background(), QueryOptions{Venue: "NeurIPS"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if r.ID != "ada-p1" {
		t.Errorf("ID = %q, want %q", r.ID, "ada-p1")
	}
	if r.Title != "Efficient Graph Neural Network Training" {
		t.Errorf("Title = %q", r.Title)
	}
	if len(r.Authors) != 2 || r.Authors[0] != "Ada Lovelace" {
		t.Errorf("Authors = %v, want [Ada Lovelace K He]", r.Authors)
	}
	if r.Year != 2021 {
		t.Errorf("Year = %d, want 2021", r.Year)
	}
	if r.Abstract == "" {
		t.Error("Abstract is empty")
	}
	if len(r.Keywords) != 2 || r.Keywords[0] != "Graph Learning" {
		t.Errorf("Keywords = %v", r.Keywords)
	}
	if r.Citations != 120 {
		t.Errorf("Citations = %d, want 120", r.Citations)
	}
	if r.URL != "https://example.org/ada-p1" {
		t.Errorf("URL = %q", r.URL)
	}
	if len(r.Sources) != 2 {
		t.Errorf("Sources = %v, want 2 entries", r.Sources)
	}
	if r.Area != "mlmining" {
		t.Errorf("Area = %q, want mlmining (NeurIPS)", r.Area)
	}
}

func TestIngestClassifiesAreas(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	tests := []struct {
		paperID string
		want    string
	}{
		{"ada-p1", "mlmining"},
		{"ada-p2", "comm"},
		{"ada-p3", "unknown"},
	}

	for _, tt := range tests {
		var area string
		err := store.db.QueryRow(`SELECT area FROM papers WHERE id = ?`, tt.paperID).Scan(&area)
		if err != nil {
			t.Fatalf("reading area for %s: %v", tt.paperID, err)
		}
		if area != tt.want {
			t.Errorf("area(%s) = %q, want %q", tt.paperID, area, tt.want)
		}
	}
}

func TestIngestPopulatesAuthorsTable(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	var org, aggregatorID string
	var totalPapers int
	err := store.db.QueryRow(
		`SELECT org, aggregator_id, total_papers FROM authors WHERE name = ?`, "Ada Lovelace",
	).Scan(&org, &aggregatorID, &totalPapers)
	if err != nil {
		t.Fatal(err)
	}
	if org != "ETH Zurich" {
		t.Errorf("org = %q", org)
	}
	if aggregatorID != "agg-ada" {
		t.Errorf("aggregator_id = %q", aggregatorID)
	}
	if totalPapers != 3 {
		t.Errorf("total_papers = %d, want 3", totalPapers)
	}
}

func TestIngestPopulatesLinkTables(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	var links int
	if err := store.db.QueryRow(
		`SELECT count(*) FROM paper_authors WHERE paper_id = ?`, "ada-p1",
	).Scan(&links); err != nil {
		t.Fatal(err)
	}
	if links != 2 {
		t.Errorf("paper_authors rows = %d, want 2", links)
	}

	// Keywords are stored lower-cased for exact filtering.
	var kw string
	if err := store.db.QueryRow(
		`SELECT keyword FROM keywords WHERE paper_id = ? ORDER BY keyword`, "ada-p1",
	).Scan(&kw); err != nil {
		t.Fatal(err)
	}
	if kw != "graph learning" {
		t.Errorf("keyword = %q, want %q", kw, "graph learning")
	}
}

func TestIngestSkipsUnchanged(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	// Second ingest without modifying the file.
	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Skipped)
	}
	if summary.Indexed != 0 {
		t.Errorf("Indexed = %d, want 0", summary.Indexed)
	}
	if !strings.Contains(buf.String(), "skipped") {
		t.Errorf("output should contain 'skipped': %s", buf.String())
	}
}

func TestIngestUpdatesChanged(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	// Rewrite the profile with a changed title and a newer mod time.
	profile := sampleProfile("Ada Lovelace")
	profile.Papers[0].Title = "Scalable Graph Neural Network Training"
	path := writeProfile(t, profileDir, profile)

	future := time.Now().Add(time.Second)
	os.Chtimes(path, future, future)

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 {
		t.Errorf("Updated = %d, want 1", summary.Updated)
	}

	results, err := store.Search(context.Background(), QueryOptions{Query: "scalable"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Title != "Scalable Graph Neural Network Training" {
		t.Errorf("title = %q after update", results[0].Title)
	}
}

func TestIngestSharedPaper(t *testing.T) {
	store, profileDir := testSetup(t)

	// Two co-authors whose profiles both carry the same paper.
	shared := types.Paper{
		ID:      "shared-1",
		Title:   "A Joint Result",
		Authors: []string{"Ada Lovelace", "Grace Hopper"},
		Venue:   "CVPR",
		Year:    2020,
		Sources: []string{"aggregator"},
	}
	for _, name := range []string{"Ada Lovelace", "Grace Hopper"} {
		profile := sampleProfile(name)
		profile.Papers = append(profile.Papers, shared)
		writeProfile(t, profileDir, profile)
	}

	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT count(*) FROM papers WHERE id = ?`, "shared-1").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("shared paper stored %d times, want 1", count)
	}

	// Both authors stay linked after the second upsert.
	var links int
	if err := store.db.QueryRow(`SELECT count(*) FROM paper_authors WHERE paper_id = ?`, "shared-1").Scan(&links); err != nil {
		t.Fatal(err)
	}
	if links != 2 {
		t.Errorf("shared paper has %d author links, want 2", links)
	}
}

func TestIngestReportsBadProfile(t *testing.T) {
	store, profileDir := testSetup(t)

	path := filepath.Join(profileDir, "broken.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if !strings.Contains(buf.String(), "failed") {
		t.Errorf("output should contain 'failed': %s", buf.String())
	}
}

func TestIngestIgnoresOtherFiles(t *testing.T) {
	store, profileDir := testSetup(t)

	if err := os.WriteFile(filepath.Join(profileDir, "notes.txt"), []byte("scratch"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total() != 0 {
		t.Errorf("Total = %d, want 0", summary.Total())
	}
}

func TestIngestSummaryOutput(t *testing.T) {
	store, profileDir := testSetup(t)
	writeProfile(t, profileDir, sampleProfile("Ada Lovelace"))

	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	output := buf.String()

	if !strings.Contains(output, "indexed: 1") {
		t.Errorf("output should contain 'indexed: 1': %s", output)
	}
	if !strings.Contains(output, "skipped: 0") {
		t.Errorf("output should contain 'skipped: 0': %s", output)
	}
	if !strings.Contains(output, "(3 papers)") {
		t.Errorf("output should contain the paper count: %s", output)
	}
}

// --- full-text search tests ---

func TestSearchFullText(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	tests := []struct {
		name      string
		query     string
		wantCount int
		wantFirst string
	}{
		{"title word", "congestion", 1, "ada-p2"},
		{"abstract word", "neighborhoods", 1, "ada-p1"},
		{"keyword word", "sampling", 1, "ada-p1"},
		{"phrase", `"graph neural network"`, 1, "ada-p1"},
		{"no match", "quantum entanglement", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Search(context.Background(), QueryOptions{Query: tt.query})
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != tt.wantCount {
				t.Fatalf("got %d results, want %d", len(results), tt.wantCount)
			}
			if tt.wantFirst != "" && results[0].ID != tt.wantFirst {
				t.Errorf("first result = %q, want %q", results[0].ID, tt.wantFirst)
			}
		})
	}
}

func TestSearchRespectsMaxResults(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	results, err := store.Search(context.Background(), QueryOptions{MaxResults: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) > 2 {
		t.Errorf("got %d results, want <= 2", len(results))
	}
}

// --- structured query tests ---

func TestSearchFilters(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	tests := []struct {
		name    string
		opts    QueryOptions
		wantIDs []string
	}{
		{"author", QueryOptions{Author: "K He"}, []string{"ada-p1"}},
		{"area", QueryOptions{Area: "comm"}, []string{"ada-p2"}},
		{"venue case-insensitive", QueryOptions{Venue: "sigcomm"}, []string{"ada-p2"}},
		{"year from", QueryOptions{YearFrom: 2020}, []string{"ada-p1"}},
		{"year to excludes unknown", QueryOptions{YearTo: 2019}, []string{"ada-p2"}},
		{"year range", QueryOptions{YearFrom: 2019, YearTo: 2021}, []string{"ada-p1", "ada-p2"}},
		{"no match", QueryOptions{Area: "crypt"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Search(context.Background(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != len(tt.wantIDs) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if results[i].ID != want {
					t.Errorf("result %d = %q, want %q", i, results[i].ID, want)
				}
			}
		})
	}
}

func TestSearchCombinedQuery(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	// FTS plus year bound: "training" appears only in p1.
	results, err := store.Search(context.Background(), QueryOptions{
		Query:    "training",
		YearFrom: 2020,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "ada-p1" {
		t.Fatalf("results = %v, want [ada-p1]", resultIDs(results))
	}

	// The same query outside the year window matches nothing.
	results, err = store.Search(context.Background(), QueryOptions{
		Query:  "training",
		YearTo: 2019,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestSearchOrdersByYearDesc(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	results, err := store.Search(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ID != "ada-p1" || results[1].ID != "ada-p2" {
		t.Errorf("order = %v, want newest first", resultIDs(results))
	}
	if results[2].Year != 0 {
		t.Errorf("unknown-year paper should sort last, got %v", resultIDs(results))
	}
}

func resultIDs(results []Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

// --- author listing tests ---

func TestAuthors(t *testing.T) {
	store, profileDir := testSetup(t)
	for _, name := range []string{"Zoe Chen", "Ada Lovelace"} {
		writeProfile(t, profileDir, sampleProfile(name))
	}
	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}

	authors, err := store.Authors(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(authors) != 2 {
		t.Fatalf("got %d authors, want 2", len(authors))
	}
	if authors[0].Name != "Ada Lovelace" || authors[1].Name != "Zoe Chen" {
		t.Errorf("authors not sorted by name: %v, %v", authors[0].Name, authors[1].Name)
	}
	if authors[0].Indexed != 3 {
		t.Errorf("Indexed = %d, want 3", authors[0].Indexed)
	}
	if authors[0].TotalPapers != 3 {
		t.Errorf("TotalPapers = %d, want 3", authors[0].TotalPapers)
	}
	if authors[0].FetchedAt.IsZero() {
		t.Error("FetchedAt not recorded")
	}
}

// --- export tests ---

func TestExportCSV(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	var buf strings.Builder
	if err := store.ExportCSV(context.Background(), QueryOptions{}, &buf); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d CSV records, want header + 3 rows", len(records))
	}
	if records[0][0] != "id" || records[0][1] != "title" {
		t.Errorf("header = %v", records[0])
	}

	// Rows follow search order: newest first.
	row := records[1]
	if row[0] != "ada-p1" {
		t.Errorf("first row id = %q", row[0])
	}
	if row[2] != "Ada Lovelace; K He" {
		t.Errorf("authors column = %q", row[2])
	}
	if row[5] != "2021" {
		t.Errorf("year column = %q", row[5])
	}
}

func TestExportCSVRespectsFilters(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	var buf strings.Builder
	if err := store.ExportCSV(context.Background(), QueryOptions{Area: "comm"}, &buf); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d CSV records, want header + 1 row", len(records))
	}
	if records[1][0] != "ada-p2" {
		t.Errorf("row id = %q, want ada-p2", records[1][0])
	}
}

func TestExportCSLJSON(t *testing.T) {
	store, profileDir := testSetup(t)
	ingestHelper(t, store, profileDir, "Ada Lovelace")

	var buf strings.Builder
	if err := store.ExportCSLJSON(context.Background(), QueryOptions{}, &buf); err != nil {
		t.Fatal(err)
	}

	var items []CSLItem
	if err := json.Unmarshal([]byte(buf.String()), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}

	item := items[0]
	if item.ID != "ada-p1" {
		t.Errorf("ID = %q", item.ID)
	}
	if item.Type != "article" {
		t.Errorf("Type = %q, want article", item.Type)
	}
	if item.ContainerTitle != "NeurIPS" {
		t.Errorf("ContainerTitle = %q", item.ContainerTitle)
	}
	if item.Issued == nil || len(item.Issued.DateParts) != 1 || item.Issued.DateParts[0][0] != 2021 {
		t.Errorf("Issued = %+v, want [[2021]]", item.Issued)
	}
	if len(item.Author) != 2 {
		t.Fatalf("got %d authors, want 2", len(item.Author))
	}
	if item.Author[0].Given != "Ada" || item.Author[0].Family != "Lovelace" {
		t.Errorf("Author[0] = %+v", item.Author[0])
	}
	if item.Keyword != "Graph Learning, sampling" {
		t.Errorf("Keyword = %q", item.Keyword)
	}

	// The unknown-year paper has no issued date.
	for _, it := range items {
		if it.ID == "ada-p3" && it.Issued != nil {
			t.Errorf("ada-p3 Issued = %+v, want nil", it.Issued)
		}
	}
}

func TestExportCSLJSONSetsDOI(t *testing.T) {
	store, profileDir := testSetup(t)

	profile := sampleProfile("Ada Lovelace")
	profile.Papers = []types.Paper{{
		ID:    "10.1145/3297858",
		Title: "A Paper With a DOI",
		Year:  2019,
	}}
	writeProfile(t, profileDir, profile)
	var out strings.Builder
	if _, err := store.Ingest(context.Background(), &out); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	if err := store.ExportCSLJSON(context.Background(), QueryOptions{}, &buf); err != nil {
		t.Fatal(err)
	}
	var items []CSLItem
	if err := json.Unmarshal([]byte(buf.String()), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].DOI != "10.1145/3297858" {
		t.Errorf("DOI = %q", items[0].DOI)
	}
}

func TestParseAuthorName(t *testing.T) {
	tests := []struct {
		in   string
		want CSLName
	}{
		{"Ada Lovelace", CSLName{Given: "Ada", Family: "Lovelace"}},
		{"Jan van der Berg", CSLName{Given: "Jan van der", Family: "Berg"}},
		{"Plato", CSLName{Literal: "Plato"}},
		{"  ", CSLName{}},
	}

	for _, tt := range tests {
		if got := parseAuthorName(tt.in); got != tt.want {
			t.Errorf("parseAuthorName(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

// --- formatting tests ---

func TestFormatTable(t *testing.T) {
	results := []Result{
		{
			Paper: types.Paper{
				ID: "p1", Title: "A Very Long Title That Goes On And On About Graphs And Networks Forever",
				Authors: []string{"Ada Lovelace", "K He"}, Venue: "NeurIPS", Year: 2021, Citations: 120,
			},
			Area: "mlmining",
		},
		{
			Paper: types.Paper{ID: "p2", Title: "Short", Authors: []string{"Solo"}},
			Area:  "unknown",
		},
	}

	var buf strings.Builder
	FormatTable(results, &buf)
	out := buf.String()

	if !strings.Contains(out, "Rank") || !strings.Contains(out, "Area") {
		t.Errorf("missing header: %s", out)
	}
	if !strings.Contains(out, "Ada Lovelace et al.") {
		t.Errorf("missing truncated author list: %s", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("long title not truncated: %s", out)
	}
	if !strings.Contains(out, "2 results") {
		t.Errorf("missing result count: %s", out)
	}
}

func TestFormatTableEmpty(t *testing.T) {
	var buf strings.Builder
	FormatTable(nil, &buf)
	if !strings.Contains(buf.String(), "No results") {
		t.Errorf("empty table output = %q", buf.String())
	}
}

func TestFormatJSON(t *testing.T) {
	results := []Result{{
		Paper: types.Paper{ID: "p1", Title: "T", Year: 2021},
		Area:  "mlmining",
	}}

	var buf strings.Builder
	if err := FormatJSON(results, &buf); err != nil {
		t.Fatal(err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal([]byte(buf.String()), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 {
		t.Fatalf("got %d entries", len(decoded))
	}
	if decoded[0]["id"] != "p1" || decoded[0]["area"] != "mlmining" {
		t.Errorf("decoded = %v", decoded[0])
	}
}
