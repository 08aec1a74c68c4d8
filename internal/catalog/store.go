// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog persists gathered author profiles in a searchable SQLite
// index. Papers are classified into research areas by venue at ingest time,
// so queries can filter on area without consulting the roster datasets.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pubdex/internal/dblp"
	"github.com/pdiddy/pubdex/internal/gather"
	"github.com/pdiddy/pubdex/pkg/types"
)

const dbFile = "catalog.db"

// Store manages the paper catalog SQLite database.
type Store struct {
	db         *sql.DB
	profileDir string
	maxResults int
}

// NewStore opens or creates the catalog database at IndexDir/catalog.db,
// creating the schema if it does not exist.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		profileDir: cfg.ProfileDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS authors (
			name TEXT PRIMARY KEY,
			org TEXT,
			aggregator_id TEXT,
			total_papers INTEGER,
			fetched_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			title TEXT,
			authors TEXT,
			venue TEXT,
			area TEXT,
			year INTEGER,
			abstract TEXT,
			keywords TEXT,
			citations INTEGER,
			url TEXT,
			sources TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_area ON papers(area)`,
		`CREATE TABLE IF NOT EXISTS paper_authors (
			paper_id TEXT NOT NULL REFERENCES papers(id),
			author TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (paper_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_authors_author ON paper_authors(author)`,
		`CREATE TABLE IF NOT EXISTS keywords (
			paper_id TEXT NOT NULL REFERENCES papers(id),
			keyword TEXT NOT NULL,
			PRIMARY KEY (paper_id, keyword)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_keywords_keyword ON keywords(keyword)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			profile TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, keywords, content=papers, content_rowid=rowid)`,
			`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
				INSERT INTO papers_fts(rowid, title, abstract, keywords)
				VALUES (new.rowid, new.title, new.abstract, new.keywords);
			END`,
			`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract, keywords)
				VALUES('delete', old.rowid, old.title, old.abstract, old.keywords);
			END`,
			`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract, keywords)
				VALUES('delete', old.rowid, old.title, old.abstract, old.keywords);
				INSERT INTO papers_fts(rowid, title, abstract, keywords)
				VALUES (new.rowid, new.title, new.abstract, new.keywords);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from a catalog ingest run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of profile files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads profile YAML files from the profile directory and populates
// the database. Files whose modification time is unchanged since the last
// ingest are skipped; changed files are re-indexed. Papers shared between
// profiles (co-authored work) upsert into a single row.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(s.profileDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading profile directory %s: %w", s.profileDir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		filePath := filepath.Join(s.profileDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		// Check whether the profile has changed since the last ingest.
		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM ingest_status WHERE profile = ?`, name,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		profile, err := gather.ReadProfile(filePath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if err := s.ingestProfile(ctx, name, profile, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d papers)\n", name, len(profile.Papers))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d papers)\n", name, len(profile.Papers))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) ingestProfile(ctx context.Context, name string, profile *types.AuthorProfile, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	fetchedAt := ""
	if !profile.FetchedAt.IsZero() {
		fetchedAt = profile.FetchedAt.UTC().Format(time.RFC3339)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO authors (name, org, aggregator_id, total_papers, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			org=excluded.org, aggregator_id=excluded.aggregator_id,
			total_papers=excluded.total_papers, fetched_at=excluded.fetched_at`,
		profile.Name, profile.Org, profile.AggregatorID, profile.TotalPapers, fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting author: %w", err)
	}

	paperStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (id, title, authors, venue, area, year, abstract, keywords, citations, url, sources)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, venue=excluded.venue,
			area=excluded.area, year=excluded.year, abstract=excluded.abstract,
			keywords=excluded.keywords, citations=excluded.citations,
			url=excluded.url, sources=excluded.sources`)
	if err != nil {
		return fmt.Errorf("preparing paper upsert: %w", err)
	}
	defer paperStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO paper_authors (paper_id, author, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing author link insert: %w", err)
	}
	defer linkStmt.Close()

	kwStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO keywords (paper_id, keyword) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing keyword insert: %w", err)
	}
	defer kwStmt.Close()

	for _, p := range profile.Papers {
		if p.ID == "" {
			continue
		}

		authorsJSON, _ := json.Marshal(p.Authors)
		keywordsJSON, _ := json.Marshal(p.Keywords)
		sourcesJSON, _ := json.Marshal(p.Sources)
		area := dblp.AreaForVenue(p.Venue)

		_, err := paperStmt.ExecContext(ctx,
			p.ID, p.Title, string(authorsJSON), p.Venue, area, p.Year,
			p.Abstract, string(keywordsJSON), p.Citations, p.URL, string(sourcesJSON),
		)
		if err != nil {
			return fmt.Errorf("upserting paper %s: %w", p.ID, err)
		}

		// Re-link authors and keywords from scratch for this paper.
		if _, err := tx.ExecContext(ctx, `DELETE FROM paper_authors WHERE paper_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clearing author links for %s: %w", p.ID, err)
		}
		for i, author := range p.Authors {
			if author == "" {
				continue
			}
			if _, err := linkStmt.ExecContext(ctx, p.ID, author, i); err != nil {
				return fmt.Errorf("linking author %q to %s: %w", author, p.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM keywords WHERE paper_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clearing keywords for %s: %w", p.ID, err)
		}
		for _, kw := range p.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, err := kwStmt.ExecContext(ctx, p.ID, kw); err != nil {
				return fmt.Errorf("inserting keyword %q for %s: %w", kw, p.ID, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingest_status (profile, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(profile) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		name, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating ingest status: %w", err)
	}

	return tx.Commit()
}

// AuthorEntry is one row of the catalog's author listing.
type AuthorEntry struct {
	Name         string    `json:"name" yaml:"name"`
	Org          string    `json:"org,omitempty" yaml:"org,omitempty"`
	AggregatorID string    `json:"aggregator_id,omitempty" yaml:"aggregator_id,omitempty"`
	TotalPapers  int       `json:"total_papers" yaml:"total_papers"`
	Indexed      int       `json:"indexed" yaml:"indexed"`
	FetchedAt    time.Time `json:"fetched_at,omitempty" yaml:"fetched_at,omitempty"`
}

// Authors lists the ingested authors sorted by name. Indexed counts the
// papers in the catalog that list the author, which can differ from the
// aggregator's TotalPapers when fetching was truncated.
func (s *Store) Authors(ctx context.Context) ([]AuthorEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.name, a.org, a.aggregator_id, a.total_papers, a.fetched_at,
			(SELECT count(*) FROM paper_authors pa WHERE pa.author = a.name)
		 FROM authors a ORDER BY a.name`)
	if err != nil {
		return nil, fmt.Errorf("listing authors: %w", err)
	}
	defer rows.Close()

	var authors []AuthorEntry
	for rows.Next() {
		var a AuthorEntry
		var fetchedAt string
		if err := rows.Scan(&a.Name, &a.Org, &a.AggregatorID, &a.TotalPapers, &fetchedAt, &a.Indexed); err != nil {
			return nil, fmt.Errorf("scanning author: %w", err)
		}
		if fetchedAt != "" {
			a.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}
