// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze summarizes a gathered paper corpus: year, venue, and
// keyword tallies, plus optional LLM-assisted keyword extraction, keyword
// merging, and theme synthesis. Analysis runs fully without an AI backend;
// the LLM steps switch on when one is configured.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/pubdex/internal/cachefile"
	"github.com/pdiddy/pubdex/pkg/types"
)

const (
	defaultYearFrom     = 2015
	defaultYearTo       = 2025
	defaultMaxAbstracts = 50
	defaultMaxRetries   = 3

	keywordsCacheFile = "keywords_cache.json"
	mergedCacheFile   = "merged_keywords_cache.json"
	themesCacheFile   = "themes_cache.json"
)

// Analyzer runs corpus analysis with optional LLM assistance.
type Analyzer struct {
	backend AIBackend

	keywordsCache *cachefile.Map
	mergedCache   *cachefile.Map
	themesCache   *cachefile.Map

	yearFrom     int
	yearTo       int
	maxAbstracts int
	maxRetries   int
}

// New builds an Analyzer from the configuration. A nil backend disables the
// LLM steps; filtering and tallies still run.
func New(cfg types.AnalyzeConfig, backend AIBackend) (*Analyzer, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	a := &Analyzer{
		backend:       backend,
		keywordsCache: cachefile.Open(filepath.Join(cfg.CacheDir, keywordsCacheFile)),
		mergedCache:   cachefile.Open(filepath.Join(cfg.CacheDir, mergedCacheFile)),
		themesCache:   cachefile.Open(filepath.Join(cfg.CacheDir, themesCacheFile)),
		yearFrom:      cfg.YearFrom,
		yearTo:        cfg.YearTo,
		maxAbstracts:  cfg.MaxAbstracts,
		maxRetries:    cfg.MaxRetries,
	}
	if a.yearFrom <= 0 {
		a.yearFrom = defaultYearFrom
	}
	if a.yearTo <= 0 {
		a.yearTo = defaultYearTo
	}
	if a.maxAbstracts <= 0 {
		a.maxAbstracts = defaultMaxAbstracts
	}
	if a.maxRetries <= 0 {
		a.maxRetries = defaultMaxRetries
	}
	return a, nil
}

// Tally is a counted label. Tally slices sort by count descending, ties by
// label, so output is deterministic.
type Tally struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// YearCount is one bar of the publication-year histogram.
type YearCount struct {
	Year  int `json:"year" yaml:"year"`
	Count int `json:"count" yaml:"count"`
}

// Analysis is the result of one analysis run.
type Analysis struct {
	// Authors lists the profile names that contributed papers.
	Authors []string `json:"authors" yaml:"authors"`

	// PaperCount is the size of the filtered corpus.
	PaperCount int `json:"paper_count" yaml:"paper_count"`

	// YearFrom and YearTo are the inclusive window the corpus was filtered to.
	YearFrom int `json:"year_from" yaml:"year_from"`
	YearTo   int `json:"year_to" yaml:"year_to"`

	// Years is the publication-year histogram, ascending.
	Years []YearCount `json:"years" yaml:"years"`

	// Keywords tallies paper keywords, LLM-extracted ones included.
	Keywords []Tally `json:"keywords" yaml:"keywords"`

	// MergedKeywords is the LLM-merged keyword list; nil without a backend.
	MergedKeywords []Tally `json:"merged_keywords,omitempty" yaml:"merged_keywords,omitempty"`

	// Themes is the LLM theme synthesis; nil without a backend.
	Themes []Tally `json:"themes,omitempty" yaml:"themes,omitempty"`

	// Venues tallies publication venues.
	Venues []Tally `json:"venues" yaml:"venues"`

	// Papers is the filtered corpus itself, for export.
	Papers []types.Paper `json:"papers" yaml:"papers"`
}

// Run analyzes the papers of the given profiles. Papers shared between
// profiles count once. Progress lines go to w.
func (a *Analyzer) Run(ctx context.Context, profiles []*types.AuthorProfile, w io.Writer) (*Analysis, error) {
	if len(profiles) == 0 {
		return nil, errors.New("no profiles to analyze")
	}

	papers := collectPapers(profiles)
	filtered := Filter(papers, a.yearFrom, a.yearTo)
	fmt.Fprintf(w, "analyzing %d of %d papers (%d-%d, abstracts required)\n",
		len(filtered), len(papers), a.yearFrom, a.yearTo)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no papers with abstracts between %d and %d", a.yearFrom, a.yearTo)
	}

	keywords, err := a.keywordTallies(ctx, filtered, w)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Authors:    profileNames(profiles),
		PaperCount: len(filtered),
		YearFrom:   a.yearFrom,
		YearTo:     a.yearTo,
		Years:      YearHistogram(filtered),
		Keywords:   keywords,
		Venues:     VenueTallies(filtered),
		Papers:     filtered,
	}

	if a.backend != nil {
		if len(keywords) > 0 {
			merged, err := a.mergeKeywords(ctx, filtered, keywords, w)
			if err != nil {
				return nil, err
			}
			analysis.MergedKeywords = merged
		}

		themes, err := a.themes(ctx, filtered, w)
		if err != nil {
			return nil, err
		}
		analysis.Themes = themes
	}

	return analysis, nil
}

// Filter keeps papers whose publication year falls inside [yearFrom, yearTo]
// and that carry an abstract. Papers with an unknown year are dropped.
func Filter(papers []types.Paper, yearFrom, yearTo int) []types.Paper {
	var kept []types.Paper
	for _, p := range papers {
		if !p.HasAbstract() {
			continue
		}
		if p.Year < yearFrom || p.Year > yearTo {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// collectPapers flattens profile papers, counting co-authored papers once.
func collectPapers(profiles []*types.AuthorProfile) []types.Paper {
	seen := make(map[string]bool)
	var papers []types.Paper
	for _, profile := range profiles {
		for _, p := range profile.Papers {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			papers = append(papers, p)
		}
	}
	return papers
}

func profileNames(profiles []*types.AuthorProfile) []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

// YearHistogram counts papers per publication year, ascending.
func YearHistogram(papers []types.Paper) []YearCount {
	counts := make(map[int]int)
	for _, p := range papers {
		if p.Year > 0 {
			counts[p.Year]++
		}
	}
	years := make([]YearCount, 0, len(counts))
	for year, count := range counts {
		years = append(years, YearCount{Year: year, Count: count})
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })
	return years
}

// VenueTallies counts papers per venue, skipping papers without one.
func VenueTallies(papers []types.Paper) []Tally {
	counts := make(map[string]int)
	for _, p := range papers {
		if v := strings.TrimSpace(p.Venue); v != "" {
			counts[v]++
		}
	}
	return sortTallies(counts)
}

// KeywordTallies counts normalized paper keywords without LLM assistance.
func KeywordTallies(papers []types.Paper) []Tally {
	counts := make(map[string]int)
	for _, p := range papers {
		tallyKeywords(counts, p.Keywords)
	}
	return sortTallies(counts)
}

func tallyKeywords(counts map[string]int, keywords []string) {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			counts[kw]++
		}
	}
}

func sortTallies(counts map[string]int) []Tally {
	tallies := make([]Tally, 0, len(counts))
	for label, count := range counts {
		tallies = append(tallies, Tally{Label: label, Count: count})
	}
	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].Count != tallies[j].Count {
			return tallies[i].Count > tallies[j].Count
		}
		return tallies[i].Label < tallies[j].Label
	})
	return tallies
}

// corpusKey derives the cache key for a paper set: the sorted ids joined
// with underscores, matching the layout of existing cache files.
func corpusKey(papers []types.Paper) string {
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// keywordTallies tallies paper keywords, asking the backend for papers that
// lack them. LLM-backed runs cache the tally under the corpus key.
func (a *Analyzer) keywordTallies(ctx context.Context, papers []types.Paper, w io.Writer) ([]Tally, error) {
	key := corpusKey(papers)

	var cached map[string]int
	if ok, err := a.keywordsCache.Get(key, &cached); err != nil {
		return nil, err
	} else if ok {
		fmt.Fprintln(w, "keywords loaded from cache")
		return sortTallies(cached), nil
	}

	counts := make(map[string]int)
	for _, p := range papers {
		if len(p.Keywords) > 0 {
			tallyKeywords(counts, p.Keywords)
			continue
		}
		if a.backend == nil {
			fmt.Fprintf(w, "no keywords for %s (no AI backend)\n", p.ID)
			continue
		}

		fmt.Fprintf(w, "extracting keywords for %s\n", p.ID)
		extracted, err := a.extractKeywords(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("extracting keywords for %s: %w", p.ID, err)
		}
		tallyKeywords(counts, extracted)
	}

	// Only LLM-assisted tallies are worth caching; plain tallies are cheap
	// and caching them would mask a later backend run.
	if a.backend != nil {
		if err := a.keywordsCache.Put(key, counts); err != nil {
			fmt.Fprintf(w, "warning: keyword cache write failed: %v\n", err)
		}
	}
	return sortTallies(counts), nil
}

// mergeKeywords asks the backend to merge near-duplicate keywords, summing
// their counts.
func (a *Analyzer) mergeKeywords(ctx context.Context, papers []types.Paper, keywords []Tally, w io.Writer) ([]Tally, error) {
	key := corpusKey(papers)

	var cached map[string]int
	if ok, err := a.mergedCache.Get(key, &cached); err != nil {
		return nil, err
	} else if ok {
		fmt.Fprintln(w, "merged keywords loaded from cache")
		return sortTallies(cached), nil
	}

	fmt.Fprintln(w, "merging similar keywords")
	merged, err := a.requestMerge(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("merging keywords: %w", err)
	}

	if err := a.mergedCache.Put(key, merged); err != nil {
		fmt.Fprintf(w, "warning: merged-keyword cache write failed: %v\n", err)
	}
	return sortTallies(merged), nil
}

// themes synthesizes research themes from the corpus abstracts, capped at
// maxAbstracts.
func (a *Analyzer) themes(ctx context.Context, papers []types.Paper, w io.Writer) ([]Tally, error) {
	key := corpusKey(papers)

	var cached map[string]int
	if ok, err := a.themesCache.Get(key, &cached); err != nil {
		return nil, err
	} else if ok {
		fmt.Fprintln(w, "themes loaded from cache")
		return sortTallies(cached), nil
	}

	limit := len(papers)
	if limit > a.maxAbstracts {
		limit = a.maxAbstracts
	}
	fmt.Fprintf(w, "synthesizing themes from %d abstracts\n", limit)

	themes, err := a.requestThemes(ctx, papers[:limit])
	if err != nil {
		return nil, fmt.Errorf("synthesizing themes: %w", err)
	}

	if err := a.themesCache.Put(key, themes); err != nil {
		fmt.Fprintf(w, "warning: theme cache write failed: %v\n", err)
	}
	return sortTallies(themes), nil
}
