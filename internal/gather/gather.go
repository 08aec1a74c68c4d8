// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gather fetches publication metadata for authors from remote
// providers and merges the per-provider results into author profiles.
package gather

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/pdiddy/pubdex/pkg/types"
)

// Provider fetches the publication record one source holds for an author.
type Provider interface {
	Name() string
	FetchAuthor(ctx context.Context, name string, cfg types.GatherConfig) (*types.AuthorProfile, error)
}

// Output holds the merged profile and merge statistics.
type Output struct {
	Profile        *types.AuthorProfile
	DupsRemoved    int
	ProviderErrors []string
}

// Gather queries all providers for the author concurrently and merges their
// profiles into one. Provider failures are reported as warnings on w and do
// not abort the gather unless every provider fails. Papers are deduplicated
// across providers; earlier providers win conflicting fields, so callers
// should list the richest source first.
func Gather(ctx context.Context, name string, providers []Provider, cfg types.GatherConfig, w io.Writer) (Output, error) {
	if strings.TrimSpace(name) == "" {
		return Output{}, fmt.Errorf("author name is empty")
	}
	if len(providers) == 0 {
		return Output{}, fmt.Errorf("no providers configured")
	}

	type providerResult struct {
		idx     int
		profile *types.AuthorProfile
		err     error
		name    string
	}

	ch := make(chan providerResult, len(providers))
	var wg sync.WaitGroup

	for i, p := range providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			profile, err := p.FetchAuthor(ctx, name, cfg)
			ch <- providerResult{idx: i, profile: profile, err: err, name: p.Name()}
		}(i, p)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	// Collect back into provider order so merging is deterministic.
	ordered := make([]*types.AuthorProfile, len(providers))
	var providerErrors []string
	for pr := range ch {
		if pr.err != nil {
			providerErrors = append(providerErrors, fmt.Sprintf("%s: %v", pr.name, pr.err))
			fmt.Fprintf(w, "warning: provider %s failed: %v\n", pr.name, pr.err)
			continue
		}
		ordered[pr.idx] = pr.profile
	}

	merged := &types.AuthorProfile{
		Name:      name,
		Org:       cfg.Org,
		FetchedAt: time.Now().UTC(),
	}
	var all []types.Paper
	got := 0
	for _, profile := range ordered {
		if profile == nil {
			continue
		}
		got++
		if merged.AggregatorID == "" {
			merged.AggregatorID = profile.AggregatorID
		}
		if merged.TotalPapers == 0 {
			merged.TotalPapers = profile.TotalPapers
		}
		all = append(all, profile.Papers...)
	}
	if got == 0 {
		return Output{ProviderErrors: providerErrors},
			fmt.Errorf("all providers failed for %q", name)
	}

	papers, removed := mergePapers(all)
	sortPapers(papers)
	merged.Papers = papers
	if merged.TotalPapers == 0 {
		merged.TotalPapers = len(papers)
	}

	return Output{
		Profile:        merged,
		DupsRemoved:    removed,
		ProviderErrors: providerErrors,
	}, nil
}

// mergePapers collapses papers that share an id or a normalized title.
func mergePapers(papers []types.Paper) ([]types.Paper, int) {
	seen := make(map[string]int) // dedup key → index in merged
	var merged []types.Paper
	removed := 0

	for _, p := range papers {
		idKey := ""
		if p.ID != "" {
			idKey = "id:" + p.ID
		}
		if idKey != "" {
			if idx, ok := seen[idKey]; ok {
				mergeInto(&merged[idx], p)
				removed++
				continue
			}
		}

		titleKey := "title:" + normalizeTitle(p.Title)
		if titleKey != "title:" {
			if idx, ok := seen[titleKey]; ok {
				mergeInto(&merged[idx], p)
				removed++
				continue
			}
		}

		idx := len(merged)
		merged = append(merged, p)
		if idKey != "" {
			seen[idKey] = idx
		}
		if titleKey != "title:" {
			seen[titleKey] = idx
		}
	}
	return merged, removed
}

// mergeInto fills empty fields of dst from src and unions the sources. The
// first-seen paper keeps its id, so provider order decides which id wins.
func mergeInto(dst *types.Paper, src types.Paper) {
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 && len(src.Authors) > 0 {
		dst.Authors = src.Authors
	}
	if dst.Venue == "" && src.Venue != "" {
		dst.Venue = src.Venue
	}
	if dst.Year == 0 && src.Year != 0 {
		dst.Year = src.Year
	}
	if dst.Abstract == "" && src.Abstract != "" {
		dst.Abstract = src.Abstract
	}
	if len(dst.Keywords) == 0 && len(src.Keywords) > 0 {
		dst.Keywords = src.Keywords
	}
	if dst.URL == "" && src.URL != "" {
		dst.URL = src.URL
	}
	// Citation counts drift between providers; keep the higher one.
	if src.Citations > dst.Citations {
		dst.Citations = src.Citations
	}
	for _, s := range src.Sources {
		if !containsString(dst.Sources, s) {
			dst.Sources = append(dst.Sources, s)
		}
	}
}

// sortPapers orders papers newest first, unknown years last, titles breaking
// ties.
func sortPapers(papers []types.Paper) {
	sort.Slice(papers, func(i, j int) bool {
		yi, yj := papers[i].Year, papers[j].Year
		if yi != yj {
			if yi == 0 {
				return false
			}
			if yj == 0 {
				return true
			}
			return yi > yj
		}
		return papers[i].Title < papers[j].Title
	})
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the
// title with whitespace collapsed.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// titleSlug derives a stable paper id from the title for providers that do
// not assign ids of their own.
func titleSlug(title string) string {
	return strings.ReplaceAll(normalizeTitle(title), " ", "-")
}

func containsString(list []string, s string) bool {
	for _, it := range list {
		if it == s {
			return true
		}
	}
	return false
}
