// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	serpapi "github.com/serpapi/google-search-results-golang"

	"github.com/pdiddy/pubdex/pkg/types"
)

const scholarPageSize = 20

// yearRe pulls a publication year out of a scholar publication summary.
var yearRe = regexp.MustCompile(`\b(20\d{2}|19\d{2})\b`)

// scholarSearch runs one SerpAPI query. Declared as a var so tests can
// substitute fixture responses without hitting the network.
var scholarSearch = func(params map[string]string, apiKey string) (map[string]interface{}, error) {
	search := serpapi.NewGoogleSearch(params, apiKey)
	return search.GetJSON()
}

// Scholar queries the scholar-search API through SerpAPI's google_scholar
// engine. Results carry partial abstracts (snippets) only.
type Scholar struct {
	APIKey string
}

// Name returns the provider identifier.
func (s *Scholar) Name() string { return "scholar" }

// FetchAuthor pages through scholar results for the author, twenty per page,
// until the next-page marker disappears or cfg.MaxPages is reached. The
// SerpAPI client does not take a context, so cancellation is only observed
// between pages.
func (s *Scholar) FetchAuthor(ctx context.Context, name string, cfg types.GatherConfig) (*types.AuthorProfile, error) {
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 5
	}

	profile := &types.AuthorProfile{
		Name:      name,
		Org:       cfg.Org,
		FetchedAt: time.Now().UTC(),
	}

	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		params := map[string]string{
			"engine": "google_scholar",
			"q":      fmt.Sprintf("author:%q", name),
			"num":    strconv.Itoa(scholarPageSize),
			"start":  strconv.Itoa(page * scholarPageSize),
			"as_sdt": "0",
		}
		data, err := scholarSearch(params, s.APIKey)
		if err != nil {
			return nil, fmt.Errorf("scholar search: %w", err)
		}
		if msg, ok := data["error"].(string); ok && msg != "" {
			return nil, fmt.Errorf("scholar API error: %s", msg)
		}

		results, _ := data["organic_results"].([]interface{})
		for _, it := range results {
			m, ok := it.(map[string]interface{})
			if !ok {
				continue
			}
			p := scholarPaper(m)
			if p.Title == "" {
				continue
			}
			profile.Papers = append(profile.Papers, p)
		}

		if !hasNextPage(data) {
			break
		}
	}

	profile.TotalPapers = len(profile.Papers)
	return profile, nil
}

// scholarPaper converts one organic result to the provider-neutral form.
func scholarPaper(m map[string]interface{}) types.Paper {
	title, _ := m["title"].(string)
	p := types.Paper{
		ID:      titleSlug(title),
		Title:   title,
		Sources: []string{"scholar"},
	}
	p.Abstract, _ = m["snippet"].(string)
	p.URL, _ = m["link"].(string)

	if info, ok := m["publication_info"].(map[string]interface{}); ok {
		if summary, ok := info["summary"].(string); ok {
			p.Venue, p.Year = parseSummary(summary)
		}
		if authors, ok := info["authors"].([]interface{}); ok {
			for _, a := range authors {
				am, ok := a.(map[string]interface{})
				if !ok {
					continue
				}
				if name, _ := am["name"].(string); name != "" {
					p.Authors = append(p.Authors, name)
				}
			}
		}
	}

	if links, ok := m["inline_links"].(map[string]interface{}); ok {
		if cited, ok := links["cited_by"].(map[string]interface{}); ok {
			if total, ok := cited["total"].(float64); ok {
				p.Citations = int(total)
			}
		}
	}
	return p
}

// parseSummary extracts venue and year from a publication summary of the
// form "A Author, B Author - Venue, 2020 - host.com".
func parseSummary(summary string) (venue string, year int) {
	if match := yearRe.FindString(summary); match != "" {
		year, _ = strconv.Atoi(match)
	}
	parts := strings.Split(summary, " - ")
	if len(parts) < 2 {
		return "", year
	}
	v := strings.TrimSpace(parts[1])
	if year > 0 {
		v = strings.TrimSuffix(v, strconv.Itoa(year))
		v = strings.TrimRight(strings.TrimSpace(v), ",")
	}
	return strings.TrimSpace(v), year
}

func hasNextPage(data map[string]interface{}) bool {
	pagination, ok := data["pagination"].(map[string]interface{})
	if !ok {
		return false
	}
	next, _ := pagination["next"].(string)
	return next != ""
}
