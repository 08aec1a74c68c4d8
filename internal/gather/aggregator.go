// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pdiddy/pubdex/internal/httputil"
	"github.com/pdiddy/pubdex/pkg/types"
)

// aggregatorAPIBase is the metadata aggregator's API gateway. Declared as a
// var so tests can substitute an httptest server.
var aggregatorAPIBase = "https://datacenter.aminer.cn/gateway/open_platform/api"

const aggregatorAttempts = 3

// Pacing knobs. Tests shorten these to avoid real sleeps.
var (
	// aggregatorBackoff is the wait before a retried call; it doubles on
	// each further attempt.
	aggregatorBackoff = 1500 * time.Millisecond

	// detailPause spaces out batch detail fetches; every tenth fetch waits
	// detailBatchPause instead.
	detailPause      = 500 * time.Millisecond
	detailBatchPause = 2 * time.Second
)

// Aggregator is the client for the paid metadata aggregator. Lookups go
// through the shared rate limiter and the JSON map caches; failed calls are
// retried with backoff.
type Aggregator struct {
	Client  *http.Client
	APIKey  string
	Limiter *httputil.RateLimiter
	Cache   *Cache
}

// PaperRef is one entry of an author's paper list.
type PaperRef struct {
	ID    string `json:"paper_id"`
	Title string `json:"title"`
}

// PaperList is the cached paper list for one author.
type PaperList struct {
	AuthorName  string     `json:"author_name"`
	Org         string     `json:"org,omitempty"`
	AuthorID    string     `json:"author_id"`
	TotalPapers int        `json:"total_papers"`
	Papers      []PaperRef `json:"papers"`
	FetchTime   string     `json:"fetch_time"`
}

// PaperDetail is the aggregator's metadata record for one paper. The
// aggregator never returns body text, only metadata and the abstract.
type PaperDetail struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Abstract  string        `json:"abstract,omitempty"`
	Authors   []PaperAuthor `json:"authors,omitempty"`
	Venue     Venue         `json:"venue,omitempty"`
	Year      int           `json:"year,omitempty"`
	Keywords  []string      `json:"keywords,omitempty"`
	NCitation int           `json:"n_citation,omitempty"`
	URLs      []string      `json:"urls,omitempty"`
}

// PaperAuthor is one author entry of a paper detail.
type PaperAuthor struct {
	Name string `json:"name"`
	Org  string `json:"org,omitempty"`
}

// Venue is the venue record of a paper detail.
type Venue struct {
	Raw string `json:"raw,omitempty"`
}

// PaperQuery is a mixed-field paper search.
type PaperQuery struct {
	Title    string `json:"title,omitempty"`
	Abstract string `json:"abstract,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	Offset   int    `json:"offset"`
	Size     int    `json:"size"`
}

// Name returns the provider identifier.
func (a *Aggregator) Name() string { return "aggregator" }

// FetchAuthor gathers the author's full publication record: paper list,
// then one detail fetch per paper, paced to stay under the API's rate
// expectations. Papers whose detail fetch fails are kept as bare id+title
// entries so the profile still lists them.
func (a *Aggregator) FetchAuthor(ctx context.Context, name string, cfg types.GatherConfig) (*types.AuthorProfile, error) {
	list, err := a.AuthorPapers(ctx, name, cfg.Org, cfg.Refresh)
	if err != nil {
		return nil, err
	}

	profile := &types.AuthorProfile{
		Name:         name,
		Org:          cfg.Org,
		AggregatorID: list.AuthorID,
		TotalPapers:  list.TotalPapers,
		FetchedAt:    time.Now().UTC(),
	}

	for i, ref := range list.Papers {
		if i > 0 {
			pause := detailPause
			if i%10 == 0 {
				pause = detailBatchPause
			}
			if err := sleepCtx(ctx, pause); err != nil {
				return nil, err
			}
		}

		detail, err := a.PaperDetail(ctx, ref.ID, cfg.Refresh)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			profile.Papers = append(profile.Papers, types.Paper{
				ID:      ref.ID,
				Title:   ref.Title,
				Sources: []string{a.Name()},
			})
			continue
		}
		profile.Papers = append(profile.Papers, detail.Paper(a.Name()))
	}
	return profile, nil
}

// AuthorID resolves an author name (with optional org hint) to the
// aggregator's author id, consulting the id cache first.
func (a *Aggregator) AuthorID(ctx context.Context, name, org string, refresh bool) (string, error) {
	key := authorKey(name, org)
	if !refresh {
		var id string
		ok, err := a.Cache.authorIDs.Get(key, &id)
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}
	}

	payload := map[string]interface{}{"name": name, "offset": 0, "size": 10}
	if org != "" {
		payload["org"] = org
	}
	data, err := a.call(ctx, http.MethodPost, "/person/search", nil, payload)
	if err != nil {
		return "", fmt.Errorf("author lookup: %w", err)
	}

	var people []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &people); err != nil {
		return "", fmt.Errorf("parsing author search response: %w", err)
	}
	if len(people) == 0 || people[0].ID == "" {
		return "", fmt.Errorf("no aggregator match for %q", name)
	}

	id := people[0].ID
	if err := a.Cache.authorIDs.Put(key, id); err != nil {
		return "", err
	}
	return id, nil
}

// AuthorPapers returns the author's paper list (ids and titles), consulting
// the paper-list cache first.
func (a *Aggregator) AuthorPapers(ctx context.Context, name, org string, refresh bool) (*PaperList, error) {
	key := authorKey(name, org)
	if !refresh {
		var list PaperList
		ok, err := a.Cache.authorPapers.Get(key, &list)
		if err != nil {
			return nil, err
		}
		if ok {
			return &list, nil
		}
	}

	id, err := a.AuthorID(ctx, name, org, refresh)
	if err != nil {
		return nil, err
	}

	data, err := a.call(ctx, http.MethodGet, "/person/paper/relation", url.Values{"id": {id}}, nil)
	if err != nil {
		return nil, fmt.Errorf("paper list: %w", err)
	}

	var refs []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("parsing paper list response: %w", err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no papers found for %q", name)
	}

	list := &PaperList{
		AuthorName:  name,
		Org:         org,
		AuthorID:    id,
		TotalPapers: len(refs),
		Papers:      make([]PaperRef, 0, len(refs)),
		FetchTime:   time.Now().UTC().Format("2006-01-02 15:04:05"),
	}
	for _, r := range refs {
		list.Papers = append(list.Papers, PaperRef{ID: r.ID, Title: r.Title})
	}
	if err := a.Cache.authorPapers.Put(key, list); err != nil {
		return nil, err
	}
	return list, nil
}

// PaperDetail returns the metadata record for one paper, consulting the
// detail cache first.
func (a *Aggregator) PaperDetail(ctx context.Context, paperID string, refresh bool) (*PaperDetail, error) {
	if !refresh {
		var detail PaperDetail
		ok, err := a.Cache.paperDetails.Get(paperID, &detail)
		if err != nil {
			return nil, err
		}
		if ok {
			return &detail, nil
		}
	}

	data, err := a.call(ctx, http.MethodGet, "/paper/detail", url.Values{"id": {paperID}}, nil)
	if err != nil {
		return nil, fmt.Errorf("paper detail: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing paper detail response: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no detail for paper %q", paperID)
	}

	var detail PaperDetail
	if err := json.Unmarshal(records[0], &detail); err != nil {
		return nil, fmt.Errorf("parsing paper detail response: %w", err)
	}
	// Cache the record as returned so unknown fields survive.
	if err := a.Cache.paperDetails.Put(paperID, records[0]); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SearchByKeywords looks up papers matching any of the given keywords.
func (a *Aggregator) SearchByKeywords(ctx context.Context, keywords []string, size int) ([]PaperDetail, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("no keywords given")
	}
	if size <= 0 {
		size = 20
	}

	payload := map[string]interface{}{"keywords": keywords, "offset": 0, "size": size}
	data, err := a.call(ctx, http.MethodPost, "/paper/keyword/search", nil, payload)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	var papers []PaperDetail
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("parsing keyword search response: %w", err)
	}
	return papers, nil
}

// VenuePapers lists the papers published at a venue, optionally restricted
// to one year.
func (a *Aggregator) VenuePapers(ctx context.Context, venueID string, year int) ([]PaperRef, error) {
	if venueID == "" {
		return nil, fmt.Errorf("no venue id given")
	}

	params := url.Values{"id": {venueID}}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	data, err := a.call(ctx, http.MethodGet, "/venue/paper", params, nil)
	if err != nil {
		return nil, fmt.Errorf("venue papers: %w", err)
	}

	var refs []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("parsing venue papers response: %w", err)
	}
	out := make([]PaperRef, 0, len(refs))
	for _, r := range refs {
		out = append(out, PaperRef{ID: r.ID, Title: r.Title})
	}
	return out, nil
}

// SearchPapers runs a mixed-field search and returns matching paper ids.
func (a *Aggregator) SearchPapers(ctx context.Context, q PaperQuery) ([]string, error) {
	if q.Title == "" && q.Abstract == "" && q.Keyword == "" {
		return nil, fmt.Errorf("empty paper query")
	}
	if q.Size <= 0 {
		q.Size = 20
	}

	data, err := a.call(ctx, http.MethodPost, "/paper/search", nil, q)
	if err != nil {
		return nil, fmt.Errorf("paper search: %w", err)
	}

	var hits []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &hits); err != nil {
		return nil, fmt.Errorf("parsing paper search response: %w", err)
	}
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.ID != "" {
			ids = append(ids, h.ID)
		}
	}
	return ids, nil
}

// Paper converts the detail record to the provider-neutral form.
func (d *PaperDetail) Paper(source string) types.Paper {
	p := types.Paper{
		ID:        d.ID,
		Title:     d.Title,
		Abstract:  d.Abstract,
		Venue:     d.Venue.Raw,
		Year:      d.Year,
		Keywords:  d.Keywords,
		Citations: d.NCitation,
		Sources:   []string{source},
	}
	for _, au := range d.Authors {
		if au.Name != "" {
			p.Authors = append(p.Authors, au.Name)
		}
	}
	if len(d.URLs) > 0 {
		p.URL = d.URLs[0]
	}
	return p
}

// envelope is the response wrapper every aggregator endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// call performs one aggregator API call with rate limiting and retries.
// Transport errors, non-200 statuses, and undecodable bodies are retried
// with doubling backoff; a decoded success=false response is a permanent
// rejection and fails immediately.
func (a *Aggregator) call(ctx context.Context, method, path string, params url.Values, payload interface{}) (json.RawMessage, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = b
	}

	reqURL := aggregatorAPIBase + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < aggregatorAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, aggregatorBackoff<<(attempt-1)); err != nil {
				return nil, err
			}
		}
		if a.Limiter != nil {
			if err := a.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", a.APIKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json;charset=utf-8")
		}

		resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("aggregator request: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("aggregator returned HTTP %d", resp.StatusCode)
			continue
		}

		var env envelope
		err = json.NewDecoder(resp.Body).Decode(&env)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("parsing aggregator response: %w", err)
			continue
		}
		if !env.Success {
			if env.Msg != "" {
				return nil, fmt.Errorf("aggregator rejected request: %s", env.Msg)
			}
			return nil, fmt.Errorf("aggregator rejected request")
		}
		return env.Data, nil
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
