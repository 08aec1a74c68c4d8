// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/pubdex/internal/httputil"
)

// newTestAggregator starts an httptest server, points the aggregator client
// at it, and shortens the pacing knobs for the duration of the test.
func newTestAggregator(t *testing.T, handler http.Handler) (*Aggregator, string) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	oldBase := aggregatorAPIBase
	oldBackoff := aggregatorBackoff
	oldPause := detailPause
	oldBatchPause := detailBatchPause
	aggregatorAPIBase = srv.URL
	aggregatorBackoff = time.Millisecond
	detailPause = time.Millisecond
	detailBatchPause = time.Millisecond
	t.Cleanup(func() {
		aggregatorAPIBase = oldBase
		aggregatorBackoff = oldBackoff
		detailPause = oldPause
		detailBatchPause = oldBatchPause
	})

	cacheDir := t.TempDir()
	cache, err := OpenCache(cacheDir)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	return &Aggregator{
		Client:  srv.Client(),
		APIKey:  "test-token",
		Limiter: httputil.NewRateLimiter(1000),
		Cache:   cache,
	}, cacheDir
}

func okEnvelope(data string) string {
	return `{"success":true,"data":` + data + `}`
}

// counter tracks per-path request counts.
type counter struct {
	mu   sync.Mutex
	hits map[string]int
}

func newCounter() *counter { return &counter{hits: make(map[string]int)} }

func (c *counter) bump(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits[path]++
	return c.hits[path]
}

func (c *counter) get(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[path]
}

// --- AuthorID ---

func TestAuthorID(t *testing.T) {
	hits := newCounter()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.bump(r.URL.Path)
		if r.URL.Path != "/person/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
			t.Errorf("Content-Type = %q", ct)
		}

		var body struct {
			Name   string `json:"name"`
			Org    string `json:"org"`
			Offset int    `json:"offset"`
			Size   int    `json:"size"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if body.Name != "R Wagner" || body.Org != "ETH" {
			t.Errorf("body = %+v", body)
		}
		if body.Offset != 0 || body.Size != 10 {
			t.Errorf("paging = offset %d size %d", body.Offset, body.Size)
		}

		fmt.Fprint(w, okEnvelope(`[{"id":"author-1"},{"id":"author-2"}]`))
	})

	a, _ := newTestAggregator(t, handler)
	ctx := context.Background()

	id, err := a.AuthorID(ctx, "R Wagner", "ETH", false)
	if err != nil {
		t.Fatalf("AuthorID: %v", err)
	}
	if id != "author-1" {
		t.Errorf("id = %q, want the first match", id)
	}

	// Second lookup is served from the cache.
	if _, err := a.AuthorID(ctx, "R Wagner", "ETH", false); err != nil {
		t.Fatalf("AuthorID cached: %v", err)
	}
	if n := hits.get("/person/search"); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}

	// Refresh bypasses the cache.
	if _, err := a.AuthorID(ctx, "R Wagner", "ETH", true); err != nil {
		t.Fatalf("AuthorID refresh: %v", err)
	}
	if n := hits.get("/person/search"); n != 2 {
		t.Errorf("server hits after refresh = %d, want 2", n)
	}
}

func TestAuthorIDNoMatch(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`[]`))
	})
	a, _ := newTestAggregator(t, handler)

	_, err := a.AuthorID(context.Background(), "Nobody", "", false)
	if err == nil || !strings.Contains(err.Error(), "no aggregator match") {
		t.Errorf("got %v, want no-match error", err)
	}
}

func TestAuthorIDRejected(t *testing.T) {
	hits := newCounter()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.bump(r.URL.Path)
		fmt.Fprint(w, `{"success":false,"msg":"invalid token"}`)
	})
	a, _ := newTestAggregator(t, handler)

	_, err := a.AuthorID(context.Background(), "R Wagner", "", false)
	if err == nil || !strings.Contains(err.Error(), "invalid token") {
		t.Errorf("got %v, want rejection error", err)
	}
	// Rejections are permanent and must not be retried.
	if n := hits.get("/person/search"); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestAggregatorRetriesServerErrors(t *testing.T) {
	hits := newCounter()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.bump(r.URL.Path) < 3 {
			http.Error(w, "try later", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, okEnvelope(`[{"id":"author-1"}]`))
	})
	a, _ := newTestAggregator(t, handler)

	id, err := a.AuthorID(context.Background(), "R Wagner", "", false)
	if err != nil {
		t.Fatalf("AuthorID: %v", err)
	}
	if id != "author-1" {
		t.Errorf("id = %q", id)
	}
	if n := hits.get("/person/search"); n != 3 {
		t.Errorf("server hits = %d, want 3", n)
	}
}

func TestAggregatorGivesUpAfterRetries(t *testing.T) {
	hits := newCounter()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.bump(r.URL.Path)
		http.Error(w, "down", http.StatusInternalServerError)
	})
	a, _ := newTestAggregator(t, handler)

	_, err := a.AuthorID(context.Background(), "R Wagner", "", false)
	if err == nil || !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("got %v, want HTTP 500 error", err)
	}
	if n := hits.get("/person/search"); n != 3 {
		t.Errorf("server hits = %d, want 3", n)
	}
}

// --- AuthorPapers ---

func TestAuthorPapers(t *testing.T) {
	hits := newCounter()
	mux := http.NewServeMux()
	mux.HandleFunc("/person/search", func(w http.ResponseWriter, r *http.Request) {
		hits.bump(r.URL.Path)
		fmt.Fprint(w, okEnvelope(`[{"id":"author-1"}]`))
	})
	mux.HandleFunc("/person/paper/relation", func(w http.ResponseWriter, r *http.Request) {
		hits.bump(r.URL.Path)
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "author-1" {
			t.Errorf("id param = %q", got)
		}
		fmt.Fprint(w, okEnvelope(`[{"id":"p1","title":"Paper One"},{"id":"p2","title":"Paper Two"}]`))
	})

	a, cacheDir := newTestAggregator(t, mux)
	ctx := context.Background()

	list, err := a.AuthorPapers(ctx, "R Wagner", "ETH", false)
	if err != nil {
		t.Fatalf("AuthorPapers: %v", err)
	}
	if list.AuthorID != "author-1" || list.TotalPapers != 2 {
		t.Errorf("list = %+v", list)
	}
	if len(list.Papers) != 2 || list.Papers[0].ID != "p1" || list.Papers[1].Title != "Paper Two" {
		t.Errorf("Papers = %+v", list.Papers)
	}
	if list.FetchTime == "" {
		t.Error("FetchTime should be set")
	}

	// The cache file must hold the name@org key.
	b, err := os.ReadFile(filepath.Join(cacheDir, authorPapersFile))
	if err != nil {
		t.Fatalf("reading cache file: %v", err)
	}
	if !strings.Contains(string(b), `"R Wagner@ETH"`) {
		t.Errorf("cache file missing author key:\n%s", b)
	}

	// Second call is served from the cache.
	if _, err := a.AuthorPapers(ctx, "R Wagner", "ETH", false); err != nil {
		t.Fatalf("AuthorPapers cached: %v", err)
	}
	if n := hits.get("/person/paper/relation"); n != 1 {
		t.Errorf("relation hits = %d, want 1", n)
	}
}

func TestAuthorPapersEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/person/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`[{"id":"author-1"}]`))
	})
	mux.HandleFunc("/person/paper/relation", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`[]`))
	})
	a, _ := newTestAggregator(t, mux)

	_, err := a.AuthorPapers(context.Background(), "R Wagner", "", false)
	if err == nil || !strings.Contains(err.Error(), "no papers found") {
		t.Errorf("got %v, want no-papers error", err)
	}
}

// --- PaperDetail ---

const samplePaperDetail = `{
  "id": "p1",
  "title": "Paper One",
  "abstract": "We study things.",
  "authors": [{"name": "R Wagner", "org": "ETH"}, {"name": "K He"}],
  "venue": {"raw": "CVPR"},
  "year": 2016,
  "keywords": ["vision", "residual"],
  "n_citation": 1000,
  "urls": ["https://example.org/p1", "https://mirror.example.org/p1"]
}`

func TestPaperDetail(t *testing.T) {
	hits := newCounter()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.bump(r.URL.Path)
		if r.URL.Path != "/paper/detail" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "p1" {
			t.Errorf("id param = %q", got)
		}
		fmt.Fprint(w, okEnvelope(`[`+samplePaperDetail+`]`))
	})
	a, _ := newTestAggregator(t, handler)
	ctx := context.Background()

	detail, err := a.PaperDetail(ctx, "p1", false)
	if err != nil {
		t.Fatalf("PaperDetail: %v", err)
	}
	if detail.Title != "Paper One" || detail.Venue.Raw != "CVPR" || detail.Year != 2016 {
		t.Errorf("detail = %+v", detail)
	}
	if detail.NCitation != 1000 || len(detail.Keywords) != 2 {
		t.Errorf("detail = %+v", detail)
	}

	// Cached on the second call.
	if _, err := a.PaperDetail(ctx, "p1", false); err != nil {
		t.Fatalf("PaperDetail cached: %v", err)
	}
	if n := hits.get("/paper/detail"); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestPaperDetailMissing(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`[]`))
	})
	a, _ := newTestAggregator(t, handler)

	_, err := a.PaperDetail(context.Background(), "nope", false)
	if err == nil || !strings.Contains(err.Error(), "no detail") {
		t.Errorf("got %v, want no-detail error", err)
	}
}

func TestPaperDetailToPaper(t *testing.T) {
	var detail PaperDetail
	if err := json.Unmarshal([]byte(samplePaperDetail), &detail); err != nil {
		t.Fatal(err)
	}

	p := detail.Paper("aggregator")
	if p.ID != "p1" || p.Title != "Paper One" || p.Venue != "CVPR" || p.Year != 2016 {
		t.Errorf("paper = %+v", p)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "R Wagner" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if p.URL != "https://example.org/p1" {
		t.Errorf("URL = %q, want the first url", p.URL)
	}
	if p.Citations != 1000 {
		t.Errorf("Citations = %d", p.Citations)
	}
	if len(p.Sources) != 1 || p.Sources[0] != "aggregator" {
		t.Errorf("Sources = %v", p.Sources)
	}
}

// --- FetchAuthor ---

func TestFetchAuthor(t *testing.T) {
	hits := newCounter()
	mux := http.NewServeMux()
	mux.HandleFunc("/person/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`[{"id":"author-1"}]`))
	})
	mux.HandleFunc("/person/paper/relation", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`[{"id":"p1","title":"Paper One"},{"id":"p2","title":"Paper Two"}]`))
	})
	mux.HandleFunc("/paper/detail", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		hits.bump("/paper/detail/" + id)
		if id == "p2" {
			// Detail permanently unavailable for this paper.
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, okEnvelope(`[`+samplePaperDetail+`]`))
	})

	a, _ := newTestAggregator(t, mux)

	profile, err := a.FetchAuthor(context.Background(), "R Wagner", testGatherCfg())
	if err != nil {
		t.Fatalf("FetchAuthor: %v", err)
	}
	if profile.AggregatorID != "author-1" || profile.TotalPapers != 2 {
		t.Errorf("profile = %+v", profile)
	}
	if len(profile.Papers) != 2 {
		t.Fatalf("len(Papers) = %d, want 2", len(profile.Papers))
	}

	// First paper has the full detail record.
	if profile.Papers[0].Venue != "CVPR" || profile.Papers[0].Abstract == "" {
		t.Errorf("Papers[0] = %+v", profile.Papers[0])
	}
	// Second paper fell back to the bare list entry after the detail fetch
	// failed, but keeps the title.
	if profile.Papers[1].ID != "p2" || profile.Papers[1].Title != "Paper Two" {
		t.Errorf("Papers[1] = %+v", profile.Papers[1])
	}
	if profile.Papers[1].Abstract != "" {
		t.Errorf("Papers[1].Abstract = %q, want empty", profile.Papers[1].Abstract)
	}
	if n := hits.get("/paper/detail/p2"); n != 3 {
		t.Errorf("p2 detail attempts = %d, want 3", n)
	}
}

// --- search operations ---

func TestSearchByKeywords(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/paper/keyword/search" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Keywords []string `json:"keywords"`
			Size     int      `json:"size"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if len(body.Keywords) != 2 || body.Keywords[0] != "graph" || body.Size != 5 {
			t.Errorf("body = %+v", body)
		}
		fmt.Fprint(w, okEnvelope(`[`+samplePaperDetail+`]`))
	})
	a, _ := newTestAggregator(t, handler)

	papers, err := a.SearchByKeywords(context.Background(), []string{"graph", "networks"}, 5)
	if err != nil {
		t.Fatalf("SearchByKeywords: %v", err)
	}
	if len(papers) != 1 || papers[0].Title != "Paper One" {
		t.Errorf("papers = %+v", papers)
	}
}

func TestSearchByKeywordsEmpty(t *testing.T) {
	a, _ := newTestAggregator(t, http.NewServeMux())
	if _, err := a.SearchByKeywords(context.Background(), nil, 0); err == nil {
		t.Error("expected error for empty keyword list")
	}
}

func TestVenuePapers(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/venue/paper" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("id") != "venue-1" || q.Get("year") != "2020" {
			t.Errorf("query = %v", q)
		}
		fmt.Fprint(w, okEnvelope(`[{"id":"p1","title":"Paper One"}]`))
	})
	a, _ := newTestAggregator(t, handler)

	refs, err := a.VenuePapers(context.Background(), "venue-1", 2020)
	if err != nil {
		t.Fatalf("VenuePapers: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "p1" {
		t.Errorf("refs = %+v", refs)
	}
}

func TestSearchPapers(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/paper/search" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var q PaperQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if q.Title != "residual" || q.Size != 20 {
			t.Errorf("query = %+v", q)
		}
		fmt.Fprint(w, okEnvelope(`[{"id":"p1"},{"id":""},{"id":"p3"}]`))
	})
	a, _ := newTestAggregator(t, handler)

	ids, err := a.SearchPapers(context.Background(), PaperQuery{Title: "residual"})
	if err != nil {
		t.Fatalf("SearchPapers: %v", err)
	}
	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p3" {
		t.Errorf("ids = %v", ids)
	}
}

func TestSearchPapersEmptyQuery(t *testing.T) {
	a, _ := newTestAggregator(t, http.NewServeMux())
	if _, err := a.SearchPapers(context.Background(), PaperQuery{}); err == nil {
		t.Error("expected error for empty query")
	}
}
