// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func swapClaudeAPIURL(t *testing.T, url string) {
	t.Helper()
	orig := claudeAPIURL
	claudeAPIURL = url
	t.Cleanup(func() { claudeAPIURL = orig })
}

func TestClaudeBackendComplete(t *testing.T) {
	var gotBody claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("anthropic-version = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"content": [{"type": "text", "text": "{\"keywords\": [\"x\"]}"}]}`))
	}))
	defer srv.Close()
	swapClaudeAPIURL(t, srv.URL)

	backend := &ClaudeBackend{APIKey: "test-key", Model: "test-model", Client: srv.Client()}
	text, err := backend.Complete(context.Background(), "the prompt")
	if err != nil {
		t.Fatal(err)
	}
	if text != `{"keywords": ["x"]}` {
		t.Errorf("text = %q", text)
	}

	if gotBody.Model != "test-model" {
		t.Errorf("model = %q", gotBody.Model)
	}
	if gotBody.MaxTokens != 4096 {
		t.Errorf("max_tokens = %d", gotBody.MaxTokens)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" || gotBody.Messages[0].Content != "the prompt" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
}

func TestClaudeBackendSkipsNonTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"content": [{"type": "thinking", "text": "hmm"}, {"type": "text", "text": "payload"}]}`))
	}))
	defer srv.Close()
	swapClaudeAPIURL(t, srv.URL)

	backend := &ClaudeBackend{APIKey: "k", Model: "m", Client: srv.Client()}
	text, err := backend.Complete(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	if text != "payload" {
		t.Errorf("text = %q, want payload", text)
	}
}

func TestClaudeBackendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	swapClaudeAPIURL(t, srv.URL)

	backend := &ClaudeBackend{APIKey: "k", Model: "m", Client: srv.Client()}
	_, err := backend.Complete(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v", err)
	}
}

func TestClaudeBackendNoTextContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"content": []}`))
	}))
	defer srv.Close()
	swapClaudeAPIURL(t, srv.URL)

	backend := &ClaudeBackend{APIKey: "k", Model: "m", Client: srv.Client()}
	_, err := backend.Complete(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "no text content") {
		t.Errorf("err = %v", err)
	}
}

// --- retry tests ---

func TestCompleteRetriesTransientFailures(t *testing.T) {
	backend := &failNTimesBackend{failures: 2, response: "ok"}
	a := testAnalyzer(t, t.TempDir(), backend)
	a.maxRetries = 3

	text, err := a.complete(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	if text != "ok" {
		t.Errorf("text = %q", text)
	}
	if backend.callCount != 3 {
		t.Errorf("callCount = %d, want 3", backend.callCount)
	}
}

func TestCompleteExhaustsRetries(t *testing.T) {
	backend := &failNTimesBackend{failures: 100}
	a := testAnalyzer(t, t.TempDir(), backend)
	a.maxRetries = 2

	_, err := a.complete(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "after 2 retries") {
		t.Errorf("err = %v", err)
	}
	if backend.callCount != 3 {
		t.Errorf("callCount = %d, want 3", backend.callCount)
	}
}

// --- prompt tests ---

func TestKeywordsPrompt(t *testing.T) {
	prompt, err := renderPrompt(keywordsPromptTmpl, struct{ Title, Abstract string }{
		Title:    "Efficient Training",
		Abstract: "We make training fast.",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Paper title: Efficient Training",
		"Paper abstract: We make training fast.",
		`{"keywords": ["keyword1", "keyword2", ...]}`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestMergePrompt(t *testing.T) {
	prompt, err := renderPrompt(mergePromptTmpl, struct{ Keywords string }{"graph: 3\nnetworks: 2\n"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "graph: 3") || !strings.Contains(prompt, "networks: 2") {
		t.Errorf("prompt missing keyword list:\n%s", prompt)
	}
	if !strings.Contains(prompt, `"merged_keywords"`) {
		t.Error("prompt missing JSON structure hint")
	}
}

func TestThemesPrompt(t *testing.T) {
	prompt, err := renderPrompt(themesPromptTmpl, struct{ Abstracts string }{"Abstract 1: A\n\nAbstract 2: B\n\n"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "Abstract 1: A") || !strings.Contains(prompt, "Abstract 2: B") {
		t.Errorf("prompt missing abstracts:\n%s", prompt)
	}
	if !strings.Contains(prompt, `"themes"`) {
		t.Error("prompt missing JSON structure hint")
	}
}

func TestWordWeightsRoundsAndSkipsEmpty(t *testing.T) {
	weights := wordWeights([]weightedWord{
		{Word: "a", Weight: 2.6},
		{Word: "", Weight: 9},
		{Word: "b", Weight: 3},
	})
	if len(weights) != 2 {
		t.Fatalf("got %d entries, want 2", len(weights))
	}
	if weights["a"] != 3 {
		t.Errorf("a = %d, want 3 (rounded)", weights["a"])
	}
	if weights["b"] != 3 {
		t.Errorf("b = %d", weights["b"])
	}
}
