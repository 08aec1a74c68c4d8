// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"text/template"
	"time"

	"github.com/pdiddy/pubdex/pkg/types"
)

// AIBackend abstracts the generative AI API so tests can supply a mock.
// Complete sends one prompt and returns the model's text response, which
// callers parse as JSON.
type AIBackend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// keywordsPromptTmpl asks for keywords when a paper carries none.
var keywordsPromptTmpl = template.Must(template.New("keywords").Parse(`Extract 5-8 keywords that best represent the core content of the paper from the following title and abstract.

Requirements:
1. Keywords should accurately reflect the research content and theme of the paper
2. Avoid overly broad or overly specific terms
3. Output must be in strict JSON format without any additional explanatory text
4. JSON structure: {"keywords": ["keyword1", "keyword2", ...]}

Paper title: {{.Title}}

Paper abstract: {{.Abstract}}
`))

// mergePromptTmpl asks the model to collapse near-duplicate keywords.
var mergePromptTmpl = template.Must(template.New("merge").Parse(`Merge semantically similar words from the input keyword list, retaining the most representative word for each merged group and summing their weights.

Requirements:
1. Only merge highly semantically related keywords, avoid over-merging
2. The merged representative word should accurately cover the core meaning of the merged words
3. The weight is the sum of the weights of the merged words
4. Do not change the semantic category and domain characteristics of the original keywords
5. Words that are obviously unrelated should be kept separate
6. Output must be in strict JSON format without any additional explanatory text
7. JSON structure: {"merged_keywords": [{"word": "representative word", "weight": total weight}, ...]}

Input keyword list (format: word: weight):
{{.Keywords}}
`))

// themesPromptTmpl asks for research themes across a set of abstracts.
var themesPromptTmpl = template.Must(template.New("themes").Parse(`Analyze the following collection of research paper abstracts and extract the core research themes and key concepts.

Requirements:
1. Extract several core theme words or phrases that best represent these abstracts
2. Each theme should be concise and clearly reflect the research content
3. Assign a weight (1-10) to each theme, where a higher weight indicates greater frequency or importance
4. Avoid duplicate or semantically similar themes
5. Output must be in strict JSON format without any additional explanatory text
6. JSON structure: {"themes": [{"word": "theme word", "weight": weight}, ...]}

Abstract collection:
{{.Abstracts}}
`))

type keywordsResponse struct {
	Keywords []string `json:"keywords"`
}

// weightedWord is a word with a model-assigned weight. Weight decodes as a
// float because models sometimes emit fractional weights.
type weightedWord struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
}

type mergedResponse struct {
	MergedKeywords []weightedWord `json:"merged_keywords"`
}

type themesResponse struct {
	Themes []weightedWord `json:"themes"`
}

// extractKeywords asks the backend for keywords for one paper.
func (a *Analyzer) extractKeywords(ctx context.Context, p types.Paper) ([]string, error) {
	prompt, err := renderPrompt(keywordsPromptTmpl, struct{ Title, Abstract string }{p.Title, p.Abstract})
	if err != nil {
		return nil, err
	}

	text, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var resp keywordsResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("parsing keyword response: %w", err)
	}
	return resp.Keywords, nil
}

// requestMerge asks the backend to merge the tallied keywords.
func (a *Analyzer) requestMerge(ctx context.Context, keywords []Tally) (map[string]int, error) {
	var list bytes.Buffer
	for _, kw := range keywords {
		fmt.Fprintf(&list, "%s: %d\n", kw.Label, kw.Count)
	}

	prompt, err := renderPrompt(mergePromptTmpl, struct{ Keywords string }{list.String()})
	if err != nil {
		return nil, err
	}

	text, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var resp mergedResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("parsing merged-keyword response: %w", err)
	}
	return wordWeights(resp.MergedKeywords), nil
}

// requestThemes asks the backend for themes over the given papers' abstracts.
func (a *Analyzer) requestThemes(ctx context.Context, papers []types.Paper) (map[string]int, error) {
	var collection bytes.Buffer
	for i, p := range papers {
		fmt.Fprintf(&collection, "Abstract %d: %s\n\n", i+1, p.Abstract)
	}

	prompt, err := renderPrompt(themesPromptTmpl, struct{ Abstracts string }{collection.String()})
	if err != nil {
		return nil, err
	}

	text, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var resp themesResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("parsing theme response: %w", err)
	}
	return wordWeights(resp.Themes), nil
}

func wordWeights(words []weightedWord) map[string]int {
	weights := make(map[string]int, len(words))
	for _, w := range words {
		if w.Word == "" {
			continue
		}
		weights[w.Word] = int(math.Round(w.Weight))
	}
	return weights
}

func renderPrompt(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// complete calls the backend with exponential backoff.
func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := a.backend.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", a.maxRetries, lastErr)
}

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Claude Messages API.
type ClaudeBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends the prompt as a single user message and returns the first
// text block of the response.
func (c *ClaudeBackend) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: 4096,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in Claude API response")
}
