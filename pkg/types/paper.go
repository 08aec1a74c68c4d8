// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pubdex pipeline.
package types

import "time"

// Paper holds provider-neutral metadata for one publication. Fields that a
// provider does not supply are left zero; merging fills them in when another
// provider knows more.
type Paper struct {
	// ID is the canonical identifier for the paper: the aggregator paper id
	// when known, otherwise a slug derived from the normalized title.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Venue is the publication venue (conference or journal).
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Year is the publication year; zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Abstract is the paper abstract. Scholar results carry only a partial
	// snippet; aggregator details carry the full text when available.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Keywords lists topic keywords as reported by the provider.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Citations is the cited-by count; zero when unknown.
	Citations int `json:"citations,omitempty" yaml:"citations,omitempty"`

	// URL points at the paper's landing page.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Sources lists the providers that returned this paper (e.g. "aggregator",
	// "scholar"). Merged papers carry every contributing source.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// HasAbstract reports whether the paper carries a non-empty abstract.
func (p Paper) HasAbstract() bool { return p.Abstract != "" }

// AuthorProfile is the gathered publication record for one author: identity,
// per-provider ids, and the merged paper list.
type AuthorProfile struct {
	// Name is the author's display name as queried.
	Name string `json:"name" yaml:"name"`

	// Org is the organization hint used to narrow provider searches.
	Org string `json:"org,omitempty" yaml:"org,omitempty"`

	// AggregatorID is the author id assigned by the metadata aggregator.
	AggregatorID string `json:"aggregator_id,omitempty" yaml:"aggregator_id,omitempty"`

	// TotalPapers is the paper count the aggregator reports for the author,
	// which may exceed len(Papers) when fetching was truncated.
	TotalPapers int `json:"total_papers,omitempty" yaml:"total_papers,omitempty"`

	// Papers is the merged, deduplicated paper list.
	Papers []Paper `json:"papers" yaml:"papers"`

	// FetchedAt records when the profile was gathered.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// Key returns the cache key for the profile: "name@org", or just the name
// when no organization hint is set.
func (a AuthorProfile) Key() string {
	if a.Org == "" {
		return a.Name
	}
	return a.Name + "@" + a.Org
}
