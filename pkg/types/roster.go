// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// NoScholarPage is the sentinel roster value for faculty without a scholar
// profile page.
const NoScholarPage = "NOSCHOLARPAGE"

// Faculty is one row of the faculty roster CSV: a person, their institution,
// homepage, and scholar profile id.
type Faculty struct {
	// Name is the canonical faculty name, matching the bibliography dump's
	// author spelling (possibly with a trailing disambiguation number).
	Name string `json:"name" yaml:"name"`

	// Affiliation is the institution name as it appears in the datasets.
	Affiliation string `json:"affiliation" yaml:"affiliation"`

	// Homepage is the faculty member's homepage URL.
	Homepage string `json:"homepage" yaml:"homepage"`

	// ScholarID is the 12-character scholar profile id, or NoScholarPage.
	ScholarID string `json:"scholarid" yaml:"scholarid"`
}

// Alias maps an alternate author spelling to its canonical roster name.
type Alias struct {
	// Alias is the variant spelling found in the bibliography dump.
	Alias string `json:"alias" yaml:"alias"`

	// Name is the canonical roster name the alias belongs to.
	Name string `json:"name" yaml:"name"`
}

// PubRecord is one publication occurrence found while scanning a dump:
// an author credited on a venue's paper in a given year.
type PubRecord struct {
	// Author is the author name exactly as spelled in the dump.
	Author string `json:"author" yaml:"author"`

	// Venue is the venue key from the record (booktitle or journal).
	Venue string `json:"venue" yaml:"venue"`

	// Area is the research-area label the venue maps to, or "unknown".
	Area string `json:"area" yaml:"area"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// Title is the publication title.
	Title string `json:"title" yaml:"title"`
}

// AuthorInfo aggregates an author's publication counts in one area. Rows of
// the generated author-info CSV.
type AuthorInfo struct {
	// Name is the author name as spelled in the dump.
	Name string `json:"name" yaml:"name"`

	// Area is the research-area label.
	Area string `json:"area" yaml:"area"`

	// Count is the number of publications in the area.
	Count int `json:"count" yaml:"count"`

	// AdjustedCount splits each publication's credit evenly across its
	// authors before summing.
	AdjustedCount float64 `json:"adjustedcount" yaml:"adjustedcount"`
}
