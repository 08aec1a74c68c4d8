package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pubdex/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RepairConfig holds settings for the dump-repair stage.
type RepairConfig struct {
	// InputPath is the gzip-compressed XML dump to repair.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputPath is the file the repaired XML document is written to.
	OutputPath string `json:"output_path" yaml:"output_path"`

	// DTDPath lists the directories searched for the DTD named by the
	// document's DOCTYPE, in order. When empty, the input file's directory
	// and then the working directory are searched.
	DTDPath []string `json:"dtd_path" yaml:"dtd_path"`

	// Buffered reads the whole decompressed, blank-stripped text into memory
	// before parsing instead of streaming it. Output is identical either way.
	Buffered bool `json:"buffered" yaml:"buffered"`
}

// ScanConfig holds settings for the dump-scan stage.
type ScanConfig struct {
	// DumpPath is the repaired dump to scan (.xml or .xml.gz).
	DumpPath string `json:"dump_path" yaml:"dump_path"`

	// OutputPath is the generated author-info CSV path.
	OutputPath string `json:"output_path" yaml:"output_path"`

	// StartYear drops publications older than this year; zero keeps all.
	StartYear int `json:"start_year" yaml:"start_year"`
}

// RosterConfig holds the dataset locations and filters for roster operations.
type RosterConfig struct {
	// DataDir is the directory holding the roster CSV datasets
	// (faculty.csv, aliases.csv, country-info.csv, author-info.csv).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Countries keeps only faculty whose institution maps to one of these
	// country codes (e.g. "us", "de").
	Countries []string `json:"countries,omitempty" yaml:"countries,omitempty"`

	// Institutions keeps only faculty at these institutions.
	Institutions []string `json:"institutions,omitempty" yaml:"institutions,omitempty"`

	// Areas keeps only faculty with publications in these areas, judged
	// against the generated author-info CSV.
	Areas []string `json:"areas,omitempty" yaml:"areas,omitempty"`

	// TopKInstitutions keeps the K institutions with the most matching
	// faculty; zero disables the cut.
	TopKInstitutions int `json:"top_k_institutions,omitempty" yaml:"top_k_institutions,omitempty"`

	// TopKAreas keeps the K areas with the most matching faculty; zero
	// disables the cut.
	TopKAreas int `json:"top_k_areas,omitempty" yaml:"top_k_areas,omitempty"`

	// TopKAuthors keeps the first K faculty by name order; zero disables.
	TopKAuthors int `json:"top_k_authors,omitempty" yaml:"top_k_authors,omitempty"`

	// RandomK samples K faculty uniformly; zero disables.
	RandomK int `json:"random_k,omitempty" yaml:"random_k,omitempty"`

	// RandomSeed fixes the RandomK sample for reproducible output.
	RandomSeed int64 `json:"random_seed,omitempty" yaml:"random_seed,omitempty"`

	// IncludeAliases emits alias rows for the kept faculty.
	IncludeAliases bool `json:"include_aliases" yaml:"include_aliases"`
}

// LintConfig holds settings for roster lint checks.
type LintConfig struct {
	HTTPConfig `yaml:",inline"`

	// DataDir is the roster dataset directory.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// CheckHomepages enables the online homepage check (fetch the page and
	// require non-empty visible text). Offline checks always run.
	CheckHomepages bool `json:"check_homepages" yaml:"check_homepages"`
}

// GatherConfig holds settings for the metadata-gathering stage.
type GatherConfig struct {
	HTTPConfig `yaml:",inline"`

	// CacheDir is the directory for the provider JSON caches.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// ProfileDir is the directory gathered author profiles are written to.
	ProfileDir string `json:"profile_dir" yaml:"profile_dir"`

	// Providers selects which providers run: "aggregator", "scholar".
	Providers []string `json:"providers" yaml:"providers"`

	// AggregatorKey authenticates against the metadata aggregator.
	AggregatorKey string `json:"aggregator_key,omitempty" yaml:"aggregator_key,omitempty"`

	// SerpAPIKey authenticates against the scholar-search API.
	SerpAPIKey string `json:"serpapi_key,omitempty" yaml:"serpapi_key,omitempty"`

	// Org is the organization hint passed to aggregator person searches.
	Org string `json:"org,omitempty" yaml:"org,omitempty"`

	// MaxPages caps scholar result paging (default 5 pages of 20).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// RequestsPerSecond paces provider calls through the shared rate limiter
	// (default 2).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// Refresh bypasses cache reads and refetches from the providers.
	Refresh bool `json:"refresh" yaml:"refresh"`
}

// CatalogConfig holds settings for the paper catalog.
type CatalogConfig struct {
	// IndexDir is the directory holding the SQLite database.
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// ProfileDir is the directory of gathered profile YAML files to ingest.
	ProfileDir string `json:"profile_dir" yaml:"profile_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AnalyzeConfig holds settings for corpus analysis.
type AnalyzeConfig struct {
	AIConfig `yaml:",inline"`

	// ProfileDir is the directory of gathered profile YAML files to analyze.
	ProfileDir string `json:"profile_dir" yaml:"profile_dir"`

	// CacheDir is the directory for LLM result caches.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// YearFrom is the inclusive lower bound of the analysis window (default 2015).
	YearFrom int `json:"year_from" yaml:"year_from"`

	// YearTo is the inclusive upper bound of the analysis window (default 2025).
	YearTo int `json:"year_to" yaml:"year_to"`

	// MaxAbstracts caps how many abstracts feed theme synthesis (default 50).
	MaxAbstracts int `json:"max_abstracts" yaml:"max_abstracts"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Repair  RepairConfig  `json:"repair" yaml:"repair"`
	Scan    ScanConfig    `json:"scan" yaml:"scan"`
	Roster  RosterConfig  `json:"roster" yaml:"roster"`
	Lint    LintConfig    `json:"lint" yaml:"lint"`
	Gather  GatherConfig  `json:"gather" yaml:"gather"`
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`
	Analyze AnalyzeConfig `json:"analyze" yaml:"analyze"`
}
