package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubdex/internal/gather"
	"github.com/pdiddy/pubdex/internal/httputil"
	"github.com/pdiddy/pubdex/internal/secrets"
	"github.com/pdiddy/pubdex/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "pubdex/0.1"
)

var gatherCmd = &cobra.Command{
	Use:   "gather [authors...]",
	Short: "Fetch publication metadata for authors from remote providers",
	Long: `Gather queries the configured providers (the metadata aggregator and the
scholar-search API) for each author, merges the per-provider paper lists,
and writes one profile YAML per author. Provider responses are cached as
JSON maps under the cache directory; --refresh bypasses the caches.`,
	RunE: runGather,
}

func init() {
	gatherCmd.Flags().String("org", "", "organization hint for aggregator person search")
	gatherCmd.Flags().StringSlice("providers", []string{"aggregator", "scholar"}, "providers to query: aggregator, scholar")
	gatherCmd.Flags().String("profile-dir", "profiles", "directory for gathered profile YAML files")
	gatherCmd.Flags().String("cache-dir", "cache", "directory for provider JSON caches")
	gatherCmd.Flags().String("aggregator-key", "", "metadata aggregator API key (default: .secrets/aggregator-api-key)")
	gatherCmd.Flags().String("serpapi-key", "", "SerpAPI key for scholar search (default: .secrets/serpapi-api-key)")
	gatherCmd.Flags().Int("max-pages", 0, "maximum scholar result pages per author (default 5)")
	gatherCmd.Flags().Float64("rps", 0, "provider requests per second (default 2)")
	gatherCmd.Flags().Bool("refresh", false, "bypass caches and refetch from providers")
	gatherCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")

	rootCmd.AddCommand(gatherCmd)
}

func runGather(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more author names to gather")
	}

	org, _ := cmd.Flags().GetString("org")
	providerNames, _ := cmd.Flags().GetStringSlice("providers")
	profileDir, _ := cmd.Flags().GetString("profile-dir")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	aggregatorKey, _ := cmd.Flags().GetString("aggregator-key")
	serpapiKey, _ := cmd.Flags().GetString("serpapi-key")
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	rps, _ := cmd.Flags().GetFloat64("rps")
	refresh, _ := cmd.Flags().GetBool("refresh")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	cfg := types.GatherConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		CacheDir:          cacheDir,
		ProfileDir:        profileDir,
		Providers:         providerNames,
		AggregatorKey:     secretDefault(secrets.KeyAggregator, aggregatorKey),
		SerpAPIKey:        secretDefault(secrets.KeySerpAPI, serpapiKey),
		Org:               org,
		MaxPages:          maxPages,
		RequestsPerSecond: rps,
		Refresh:           refresh,
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		return err
	}

	failed := 0
	for _, name := range args {
		out, err := gather.Gather(context.Background(), name, providers, cfg, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed:  %s: %v\n", name, err)
			failed++
			continue
		}
		path, err := gather.WriteProfile(cfg.ProfileDir, out.Profile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed:  %s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Printf("gathered: %s (%d papers, %d duplicates merged) -> %s\n",
			name, len(out.Profile.Papers), out.DupsRemoved, path)
	}
	if failed > 0 {
		return fmt.Errorf("%d author(s) failed gathering", failed)
	}
	return nil
}

// buildProviders assembles the providers named in cfg.Providers. Order
// matters: the merge keeps the first provider's value for conflicting
// fields, so the richer aggregator should come before scholar.
func buildProviders(cfg types.GatherConfig) ([]gather.Provider, error) {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	limiter := httputil.NewRateLimiter(rps)
	client := &http.Client{Timeout: cfg.Timeout}

	var providers []gather.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "aggregator":
			if cfg.AggregatorKey == "" {
				return nil, fmt.Errorf("aggregator provider needs an API key (.secrets/%s or --aggregator-key)", secrets.KeyAggregator)
			}
			cache, err := gather.OpenCache(cfg.CacheDir)
			if err != nil {
				return nil, err
			}
			providers = append(providers, &gather.Aggregator{
				Client:  client,
				APIKey:  cfg.AggregatorKey,
				Limiter: limiter,
				Cache:   cache,
			})
		case "scholar":
			if cfg.SerpAPIKey == "" {
				return nil, fmt.Errorf("scholar provider needs an API key (.secrets/%s or --serpapi-key)", secrets.KeySerpAPI)
			}
			providers = append(providers, &gather.Scholar{APIKey: cfg.SerpAPIKey})
		default:
			return nil, fmt.Errorf("unknown provider %q: use aggregator or scholar", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers selected")
	}
	return providers, nil
}
