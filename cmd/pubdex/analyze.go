package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubdex/internal/analyze"
	"github.com/pdiddy/pubdex/internal/gather"
	"github.com/pdiddy/pubdex/internal/secrets"
	"github.com/pdiddy/pubdex/pkg/types"
)

const defaultModel = "claude-sonnet-4-5-20250929"

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize the gathered corpus (keywords, venues, themes)",
	Long: `Analyze filters the gathered papers to the analysis window (publication
year in range, non-empty abstract), tallies keywords, venues, and years,
and writes a markdown report plus a BibTeX file of the analyzed papers.

With an Anthropic API key configured, analyze also extracts keywords for
papers lacking them, merges near-duplicate keywords, and synthesizes
research themes from the abstracts. LLM results are cached under the
cache directory and reused on repeat runs over the same papers.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("profile-dir", "profiles", "directory of gathered profile YAML files")
	analyzeCmd.Flags().String("cache-dir", "cache", "directory for LLM result caches")
	analyzeCmd.Flags().String("output-dir", "output", "directory for the report and BibTeX files")
	analyzeCmd.Flags().Int("from", 0, "analysis window start year (default 2015)")
	analyzeCmd.Flags().Int("to", 0, "analysis window end year (default 2025)")
	analyzeCmd.Flags().Int("max-abstracts", 0, "maximum abstracts fed to theme synthesis (default 50)")
	analyzeCmd.Flags().String("model", defaultModel, "Claude model for keyword extraction and themes")
	analyzeCmd.Flags().String("api-key", "", "Anthropic API key (default: .secrets/anthropic-api-key)")
	analyzeCmd.Flags().Bool("no-llm", false, "skip LLM assistance even when an API key is configured")
	analyzeCmd.Flags().Bool("json", false, "print the analysis as JSON instead of writing report files")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	profileDir, _ := cmd.Flags().GetString("profile-dir")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	maxAbstracts, _ := cmd.Flags().GetInt("max-abstracts")
	model, _ := cmd.Flags().GetString("model")
	apiKey, _ := cmd.Flags().GetString("api-key")
	noLLM, _ := cmd.Flags().GetBool("no-llm")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg := types.AnalyzeConfig{
		AIConfig: types.AIConfig{
			Model:  model,
			APIKey: secretDefault(secrets.KeyAnthropic, apiKey),
		},
		ProfileDir:   profileDir,
		CacheDir:     cacheDir,
		YearFrom:     from,
		YearTo:       to,
		MaxAbstracts: maxAbstracts,
	}

	var backend analyze.AIBackend
	if cfg.APIKey != "" && !noLLM {
		backend = &analyze.ClaudeBackend{APIKey: cfg.APIKey, Model: cfg.Model}
	}

	analyzer, err := analyze.New(cfg, backend)
	if err != nil {
		return err
	}

	profiles, err := gather.ReadProfiles(cfg.ProfileDir)
	if err != nil {
		return err
	}

	analysis, err := analyzer.Run(context.Background(), profiles, os.Stdout)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var report bytes.Buffer
	analyze.WriteReport(analysis, &report)
	reportPath := filepath.Join(outputDir, "analysis.md")
	if err := os.WriteFile(reportPath, report.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	bibPath := filepath.Join(outputDir, "papers.bib")
	if err := os.WriteFile(bibPath, []byte(analyze.GenerateBibTeX(analysis.Papers)), 0o644); err != nil {
		return fmt.Errorf("writing BibTeX: %w", err)
	}

	fmt.Printf("wrote %s and %s\n", reportPath, bibPath)
	return nil
}
