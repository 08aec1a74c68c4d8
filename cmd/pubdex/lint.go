package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubdex/internal/roster"
	"github.com/pdiddy/pubdex/pkg/types"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check roster entries for malformed ids and homepages",
	Long: `Lint checks every faculty row: the scholar id must match the id alphabet
or the NOSCHOLARPAGE sentinel, and the homepage URL must be well-formed.
With --check-homepages, each homepage is also fetched and must serve a
page with non-empty visible text.`,
	RunE: runLint,
}

func init() {
	lintCmd.Flags().String("data-dir", "data", "directory holding the roster CSV datasets")
	lintCmd.Flags().Bool("check-homepages", false, "fetch each homepage and require non-empty visible text")
	lintCmd.Flags().Duration("timeout", 0, "HTTP request timeout for homepage checks (default 60s)")

	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	checkHomepages, _ := cmd.Flags().GetBool("check-homepages")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	ds, err := roster.LoadDataset(dataDir)
	if err != nil {
		return err
	}

	cfg := types.LintConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		DataDir:        dataDir,
		CheckHomepages: checkHomepages,
	}

	issues, err := roster.Lint(context.Background(), ds, cfg)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Println(issue)
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d lint issue(s) in %d faculty rows", len(issues), len(ds.Faculty))
	}

	fmt.Printf("roster clean: %d faculty checked\n", len(ds.Faculty))
	return nil
}
