package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubdex/internal/dblp"
	"github.com/pdiddy/pubdex/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dump]",
	Short: "Scan a repaired dump into per-author publication records",
	Long: `Scan streams a repaired dump (.xml or .xml.gz), classifies each article
and inproceedings record into a research area by venue, and aggregates
publication counts per author. It writes the author-info CSV consumed by
roster filtering, optionally a per-credit records CSV, and prints per-area
tallies.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringP("output", "o", "author-info.csv", "author-info CSV output path")
	scanCmd.Flags().String("records", "", "also write the per-credit records CSV to this path")
	scanCmd.Flags().Int("start-year", 0, "drop publications before this year (0 = keep all)")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one repaired dump to scan")
	}

	output, _ := cmd.Flags().GetString("output")
	records, _ := cmd.Flags().GetString("records")
	startYear, _ := cmd.Flags().GetInt("start-year")

	cfg := types.ScanConfig{
		DumpPath:   args[0],
		OutputPath: output,
		StartYear:  startYear,
	}

	res, err := dblp.Scan(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}

	if err := dblp.WriteAuthorInfos(output, res.AuthorInfos); err != nil {
		return fmt.Errorf("writing author info: %w", err)
	}
	if records != "" {
		if err := dblp.WriteRecords(records, res.Records); err != nil {
			return fmt.Errorf("writing records: %w", err)
		}
	}

	fmt.Printf("scanned %d publications (%d skipped), %d author/area rows\n",
		res.Papers, res.Skipped, len(res.AuthorInfos))

	areas := make([]string, 0, len(res.Areas))
	for area := range res.Areas {
		areas = append(areas, area)
	}
	sort.Strings(areas)
	for _, area := range areas {
		fmt.Printf("  %-10s %6d\n", area, res.Areas[area])
	}

	fmt.Printf("wrote %s\n", output)
	if records != "" {
		fmt.Printf("wrote %s\n", records)
	}
	return nil
}
