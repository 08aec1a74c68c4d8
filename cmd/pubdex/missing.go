package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubdex/internal/roster"
)

var missingCmd = &cobra.Command{
	Use:   "missing [dump]",
	Short: "List roster names absent from a repaired dump",
	Long: `Missing diffs the roster's canonical names, plus their aliases, against
the author names in a repaired dump. Matching is Unicode-normalized, so
composed and decomposed spellings compare equal. It writes the missing
names as a text list and a per-name diagnostic CSV showing which
spellings were checked.`,
	RunE: runMissing,
}

func init() {
	missingCmd.Flags().String("data-dir", "data", "directory holding the roster CSV datasets")
	missingCmd.Flags().StringP("output", "o", "missing-names.txt", "missing-names list output path")
	missingCmd.Flags().String("csv", "missing-names.csv", "per-name diagnostic CSV output path")

	rootCmd.AddCommand(missingCmd)
}

func runMissing(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide the repaired dump to diff against")
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	output, _ := cmd.Flags().GetString("output")
	csvPath, _ := cmd.Flags().GetString("csv")

	ds, err := roster.LoadDataset(dataDir)
	if err != nil {
		return err
	}

	rep, err := roster.FindMissing(context.Background(), ds, args[0])
	if err != nil {
		return err
	}
	if err := roster.WriteMissingReport(output, csvPath, rep); err != nil {
		return err
	}

	fmt.Printf("%d of %d roster names missing from %s\n",
		len(rep.Missing), len(rep.Rows), filepath.Base(args[0]))
	fmt.Printf("wrote %s and %s\n", output, csvPath)
	return nil
}
