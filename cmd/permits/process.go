package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/permits-ledger/internal/ingest"
	"github.com/joseph-ayodele/permits-ledger/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Scan permits of one category and append them to the ledger",
	Long: "Scans the given PDFs, or every PDF waiting in the category's intake folder when no files are given, " +
		"archives them under Processed/ and appends one ledger row per document.",
	RunE: runProcess,
}

var (
	processCategory string
	processCopyTo   string
)

func init() {
	processCmd.Flags().StringVarP(&processCategory, "category", "c", "", "agency employer name or folder (required)")
	processCmd.Flags().StringVar(&processCopyTo, "copy-to", "", "copy the ledger here after a successful batch")

	if err := processCmd.MarkFlagRequired("category"); err != nil {
		panic(fmt.Sprintf("failed to mark category flag as required: %v", err))
	}

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cat, err := a.category(processCategory)
	if err != nil {
		return err
	}

	var inputs []pipeline.Input
	if len(args) == 0 {
		paths, stats, err := ingest.Discover(a.archiver.IntakeDir(cat), true)
		if err != nil {
			return err
		}
		a.logger.Info("intake scanned", "dir", a.archiver.IntakeDir(cat), "matched", stats.Matched, "skipped", stats.Skipped)
		for _, p := range paths {
			inputs = append(inputs, pipeline.Input{Path: p})
		}
	} else {
		for _, p := range args {
			inputs = append(inputs, pipeline.Input{Path: p})
		}
	}
	if len(inputs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing to process in %s\n", a.archiver.IntakeDir(cat))
		return nil
	}

	sum, err := a.processor.ProcessBatch(ctx, cat, inputs)
	printSummary(cmd.OutOrStdout(), sum)
	if err != nil {
		return err
	}

	if processCopyTo != "" && sum.Written > 0 {
		dst, err := copyLedger(a.ledger.Path(), processCopyTo)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "- Copied to: %s\n", dst)
	}
	return nil
}

func printSummary(w io.Writer, sum pipeline.Summary) {
	fmt.Fprintf(w, "Batch %s (%s) complete!\n", sum.BatchID, sum.Category.Employer)
	fmt.Fprintf(w, "- Submitted: %d\n", sum.Submitted)
	fmt.Fprintf(w, "- Written: %d (complete %d, partial %d, nothing found %d)\n", sum.Written, sum.Complete, sum.Partial, sum.Empty)
	fmt.Fprintf(w, "- Duplicates: %d\n", sum.Duplicates)
	fmt.Fprintf(w, "- Failed: %d\n", sum.Failed)
	for _, o := range sum.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "  ! %s: %v\n", o.Input, o.Err)
		}
	}
	for _, warn := range sum.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	if sum.Written > 0 && sum.NothingResolved() {
		fmt.Fprintln(w, "- No document yielded any field; check the scans and the OCR language data")
	}
	fmt.Fprintf(w, "- Ledger: %s\n", sum.LedgerPath)
}

// copyLedger copies the workbook to dst; a directory dst keeps the file name.
func copyLedger(src, dst string) (string, error) {
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", err
	}
	return dst, out.Close()
}
