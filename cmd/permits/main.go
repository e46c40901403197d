// Package main is the permits CLI: it scans work-permit PDFs and appends
// the extracted fields to the XLSX ledger.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/permits-ledger/internal/common"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfig      = 2
	exitLedgerWrite = 3
)

var rootCmd = &cobra.Command{
	Use:           "permits",
	Short:         "Work-permit OCR ledger",
	Long:          "Extracts worker name, employer, job title and validity dates from scanned work-permit PDFs and appends them to an XLSX ledger with a link to the archived document.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var overrides flagOverrides

func init() {
	overrides.register(rootCmd)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, common.ErrLedgerWrite):
		return exitLedgerWrite
	case errors.Is(err, common.ErrInvalidInput):
		return exitConfig
	default:
		return exitFailure
	}
}
