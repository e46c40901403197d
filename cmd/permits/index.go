package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/permits-ledger/internal/common"
	"github.com/joseph-ayodele/permits-ledger/internal/repository"
	"github.com/joseph-ayodele/permits-ledger/internal/server"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the document index",
}

var indexCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the document index is reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openIndex(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "index health: OK (%s)\n", db.Dialect())
		return nil
	},
}

var indexJobsCmd = &cobra.Command{
	Use:   "jobs <batch-id>",
	Short: "List the extraction jobs of one batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batchID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("%w: batch id must be a UUID", common.ErrInvalidInput)
		}
		db, err := openIndex(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		jobs, err := repository.NewExtractJobRepository(db, nil).ListByBatch(cmd.Context(), batchID)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "JOB\tSTATUS\tPAGES\tPASSES\tLINK / ERROR")
		for _, j := range jobs {
			var detail string
			switch {
			case j.ErrorMessage != nil:
				detail = *j.ErrorMessage
			case j.Link != nil:
				detail = *j.Link
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", j.ID, j.Status, j.Pages, j.Passes, detail)
		}
		return tw.Flush()
	},
}

func init() {
	indexCmd.AddCommand(indexCheckCmd, indexJobsCmd)
	rootCmd.AddCommand(indexCmd)
}

func openIndex(cmd *cobra.Command) (*repository.DB, error) {
	cfg := common.LoadConfig()
	overrides.apply(cfg)
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	dbCfg := cfg.Database
	dbCfg.DSN = cfg.DatabaseDSN()
	return server.ConnectDB(cmd.Context(), dbCfg, logger)
}
