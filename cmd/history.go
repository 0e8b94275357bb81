package cmd

import (
	"github.com/aweist/probables-watcher/storage"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.ValidateStorage(); err != nil {
			return err
		}

		ledger, err := storage.NewRunLedger(cfg.Storage.LedgerPath)
		if err != nil {
			return err
		}
		defer ledger.Close()

		runs, err := ledger.GetAllRuns()
		if err != nil {
			return err
		}
		if historyLimit > 0 && len(runs) > historyLimit {
			runs = runs[:historyLimit]
		}
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of runs to display (0 for all)")
}
