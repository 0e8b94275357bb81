package cmd

import (
	"time"

	"github.com/aweist/probables-watcher/storage"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored probables window",
	Long:  "Print the stored starters from yesterday through ten days ahead without fetching.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.ValidateStorage(); err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		store, err := storage.NewSnapshotStore(cfg.Storage.DatabasePath, loc)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.EnsureSchema(cmd.Context()); err != nil {
			return err
		}

		rows, err := store.Window(cmd.Context(), time.Now().In(loc))
		if err != nil {
			return err
		}
		return printWindow(cmd.OutOrStdout(), rows)
	},
}
