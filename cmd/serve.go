package cmd

import (
	"github.com/aweist/probables-watcher/storage"
	"github.com/aweist/probables-watcher/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a preview of the stored grid and run history",
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

		ledger, err := storage.NewRunLedger(cfg.Storage.LedgerPath)
		if err != nil {
			return err
		}
		defer ledger.Close()

		server := web.NewServer(store, ledger, cfg.Web.Port, loc, logger)
		if cfg.Email.Enabled && cfg.Email.Address != "" {
			notifiers, err := buildNotifiers(cmd.Context())
			if err != nil {
				return err
			}
			server.SetNotifiers(notifiers)
		}

		return server.Start(cmd.Context())
	},
}
