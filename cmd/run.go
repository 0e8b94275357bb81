package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aweist/probables-watcher/client"
	"github.com/aweist/probables-watcher/notifier"
	"github.com/aweist/probables-watcher/scheduler"
	"github.com/aweist/probables-watcher/storage"
	"go.uber.org/zap"
)

// runJob performs one fetch, reconcile and notify cycle.
func runJob(ctx context.Context, manual bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
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

	ledger, err := storage.NewRunLedger(cfg.Storage.LedgerPath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	notifiers, err := buildNotifiers(ctx)
	if err != nil {
		return err
	}

	runner := scheduler.NewRunner(scheduler.RunnerConfig{
		Fetcher:   client.NewAPIClient(cfg.API.URL, cfg.API.RefererURL, cfg.API.Timeout),
		Store:     store,
		Ledger:    ledger,
		Notifiers: notifiers,
		Location:  loc,
		Logger:    logger,
	})

	result, err := runner.Run(ctx, manual)
	if err != nil {
		return err
	}

	logger.Info("Run complete",
		zap.String("run_id", result.Run.ID),
		zap.Bool("notified", result.Run.Notified),
		zap.String("subject", result.Run.Subject))
	return nil
}

// buildNotifiers prefers XOAUTH2 from the credentials file and falls back to
// a plain SMTP password.
func buildNotifiers(ctx context.Context) ([]notifier.Notifier, error) {
	if !cfg.Email.Enabled {
		logger.Warn("Email disabled, runs will be tracked without notifications")
		return nil, nil
	}

	emailConfig := notifier.EmailConfig{
		SMTPHost: cfg.Email.SMTPHost,
		SMTPPort: cfg.Email.SMTPPort,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.Address,
		To:       cfg.Email.To,
	}

	if cfg.Email.OAuthFile != "" {
		_, err := os.Stat(cfg.Email.OAuthFile)
		switch {
		case err == nil:
			tokens, err := notifier.LoadTokenSource(ctx, cfg.Email.OAuthFile)
			if err != nil {
				return nil, err
			}
			emailConfig.Tokens = tokens
			logger.Debug("Using XOAUTH2 for SMTP", zap.String("credentials", cfg.Email.OAuthFile))
		case errors.Is(err, fs.ErrNotExist) && cfg.Email.Password != "":
			logger.Debug("Credentials file not found, using SMTP password", zap.String("credentials", cfg.Email.OAuthFile))
		default:
			return nil, fmt.Errorf("reading email credentials: %w", err)
		}
	}

	return []notifier.Notifier{notifier.NewEmailNotifier(emailConfig)}, nil
}
