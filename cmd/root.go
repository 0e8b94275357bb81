// Package cmd wires configuration, storage and notifiers into the probables CLI.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/aweist/probables-watcher/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile string
	verbose    bool
	manual     bool

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "probables",
	Short: "Track MLB probable starters and email a daily report",
	Long: `probables fetches the current list of probable starting pitchers, stores it
in a local snapshot, and emails the changes. Outside the 07:00-09:00 morning
window an email is only sent when starts were added or removed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(viper.New(), configFile)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = newLogger(cfg.Log.Level, verbose)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(cmd.Context(), manual)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (default .probables.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&manual, "manual", "m", false, "Send the report regardless of the time window")

	rootCmd.AddCommand(showCmd, historyCmd, serveCmd)
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", level, err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return execute(ctx, rootCmd)
}

// execute flushes the logger whether or not the command failed. Cobra skips
// post-run hooks after an error.
func execute(ctx context.Context, c *cobra.Command) error {
	err := c.ExecuteContext(ctx)
	_ = logger.Sync()
	return err
}
