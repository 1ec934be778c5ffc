// Command ledger serves the ledger API and runs one-off maintenance tasks
// against the configured store.
package main

import (
	"context"
	"fmt"
	"os"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	applog "ledger/internal/log"

	"github.com/spf13/cobra"
)

var (
	envFile   string
	logLevel  string
	logFormat string

	appCfg *config.Config
	logger *applog.Logger

	version = "dev"
	rootCmd = &cobra.Command{
		Use:               "ledger",
		Short:             "Personal ledger: transactions, obligations and monthly summaries",
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); overrides LOG_FORMAT")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(signupCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(dueCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := cli.LoadEnvFile(envFile); err != nil {
		return err
	}
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr).WithComponent(applog.ComponentCLI)

	if err := cfg.Validate(); err != nil {
		return err
	}
	appCfg = cfg
	return nil
}

// openBackend builds the configured backend. The caller must run Cleanup.
func openBackend(ctx context.Context) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(appCfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	return res, nil
}

// withBackend runs fn against a fresh backend and releases it afterwards.
func withBackend(ctx context.Context, fn func(*backend.Backend) error) (err error) {
	res, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := res.Cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("release backend: %w", cerr)
		}
	}()
	return fn(res.Backend)
}
