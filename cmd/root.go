package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"billbook/internal/config"
	"billbook/internal/logger"
)

var version = "1.0.0"

// appConfig is loaded once per invocation before any subcommand runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "billbook",
	Short: "Billbook - point-of-sale bill ledger with QR code receipts",
	Long: `Billbook records bills for small point-of-sale setups. Every bill gets a
unique id, a computed total and a QR code image that carries the bill details,
and is stored in a durable ledger (a JSON file or PostgreSQL).

Configuration is read from the environment and an optional .env file:
  LEDGER_BACKEND     - file (default) or postgres
  LEDGER_STORE_PATH  - JSON ledger file (default: bills.json)
  DATABASE_URL       - PostgreSQL connection string for the postgres backend
  QR_OUTPUT_DIR      - directory for QR code images (default: .)
  QR_FOREGROUND      - QR module colour (default: black)
  QR_BACKGROUND      - QR background colour (default: white)
  SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM
                     - outgoing mail for receipt emails
  GOOGLE_SHEET_URL   - spreadsheet for 'report --sheet'`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		requestID := uuid.NewString()
		logger.SetRequestID(requestID)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("store") {
			cfg.LedgerStorePath, _ = cmd.Flags().GetString("store")
		}
		if cmd.Flags().Changed("metrics-file") {
			cfg.MetricsFile, _ = cmd.Flags().GetString("metrics-file")
		}
		appConfig = cfg

		cmdLog := logger.WithComponent("cmd")
		cmdLog.Debug().
			Str("command", cmd.CommandPath()).
			Str("backend", cfg.LedgerBackend).
			Msg("Command starting")
		return nil
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("store", "", "Ledger file path (overrides LEDGER_STORE_PATH)")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write Prometheus metrics to this file on exit (overrides METRICS_FILE)")
	rootCmd.PersistentFlags().Int("timeout", 60, "Command timeout in seconds")
}
