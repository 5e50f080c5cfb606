// Package cmd implements the macroctl operator CLI.
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "macroctl",
	Short: "Operator CLI for the macro trading desk engine",
	Long: `macroctl runs backtests, inspects risk, and queries the trade journal
from the command line, against the same engines the server exposes.

Examples:
  macroctl backtest --strategy fx-carry --data ./data --start 2025-01-02 --end 2025-12-30
  macroctl risk snapshot --config config.yaml --positions positions.json
  macroctl journal runs --db macro-trading.db
  macroctl journal replay <run-id> --asof 2026-03-18 --db macro-trading.db`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// cliLogger builds a quiet logger for CLI use; engine output goes to stderr
// so stdout stays machine-readable.
func cliLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
