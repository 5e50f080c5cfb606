package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mcauduro0/macro-trading/internal/backtester"
	"github.com/mcauduro0/macro-trading/internal/data"
	"github.com/mcauduro0/macro-trading/internal/registry"
	"github.com/mcauduro0/macro-trading/internal/strategies"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest and print the performance summary",
	Args:  cobra.NoArgs,
	RunE:  runBacktest,
}

var (
	btStrategy string
	btDataDir  string
	btStart    string
	btEnd      string
	btCapital  float64
	btCostBps  float64
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btStrategy, "strategy", "zscore-momentum", "strategy ID to run")
	backtestCmd.Flags().StringVar(&btDataDir, "data", "data", "directory of close series JSON files")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "end date (YYYY-MM-DD)")
	backtestCmd.Flags().Float64Var(&btCapital, "capital", 1_000_000, "initial capital")
	backtestCmd.Flags().Float64Var(&btCostBps, "cost-bps", 2, "transaction cost in basis points")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	start, err := time.Parse("2006-01-02", btStart)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}
	end, err := time.Parse("2006-01-02", btEnd)
	if err != nil {
		return fmt.Errorf("parse --end: %w", err)
	}

	logger := cliLogger()
	defer logger.Sync()

	store, err := data.NewStoreFromDir(logger, btDataDir)
	if err != nil {
		return err
	}

	reg := registry.New(logger)
	for _, s := range []registry.Strategy{
		strategies.NewMomentum(logger, strategies.MomentumConfig{Instruments: store.Instruments()}),
		strategies.NewCarry(logger, strategies.CarryConfig{}),
	} {
		if err := reg.Register(s); err != nil {
			return err
		}
	}

	engine := backtester.NewEngine(logger, reg, store)
	result, err := engine.Run(context.Background(), &types.BacktestConfig{
		StrategyID:         btStrategy,
		StartDate:          start,
		EndDate:            end,
		InitialCapital:     decimal.NewFromFloat(btCapital),
		TransactionCostBps: btCostBps,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Run:           %s (%s)\n", result.ID, result.Status)
	fmt.Printf("Total return:  %.2f%%\n", result.TotalReturn*100)
	fmt.Printf("Sharpe:        %.2f   Sortino: %.2f\n", result.SharpeRatio, result.SortinoRatio)
	fmt.Printf("Max drawdown:  %.2f%%\n", result.MaxDrawdown*100)
	fmt.Printf("Trades:        %d   Win rate: %.1f%%   Profit factor: %.2f\n",
		result.TotalTrades, result.WinRate*100, result.ProfitFactor)
	fmt.Printf("Dates:         %d traded / %d no-signal / %d failed\n",
		result.Diagnostics.TradedDates, result.Diagnostics.NoSignalDates, result.Diagnostics.FailedDates)
	for _, f := range result.Diagnostics.Failures {
		fmt.Printf("  failure %s [%s] %s\n", f.Date.Format("2006-01-02"), f.Kind, f.Message)
	}
	return nil
}
