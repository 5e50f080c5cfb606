package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcauduro0/macro-trading/internal/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade journal",
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List journaled run IDs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades <run-id>",
	Short: "Print a run's trade log",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrades,
}

var journalReplayCmd = &cobra.Command{
	Use:   "replay <run-id>",
	Short: "Reconstruct book state at a point in time",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalReplay,
}

var (
	journalDBPath string
	replayAsOf    string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalTradesCmd)
	journalCmd.AddCommand(journalReplayCmd)

	journalCmd.PersistentFlags().StringVar(&journalDBPath, "db", "macro-trading.db", "path to journal database")
	journalReplayCmd.Flags().StringVar(&replayAsOf, "asof", "", "replay date (YYYY-MM-DD, default now)")
}

func openJournal() (*journal.Journal, error) {
	logger := cliLogger()
	return journal.Open(logger, journalDBPath)
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.Runs(context.Background())
	if err != nil {
		return err
	}
	for _, id := range runs {
		fmt.Println(id)
	}
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.Trades(context.Background(), args[0])
	if err != nil {
		return err
	}
	for _, t := range trades {
		realized := "-"
		if t.RealizedPnL != nil {
			realized = t.RealizedPnL.StringFixed(2)
		}
		fmt.Printf("%s  %-10s %-7s %12s @ %-10s realized=%s\n",
			t.Date.Format("2006-01-02"), t.Instrument, t.Action,
			t.NotionalDelta.StringFixed(0), t.Price.String(), realized)
	}
	return nil
}

func runJournalReplay(cmd *cobra.Command, args []string) error {
	asOf := time.Now().UTC()
	if replayAsOf != "" {
		parsed, err := time.Parse("2006-01-02", replayAsOf)
		if err != nil {
			return fmt.Errorf("parse --asof: %w", err)
		}
		asOf = parsed
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	state, err := j.Replay(context.Background(), args[0], asOf)
	if err != nil {
		return err
	}

	fmt.Printf("As of:    %s\n", state.AsOf.Format("2006-01-02"))
	fmt.Printf("Equity:   %s\n", state.Equity.StringFixed(2))
	fmt.Printf("Drawdown: %.2f%%\n", state.Drawdown*100)
	fmt.Printf("Trades:   %d\n", state.Trades)
	for inst, notional := range state.Positions {
		fmt.Printf("  %-10s %.0f\n", inst, notional)
	}
	return nil
}
