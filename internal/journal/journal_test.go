package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/journal"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

func openTestJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(zap.NewNop(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func tradeDay(d int) time.Time {
	return time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC)
}

func sampleTrades() []types.TradeLogEntry {
	realized := decimal.NewFromFloat(1250)
	return []types.TradeLogEntry{
		{
			ID:            "run-1-000001",
			Date:          tradeDay(2),
			Instrument:    "USDBRL",
			Action:        types.TradeActionOpen,
			Price:         decimal.NewFromFloat(5.43),
			NotionalDelta: decimal.NewFromInt(-150000),
			StrategyIDs:   []string{"brl-carry"},
		},
		{
			ID:            "run-1-000002",
			Date:          tradeDay(3),
			Instrument:    "DI_JAN27",
			Action:        types.TradeActionOpen,
			Price:         decimal.NewFromFloat(98.2),
			NotionalDelta: decimal.NewFromInt(200000),
			StrategyIDs:   []string{"di-momentum"},
		},
		{
			ID:            "run-1-000003",
			Date:          tradeDay(5),
			Instrument:    "USDBRL",
			Action:        types.TradeActionClose,
			Price:         decimal.NewFromFloat(5.38),
			NotionalDelta: decimal.NewFromInt(150000),
			RealizedPnL:   &realized,
		},
	}
}

func TestJournalRoundTrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.AppendTrades(ctx, "run-1", sampleTrades()))

	got, err := j.Trades(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "run-1-000001", got[0].ID, "ULID keys preserve append order")
	assert.Equal(t, types.TradeActionClose, got[2].Action)
	require.NotNil(t, got[2].RealizedPnL)
	assert.True(t, got[2].RealizedPnL.Equal(decimal.NewFromFloat(1250)))
	assert.Equal(t, []string{"brl-carry"}, got[0].StrategyIDs)
}

func TestReplayPointInTime(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.AppendTrades(ctx, "run-1", sampleTrades()))
	require.NoError(t, j.AppendEquity(ctx, "run-1", []types.EquityPoint{
		{Date: tradeDay(2), Equity: decimal.NewFromInt(1000000), Drawdown: 0},
		{Date: tradeDay(4), Equity: decimal.NewFromInt(995000), Drawdown: 0.005},
		{Date: tradeDay(6), Equity: decimal.NewFromInt(1002000), Drawdown: 0},
	}))

	// Mid-run: both positions open, equity from the day-4 point.
	mid, err := j.Replay(ctx, "run-1", tradeDay(4))
	require.NoError(t, err)
	assert.Equal(t, 2, mid.Trades)
	assert.Equal(t, -150000.0, mid.Positions["USDBRL"])
	assert.Equal(t, 200000.0, mid.Positions["DI_JAN27"])
	assert.True(t, mid.Equity.Equal(decimal.NewFromInt(995000)))
	assert.Equal(t, 0.005, mid.Drawdown)

	// After the close the USDBRL position is gone from the map entirely.
	end, err := j.Replay(ctx, "run-1", tradeDay(10))
	require.NoError(t, err)
	assert.Equal(t, 3, end.Trades)
	assert.NotContains(t, end.Positions, "USDBRL")
	assert.Equal(t, 200000.0, end.Positions["DI_JAN27"])
}

func TestRunsIsolation(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.AppendTrades(ctx, "run-a", sampleTrades()[:1]))
	require.NoError(t, j.AppendTrades(ctx, "run-b", sampleTrades()[1:2]))

	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"run-a", "run-b"}, runs)

	other, err := j.Trades(ctx, "run-b")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "DI_JAN27", other[0].Instrument)
}
