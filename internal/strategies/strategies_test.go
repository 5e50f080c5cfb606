package strategies_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/events"
	"github.com/mcauduro0/macro-trading/internal/signals"
	"github.com/mcauduro0/macro-trading/internal/strategies"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

func asOf() time.Time {
	return time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
}

// trendingWindow returns a window where USDBRL has rallied hard at the end of
// an otherwise gently oscillating series.
func trendingWindow() types.MarketWindow {
	history := make([]float64, 60)
	for i := range history {
		history[i] = 5.00 + 0.02*math.Sin(float64(i))
	}
	history[58] = 5.40
	history[59] = 5.55

	return types.MarketWindow{
		AsOf:    asOf(),
		History: map[string][]float64{"USDBRL": history},
		Prices:  map[string]decimal.Decimal{"USDBRL": decimal.NewFromFloat(5.55)},
	}
}

func TestMomentumFiresOnExtendedMove(t *testing.T) {
	m := strategies.NewMomentum(zap.NewNop(), strategies.MomentumConfig{
		Instruments: []string{"USDBRL", "MISSING"},
		EntryZ:      1.0,
	})

	out, err := m.GenerateSignals(context.Background(), trendingWindow())
	require.NoError(t, err)
	require.Equal(t, signals.KindSignalList, out.Kind)
	require.Len(t, out.Signals, 1)

	sig := out.Signals[0]
	assert.Equal(t, "USDBRL", sig.Instrument)
	assert.Equal(t, types.DirectionLong, sig.Direction)
	require.NotNil(t, sig.ZScore)
	assert.Greater(t, *sig.ZScore, 1.0)
	assert.Equal(t, "zscore-momentum", sig.StrategyID)
	assert.GreaterOrEqual(t, sig.Conviction, 0.0)
	assert.LessOrEqual(t, sig.Conviction, 1.0)
}

func TestMomentumQuietMarketEmitsNothing(t *testing.T) {
	history := make([]float64, 60)
	for i := range history {
		history[i] = 5.00 + 0.001*math.Sin(float64(i))
	}
	window := types.MarketWindow{
		AsOf:    asOf(),
		History: map[string][]float64{"USDBRL": history},
	}

	m := strategies.NewMomentum(zap.NewNop(), strategies.MomentumConfig{Instruments: []string{"USDBRL"}})
	out, err := m.GenerateSignals(context.Background(), window)
	require.NoError(t, err)
	assert.True(t, out.Empty(), "no move, no signal")
}

func TestCarryWeightsSumToBudget(t *testing.T) {
	c := strategies.NewCarry(zap.NewNop(), strategies.CarryConfig{
		CarryByInstrument: map[string]float64{
			"USDBRL": 0.09,
			"USDMXN": 0.06,
			"EURUSD": 0.01, // below MinCarry
		},
		MinCarry:    0.02,
		GrossBudget: 0.30,
	})

	window := types.MarketWindow{
		AsOf: asOf(),
		Prices: map[string]decimal.Decimal{
			"USDBRL": decimal.NewFromFloat(5.43),
			"USDMXN": decimal.NewFromFloat(17.1),
			"EURUSD": decimal.NewFromFloat(1.09),
		},
	}
	out, err := c.GenerateSignals(context.Background(), window)
	require.NoError(t, err)
	require.Equal(t, signals.KindWeightMap, out.Kind)

	weights := out.Weights
	require.Len(t, weights, 2)
	assert.NotContains(t, weights, "EURUSD")
	assert.InDelta(t, -0.18, weights["USDBRL"], 1e-9, "carry-weighted share of the budget")
	assert.InDelta(t, -0.12, weights["USDMXN"], 1e-9)
	assert.InDelta(t, 0.30, weights.GrossExposure(), 1e-9)
}

func TestCarrySkipsUnpricedInstruments(t *testing.T) {
	c := strategies.NewCarry(zap.NewNop(), strategies.CarryConfig{
		CarryByInstrument: map[string]float64{"USDBRL": 0.09},
	})
	out, err := c.GenerateSignals(context.Background(), types.MarketWindow{AsOf: asOf()})
	require.NoError(t, err)
	assert.True(t, out.Empty())
}

func TestEventStraddleLifecycle(t *testing.T) {
	cal := events.NewCalendar([]events.MacroEvent{
		{Name: "COPOM", Date: time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC), Instrument: "DI_JAN27"},
	})
	s := strategies.NewEventStraddle(zap.NewNop(), strategies.EventStraddleConfig{EntrySize: 0.05}, cal)

	window := func(d int) types.MarketWindow {
		return types.MarketWindow{AsOf: time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)}
	}

	// Too early: the event exists but the entry window has not opened.
	out, err := s.GenerateSignals(context.Background(), window(10))
	require.NoError(t, err)
	assert.True(t, out.Empty())

	// Inside the 5-day pre-event window.
	out, err = s.GenerateSignals(context.Background(), window(15))
	require.NoError(t, err)
	require.Equal(t, signals.KindPositionList, out.Kind)
	require.Len(t, out.Positions, 1)
	assert.Equal(t, "DI_JAN27", out.Positions[0].Instrument)
	assert.Equal(t, 0.05, out.Positions[0].Size)

	// Post-event holding with no computable z-score.
	out, err = s.GenerateSignals(context.Background(), window(19))
	require.NoError(t, err)
	require.Len(t, out.Positions, 1)

	// Max hold lapses, position comes off.
	out, err = s.GenerateSignals(context.Background(), window(28))
	require.NoError(t, err)
	assert.True(t, out.Empty())
}
