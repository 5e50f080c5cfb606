package backtester_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mcauduro0/macro-trading/internal/backtester"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

func equityCurve(values ...float64) []types.EquityPoint {
	curve := make([]types.EquityPoint, len(values))
	for i, v := range values {
		curve[i] = types.EquityPoint{Date: day(2 + i), Equity: decimal.NewFromFloat(v)}
	}
	return curve
}

func TestMetricsTotalReturnAndDrawdown(t *testing.T) {
	mc := backtester.NewMetricsCalculator()
	result := &types.BacktestResult{
		EquityCurve: equityCurve(1_000_000, 1_020_000, 990_000, 1_050_000),
	}

	mc.Apply(result, decimal.NewFromInt(1_000_000))

	assert.InDelta(t, 0.05, result.TotalReturn, 1e-12)
	// Peak 1.02mm to trough 0.99mm.
	assert.InDelta(t, 30_000.0/1_020_000, result.MaxDrawdown, 1e-12)
	assert.NotZero(t, result.SharpeRatio)

	monthly := result.MonthlyReturns["2026-01"]
	assert.InDelta(t, 0.05, monthly, 1e-9, "compounded daily returns recover the period return")
}

func TestMetricsTradeStats(t *testing.T) {
	mc := backtester.NewMetricsCalculator()
	win := decimal.NewFromInt(3_000)
	loss := decimal.NewFromInt(-1_000)
	result := &types.BacktestResult{
		Trades: []types.TradeLogEntry{
			{ID: "t1", Action: types.TradeActionOpen}, // unrealized, excluded
			{ID: "t2", Action: types.TradeActionClose, RealizedPnL: &win},
			{ID: "t3", Action: types.TradeActionClose, RealizedPnL: &loss},
		},
	}

	mc.Apply(result, decimal.NewFromInt(1_000_000))

	assert.Equal(t, 3, result.TotalTrades)
	assert.InDelta(t, 0.5, result.WinRate, 1e-12, "win rate over realized entries only")
	assert.InDelta(t, 3.0, result.ProfitFactor, 1e-12)
}

func TestMetricsDegenerateInputs(t *testing.T) {
	mc := backtester.NewMetricsCalculator()

	empty := &types.BacktestResult{}
	mc.Apply(empty, decimal.NewFromInt(1_000_000))
	assert.Zero(t, empty.TotalReturn)
	assert.Zero(t, empty.SharpeRatio)
	assert.Zero(t, empty.MaxDrawdown)

	flat := &types.BacktestResult{EquityCurve: equityCurve(1_000_000, 1_000_000, 1_000_000)}
	mc.Apply(flat, decimal.NewFromInt(1_000_000))
	assert.Zero(t, flat.SharpeRatio, "zero-variance curve must not divide by zero")
}
