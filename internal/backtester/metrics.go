package backtester

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/mcauduro0/macro-trading/internal/toolkit"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

// MetricsCalculator derives performance statistics from an equity curve and
// trade log. Money stays decimal until the statistics boundary, where it is
// converted to float64.
type MetricsCalculator struct{}

// NewMetricsCalculator creates a metrics calculator.
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// Apply fills the statistical fields of a result in place.
func (mc *MetricsCalculator) Apply(result *types.BacktestResult, initialCapital decimal.Decimal) {
	curve := result.EquityCurve
	returns := mc.dailyReturns(curve)

	if len(curve) > 0 && !initialCapital.IsZero() {
		final := curve[len(curve)-1].Equity
		ret, _ := final.Sub(initialCapital).Div(initialCapital).Float64()
		result.TotalReturn = ret
	}

	if len(returns) > 1 {
		avg := toolkit.Mean(returns)
		if sd := toolkit.StdDev(returns); sd > 0 {
			result.SharpeRatio = avg / sd * math.Sqrt(252)
		}
		if dd := mc.downsideDeviation(returns); dd > 0 {
			result.SortinoRatio = avg / dd * math.Sqrt(252)
		}
	}

	result.MaxDrawdown = mc.maxDrawdown(curve)
	result.MonthlyReturns = mc.monthlyReturns(curve)
	mc.applyTradeStats(result)
}

// applyTradeStats computes win rate and profit factor over realized trades.
func (mc *MetricsCalculator) applyTradeStats(result *types.BacktestResult) {
	result.TotalTrades = len(result.Trades)

	var wins, realized int
	var grossProfit, grossLoss decimal.Decimal

	for _, tr := range result.Trades {
		if tr.RealizedPnL == nil {
			continue
		}
		realized++
		switch tr.RealizedPnL.Sign() {
		case 1:
			wins++
			grossProfit = grossProfit.Add(*tr.RealizedPnL)
		case -1:
			grossLoss = grossLoss.Add(tr.RealizedPnL.Abs())
		}
	}

	if realized > 0 {
		result.WinRate = float64(wins) / float64(realized)
	}
	if !grossLoss.IsZero() {
		pf, _ := grossProfit.Div(grossLoss).Float64()
		result.ProfitFactor = pf
	}
}

func (mc *MetricsCalculator) dailyReturns(curve []types.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev.IsZero() {
			continue
		}
		r, _ := curve[i].Equity.Sub(prev).Div(prev).Float64()
		returns = append(returns, r)
	}
	return returns
}

func (mc *MetricsCalculator) maxDrawdown(curve []types.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	var maxDD float64
	for _, p := range curve {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		if !peak.IsZero() {
			dd, _ := peak.Sub(p.Equity).Div(peak).Float64()
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// monthlyReturns compounds daily equity changes into "YYYY-MM" buckets.
func (mc *MetricsCalculator) monthlyReturns(curve []types.EquityPoint) map[string]float64 {
	out := make(map[string]float64)
	if len(curve) < 2 {
		return out
	}
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev.IsZero() {
			continue
		}
		r, _ := curve[i].Equity.Sub(prev).Div(prev).Float64()
		month := curve[i].Date.Format("2006-01")
		if cum, ok := out[month]; ok {
			out[month] = (1+cum)*(1+r) - 1
		} else {
			out[month] = r
		}
	}
	return out
}

func (mc *MetricsCalculator) downsideDeviation(returns []float64) float64 {
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	return toolkit.StdDev(negative)
}
