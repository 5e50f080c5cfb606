// Package attribution provides read-only P&L decomposition, rolling metrics
// and benchmark comparison over immutable trade and equity history. Nothing
// here mutates state; everything is recomputed on demand.
package attribution

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mcauduro0/macro-trading/internal/toolkit"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

// Standard rolling windows in trading days.
const (
	WindowOneMonth    = 21
	WindowThreeMonths = 63
)

// PnLBreakdown decomposes realized P&L along one dimension.
type PnLBreakdown struct {
	Dimension string                     `json:"dimension"`
	Buckets   map[string]decimal.Decimal `json:"buckets"`
}

// RollingPoint is one observation of a rolling statistic.
type RollingPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// BenchmarkComparison reports portfolio performance against a benchmark
// return series.
type BenchmarkComparison struct {
	Alpha            float64 `json:"alpha"`            // cumulative portfolio minus benchmark return
	TrackingError    float64 `json:"trackingError"`    // annualized std of daily differences
	InformationRatio float64 `json:"informationRatio"` // alpha / tracking error
}

// ByStrategy decomposes realized P&L by contributing strategy. Entries with
// several contributing strategies split the realized amount equally between
// them, matching the overlay semantics under which they were opened.
func ByStrategy(trades []types.TradeLogEntry) PnLBreakdown {
	buckets := make(map[string]decimal.Decimal)
	for _, tr := range trades {
		if tr.RealizedPnL == nil {
			continue
		}
		ids := tr.StrategyIDs
		if len(ids) == 0 {
			ids = []string{"unattributed"}
		}
		share := tr.RealizedPnL.Div(decimal.NewFromInt(int64(len(ids))))
		for _, id := range ids {
			buckets[id] = buckets[id].Add(share)
		}
	}
	return PnLBreakdown{Dimension: "strategy", Buckets: buckets}
}

// ByInstrument decomposes realized P&L by instrument.
func ByInstrument(trades []types.TradeLogEntry) PnLBreakdown {
	buckets := make(map[string]decimal.Decimal)
	for _, tr := range trades {
		if tr.RealizedPnL == nil {
			continue
		}
		buckets[tr.Instrument] = buckets[tr.Instrument].Add(*tr.RealizedPnL)
	}
	return PnLBreakdown{Dimension: "instrument", Buckets: buckets}
}

// ByAssetClass decomposes realized P&L by asset class, resolving instruments
// through the provided mapping.
func ByAssetClass(trades []types.TradeLogEntry, classes map[string]types.AssetClass) PnLBreakdown {
	buckets := make(map[string]decimal.Decimal)
	for _, tr := range trades {
		if tr.RealizedPnL == nil {
			continue
		}
		key := string(classes[tr.Instrument])
		if key == "" {
			key = "unclassified"
		}
		buckets[key] = buckets[key].Add(*tr.RealizedPnL)
	}
	return PnLBreakdown{Dimension: "asset_class", Buckets: buckets}
}

// ByMonth decomposes realized P&L into YYYY-MM buckets.
func ByMonth(trades []types.TradeLogEntry) PnLBreakdown {
	buckets := make(map[string]decimal.Decimal)
	for _, tr := range trades {
		if tr.RealizedPnL == nil {
			continue
		}
		key := tr.Date.Format("2006-01")
		buckets[key] = buckets[key].Add(*tr.RealizedPnL)
	}
	return PnLBreakdown{Dimension: "month", Buckets: buckets}
}

// DailyReturns converts an equity curve into a daily return series.
func DailyReturns(curve []types.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev.IsZero() {
			continue
		}
		r, _ := curve[i].Equity.Sub(prev).Div(prev).Float64()
		out = append(out, r)
	}
	return out
}

// RollingSharpe computes the annualized Sharpe ratio over a fixed window of
// the daily return series.
func RollingSharpe(curve []types.EquityPoint, window int) []RollingPoint {
	return rolling(curve, window, func(slice []float64) float64 {
		sd := toolkit.StdDev(slice)
		if sd == 0 {
			return 0
		}
		return toolkit.Mean(slice) / sd * math.Sqrt(252)
	})
}

// RollingVolatility computes annualized volatility over a fixed window.
func RollingVolatility(curve []types.EquityPoint, window int) []RollingPoint {
	return rolling(curve, window, func(slice []float64) float64 {
		return toolkit.StdDev(slice) * math.Sqrt(252)
	})
}

// RollingReturn computes the compounded return over a fixed window.
func RollingReturn(curve []types.EquityPoint, window int) []RollingPoint {
	return rolling(curve, window, func(slice []float64) float64 {
		cum := 1.0
		for _, r := range slice {
			cum *= 1 + r
		}
		return cum - 1
	})
}

func rolling(curve []types.EquityPoint, window int, fn func([]float64) float64) []RollingPoint {
	returns := DailyReturns(curve)
	if window < 2 || len(returns) < window {
		return nil
	}

	out := make([]RollingPoint, 0, len(returns)-window+1)
	for i := window; i <= len(returns); i++ {
		// curve index i aligns with the return ending at that date.
		out = append(out, RollingPoint{
			Date:  curve[i].Date.Format("2006-01-02"),
			Value: fn(returns[i-window : i]),
		})
	}
	return out
}

// CompareToBenchmark computes alpha, tracking error and information ratio of
// the portfolio daily returns against an aligned benchmark series. Series are
// truncated to the shorter length.
func CompareToBenchmark(portfolio, benchmark []float64) BenchmarkComparison {
	n := len(portfolio)
	if len(benchmark) < n {
		n = len(benchmark)
	}
	if n == 0 {
		return BenchmarkComparison{}
	}

	cumP, cumB := 1.0, 1.0
	diffs := make([]float64, n)
	for i := 0; i < n; i++ {
		cumP *= 1 + portfolio[i]
		cumB *= 1 + benchmark[i]
		diffs[i] = portfolio[i] - benchmark[i]
	}

	cmp := BenchmarkComparison{
		Alpha:         (cumP - 1) - (cumB - 1),
		TrackingError: toolkit.StdDev(diffs) * math.Sqrt(252),
	}
	if cmp.TrackingError > 0 {
		cmp.InformationRatio = cmp.Alpha / cmp.TrackingError
	}
	return cmp
}

// TopContributors returns the k best and worst buckets of a breakdown,
// each sorted by realized P&L.
func TopContributors(b PnLBreakdown, k int) (best, worst []string) {
	names := make([]string, 0, len(b.Buckets))
	for name := range b.Buckets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return b.Buckets[names[i]].GreaterThan(b.Buckets[names[j]])
	})

	if k > len(names) {
		k = len(names)
	}
	best = names[:k]
	worst = make([]string, 0, k)
	for i := len(names) - 1; i >= len(names)-k; i-- {
		worst = append(worst, names[i])
	}
	return best, worst
}
