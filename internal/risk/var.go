package risk

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// Normal loss quantiles for the two confidence levels the desk reports.
const (
	z95 = 1.6448536269514722
	z99 = 2.3263478740408408
)

// undefinedVaR is the explicit "no answer" VaR. Degenerate numerics produce
// this instead of crashing the snapshot.
func undefinedVaR() types.VaRValue {
	return types.VaRValue{Defined: false}
}

func definedVaR(fraction float64) types.VaRValue {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return undefinedVaR()
	}
	if fraction < 0 {
		fraction = 0
	}
	return types.VaRValue{Value: decimal.NewFromFloat(fraction), Defined: true}
}

// ParametricVaR computes the 95% and 99% one-day loss quantiles as fractions
// of AUM, assuming normally distributed portfolio returns. weights are
// fractions of AUM in the covariance's instrument order. A singular or
// otherwise degenerate covariance yields undefined values.
func ParametricVaR(weights []float64, cov *Covariance) (var95, var99 types.VaRValue) {
	if cov == nil || len(weights) == 0 {
		return undefinedVaR(), undefinedVaR()
	}

	variance := cov.PortfolioVariance(weights)
	if math.IsNaN(variance) || math.IsInf(variance, 0) || variance <= 0 {
		return undefinedVaR(), undefinedVaR()
	}

	sigma := math.Sqrt(variance)
	return definedVaR(z95 * sigma), definedVaR(z99 * sigma)
}

// MonteCarloVaR simulates cfg.Paths independent one-day portfolio returns
// from the covariance structure and takes empirical loss quantiles. When the
// covariance admits no Cholesky factor the paths fall back to historical
// resampling of the joint return rows, preserving cross-sectional structure.
//
// The budget is a path count, never wall clock, and every path derives its
// seed from the configured base seed, so identical inputs reproduce
// bit-identical results regardless of worker scheduling.
func MonteCarloVaR(
	weights []float64,
	cov *Covariance,
	history map[string][]float64,
	cfg types.MonteCarloConfig,
) (var95, var99 types.VaRValue) {
	if cov == nil || len(weights) == 0 || cfg.Paths <= 0 {
		return undefinedVaR(), undefinedVaR()
	}

	lower, ok := cov.Cholesky()
	var rows [][]float64
	if !ok {
		rows = historyRows(cov.Instruments, history)
		if len(rows) == 0 {
			return undefinedVaR(), undefinedVaR()
		}
	}

	losses := make([]float64, cfg.Paths)
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				rng := rand.New(rand.NewSource(cfg.Seed + int64(path)))
				var ret float64
				if ok {
					ret = simulateNormalPath(weights, lower, rng)
				} else {
					ret = resampledPath(weights, rows, rng)
				}
				losses[path] = -ret
			}
		}()
	}
	for i := 0; i < cfg.Paths; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Aggregate percentile statistics only after all paths have landed.
	sort.Float64s(losses)
	return definedVaR(quantile(losses, 0.95)), definedVaR(quantile(losses, 0.99))
}

// simulateNormalPath draws one correlated normal return vector via the
// Cholesky factor and returns the portfolio return.
func simulateNormalPath(weights []float64, lower [][]float64, rng *rand.Rand) float64 {
	n := len(weights)
	z := make([]float64, n)
	for i := range z {
		z[i] = rng.NormFloat64()
	}

	var portfolio float64
	for i := 0; i < n; i++ {
		var r float64
		for k := 0; k <= i; k++ {
			r += lower[i][k] * z[k]
		}
		portfolio += weights[i] * r
	}
	return portfolio
}

// resampledPath picks one historical joint return row at random.
func resampledPath(weights []float64, rows [][]float64, rng *rand.Rand) float64 {
	row := rows[rng.Intn(len(rows))]
	var portfolio float64
	for i, w := range weights {
		portfolio += w * row[i]
	}
	return portfolio
}

// historyRows aligns per-instrument return series into joint daily rows.
func historyRows(instruments []string, history map[string][]float64) [][]float64 {
	if len(instruments) == 0 {
		return nil
	}
	length := -1
	for _, inst := range instruments {
		s, ok := history[inst]
		if !ok || len(s) == 0 {
			return nil
		}
		if length == -1 || len(s) < length {
			length = len(s)
		}
	}

	rows := make([][]float64, length)
	for t := 0; t < length; t++ {
		row := make([]float64, len(instruments))
		for i, inst := range instruments {
			s := history[inst]
			row[i] = s[len(s)-length+t]
		}
		rows[t] = row
	}
	return rows
}

// quantile returns the q-th empirical quantile of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
