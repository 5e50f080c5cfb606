package risk_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcauduro0/macro-trading/internal/risk"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

// twoAssetReturns builds two noisy but non-degenerate return series.
func twoAssetReturns(n int) map[string][]float64 {
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		// Deterministic pseudo-noise; enough variance for a PD covariance.
		a[i] = 0.01 * math.Sin(float64(i)*1.7)
		b[i] = 0.008*math.Cos(float64(i)*0.9) + 0.002*math.Sin(float64(i)*3.1)
	}
	return map[string][]float64{"DI_JAN27": a, "USDBRL": b}
}

func TestParametricVaROrdering(t *testing.T) {
	returns := twoAssetReturns(120)
	cov := risk.NewCovariance([]string{"DI_JAN27", "USDBRL"}, returns)
	require.NotNil(t, cov)

	v95, v99 := risk.ParametricVaR([]float64{0.5, -0.3}, cov)
	require.True(t, v95.Defined)
	require.True(t, v99.Defined)
	assert.True(t, v99.Value.GreaterThan(v95.Value), "99%% VaR must exceed 95%% VaR")
	assert.True(t, v95.Value.IsPositive(), "VaR must be positive")
}

func TestParametricVaRSingularCovariance(t *testing.T) {
	// Identical constant series produce a zero covariance matrix.
	flat := make([]float64, 60)
	returns := map[string][]float64{"A": flat, "B": flat}
	cov := risk.NewCovariance([]string{"A", "B"}, returns)
	require.NotNil(t, cov)

	v95, v99 := risk.ParametricVaR([]float64{0.5, 0.5}, cov)
	assert.False(t, v95.Defined, "singular covariance must yield undefined VaR, not a crash")
	assert.False(t, v99.Defined)
}

func TestParametricVaRNoPositions(t *testing.T) {
	v95, v99 := risk.ParametricVaR(nil, nil)
	assert.False(t, v95.Defined)
	assert.False(t, v99.Defined)
}

func TestMonteCarloVaRDeterministicUnderSeed(t *testing.T) {
	returns := twoAssetReturns(120)
	cov := risk.NewCovariance([]string{"DI_JAN27", "USDBRL"}, returns)
	require.NotNil(t, cov)

	cfg := types.MonteCarloConfig{Paths: 2000, Seed: 7, Workers: 4}
	a95, a99 := risk.MonteCarloVaR([]float64{0.4, -0.2}, cov, returns, cfg)
	b95, b99 := risk.MonteCarloVaR([]float64{0.4, -0.2}, cov, returns, cfg)

	require.True(t, a95.Defined)
	assert.True(t, a95.Value.Equal(b95.Value), "same seed must reproduce bit-identical VaR")
	assert.True(t, a99.Value.Equal(b99.Value))

	// Worker count must not change the answer either.
	c95, _ := risk.MonteCarloVaR([]float64{0.4, -0.2}, cov, returns, types.MonteCarloConfig{Paths: 2000, Seed: 7, Workers: 1})
	assert.True(t, a95.Value.Equal(c95.Value))
}

func TestMonteCarloVaRFallsBackToResampling(t *testing.T) {
	// Perfectly correlated series: covariance is singular, Cholesky fails,
	// historical resampling must still produce a defined answer.
	n := 90
	a := make([]float64, n)
	for i := range a {
		a[i] = 0.01 * math.Sin(float64(i))
	}
	returns := map[string][]float64{"A": a, "B": a}
	cov := risk.NewCovariance([]string{"A", "B"}, returns)
	require.NotNil(t, cov)

	_, ok := cov.Cholesky()
	require.False(t, ok)

	v95, v99 := risk.MonteCarloVaR([]float64{0.3, 0.3}, cov, returns, types.MonteCarloConfig{Paths: 500, Seed: 3, Workers: 2})
	assert.True(t, v95.Defined)
	assert.True(t, v99.Defined)
}

func TestCovarianceRejectsShortOrMisalignedSeries(t *testing.T) {
	assert.Nil(t, risk.NewCovariance([]string{"A"}, map[string][]float64{"A": {0.01}}))
	assert.Nil(t, risk.NewCovariance([]string{"A", "B"}, map[string][]float64{
		"A": {0.01, 0.02, 0.03},
		"B": {0.01, 0.02},
	}))
	assert.Nil(t, risk.NewCovariance([]string{"A", "B"}, map[string][]float64{
		"A": {0.01, 0.02, 0.03},
	}))
}
