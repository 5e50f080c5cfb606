package risk

import (
	"math"

	"github.com/mcauduro0/macro-trading/internal/toolkit"
)

// Covariance is a sample covariance matrix over a fixed instrument ordering.
type Covariance struct {
	Instruments []string
	Matrix      [][]float64
}

// NewCovariance estimates the sample covariance of aligned daily return
// series. Series shorter than two observations, or of mismatched length,
// yield nil: callers treat a missing covariance as "VaR undefined", never as
// zero risk.
func NewCovariance(instruments []string, series map[string][]float64) *Covariance {
	n := len(instruments)
	if n == 0 {
		return nil
	}

	length := -1
	for _, inst := range instruments {
		s, ok := series[inst]
		if !ok || len(s) < 2 {
			return nil
		}
		if length == -1 {
			length = len(s)
		} else if len(s) != length {
			return nil
		}
	}

	means := make([]float64, n)
	for i, inst := range instruments {
		means[i] = toolkit.Mean(series[inst])
	}

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	denom := float64(length - 1)

	for i := 0; i < n; i++ {
		si := series[instruments[i]]
		for j := i; j < n; j++ {
			sj := series[instruments[j]]
			var sum float64
			for k := 0; k < length; k++ {
				sum += (si[k] - means[i]) * (sj[k] - means[j])
			}
			cov := sum / denom
			matrix[i][j] = cov
			matrix[j][i] = cov
		}
	}

	return &Covariance{Instruments: instruments, Matrix: matrix}
}

// PortfolioVariance returns wᵀΣw for a weight vector in matrix order.
func (c *Covariance) PortfolioVariance(weights []float64) float64 {
	n := len(c.Instruments)
	if len(weights) != n {
		return math.NaN()
	}
	var total float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			total += weights[i] * c.Matrix[i][j] * weights[j]
		}
	}
	return total
}

// Cholesky returns the lower-triangular factor L with LLᵀ = Σ, or false when
// the matrix is singular or not positive definite. Degenerate covariance is a
// normal condition here, not an error.
func (c *Covariance) Cholesky() ([][]float64, bool) {
	n := len(c.Instruments)
	lower := make([][]float64, n)
	for i := range lower {
		lower[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := c.Matrix[i][j]
			for k := 0; k < j; k++ {
				sum -= lower[i][k] * lower[j][k]
			}
			if i == j {
				if sum <= 1e-18 || math.IsNaN(sum) {
					return nil, false
				}
				lower[i][j] = math.Sqrt(sum)
			} else {
				lower[i][j] = sum / lower[j][j]
			}
		}
	}
	return lower, true
}
