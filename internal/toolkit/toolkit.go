// Package toolkit provides the shared statistical primitives strategies build
// on: z-scores, conviction-to-size conversion and strength classification.
package toolkit

import "math"

// varianceEpsilon guards against floating-point noise producing near-infinite
// z-scores when all historical values are identical.
const varianceEpsilon = 1e-12

// DefaultMinLookback is the smallest history most desk strategies accept.
const DefaultMinLookback = 20

// ComputeZScore returns how many standard deviations value lies from the mean
// of history. The boolean is false (z-score absent) when history is shorter
// than minLookback or its sample variance is below epsilon; callers must treat
// absent as "no view", never as zero risk.
func ComputeZScore(value float64, history []float64, minLookback int) (float64, bool) {
	if minLookback <= 1 {
		minLookback = DefaultMinLookback
	}
	if len(history) < minLookback {
		return 0, false
	}

	mean := Mean(history)
	variance := sampleVariance(history, mean)
	if variance < varianceEpsilon {
		return 0, false
	}

	return (value - mean) / math.Sqrt(variance), true
}

// SizeFromConviction converts a [0,1] conviction into a position size scaled
// down when realized volatility exceeds the target. The result is clamped to
// [0,1]; volatility never amplifies a position above conviction.
func SizeFromConviction(conviction, targetVol, realizedVol float64) float64 {
	if conviction <= 0 {
		return 0
	}
	if conviction > 1 {
		conviction = 1
	}

	volScale := 1.0
	if realizedVol > 0 && targetVol > 0 {
		volScale = math.Min(1, targetVol/realizedVol)
	}

	size := conviction * volScale
	if size > 1 {
		return 1
	}
	return size
}

// Strength is an ordinal conviction tier for display. It never drives control
// flow.
type Strength string

const (
	StrengthWeak       Strength = "weak"
	StrengthModerate   Strength = "moderate"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very_strong"
)

// ClassifyStrength buckets |z| into ordinal strength tiers.
func ClassifyStrength(z float64) Strength {
	abs := math.Abs(z)
	switch {
	case abs >= 3:
		return StrengthVeryStrong
	case abs >= 2:
		return StrengthStrong
	case abs >= 1:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// Mean returns the arithmetic mean of values, zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation, zero for fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return math.Sqrt(sampleVariance(values, Mean(values)))
}

func sampleVariance(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values)-1)
}

// RealizedVol annualizes the sample standard deviation of daily returns.
func RealizedVol(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(252)
}
