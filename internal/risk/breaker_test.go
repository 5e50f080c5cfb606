package risk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/risk"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

func testBreakerConfig(confirm int) types.BreakerConfig {
	return types.BreakerConfig{
		Steps: []types.BreakerStep{
			{DrawdownAt: 0.02, Scale: 0.6},
			{DrawdownAt: 0.05, Scale: 0.2},
		},
		ConfirmObservations: confirm,
	}
}

func TestBreakerScaleNonIncreasing(t *testing.T) {
	b := risk.NewBreaker(zap.NewNop(), testBreakerConfig(1))

	s1 := b.ScaleFor(0.01)
	s3 := b.ScaleFor(0.03)
	s6 := b.ScaleFor(0.06)

	assert.Equal(t, 1.0, s1)
	assert.Equal(t, 0.6, s3)
	assert.Equal(t, 0.2, s6)
	assert.GreaterOrEqual(t, s1, s3)
	assert.GreaterOrEqual(t, s3, s6)
}

func TestBreakerHysteresis(t *testing.T) {
	b := risk.NewBreaker(zap.NewNop(), testBreakerConfig(2))

	// First qualifying observation must not transition yet.
	assert.Equal(t, 1.0, b.Observe(0.03))
	assert.Equal(t, risk.BreakerNormal, b.State())

	// Second consecutive observation confirms.
	assert.Equal(t, 0.6, b.Observe(0.03))
	assert.Equal(t, risk.BreakerWarning, b.State())

	// A single recovering day does not flip back.
	assert.Equal(t, 0.6, b.Observe(0.0))
	assert.Equal(t, risk.BreakerWarning, b.State())

	// Two consecutive recoveries restore normal.
	assert.Equal(t, 1.0, b.Observe(0.0))
	assert.Equal(t, risk.BreakerNormal, b.State())
}

func TestBreakerNoiseDoesNotThrash(t *testing.T) {
	b := risk.NewBreaker(zap.NewNop(), testBreakerConfig(3))

	// Alternating observations never confirm anything.
	for i := 0; i < 10; i++ {
		b.Observe(0.03)
		b.Observe(0.0)
	}
	assert.Equal(t, risk.BreakerNormal, b.State())
	assert.Equal(t, 1.0, b.Scale())
}

func TestValidateBreakerConfigRejectsIncreasingScale(t *testing.T) {
	bad := types.BreakerConfig{
		Steps: []types.BreakerStep{
			{DrawdownAt: 0.02, Scale: 0.3},
			{DrawdownAt: 0.05, Scale: 0.8},
		},
	}
	err := risk.ValidateBreakerConfig(bad)
	require.Error(t, err)

	var cfgErr *types.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
