package risk_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/risk"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

func TestClassifyBoundaries(t *testing.T) {
	cfg := types.LimitConfig{Name: "var_95", Threshold: 0.02}

	tests := []struct {
		utilization float64
		want        types.Severity
	}{
		{0, types.SeverityOK},
		{79.9, types.SeverityOK},
		{80.0, types.SeverityWarning}, // inclusive lower bound
		{99.99, types.SeverityWarning},
		{100.0, types.SeverityBreach}, // inclusive lower bound
		{140.0, types.SeverityBreach},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, risk.Classify(tt.utilization, cfg), "utilization %.2f", tt.utilization)
	}
}

func TestClassifyCustomBounds(t *testing.T) {
	cfg := types.LimitConfig{Name: "gross_leverage", Threshold: 3, WarningAtPct: 60, BreachAtPct: 90}

	assert.Equal(t, types.SeverityOK, risk.Classify(59.9, cfg))
	assert.Equal(t, types.SeverityWarning, risk.Classify(60, cfg))
	assert.Equal(t, types.SeverityBreach, risk.Classify(90, cfg))
}

func TestCheckLimitsUtilization(t *testing.T) {
	limits := []types.LimitConfig{
		{Name: risk.LimitVaR95, Threshold: 0.02},
		{Name: risk.LimitGrossLeverage, Threshold: 3},
		{Name: risk.LimitDailyLoss, Threshold: 0.01},
	}
	metrics := map[string]float64{
		risk.LimitVaR95:         0.016,
		risk.LimitGrossLeverage: 3.3,
	}

	items := risk.CheckLimits(metrics, limits)
	require.Len(t, items, 3)

	byName := map[string]types.LimitItem{}
	for _, it := range items {
		byName[it.Name] = it
	}

	assert.InDelta(t, 80.0, byName[risk.LimitVaR95].Utilization, 1e-9)
	assert.Equal(t, types.SeverityWarning, byName[risk.LimitVaR95].Severity)

	assert.InDelta(t, 110.0, byName[risk.LimitGrossLeverage].Utilization, 1e-9)
	assert.Equal(t, types.SeverityBreach, byName[risk.LimitGrossLeverage].Severity)

	// A limit with no metric feed shows zero utilization, not absence.
	assert.Zero(t, byName[risk.LimitDailyLoss].Utilization)
	assert.Equal(t, types.SeverityOK, byName[risk.LimitDailyLoss].Severity)
}

func TestValidateLimits(t *testing.T) {
	err := risk.ValidateLimits([]types.LimitConfig{{Name: "", Threshold: 1}})
	require.Error(t, err)

	err = risk.ValidateLimits([]types.LimitConfig{{Name: "x", Threshold: 0}})
	require.Error(t, err)

	err = risk.ValidateLimits([]types.LimitConfig{{Name: "x", Threshold: 1, WarningAtPct: 100, BreachAtPct: 90}})
	require.Error(t, err)

	err = risk.ValidateLimits([]types.LimitConfig{{Name: "x", Threshold: 1}})
	require.NoError(t, err)
}

func TestEngineSnapshotStress(t *testing.T) {
	cfg := types.RiskConfig{
		AUM: decimal.NewFromInt(10_000_000),
		Limits: []types.LimitConfig{
			{Name: risk.LimitGrossLeverage, Threshold: 3},
		},
		Scenarios: []types.ShockScenario{
			{Name: "brl_selloff", FXPct: -0.08, RateBps: 150},
			{Name: "mild_rally", FXPct: 0.02},
		},
		MonteCarlo:    types.MonteCarloConfig{Paths: 200, Seed: 1, Workers: 2},
		DurationYears: map[string]float64{"DI_JAN27": 3.5},
	}
	engine, err := risk.NewEngine(zap.NewNop(), cfg)
	require.NoError(t, err)

	state := risk.PortfolioState{
		Equity: decimal.NewFromInt(10_000_000),
		Positions: map[string]types.Position{
			"USDBRL": {
				Instrument: "USDBRL",
				AssetClass: types.AssetClassFX,
				Notional:   decimal.NewFromInt(-1_500_000),
			},
			"DI_JAN27": {
				Instrument: "DI_JAN27",
				AssetClass: types.AssetClassRates,
				Notional:   decimal.NewFromInt(2_000_000),
			},
		},
		Returns: twoAssetReturns(120),
	}

	snap := engine.Snapshot(state)
	require.NotNil(t, snap)

	// Short 1.5mm USDBRL gains on an 8% sell-off; long DI loses on +150bp.
	var selloff types.StressResult
	for _, st := range snap.StressTests {
		if st.ScenarioName == "brl_selloff" {
			selloff = st
		}
	}
	require.NotEmpty(t, selloff.ScenarioName)

	fxGain := decimal.NewFromInt(120_000)             // -1.5mm * -0.08
	rateLoss := decimal.NewFromFloat(-105_000)        // 2mm * -3.5 * 150/10000
	assert.True(t, selloff.TotalPnLImpact.Equal(fxGain.Add(rateLoss)), "got %s", selloff.TotalPnLImpact)

	// Positions impact sorted most negative first.
	require.Len(t, selloff.PositionsImpact, 2)
	assert.Equal(t, "DI_JAN27", selloff.PositionsImpact[0].Instrument)

	// Gross leverage 3.5mm / 10mm = 0.35 → 11.67% of a 3x limit.
	require.NotEmpty(t, snap.Limits)
	assert.Equal(t, types.SeverityOK, snap.Limits[0].Severity)

	assert.InDelta(t, 0.35, snap.GrossLeverage, 1e-9)
	assert.InDelta(t, 0.05, snap.NetLeverage, 1e-9)
	assert.InDelta(t, 1.0, snap.BreakerScale, 1e-9)
}
