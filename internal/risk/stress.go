package risk

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// StressTest applies a named shock vector to the current positions and
// returns per-position and aggregate P&L impact, sorted most negative first.
//
// Shock mapping by asset class: FX, equity and cross-asset books take the
// percentage spot moves directly on notional; rates and inflation books take
// the bp shift through duration; credit takes the spread shift through
// duration; the implied-vol shock hits instruments with a configured vega.
func StressTest(
	positions map[string]types.Position,
	scenario types.ShockScenario,
	durations map[string]float64,
	vegas map[string]float64,
) types.StressResult {
	result := types.StressResult{ScenarioName: scenario.Name}

	for _, pos := range positions {
		impact := positionImpact(pos, scenario, durations, vegas)
		result.PositionsImpact = append(result.PositionsImpact, types.StressImpact{
			Instrument: pos.Instrument,
			AssetClass: pos.AssetClass,
			PnLImpact:  impact,
		})
		result.TotalPnLImpact = result.TotalPnLImpact.Add(impact)
	}

	sort.Slice(result.PositionsImpact, func(i, j int) bool {
		a, b := result.PositionsImpact[i], result.PositionsImpact[j]
		if !a.PnLImpact.Equal(b.PnLImpact) {
			return a.PnLImpact.LessThan(b.PnLImpact)
		}
		return a.Instrument < b.Instrument
	})
	return result
}

func positionImpact(
	pos types.Position,
	scenario types.ShockScenario,
	durations map[string]float64,
	vegas map[string]float64,
) decimal.Decimal {
	var impact decimal.Decimal

	switch pos.AssetClass {
	case types.AssetClassFX:
		impact = pos.Notional.Mul(decimal.NewFromFloat(scenario.FXPct))
	case types.AssetClassEquity, types.AssetClassCrossAsset:
		impact = pos.Notional.Mul(decimal.NewFromFloat(scenario.EquityPct))
	case types.AssetClassRates, types.AssetClassInflation:
		// A rate rise loses money for a long-duration (received) position.
		dur := durations[pos.Instrument]
		impact = pos.Notional.Mul(decimal.NewFromFloat(-dur * scenario.RateBps / 10000))
	case types.AssetClassCredit:
		dur := durations[pos.Instrument]
		impact = pos.Notional.Mul(decimal.NewFromFloat(-dur * scenario.CreditBps / 10000))
	}

	if vega, ok := vegas[pos.Instrument]; ok && scenario.ImpliedVolPct != 0 {
		volImpact := pos.Notional.Abs().Mul(decimal.NewFromFloat(vega * scenario.ImpliedVolPct))
		impact = impact.Add(volImpact)
	}
	return impact
}

// ValidateScenarios rejects shock vectors with non-finite members before a
// run starts.
func ValidateScenarios(scenarios []types.ShockScenario) error {
	for _, s := range scenarios {
		if s.Name == "" {
			return &types.ConfigError{Field: "scenarios", Reason: "scenario missing name"}
		}
		for _, v := range []float64{s.FXPct, s.RateBps, s.EquityPct, s.CreditBps, s.ImpliedVolPct} {
			if v != v || v > 1e9 || v < -1e9 {
				return &types.ConfigError{Field: "scenarios." + s.Name, Reason: "shock member out of range"}
			}
		}
	}
	return nil
}
