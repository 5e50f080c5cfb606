package strategies

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/signals"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

// CarryConfig tunes the FX carry strategy.
type CarryConfig struct {
	// CarryByInstrument is the annualized carry (rate differential) per pair.
	// Positive carry means being short the pair earns the differential.
	CarryByInstrument map[string]float64 `json:"carryByInstrument"`
	// MinCarry filters pairs whose carry is too thin to pay for costs.
	MinCarry float64 `json:"minCarry"`
	// GrossBudget is the total gross weight spread across qualifying pairs.
	GrossBudget float64 `json:"grossBudget"`
}

// Carry harvests FX rate differentials. It ranks pairs by carry and spreads a
// fixed gross budget across the qualifiers, weighting by carry. Emits a
// target weight map directly.
type Carry struct {
	logger *zap.Logger
	cfg    CarryConfig
}

func NewCarry(logger *zap.Logger, cfg CarryConfig) *Carry {
	if cfg.MinCarry <= 0 {
		cfg.MinCarry = 0.02
	}
	if cfg.GrossBudget <= 0 {
		cfg.GrossBudget = 0.30
	}
	return &Carry{logger: logger.Named("carry"), cfg: cfg}
}

func (c *Carry) ID() string { return "fx-carry" }

func (c *Carry) AssetClass() types.AssetClass { return types.AssetClassFX }

func (c *Carry) GenerateSignals(ctx context.Context, window types.MarketWindow) (signals.StrategyOutput, error) {
	if err := ctx.Err(); err != nil {
		return signals.StrategyOutput{}, err
	}

	type candidate struct {
		instrument string
		carry      float64
	}
	var qualifiers []candidate
	totalCarry := 0.0
	for inst, carry := range c.cfg.CarryByInstrument {
		if carry < c.cfg.MinCarry {
			continue
		}
		if _, ok := window.Price(inst); !ok {
			continue
		}
		qualifiers = append(qualifiers, candidate{instrument: inst, carry: carry})
		totalCarry += carry
	}
	if len(qualifiers) == 0 || totalCarry <= 0 {
		return signals.WeightMapOutput(types.TargetWeightMap{}), nil
	}
	sort.Slice(qualifiers, func(i, j int) bool { return qualifiers[i].instrument < qualifiers[j].instrument })

	weights := make(types.TargetWeightMap, len(qualifiers))
	for _, q := range qualifiers {
		// Short the pair to earn the differential.
		weights[q.instrument] = -c.cfg.GrossBudget * q.carry / totalCarry
	}
	return signals.WeightMapOutput(weights), nil
}
