// Package strategies bundles the desk's reference strategies. Each one emits
// a different output shape on purpose: the signal adapter downstream must
// handle all three, and these strategies double as its live fixtures.
package strategies

import (
	"context"

	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/signals"
	"github.com/mcauduro0/macro-trading/internal/toolkit"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

// MomentumConfig tunes the z-score momentum strategy.
type MomentumConfig struct {
	Instruments []string `json:"instruments"`
	// EntryZ is the absolute z-score beyond which a signal fires.
	EntryZ float64 `json:"entryZ"`
	// TargetVol scales conviction into size against realized vol.
	TargetVol   float64 `json:"targetVol"`
	MinLookback int     `json:"minLookback"`
}

// Momentum trades price momentum: an instrument whose latest close sits far
// from its rolling mean gets a signal in the direction of the move. Emits a
// signal list.
type Momentum struct {
	logger *zap.Logger
	cfg    MomentumConfig
}

func NewMomentum(logger *zap.Logger, cfg MomentumConfig) *Momentum {
	if cfg.EntryZ <= 0 {
		cfg.EntryZ = 1.0
	}
	if cfg.TargetVol <= 0 {
		cfg.TargetVol = 0.10
	}
	if cfg.MinLookback <= 0 {
		cfg.MinLookback = toolkit.DefaultMinLookback
	}
	return &Momentum{logger: logger.Named("momentum"), cfg: cfg}
}

func (m *Momentum) ID() string { return "zscore-momentum" }

func (m *Momentum) AssetClass() types.AssetClass { return types.AssetClassCrossAsset }

func (m *Momentum) GenerateSignals(ctx context.Context, window types.MarketWindow) (signals.StrategyOutput, error) {
	var out []types.StrategySignal
	for _, inst := range m.cfg.Instruments {
		if err := ctx.Err(); err != nil {
			return signals.StrategyOutput{}, err
		}
		history, ok := window.History[inst]
		if !ok || len(history) == 0 {
			continue
		}
		latest := history[len(history)-1]
		z, ok := toolkit.ComputeZScore(latest, history, m.cfg.MinLookback)
		if !ok {
			// Insufficient or flat history; skip rather than fabricate.
			continue
		}
		if z > -m.cfg.EntryZ && z < m.cfg.EntryZ {
			continue
		}

		direction := types.DirectionLong
		if z < 0 {
			direction = types.DirectionShort
		}
		conviction := convictionFromZ(z, m.cfg.EntryZ)
		size := toolkit.SizeFromConviction(conviction, m.cfg.TargetVol, realizedVolOf(history))

		zCopy := z
		out = append(out, types.StrategySignal{
			Instrument:    inst,
			Direction:     direction,
			ZScore:        &zCopy,
			Conviction:    conviction,
			SuggestedSize: size,
			StrategyID:    m.ID(),
			AssetClass:    m.AssetClass(),
			AsOfDate:      window.AsOf,
		})
	}
	return signals.SignalListOutput(out), nil
}

// convictionFromZ maps |z| into [0,1], saturating at 3 standard deviations.
func convictionFromZ(z, entry float64) float64 {
	abs := z
	if abs < 0 {
		abs = -abs
	}
	c := (abs - entry) / (3 - entry)
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

func realizedVolOf(history []float64) float64 {
	if len(history) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		if history[i-1] == 0 {
			continue
		}
		returns = append(returns, history[i]/history[i-1]-1)
	}
	return toolkit.RealizedVol(returns)
}
