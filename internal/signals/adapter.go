package signals

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// AdaptationError means a strategy produced something that matches no
// recognized shape. It is a structural integration bug and must propagate to
// the caller; absorbing it has previously masked a total backtesting outage.
type AdaptationError struct {
	StrategyID string
	Reason     string
}

func (e *AdaptationError) Error() string {
	if e.StrategyID == "" {
		return fmt.Sprintf("signal adaptation failed: %s", e.Reason)
	}
	return fmt.Sprintf("signal adaptation failed for strategy %s: %s", e.StrategyID, e.Reason)
}

// Adapter converts tagged strategy outputs into target weight maps.
type Adapter struct {
	logger *zap.Logger
	// maxInstrumentWeight caps the summed overlay weight per instrument.
	// Zero disables the cap.
	maxInstrumentWeight float64
}

// NewAdapter creates a signal adapter.
func NewAdapter(logger *zap.Logger, maxInstrumentWeight float64) *Adapter {
	return &Adapter{
		logger:              logger.Named("signal-adapter"),
		maxInstrumentWeight: maxInstrumentWeight,
	}
}

// Adapt normalizes a strategy output into a target weight map.
//
// A direct weight map passes through unchanged. Position and signal lists are
// converted by mapping direction to sign and multiplying by the suggested
// size. Multiple signals on the same instrument are summed: independent
// strategies stack their conviction-weighted exposure rather than one
// overwriting another. An empty output yields an empty map.
//
// The adapted map never amplifies: the absolute weight per instrument is
// bounded by the sum of absolute input sizes that produced it.
func (a *Adapter) Adapt(out StrategyOutput) (types.TargetWeightMap, error) {
	if out.Empty() {
		return types.TargetWeightMap{}, nil
	}

	var weights types.TargetWeightMap

	switch out.Kind {
	case KindWeightMap:
		// Identity: copy so callers cannot alias the strategy's map.
		weights = make(types.TargetWeightMap, len(out.Weights))
		for inst, w := range out.Weights {
			weights[inst] = w
		}

	case KindPositionList:
		weights = make(types.TargetWeightMap, len(out.Positions))
		for _, p := range out.Positions {
			if p.Instrument == "" {
				return nil, &AdaptationError{Reason: "position entry missing instrument"}
			}
			weights[p.Instrument] += p.Size
		}

	case KindSignalList:
		weights = make(types.TargetWeightMap, len(out.Signals))
		for _, s := range out.Signals {
			if s.Instrument == "" {
				return nil, &AdaptationError{StrategyID: s.StrategyID, Reason: "signal missing instrument"}
			}
			weights[s.Instrument] += s.Direction.Sign() * s.SuggestedSize
		}

	default:
		return nil, &AdaptationError{Reason: fmt.Sprintf("unrecognized output kind %q", out.Kind)}
	}

	a.applyCap(weights)
	return weights, nil
}

// applyCap clips each summed weight to the configured per-instrument cap.
func (a *Adapter) applyCap(weights types.TargetWeightMap) {
	if a.maxInstrumentWeight <= 0 {
		return
	}
	for inst, w := range weights {
		if w > a.maxInstrumentWeight {
			a.logger.Debug("capping instrument weight",
				zap.String("instrument", inst),
				zap.Float64("raw", w),
				zap.Float64("cap", a.maxInstrumentWeight),
			)
			weights[inst] = a.maxInstrumentWeight
		} else if w < -a.maxInstrumentWeight {
			a.logger.Debug("capping instrument weight",
				zap.String("instrument", inst),
				zap.Float64("raw", w),
				zap.Float64("cap", -a.maxInstrumentWeight),
			)
			weights[inst] = -a.maxInstrumentWeight
		}
	}
}
