// Package signals normalizes heterogeneous strategy outputs into canonical
// target-weight maps.
package signals

import (
	"fmt"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// OutputKind tags the recognized strategy output shapes.
type OutputKind string

const (
	KindNone         OutputKind = ""
	KindWeightMap    OutputKind = "weight_map"
	KindPositionList OutputKind = "position_list"
	KindSignalList   OutputKind = "signal_list"
)

// SizedPosition is the legacy position shape: an instrument plus a signed size.
type SizedPosition struct {
	Instrument string  `json:"instrument"`
	Size       float64 `json:"size"` // signed fraction of equity
}

// StrategyOutput is the tagged variant a strategy hands back from signal
// generation. Exactly one of the payload fields is set, matching Kind. It is
// constructed once at the strategy boundary so the adapter dispatches on an
// explicit tag instead of probing attributes downstream.
type StrategyOutput struct {
	Kind      OutputKind
	Weights   types.TargetWeightMap
	Positions []SizedPosition
	Signals   []types.StrategySignal
}

// WeightMapOutput wraps a direct instrument->weight mapping.
func WeightMapOutput(w types.TargetWeightMap) StrategyOutput {
	return StrategyOutput{Kind: KindWeightMap, Weights: w}
}

// PositionListOutput wraps a legacy list of sized positions.
func PositionListOutput(p []SizedPosition) StrategyOutput {
	return StrategyOutput{Kind: KindPositionList, Positions: p}
}

// SignalListOutput wraps a list of strategy signals.
func SignalListOutput(s []types.StrategySignal) StrategyOutput {
	return StrategyOutput{Kind: KindSignalList, Signals: s}
}

// Empty reports whether the output carries no exposure at all. An empty output
// is zero trades, not an error.
func (o StrategyOutput) Empty() bool {
	switch o.Kind {
	case KindWeightMap:
		return len(o.Weights) == 0
	case KindPositionList:
		return len(o.Positions) == 0
	case KindSignalList:
		return len(o.Signals) == 0
	default:
		return true
	}
}

// Detect performs structural capability detection on a loosely-typed strategy
// output, constructing the tagged variant at the boundary. It checks for the
// capabilities a shape requires, not concrete types registered in advance, so
// new conforming shapes keep working. nil yields an empty output; anything
// unrecognized is an AdaptationError that must reach the caller.
func Detect(v any) (StrategyOutput, error) {
	switch out := v.(type) {
	case nil:
		return StrategyOutput{}, nil
	case StrategyOutput:
		return out, nil
	case types.TargetWeightMap:
		return WeightMapOutput(out), nil
	case map[string]float64:
		return WeightMapOutput(types.TargetWeightMap(out)), nil
	case []SizedPosition:
		return PositionListOutput(out), nil
	case []types.StrategySignal:
		return SignalListOutput(out), nil
	case []*types.StrategySignal:
		sigs := make([]types.StrategySignal, 0, len(out))
		for _, s := range out {
			if s != nil {
				sigs = append(sigs, *s)
			}
		}
		return SignalListOutput(sigs), nil
	default:
		return StrategyOutput{}, &AdaptationError{
			Reason: fmt.Sprintf("output of type %T matches no recognized shape", v),
		}
	}
}
