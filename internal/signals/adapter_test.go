package signals_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/signals"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

func newAdapter(t *testing.T) *signals.Adapter {
	t.Helper()
	return signals.NewAdapter(zap.NewNop(), 0)
}

func TestAdaptWeightMapIdentity(t *testing.T) {
	in := types.TargetWeightMap{"USDBRL": -0.10, "DI_JAN27": 0.25}

	got, err := newAdapter(t).Adapt(signals.WeightMapOutput(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestAdaptOverlappingShortsSum(t *testing.T) {
	out := signals.SignalListOutput([]types.StrategySignal{
		{Instrument: "USDBRL", Direction: types.DirectionShort, SuggestedSize: 0.10, StrategyID: "fx-momo"},
		{Instrument: "USDBRL", Direction: types.DirectionShort, SuggestedSize: 0.05, StrategyID: "fx-carry"},
	})

	got, err := newAdapter(t).Adapt(out)
	require.NoError(t, err)
	assert.InDelta(t, -0.15, got["USDBRL"], 1e-12)
}

func TestAdaptNeutralContributesNothing(t *testing.T) {
	out := signals.SignalListOutput([]types.StrategySignal{
		{Instrument: "NTNB35", Direction: types.DirectionNeutral, SuggestedSize: 0.30},
	})

	got, err := newAdapter(t).Adapt(out)
	require.NoError(t, err)
	assert.Zero(t, got["NTNB35"])
}

func TestAdaptPositionList(t *testing.T) {
	out := signals.PositionListOutput([]signals.SizedPosition{
		{Instrument: "CDS_BRAZIL", Size: -0.08},
		{Instrument: "CDS_BRAZIL", Size: 0.03},
		{Instrument: "IBOV", Size: 0.12},
	})

	got, err := newAdapter(t).Adapt(out)
	require.NoError(t, err)
	assert.InDelta(t, -0.05, got["CDS_BRAZIL"], 1e-12)
	assert.InDelta(t, 0.12, got["IBOV"], 1e-12)
}

func TestAdaptEmptyAndNil(t *testing.T) {
	a := newAdapter(t)

	got, err := a.Adapt(signals.StrategyOutput{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = a.Adapt(signals.SignalListOutput(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAdaptNeverAmplifies(t *testing.T) {
	sigs := []types.StrategySignal{
		{Instrument: "USDBRL", Direction: types.DirectionShort, SuggestedSize: 0.10},
		{Instrument: "USDBRL", Direction: types.DirectionLong, SuggestedSize: 0.04},
		{Instrument: "DI_JAN27", Direction: types.DirectionLong, SuggestedSize: 0.20},
		{Instrument: "IBOV", Direction: types.DirectionNeutral, SuggestedSize: 0.50},
	}
	var sumAbs float64
	for _, s := range sigs {
		sumAbs += math.Abs(s.SuggestedSize)
	}

	got, err := newAdapter(t).Adapt(signals.SignalListOutput(sigs))
	require.NoError(t, err)

	var gross float64
	for _, w := range got {
		gross += math.Abs(w)
	}
	assert.LessOrEqual(t, gross, sumAbs+1e-12)
}

func TestAdaptInstrumentCap(t *testing.T) {
	a := signals.NewAdapter(zap.NewNop(), 0.10)
	out := signals.SignalListOutput([]types.StrategySignal{
		{Instrument: "USDBRL", Direction: types.DirectionShort, SuggestedSize: 0.10},
		{Instrument: "USDBRL", Direction: types.DirectionShort, SuggestedSize: 0.05},
	})

	got, err := a.Adapt(out)
	require.NoError(t, err)
	assert.InDelta(t, -0.10, got["USDBRL"], 1e-12)
}

func TestDetectUnrecognizedShape(t *testing.T) {
	type opaque struct{ Foo int }

	_, err := signals.Detect(opaque{Foo: 1})
	require.Error(t, err)

	var adaptErr *signals.AdaptationError
	assert.True(t, errors.As(err, &adaptErr), "must be a typed AdaptationError")
}

func TestDetectRecognizedShapes(t *testing.T) {
	out, err := signals.Detect(map[string]float64{"USDBRL": 0.1})
	require.NoError(t, err)
	assert.Equal(t, signals.KindWeightMap, out.Kind)

	out, err = signals.Detect([]signals.SizedPosition{{Instrument: "IBOV", Size: 0.2}})
	require.NoError(t, err)
	assert.Equal(t, signals.KindPositionList, out.Kind)

	out, err = signals.Detect([]types.StrategySignal{{Instrument: "USDBRL", Direction: types.DirectionLong, SuggestedSize: 0.1}})
	require.NoError(t, err)
	assert.Equal(t, signals.KindSignalList, out.Kind)

	out, err = signals.Detect(nil)
	require.NoError(t, err)
	assert.True(t, out.Empty())
}
