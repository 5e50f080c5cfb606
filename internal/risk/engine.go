// Package risk computes Value-at-Risk, stress impacts, limit utilization and
// circuit-breaker scaling for live or simulated portfolio state.
package risk

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// PortfolioState is the engine's input: a point-in-time view of positions and
// the aligned return history backing the covariance estimate. Live and
// backtest callers build the same shape.
type PortfolioState struct {
	AsOf            time.Time
	Equity          decimal.Decimal
	Positions       map[string]types.Position
	Returns         map[string][]float64 // aligned daily return series, oldest first
	CurrentDrawdown float64
	MaxDrawdown     float64
	DailyLossPct    float64 // positive fraction when losing
	WeeklyLossPct   float64
}

// Engine computes risk snapshots against a fixed configuration.
type Engine struct {
	mu      sync.Mutex
	logger  *zap.Logger
	cfg     types.RiskConfig
	breaker *Breaker
}

// NewEngine validates the configuration and builds a risk engine. Invalid
// limits, scenarios or breaker ladders are ConfigErrors: a non-runnable
// setup, reported synchronously.
func NewEngine(logger *zap.Logger, cfg types.RiskConfig) (*Engine, error) {
	if err := ValidateLimits(cfg.Limits); err != nil {
		return nil, err
	}
	if err := ValidateScenarios(cfg.Scenarios); err != nil {
		return nil, err
	}
	if err := ValidateBreakerConfig(cfg.Breaker); err != nil {
		return nil, err
	}
	if cfg.MonteCarlo.Paths == 0 {
		cfg.MonteCarlo = types.DefaultMonteCarloConfig()
	}

	return &Engine{
		logger:  logger.Named("risk"),
		cfg:     cfg,
		breaker: NewBreaker(logger, cfg.Breaker),
	}, nil
}

// Snapshot computes the full risk picture for the given portfolio state.
// Degenerate numerics (singular covariance, near-zero variance) surface as
// undefined VaR values; the snapshot itself never fails on them.
func (e *Engine) Snapshot(state PortfolioState) *types.RiskSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	aum := e.cfg.AUM
	if aum.IsZero() {
		aum = state.Equity
	}

	instruments, weights := weightVector(state.Positions, aum)
	cov := NewCovariance(instruments, state.Returns)

	p95, p99 := ParametricVaR(weights, cov)
	mc95, mc99 := MonteCarloVaR(weights, cov, state.Returns, e.cfg.MonteCarlo)

	gross, net := leverage(state.Positions, aum)
	concentration := concentrationByClass(state.Positions)

	snap := &types.RiskSnapshot{
		AsOfDate:        state.AsOf,
		VaRParametric95: p95,
		VaRParametric99: p99,
		VaRMonteCarlo95: mc95,
		VaRMonteCarlo99: mc99,
		GrossLeverage:   gross,
		NetLeverage:     net,
		CurrentDrawdown: state.CurrentDrawdown,
		MaxDrawdown:     state.MaxDrawdown,
		Concentration:   concentration,
	}

	for _, scenario := range e.cfg.Scenarios {
		snap.StressTests = append(snap.StressTests, e.stressLocked(state, scenario))
	}
	sort.Slice(snap.StressTests, func(i, j int) bool {
		return snap.StressTests[i].TotalPnLImpact.LessThan(snap.StressTests[j].TotalPnLImpact)
	})

	snap.Limits = CheckLimits(e.metricsFor(state, snap, weights, instruments, aum), e.cfg.Limits)

	scale := e.breaker.Observe(state.CurrentDrawdown)
	snap.BreakerState = string(e.breaker.State())
	snap.BreakerScale = scale

	e.logger.Debug("risk snapshot computed",
		zap.Time("asOf", state.AsOf),
		zap.Float64("grossLeverage", gross),
		zap.Bool("var95Defined", p95.Defined),
	)
	return snap
}

// Stress applies one scenario to the portfolio outside a full snapshot.
func (e *Engine) Stress(state PortfolioState, scenario types.ShockScenario) (types.StressResult, error) {
	if err := ValidateScenarios([]types.ShockScenario{scenario}); err != nil {
		return types.StressResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stressLocked(state, scenario), nil
}

// Limits evaluates the configured limits against the current state without
// recomputing VaR (undefined VaR contributes zero utilization).
func (e *Engine) Limits(state PortfolioState) []types.LimitItem {
	e.mu.Lock()
	defer e.mu.Unlock()

	aum := e.cfg.AUM
	if aum.IsZero() {
		aum = state.Equity
	}
	instruments, weights := weightVector(state.Positions, aum)
	snap := &types.RiskSnapshot{Concentration: concentrationByClass(state.Positions)}
	cov := NewCovariance(instruments, state.Returns)
	snap.VaRParametric95, snap.VaRParametric99 = ParametricVaR(weights, cov)

	return CheckLimits(e.metricsFor(state, snap, weights, instruments, aum), e.cfg.Limits)
}

// Breaker exposes the engine's circuit breaker for pre-trade scaling.
func (e *Engine) Breaker() *Breaker { return e.breaker }

func (e *Engine) stressLocked(state PortfolioState, scenario types.ShockScenario) types.StressResult {
	return StressTest(state.Positions, scenario, e.cfg.DurationYears, e.cfg.VegaByInstrument)
}

// metricsFor maps limit names to their current values.
func (e *Engine) metricsFor(
	state PortfolioState,
	snap *types.RiskSnapshot,
	weights []float64,
	instruments []string,
	aum decimal.Decimal,
) map[string]float64 {
	metrics := map[string]float64{
		LimitMaxDrawdown: state.MaxDrawdown,
		LimitDailyLoss:   state.DailyLossPct,
		LimitWeeklyLoss:  state.WeeklyLossPct,
	}

	metrics[LimitVaR95] = varAsFloat(snap.VaRParametric95)
	metrics[LimitVaR99] = varAsFloat(snap.VaRParametric99)
	metrics[LimitGrossLeverage], _ = leverage(state.Positions, aum)

	var maxWeight float64
	for _, w := range weights {
		if abs := math.Abs(w); abs > maxWeight {
			maxWeight = abs
		}
	}
	metrics[LimitSingleName] = maxWeight

	var maxSector float64
	for _, share := range snap.Concentration {
		if share > maxSector {
			maxSector = share
		}
	}
	metrics[LimitSectorConcentration] = maxSector

	if len(e.cfg.DurationYears) > 0 {
		var dv float64
		for i, inst := range instruments {
			if dur, ok := e.cfg.DurationYears[inst]; ok {
				dv += math.Abs(weights[i]) * dur
			}
		}
		metrics[LimitDuration] = dv
	}
	return metrics
}

func varAsFloat(v types.VaRValue) float64 {
	if !v.Defined {
		return 0
	}
	f, _ := v.Value.Float64()
	return f
}

// weightVector converts positions into a sorted instrument list and their
// weights as fractions of AUM.
func weightVector(positions map[string]types.Position, aum decimal.Decimal) ([]string, []float64) {
	if aum.IsZero() || len(positions) == 0 {
		return nil, nil
	}

	instruments := make([]string, 0, len(positions))
	for inst := range positions {
		instruments = append(instruments, inst)
	}
	sort.Strings(instruments)

	weights := make([]float64, len(instruments))
	for i, inst := range instruments {
		w, _ := positions[inst].Notional.Div(aum).Float64()
		weights[i] = w
	}
	return instruments, weights
}

// leverage returns gross and net exposure as multiples of AUM.
func leverage(positions map[string]types.Position, aum decimal.Decimal) (gross, net float64) {
	if aum.IsZero() {
		return 0, 0
	}
	var grossNotional, netNotional decimal.Decimal
	for _, p := range positions {
		grossNotional = grossNotional.Add(p.Notional.Abs())
		netNotional = netNotional.Add(p.Notional)
	}
	gross, _ = grossNotional.Div(aum).Float64()
	net, _ = netNotional.Div(aum).Float64()
	return gross, net
}

// concentrationByClass returns each asset class's share of gross exposure.
func concentrationByClass(positions map[string]types.Position) map[types.AssetClass]float64 {
	out := make(map[types.AssetClass]float64)
	var total decimal.Decimal
	byClass := make(map[types.AssetClass]decimal.Decimal)

	for _, p := range positions {
		abs := p.Notional.Abs()
		total = total.Add(abs)
		byClass[p.AssetClass] = byClass[p.AssetClass].Add(abs)
	}
	if total.IsZero() {
		return out
	}
	for ac, notional := range byClass {
		share, _ := notional.Div(total).Float64()
		out[ac] = share
	}
	return out
}
