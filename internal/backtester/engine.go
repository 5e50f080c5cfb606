// Package backtester drives the date-stepped portfolio simulation.
package backtester

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/registry"
	"github.com/mcauduro0/macro-trading/internal/risk"
	"github.com/mcauduro0/macro-trading/internal/signals"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

// DataProvider assembles the pre-batched market data for a run. All fetching
// happens before the simulation loop; the per-date step does no I/O.
type DataProvider interface {
	LoadDataSet(ctx context.Context, start, end time.Time) (*types.MarketDataSet, error)
}

// Engine runs backtests. One engine can run many backtests, but each run owns
// an isolated portfolio book; independent runs are safe to execute in
// parallel from separate engines or goroutines.
type Engine struct {
	logger   *zap.Logger
	registry *registry.Registry
	data     DataProvider
	metrics  *MetricsCalculator
	running  atomic.Bool
}

// NewEngine creates a backtest engine.
func NewEngine(logger *zap.Logger, reg *registry.Registry, data DataProvider) *Engine {
	return &Engine{
		logger:   logger.Named("backtester"),
		registry: reg,
		data:     data,
		metrics:  NewMetricsCalculator(),
	}
}

// Run executes one simulation. Configuration problems abort before the first
// step with a ConfigError. Per-date failures are classified, recorded in the
// run diagnostics, contribute zero position delta and never stop the run.
// Cancellation between date steps returns the partial result for the
// completed range with a "cancelled" status.
func (e *Engine) Run(ctx context.Context, config *types.BacktestConfig) (*types.BacktestResult, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	strategy, err := e.registry.Get(config.StrategyID)
	if err != nil {
		return nil, &types.ConfigError{Field: "strategyId", Reason: err.Error()}
	}

	costs, err := NewCostModel(config.TransactionCostBps, config.CostBpsByAssetClass)
	if err != nil {
		return nil, err
	}

	data, err := e.data.LoadDataSet(ctx, config.StartDate, config.EndDate)
	if err != nil {
		return nil, fmt.Errorf("loading market data: %w", err)
	}

	runID := config.ID
	if runID == "" {
		runID = uuid.New().String()
	}

	e.running.Store(true)
	defer e.running.Store(false)

	e.logger.Info("starting backtest",
		zap.String("id", runID),
		zap.String("strategy", config.StrategyID),
		zap.Time("start", config.StartDate),
		zap.Time("end", config.EndDate),
		zap.Int("dates", len(data.Dates)),
	)

	run := &runState{
		book:    NewBook(e.logger, runID, config.InitialCapital),
		adapter: signals.NewAdapter(e.logger, config.MaxInstrumentWeight),
		breaker: risk.NewBreaker(e.logger, config.Breaker),
	}

	result := &types.BacktestResult{
		ID:         runID,
		StrategyID: config.StrategyID,
		Status:     "completed",
		StartedAt:  time.Now().UTC(),
	}

	for _, date := range data.Dates {
		if date.Before(config.StartDate) || date.After(config.EndDate) {
			continue
		}

		select {
		case <-ctx.Done():
			// The completed range stays valid; hand it back instead of
			// discarding the run.
			result.Status = "cancelled"
			e.logger.Warn("backtest cancelled", zap.String("id", runID), zap.Time("at", date))
		default:
		}
		if result.Status == "cancelled" {
			break
		}

		e.step(ctx, run, strategy, data, costs, date, &result.Diagnostics)

		run.book.ApplyReturns(data.NextReturns[date])
		result.EquityCurve = append(result.EquityCurve, types.EquityPoint{
			Date:     date,
			Equity:   run.book.Equity(),
			Drawdown: run.book.Drawdown(),
		})
	}

	result.Trades = run.book.Trades()
	result.FinalPositions = run.book.Positions()
	e.metrics.Apply(result, config.InitialCapital)
	result.CompletedAt = time.Now().UTC()

	e.logger.Info("backtest finished",
		zap.String("id", runID),
		zap.String("status", result.Status),
		zap.Int("trades", result.TotalTrades),
		zap.Int("noSignalDates", result.Diagnostics.NoSignalDates),
		zap.Int("failedDates", result.Diagnostics.FailedDates),
	)
	return result, nil
}

// Running reports whether a run is in flight.
func (e *Engine) Running() bool { return e.running.Load() }

// runState bundles one run's isolated collaborators.
type runState struct {
	book    *Book
	adapter *signals.Adapter
	breaker *risk.Breaker
}

// step executes the signal -> adapt -> scale -> rebalance pipeline for one
// rebalance date and classifies the outcome into the diagnostics.
func (e *Engine) step(
	ctx context.Context,
	run *runState,
	strategy registry.Strategy,
	data *types.MarketDataSet,
	costs *CostModel,
	date time.Time,
	diag *types.RunDiagnostics,
) {
	window, ok := data.Windows[date]
	if !ok {
		diag.NoSignalDates++
		return
	}

	out, err := strategy.GenerateSignals(ctx, window)
	if err != nil {
		var noSignal *types.NoSignalError
		if errors.As(err, &noSignal) {
			diag.NoSignalDates++
			return
		}
		e.recordFailure(diag, date, strategy.ID(), err)
		return
	}

	if out.Empty() {
		diag.NoSignalDates++
		return
	}

	weights, err := run.adapter.Adapt(out)
	if err != nil {
		e.recordFailure(diag, date, strategy.ID(), err)
		return
	}

	// Drawdown scaling happens before execution, multiplicatively on every
	// target weight.
	if scale := run.breaker.Observe(run.book.Drawdown()); scale < 1 {
		for inst, w := range weights {
			weights[inst] = w * scale
		}
	}

	if _, err := run.book.Rebalance(date, weights, window, costs, data.AssetClasses, strategy.ID()); err != nil {
		e.recordFailure(diag, date, strategy.ID(), err)
		return
	}

	diag.TradedDates++
}

// recordFailure classifies a step error and appends it to the diagnostics.
// Nothing is swallowed: every failure is visible on the result.
func (e *Engine) recordFailure(diag *types.RunDiagnostics, date time.Time, strategyID string, err error) {
	kind := "strategy"

	var adaptErr *signals.AdaptationError
	var txErr *types.TransactionError
	switch {
	case errors.As(err, &adaptErr):
		kind = "adaptation"
	case errors.As(err, &txErr):
		kind = "transaction"
	}

	diag.FailedDates++
	diag.Failures = append(diag.Failures, types.StepFailure{
		Date:       date,
		StrategyID: strategyID,
		Kind:       kind,
		Message:    err.Error(),
	})

	e.logger.Error("backtest step failed",
		zap.Time("date", date),
		zap.String("strategy", strategyID),
		zap.String("kind", kind),
		zap.Error(err),
	)
}

func validateConfig(config *types.BacktestConfig) error {
	if config == nil {
		return &types.ConfigError{Field: "config", Reason: "missing"}
	}
	if config.StrategyID == "" {
		return &types.ConfigError{Field: "strategyId", Reason: "required"}
	}
	if config.StartDate.IsZero() || config.EndDate.IsZero() {
		return &types.ConfigError{Field: "dates", Reason: "start and end required"}
	}
	if config.EndDate.Before(config.StartDate) {
		return &types.ConfigError{Field: "dates", Reason: "end before start"}
	}
	if config.InitialCapital.Sign() <= 0 {
		return &types.ConfigError{Field: "initialCapital", Reason: "must be positive"}
	}
	if config.TransactionCostBps < 0 {
		return &types.ConfigError{Field: "transactionCostBps", Reason: "must be non-negative"}
	}
	if config.MaxInstrumentWeight < 0 {
		return &types.ConfigError{Field: "maxInstrumentWeight", Reason: "must be non-negative"}
	}
	if err := risk.ValidateBreakerConfig(config.Breaker); err != nil {
		return err
	}
	return nil
}
