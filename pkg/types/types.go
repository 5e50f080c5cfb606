// Package types provides shared type definitions for the macro trading engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the directional view a strategy expresses on an instrument.
type Direction string

const (
	DirectionLong    Direction = "LONG"
	DirectionShort   Direction = "SHORT"
	DirectionNeutral Direction = "NEUTRAL"
)

// Sign maps a direction to its weight sign.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	default:
		return 0
	}
}

// AssetClass groups instruments for concentration and stress purposes.
type AssetClass string

const (
	AssetClassFX         AssetClass = "fx"
	AssetClassRates      AssetClass = "rates"
	AssetClassInflation  AssetClass = "inflation"
	AssetClassCredit     AssetClass = "credit"
	AssetClassEquity     AssetClass = "equity"
	AssetClassCrossAsset AssetClass = "cross_asset"
)

// StrategySignal is a single directional signal emitted by a strategy for one
// rebalance date. Immutable once emitted.
type StrategySignal struct {
	Instrument    string     `json:"instrument"`
	Direction     Direction  `json:"direction"`
	ZScore        *float64   `json:"zScore,omitempty"` // nil when history was insufficient
	Conviction    float64    `json:"conviction"`       // [0,1]
	EntryLevel    *float64   `json:"entryLevel,omitempty"`
	StopLoss      *float64   `json:"stopLoss,omitempty"`
	TakeProfit    *float64   `json:"takeProfit,omitempty"`
	SuggestedSize float64    `json:"suggestedSize"` // fraction of equity
	StrategyID    string     `json:"strategyId"`
	AssetClass    AssetClass `json:"assetClass"`
	AsOfDate      time.Time  `json:"asOfDate"`
}

// TargetWeightMap maps instrument to a signed fraction of equity for one
// rebalance date.
type TargetWeightMap map[string]float64

// GrossExposure is the sum of absolute weights.
func (w TargetWeightMap) GrossExposure() float64 {
	var gross float64
	for _, wt := range w {
		if wt < 0 {
			gross -= wt
		} else {
			gross += wt
		}
	}
	return gross
}

// TradeAction classifies a trade log entry.
type TradeAction string

const (
	TradeActionOpen   TradeAction = "OPEN"
	TradeActionAdjust TradeAction = "ADJUST"
	TradeActionClose  TradeAction = "CLOSE"
)

// TradeLogEntry is an append-only record of a notional change. Never mutated
// after creation; the book at any past date is reconstructible by replay.
type TradeLogEntry struct {
	ID            string           `json:"id"`
	Date          time.Time        `json:"date"`
	Instrument    string           `json:"instrument"`
	Action        TradeAction      `json:"action"`
	Price         decimal.Decimal  `json:"price"`
	NotionalDelta decimal.Decimal  `json:"notionalDelta"`
	RealizedPnL   *decimal.Decimal `json:"realizedPnl,omitempty"`
	StrategyIDs   []string         `json:"strategyIds,omitempty"`
}

// Position is an open exposure on one instrument. Mutated only by the backtest
// engine's stepping function; closed when notional returns to zero.
type Position struct {
	Instrument    string          `json:"instrument"`
	AssetClass    AssetClass      `json:"assetClass"`
	Direction     Direction       `json:"direction"`
	Notional      decimal.Decimal `json:"notional"` // signed
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnl"`
	EntryDate     time.Time       `json:"entryDate"`
	StrategyIDs   []string        `json:"strategyIds"` // contributing strategies
}

// EquityPoint is one point on the equity curve.
type EquityPoint struct {
	Date     time.Time       `json:"date"`
	Equity   decimal.Decimal `json:"equity"`
	Drawdown float64         `json:"drawdown"`
}

// StepOutcome classifies what happened on one rebalance date.
type StepOutcome string

const (
	StepTraded   StepOutcome = "traded"
	StepNoSignal StepOutcome = "no_signal"
	StepFailed   StepOutcome = "failed"
)

// StepFailure records a classified per-date failure with context. A zero-trade
// run is auditable as either legitimate (all no-signal) or broken (failures).
type StepFailure struct {
	Date       time.Time `json:"date"`
	StrategyID string    `json:"strategyId"`
	Kind       string    `json:"kind"` // "adaptation" or "transaction"
	Message    string    `json:"message"`
}

// RunDiagnostics distinguishes "no signal" dates from "step failure" dates.
type RunDiagnostics struct {
	TradedDates   int           `json:"tradedDates"`
	NoSignalDates int           `json:"noSignalDates"`
	FailedDates   int           `json:"failedDates"`
	Failures      []StepFailure `json:"failures,omitempty"`
}

// BacktestResult is the full output of one simulation run.
type BacktestResult struct {
	ID             string              `json:"id"`
	StrategyID     string              `json:"strategyId"`
	Status         string              `json:"status"` // "completed" or "cancelled"
	EquityCurve    []EquityPoint       `json:"equityCurve"`
	SharpeRatio    float64             `json:"sharpeRatio"`
	SortinoRatio   float64             `json:"sortinoRatio"`
	MaxDrawdown    float64             `json:"maxDrawdown"`
	TotalReturn    float64             `json:"totalReturn"`
	TotalTrades    int                 `json:"totalTrades"`
	WinRate        float64             `json:"winRate"`
	ProfitFactor   float64             `json:"profitFactor"`
	MonthlyReturns map[string]float64  `json:"monthlyReturns"` // "2024-03" -> return
	Trades         []TradeLogEntry     `json:"trades"`
	FinalPositions map[string]Position `json:"finalPositions"`
	Diagnostics    RunDiagnostics      `json:"diagnostics"`
	StartedAt      time.Time           `json:"startedAt"`
	CompletedAt    time.Time           `json:"completedAt"`
}

// Severity tiers for limit utilization. A pure function of utilization.
type Severity string

const (
	SeverityOK      Severity = "OK"
	SeverityWarning Severity = "WARNING"
	SeverityBreach  Severity = "BREACH"
)

// VaRValue is a VaR estimate that may be undefined when the covariance
// structure is degenerate. Undefined is an answer, not an error.
type VaRValue struct {
	Value   decimal.Decimal `json:"value"`
	Defined bool            `json:"defined"`
}

// LimitItem is one row of the limits summary.
type LimitItem struct {
	Name        string   `json:"name"`
	Current     float64  `json:"current"`
	Limit       float64  `json:"limit"`
	Utilization float64  `json:"utilization"` // percent
	Severity    Severity `json:"severity"`
}

// StressImpact is the P&L impact of one scenario on one position.
type StressImpact struct {
	Instrument string          `json:"instrument"`
	AssetClass AssetClass      `json:"assetClass"`
	PnLImpact  decimal.Decimal `json:"pnlImpact"`
}

// StressResult aggregates a scenario's impact, severity-sorted (worst first).
type StressResult struct {
	ScenarioName    string          `json:"scenarioName"`
	TotalPnLImpact  decimal.Decimal `json:"totalPnlImpact"`
	PositionsImpact []StressImpact  `json:"positionsImpact"`
}

// RiskSnapshot is the point-in-time risk picture consumed by dashboards and
// compliance collaborators.
type RiskSnapshot struct {
	AsOfDate        time.Time              `json:"asOfDate"`
	VaRParametric95 VaRValue               `json:"varParametric95"`
	VaRParametric99 VaRValue               `json:"varParametric99"`
	VaRMonteCarlo95 VaRValue               `json:"varMonteCarlo95"`
	VaRMonteCarlo99 VaRValue               `json:"varMonteCarlo99"`
	GrossLeverage   float64                `json:"grossLeverage"`
	NetLeverage     float64                `json:"netLeverage"`
	CurrentDrawdown float64                `json:"currentDrawdown"`
	MaxDrawdown     float64                `json:"maxDrawdown"`
	Concentration   map[AssetClass]float64 `json:"concentration"`
	StressTests     []StressResult         `json:"stressTests"`
	Limits          []LimitItem            `json:"limits"`
	BreakerState    string                 `json:"breakerState"`
	BreakerScale    float64                `json:"breakerScale"`
}
