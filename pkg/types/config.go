// Package types provides configuration types for the macro trading engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestConfig configures one simulation run.
type BacktestConfig struct {
	ID                 string          `json:"id"`
	StrategyID         string          `json:"strategyId"`
	StartDate          time.Time       `json:"startDate"`
	EndDate            time.Time       `json:"endDate"`
	InitialCapital     decimal.Decimal `json:"initialCapital"`
	TransactionCostBps float64         `json:"transactionCostBps"`
	// Per-asset-class overrides in bps; falls back to TransactionCostBps.
	CostBpsByAssetClass map[AssetClass]float64 `json:"costBpsByAssetClass,omitempty"`
	// MaxInstrumentWeight caps the summed overlay weight per instrument.
	// Zero disables the cap, keeping pure additive overlay semantics.
	MaxInstrumentWeight float64       `json:"maxInstrumentWeight,omitempty"`
	Breaker             BreakerConfig `json:"breaker"`
	Seed                int64         `json:"seed"`
}

// LimitConfig is one configured risk limit. Severity thresholds live here,
// never in logic.
type LimitConfig struct {
	Name          string  `json:"name"`
	Threshold     float64 `json:"threshold"`
	WarningAtPct  float64 `json:"warningAtPct"`  // default 80
	BreachAtPct   float64 `json:"breachAtPct"`   // default 100
}

// WithDefaults fills zero severity bounds with the desk defaults.
func (l LimitConfig) WithDefaults() LimitConfig {
	if l.WarningAtPct == 0 {
		l.WarningAtPct = 80
	}
	if l.BreachAtPct == 0 {
		l.BreachAtPct = 100
	}
	return l
}

// BreakerStep maps a drawdown threshold to a position scale.
type BreakerStep struct {
	DrawdownAt float64 `json:"drawdownAt"` // e.g. 0.03 = 3% drawdown
	Scale      float64 `json:"scale"`      // [0,1]
}

// BreakerConfig configures the drawdown circuit breaker. The step table must
// be non-increasing in Scale as DrawdownAt grows.
type BreakerConfig struct {
	Steps []BreakerStep `json:"steps"`
	// ConfirmObservations is the hysteresis: consecutive qualifying
	// observations required before a state transition takes effect.
	ConfirmObservations int `json:"confirmObservations"`
}

// DefaultBreakerConfig returns the desk-standard breaker ladder.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Steps: []BreakerStep{
			{DrawdownAt: 0.02, Scale: 0.6},
			{DrawdownAt: 0.05, Scale: 0.2},
			{DrawdownAt: 0.10, Scale: 0.0},
		},
		ConfirmObservations: 2,
	}
}

// MonteCarloConfig bounds the VaR simulation by path count, not wall clock,
// so results reproduce under a fixed seed.
type MonteCarloConfig struct {
	Paths   int   `json:"paths"`
	Seed    int64 `json:"seed"`
	Workers int   `json:"workers"`
}

// DefaultMonteCarloConfig returns the standard simulation budget.
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{Paths: 10000, Seed: 42, Workers: 8}
}

// ShockScenario is a named shock vector applied to current positions.
type ShockScenario struct {
	Name         string  `json:"name"`
	FXPct        float64 `json:"fxPct"`        // spot move, e.g. -0.05
	RateBps      float64 `json:"rateBps"`      // parallel shift
	EquityPct    float64 `json:"equityPct"`
	CreditBps    float64 `json:"creditBps"`
	ImpliedVolPct float64 `json:"impliedVolPct"`
}

// RiskConfig bundles everything the risk engine needs for a snapshot.
type RiskConfig struct {
	AUM        decimal.Decimal  `json:"aum"`
	Limits     []LimitConfig    `json:"limits"`
	Scenarios  []ShockScenario  `json:"scenarios"`
	MonteCarlo MonteCarloConfig `json:"monteCarlo"`
	Breaker    BreakerConfig    `json:"breaker"`
	// Sensitivities translate shock units into position P&L. Duration in
	// years for rates/credit legs, vega as fraction of notional per vol point.
	DurationYears    map[string]float64 `json:"durationYears,omitempty"`
	VegaByInstrument map[string]float64 `json:"vegaByInstrument,omitempty"`
}

// ServerConfig configures the HTTP/WS surface.
type ServerConfig struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	ReadTimeout   time.Duration `json:"readTimeout"`
	WriteTimeout  time.Duration `json:"writeTimeout"`
	EnableMetrics bool          `json:"enableMetrics"`
}
