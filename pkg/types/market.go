package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketWindow is the pre-batched slice of market data a strategy sees for one
// rebalance date. Windows are assembled before the simulation loop; no I/O
// happens inside a date step.
type MarketWindow struct {
	AsOf time.Time `json:"asOf"`
	// History holds, per instrument, the ordered close series up to and
	// including AsOf. Oldest first.
	History map[string][]float64 `json:"history"`
	// Prices holds the close as of AsOf for position marking.
	Prices map[string]decimal.Decimal `json:"prices"`
}

// Price returns the close for an instrument and whether it is present.
func (w MarketWindow) Price(instrument string) (decimal.Decimal, bool) {
	p, ok := w.Prices[instrument]
	return p, ok
}

// MarketDataSet is the full pre-batched input for a simulation: one window per
// rebalance date plus the realized next-period returns used for P&L.
type MarketDataSet struct {
	// Dates is the ordered rebalance calendar.
	Dates []time.Time `json:"dates"`
	// Windows is keyed by date (UTC midnight).
	Windows map[time.Time]MarketWindow `json:"windows"`
	// NextReturns holds, per date, the realized instrument return over the
	// following period, applied when stepping positions forward.
	NextReturns map[time.Time]map[string]float64 `json:"nextReturns"`
	// AssetClasses maps instruments to their asset class.
	AssetClasses map[string]AssetClass `json:"assetClasses"`
}
