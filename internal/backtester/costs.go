package backtester

import (
	"github.com/shopspring/decimal"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// CostModel is the turnover-based transaction cost function. Stateless; called
// once per instrument per rebalance.
type CostModel struct {
	defaultBps   decimal.Decimal
	byAssetClass map[types.AssetClass]decimal.Decimal
}

var bpsDivisor = decimal.NewFromInt(10000)

// NewCostModel builds a cost model from a default rate in basis points plus
// optional per-asset-class overrides.
func NewCostModel(defaultBps float64, byAssetClass map[types.AssetClass]float64) (*CostModel, error) {
	if defaultBps < 0 {
		return nil, &types.ConfigError{Field: "transactionCostBps", Reason: "must be non-negative"}
	}

	m := &CostModel{
		defaultBps:   decimal.NewFromFloat(defaultBps),
		byAssetClass: make(map[types.AssetClass]decimal.Decimal, len(byAssetClass)),
	}
	for ac, bps := range byAssetClass {
		if bps < 0 {
			return nil, &types.ConfigError{Field: "costBpsByAssetClass." + string(ac), Reason: "must be non-negative"}
		}
		m.byAssetClass[ac] = decimal.NewFromFloat(bps)
	}
	return m, nil
}

// Cost returns the cost of trading the given turnover notional:
// turnover * bps / 10,000. Turnover is taken as absolute.
func (m *CostModel) Cost(turnoverNotional decimal.Decimal, assetClass types.AssetClass) decimal.Decimal {
	bps := m.defaultBps
	if override, ok := m.byAssetClass[assetClass]; ok {
		bps = override
	}
	return turnoverNotional.Abs().Mul(bps).Div(bpsDivisor)
}
