package backtester

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// Book is one run's isolated portfolio state: positions, equity and the
// append-only trade log. Every run owns its own Book; nothing is shared.
type Book struct {
	logger     *zap.Logger
	runID      string
	equity     decimal.Decimal
	peakEquity decimal.Decimal
	positions  map[string]*types.Position
	trades     []types.TradeLogEntry
	seq        int
}

// minTradeNotional filters dust rebalances that would only churn costs.
var minTradeNotional = decimal.NewFromFloat(1e-6)

// NewBook creates a portfolio book with the given starting capital.
func NewBook(logger *zap.Logger, runID string, initialCapital decimal.Decimal) *Book {
	return &Book{
		logger:     logger.Named("book"),
		runID:      runID,
		equity:     initialCapital,
		peakEquity: initialCapital,
		positions:  make(map[string]*types.Position),
	}
}

// Equity returns current equity.
func (b *Book) Equity() decimal.Decimal { return b.equity }

// Drawdown returns the current peak-to-trough decline as a non-negative
// fraction.
func (b *Book) Drawdown() float64 {
	if b.peakEquity.IsZero() || b.equity.GreaterThanOrEqual(b.peakEquity) {
		return 0
	}
	dd, _ := b.peakEquity.Sub(b.equity).Div(b.peakEquity).Float64()
	return dd
}

// Positions returns a copy of the open positions keyed by instrument.
func (b *Book) Positions() map[string]types.Position {
	out := make(map[string]types.Position, len(b.positions))
	for inst, p := range b.positions {
		out[inst] = *p
	}
	return out
}

// Trades returns the trade log recorded so far.
func (b *Book) Trades() []types.TradeLogEntry {
	out := make([]types.TradeLogEntry, len(b.trades))
	copy(out, b.trades)
	return out
}

// plannedTrade is one validated leg of a rebalance.
type plannedTrade struct {
	instrument      string
	assetClass      types.AssetClass
	price           decimal.Decimal
	current, target decimal.Decimal
	delta           decimal.Decimal
}

// Rebalance moves the book to the target weights, charging transaction costs
// on the notional traded and appending a trade log entry per instrument whose
// notional changed. The whole plan is validated before anything mutates, so a
// failed date contributes zero position delta. Returns the number of trades.
func (b *Book) Rebalance(
	date time.Time,
	weights types.TargetWeightMap,
	window types.MarketWindow,
	costs *CostModel,
	assetClasses map[string]types.AssetClass,
	strategyID string,
) (int, error) {
	if b.equity.LessThanOrEqual(decimal.Zero) {
		return 0, &types.TransactionError{Reason: "equity exhausted"}
	}

	var plan []plannedTrade
	for _, inst := range b.rebalanceUniverse(weights) {
		target := b.equity.Mul(decimal.NewFromFloat(weights[inst]))

		var current decimal.Decimal
		if pos, ok := b.positions[inst]; ok {
			current = pos.Notional
		}

		delta := target.Sub(current)
		if delta.Abs().LessThan(minTradeNotional) {
			continue
		}

		price, ok := window.Price(inst)
		if !ok || price.LessThanOrEqual(decimal.Zero) {
			return 0, &types.TransactionError{Instrument: inst, Reason: "missing or non-positive price"}
		}

		plan = append(plan, plannedTrade{
			instrument: inst,
			assetClass: assetClasses[inst],
			price:      price,
			current:    current,
			target:     target,
			delta:      delta,
		})
	}

	for _, pt := range plan {
		cost := costs.Cost(pt.delta, pt.assetClass)
		b.equity = b.equity.Sub(cost)

		entry := b.applyTrade(date, pt.instrument, pt.assetClass, pt.price, pt.current, pt.target, pt.delta, strategyID)
		b.trades = append(b.trades, entry)
	}

	if b.equity.GreaterThan(b.peakEquity) {
		b.peakEquity = b.equity
	}
	return len(plan), nil
}

// applyTrade mutates the position for one instrument and builds its log entry.
func (b *Book) applyTrade(
	date time.Time,
	inst string,
	ac types.AssetClass,
	price, current, target, delta decimal.Decimal,
	strategyID string,
) types.TradeLogEntry {
	b.seq++
	entry := types.TradeLogEntry{
		ID:            fmt.Sprintf("%s-%06d", b.runID, b.seq),
		Date:          date,
		Instrument:    inst,
		Price:         price,
		NotionalDelta: delta,
	}
	if strategyID != "" {
		entry.StrategyIDs = []string{strategyID}
	}

	pos, exists := b.positions[inst]

	switch {
	case !exists || current.IsZero():
		entry.Action = types.TradeActionOpen
		pos = &types.Position{
			Instrument:   inst,
			AssetClass:   ac,
			Notional:     target,
			EntryPrice:   price,
			CurrentPrice: price,
			EntryDate:    date,
		}
		b.positions[inst] = pos

	case target.IsZero():
		entry.Action = types.TradeActionClose
		realized := pos.UnrealizedPnL
		entry.RealizedPnL = &realized
		delete(b.positions, inst)

	default:
		entry.Action = types.TradeActionAdjust
		if target.Sign() != current.Sign() {
			// Flipped through zero: the old exposure is fully realized.
			realized := pos.UnrealizedPnL
			entry.RealizedPnL = &realized
			pos.UnrealizedPnL = decimal.Zero
			pos.EntryPrice = price
			pos.EntryDate = date
		} else if delta.Sign() != current.Sign() {
			// A reduction realizes the closed fraction of the open P&L.
			closedFrac := delta.Abs().Div(current.Abs())
			if closedFrac.GreaterThan(decimal.NewFromInt(1)) {
				closedFrac = decimal.NewFromInt(1)
			}
			realized := pos.UnrealizedPnL.Mul(closedFrac)
			pos.UnrealizedPnL = pos.UnrealizedPnL.Sub(realized)
			entry.RealizedPnL = &realized
		}
		pos.Notional = target
		pos.CurrentPrice = price
	}

	if pos != nil && b.positions[inst] != nil {
		pos.Direction = directionOf(pos.Notional)
		if strategyID != "" && !containsString(pos.StrategyIDs, strategyID) {
			pos.StrategyIDs = append(pos.StrategyIDs, strategyID)
		}
	}
	return entry
}

// ApplyReturns steps every open position forward by its realized next-period
// return, accruing P&L into equity.
func (b *Book) ApplyReturns(returns map[string]float64) decimal.Decimal {
	var pnl decimal.Decimal

	insts := make([]string, 0, len(b.positions))
	for inst := range b.positions {
		insts = append(insts, inst)
	}
	sort.Strings(insts)

	for _, inst := range insts {
		ret, ok := returns[inst]
		if !ok {
			continue
		}
		pos := b.positions[inst]
		retDec := decimal.NewFromFloat(ret)
		posPnL := pos.Notional.Mul(retDec)

		pos.UnrealizedPnL = pos.UnrealizedPnL.Add(posPnL)
		pos.CurrentPrice = pos.CurrentPrice.Mul(decimal.NewFromInt(1).Add(retDec))
		pnl = pnl.Add(posPnL)
	}

	b.equity = b.equity.Add(pnl)
	if b.equity.GreaterThan(b.peakEquity) {
		b.peakEquity = b.equity
	}
	return pnl
}

// rebalanceUniverse returns the sorted union of targeted and held instruments.
// Instruments held but absent from the weights are flattened.
func (b *Book) rebalanceUniverse(weights types.TargetWeightMap) []string {
	set := make(map[string]struct{}, len(weights)+len(b.positions))
	for inst := range weights {
		set[inst] = struct{}{}
	}
	for inst := range b.positions {
		set[inst] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for inst := range set {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}

func directionOf(notional decimal.Decimal) types.Direction {
	switch notional.Sign() {
	case 1:
		return types.DirectionLong
	case -1:
		return types.DirectionShort
	default:
		return types.DirectionNeutral
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
