// Package journal persists trade and equity history to an append-only SQLite
// store. Entries are keyed by ULID so they sort by write time, and the log is
// never updated in place: point-in-time state is reconstructed by replay.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// Journal is an append-only SQLite trade and equity log.
type Journal struct {
	logger *zap.Logger
	db     *sql.DB
}

// Open opens (or creates) the journal database at path.
func Open(logger *zap.Logger, path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Journal{logger: logger.Named("journal"), db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }

// AppendTrades writes trade log entries for a run. Each row gets a fresh ULID.
func (j *Journal) AppendTrades(ctx context.Context, runID string, trades []types.TradeLogEntry) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trade_log
		(entry_id, run_id, trade_id, instrument, action, price, notional_delta, realized_pnl, strategy_ids, trade_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trade insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		var realized any
		if t.RealizedPnL != nil {
			realized = t.RealizedPnL.InexactFloat64()
		}
		if _, err := stmt.ExecContext(ctx,
			ulid.Make().String(), runID, t.ID, t.Instrument, string(t.Action),
			t.Price.InexactFloat64(), t.NotionalDelta.InexactFloat64(),
			realized, strings.Join(t.StrategyIDs, ","), t.Date.UTC(),
		); err != nil {
			return fmt.Errorf("insert trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trade log: %w", err)
	}
	j.logger.Debug("appended trades", zap.String("runId", runID), zap.Int("count", len(trades)))
	return nil
}

// AppendEquity writes equity curve points for a run.
func (j *Journal) AppendEquity(ctx context.Context, runID string, curve []types.EquityPoint) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO equity (entry_id, run_id, time, equity, drawdown)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare equity insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range curve {
		if _, err := stmt.ExecContext(ctx,
			ulid.Make().String(), runID, p.Date.UTC(),
			p.Equity.InexactFloat64(), p.Drawdown,
		); err != nil {
			return fmt.Errorf("insert equity point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit equity curve: %w", err)
	}
	return nil
}

// Trades returns a run's trade log in execution order.
func (j *Journal) Trades(ctx context.Context, runID string) ([]types.TradeLogEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, instrument, action, price, notional_delta, realized_pnl, strategy_ids, trade_time
		FROM trade_log WHERE run_id = ? ORDER BY entry_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []types.TradeLogEntry
	for rows.Next() {
		var (
			t          types.TradeLogEntry
			action     string
			price      float64
			notional   float64
			realized   sql.NullFloat64
			strategies string
		)
		if err := rows.Scan(&t.ID, &t.Instrument, &action, &price,
			&notional, &realized, &strategies, &t.Date); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.Action = types.TradeAction(action)
		t.Price = decimal.NewFromFloat(price)
		t.NotionalDelta = decimal.NewFromFloat(notional)
		if realized.Valid {
			d := decimal.NewFromFloat(realized.Float64)
			t.RealizedPnL = &d
		}
		if strategies != "" {
			t.StrategyIDs = strings.Split(strategies, ",")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReplayState is the reconstructed book state at a point in time.
type ReplayState struct {
	AsOf      time.Time          `json:"asOf"`
	Equity    decimal.Decimal    `json:"equity"`
	Drawdown  float64            `json:"drawdown"`
	Positions map[string]float64 `json:"positions"` // instrument -> net notional
	Trades    int                `json:"trades"`
}

// Replay reconstructs the book as of a date by folding the append-only log:
// net notional per instrument from trades up to asOf, plus the last equity
// point at or before asOf.
func (j *Journal) Replay(ctx context.Context, runID string, asOf time.Time) (*ReplayState, error) {
	state := &ReplayState{AsOf: asOf, Positions: make(map[string]float64)}

	rows, err := j.db.QueryContext(ctx, `
		SELECT instrument, action, notional_delta
		FROM trade_log WHERE run_id = ? AND trade_time <= ? ORDER BY entry_id`,
		runID, asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("query replay trades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			instrument, action string
			delta              float64
		)
		if err := rows.Scan(&instrument, &action, &delta); err != nil {
			return nil, fmt.Errorf("scan replay row: %w", err)
		}
		if types.TradeAction(action) == types.TradeActionClose {
			state.Positions[instrument] = 0
		} else {
			state.Positions[instrument] += delta
		}
		state.Trades++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Drop flat instruments so replay output mirrors live position maps.
	for inst, notional := range state.Positions {
		if notional == 0 {
			delete(state.Positions, inst)
		}
	}

	var equity float64
	err = j.db.QueryRowContext(ctx, `
		SELECT equity, drawdown FROM equity
		WHERE run_id = ? AND time <= ? ORDER BY time DESC LIMIT 1`,
		runID, asOf.UTC()).Scan(&equity, &state.Drawdown)
	switch {
	case err == sql.ErrNoRows:
		// No equity point yet; leave zero.
	case err != nil:
		return nil, fmt.Errorf("query replay equity: %w", err)
	default:
		state.Equity = decimal.NewFromFloat(equity)
	}
	return state, nil
}

// Runs lists the distinct run IDs present in the journal, newest first.
func (j *Journal) Runs(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT run_id, MAX(entry_id) FROM trade_log GROUP BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	type runRow struct {
		id     string
		latest string
	}
	var all []runRow
	for rows.Next() {
		var r runRow
		if err := rows.Scan(&r.id, &r.latest); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, k int) bool { return all[i].latest > all[k].latest })

	ids := make([]string, len(all))
	for i, r := range all {
		ids[i] = r.id
	}
	return ids, nil
}
