package journal

const schema = `
CREATE TABLE IF NOT EXISTS trade_log (
	entry_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	trade_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	action TEXT NOT NULL,
	price REAL NOT NULL,
	notional_delta REAL NOT NULL,
	realized_pnl REAL,
	strategy_ids TEXT NOT NULL,
	trade_time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	entry_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	equity REAL NOT NULL,
	drawdown REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trade_log_run ON trade_log(run_id, trade_time);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);
`
