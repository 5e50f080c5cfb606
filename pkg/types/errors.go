package types

import "fmt"

// ConfigError means a scenario is not runnable at all: invalid date range,
// invalid cost model, inconsistent limits or shock vectors. It aborts the
// whole run before simulation starts, unlike per-date data gaps.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// TransactionError means a price or notional went invalid mid-step. The date
// is aborted and logged; the run continues.
type TransactionError struct {
	Instrument string
	Reason     string
}

func (e *TransactionError) Error() string {
	if e.Instrument == "" {
		return fmt.Sprintf("transaction error: %s", e.Reason)
	}
	return fmt.Sprintf("transaction error on %s: %s", e.Instrument, e.Reason)
}

// NoSignalError is how a strategy reports insufficient or missing data for a
// date. It is expected, produces zero trades, and is never counted as a
// failure.
type NoSignalError struct {
	Reason string
}

func (e *NoSignalError) Error() string {
	return fmt.Sprintf("no signal: %s", e.Reason)
}
