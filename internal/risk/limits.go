package risk

import "github.com/mcauduro0/macro-trading/pkg/types"

// Well-known limit names. Limits are configuration; logic only maps names to
// the current metric values.
const (
	LimitVaR95             = "var_95"
	LimitVaR99             = "var_99"
	LimitGrossLeverage     = "gross_leverage"
	LimitMaxDrawdown       = "max_drawdown"
	LimitDailyLoss         = "daily_loss"
	LimitWeeklyLoss        = "weekly_loss"
	LimitSingleName        = "single_name_concentration"
	LimitSectorConcentration = "sector_concentration"
	LimitDuration          = "duration"
)

// Classify maps a utilization percentage to a severity tier using the limit's
// configured bounds. Pure and deterministic: same utilization, same severity.
func Classify(utilizationPct float64, cfg types.LimitConfig) types.Severity {
	cfg = cfg.WithDefaults()
	switch {
	case utilizationPct >= cfg.BreachAtPct:
		return types.SeverityBreach
	case utilizationPct >= cfg.WarningAtPct:
		return types.SeverityWarning
	default:
		return types.SeverityOK
	}
}

// CheckLimits computes utilization and severity for every configured limit.
// metrics maps limit names to their current values; limits without a metric
// report zero utilization rather than being dropped, so a missing feed is
// visible on the summary.
func CheckLimits(metrics map[string]float64, limits []types.LimitConfig) []types.LimitItem {
	items := make([]types.LimitItem, 0, len(limits))

	for _, lim := range limits {
		current := metrics[lim.Name]

		var utilization float64
		if lim.Threshold != 0 {
			utilization = current / lim.Threshold * 100
		}
		if utilization < 0 {
			utilization = 0
		}

		items = append(items, types.LimitItem{
			Name:        lim.Name,
			Current:     current,
			Limit:       lim.Threshold,
			Utilization: utilization,
			Severity:    Classify(utilization, lim),
		})
	}
	return items
}

// ValidateLimits rejects non-positive thresholds and inverted severity bounds.
func ValidateLimits(limits []types.LimitConfig) error {
	for _, lim := range limits {
		if lim.Name == "" {
			return &types.ConfigError{Field: "limits", Reason: "limit missing name"}
		}
		if lim.Threshold <= 0 {
			return &types.ConfigError{Field: "limits." + lim.Name, Reason: "threshold must be positive"}
		}
		l := lim.WithDefaults()
		if l.WarningAtPct >= l.BreachAtPct {
			return &types.ConfigError{Field: "limits." + lim.Name, Reason: "warning bound must be below breach bound"}
		}
	}
	return nil
}
