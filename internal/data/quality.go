package data

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// IssueSeverity grades a data quality finding.
type IssueSeverity string

const (
	IssueWarning  IssueSeverity = "warning"
	IssueCritical IssueSeverity = "critical"
)

// Issue is one data quality finding for an instrument.
type Issue struct {
	Instrument string        `json:"instrument"`
	Date       time.Time     `json:"date"`
	Severity   IssueSeverity `json:"severity"`
	Message    string        `json:"message"`
}

// QualityReport summarizes validation of one instrument's series.
type QualityReport struct {
	Instrument string  `json:"instrument"`
	Points     int     `json:"points"`
	Issues     []Issue `json:"issues"`
	Usable     bool    `json:"usable"`
}

// Validator checks close series for the defects that silently corrupt a
// simulation: stale gaps, non-positive closes, and implausible jumps.
type Validator struct {
	logger *zap.Logger
	// MaxGapDays flags calendar gaps longer than this as stale data.
	MaxGapDays int
	// MaxDailyMove flags single-day moves beyond this fraction.
	MaxDailyMove float64
}

// NewValidator returns a validator with macro-desk defaults: a week of
// missing prints is a warning, a 25% daily move is suspect.
func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger.Named("quality"), MaxGapDays: 7, MaxDailyMove: 0.25}
}

// Validate inspects one series. A series with any critical issue is unusable.
func (v *Validator) Validate(series Series) QualityReport {
	report := QualityReport{Instrument: series.Instrument, Points: len(series.Points), Usable: true}

	for i, p := range series.Points {
		if p.Close <= 0 || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			report.Issues = append(report.Issues, Issue{
				Instrument: series.Instrument,
				Date:       p.Date,
				Severity:   IssueCritical,
				Message:    fmt.Sprintf("non-positive or non-finite close %v", p.Close),
			})
			continue
		}
		if i == 0 {
			continue
		}
		prev := series.Points[i-1]
		if gap := int(p.Date.Sub(prev.Date).Hours() / 24); gap > v.MaxGapDays {
			report.Issues = append(report.Issues, Issue{
				Instrument: series.Instrument,
				Date:       p.Date,
				Severity:   IssueWarning,
				Message:    fmt.Sprintf("%d-day gap since previous close", gap),
			})
		}
		if prev.Close > 0 {
			move := math.Abs(p.Close/prev.Close - 1)
			if move > v.MaxDailyMove {
				report.Issues = append(report.Issues, Issue{
					Instrument: series.Instrument,
					Date:       p.Date,
					Severity:   IssueWarning,
					Message:    fmt.Sprintf("%.1f%% single-day move", move*100),
				})
			}
		}
	}

	for _, issue := range report.Issues {
		if issue.Severity == IssueCritical {
			report.Usable = false
			break
		}
	}
	if !report.Usable {
		v.logger.Warn("series failed validation",
			zap.String("instrument", series.Instrument),
			zap.Int("issues", len(report.Issues)))
	}
	return report
}
