package strategies

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/events"
	"github.com/mcauduro0/macro-trading/internal/signals"
	"github.com/mcauduro0/macro-trading/internal/toolkit"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

// EventStraddleConfig tunes the event positioning strategy.
type EventStraddleConfig struct {
	Lifecycle events.LifecycleConfig `json:"lifecycle"`
	// EntrySize is the gross fraction of equity put on per event leg.
	EntrySize float64 `json:"entrySize"`
	// Horizon bounds how far ahead the calendar is scanned.
	Horizon time.Duration `json:"horizon"`
	// MinLookback gates the post-event z-score used by the adaptive exit.
	MinLookback int `json:"minLookback"`
}

// EventStraddle positions into scheduled macro events: it builds exposure in
// the pre-event window and holds through the announcement until the move's
// z-score normalizes or the hold limit lapses. Emits a sized position list.
type EventStraddle struct {
	logger   *zap.Logger
	cfg      EventStraddleConfig
	calendar *events.Calendar

	active *events.Lifecycle
}

func NewEventStraddle(logger *zap.Logger, cfg EventStraddleConfig, calendar *events.Calendar) *EventStraddle {
	if cfg.EntrySize <= 0 {
		cfg.EntrySize = 0.05
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 30 * 24 * time.Hour
	}
	if cfg.MinLookback <= 0 {
		cfg.MinLookback = toolkit.DefaultMinLookback
	}
	return &EventStraddle{logger: logger.Named("event-straddle"), cfg: cfg, calendar: calendar}
}

func (s *EventStraddle) ID() string { return "event-straddle" }

func (s *EventStraddle) AssetClass() types.AssetClass { return types.AssetClassRates }

func (s *EventStraddle) GenerateSignals(ctx context.Context, window types.MarketWindow) (signals.StrategyOutput, error) {
	if err := ctx.Err(); err != nil {
		return signals.StrategyOutput{}, err
	}

	if s.active == nil || !s.active.Active() {
		next, ok := s.calendar.Next(window.AsOf, s.cfg.Horizon)
		if !ok {
			return signals.PositionListOutput(nil), nil
		}
		s.active = events.NewLifecycle(s.logger, s.cfg.Lifecycle, next)
	}

	phase := s.active.Observe(window.AsOf, s.zScoreFor(window))
	switch phase {
	case events.PhasePreEvent:
		if !s.active.InWindow(window.AsOf) {
			return signals.PositionListOutput(nil), nil
		}
		return signals.PositionListOutput([]signals.SizedPosition{
			{Instrument: s.active.Event().Instrument, Size: s.cfg.EntrySize},
		}), nil
	case events.PhasePostEvent:
		return signals.PositionListOutput([]signals.SizedPosition{
			{Instrument: s.active.Event().Instrument, Size: s.cfg.EntrySize},
		}), nil
	default:
		return signals.PositionListOutput(nil), nil
	}
}

// zScoreFor computes the z-score of the tracked instrument's latest close, or
// nil while history is insufficient.
func (s *EventStraddle) zScoreFor(window types.MarketWindow) *float64 {
	if s.active == nil {
		return nil
	}
	history := window.History[s.active.Event().Instrument]
	if len(history) == 0 {
		return nil
	}
	z, ok := toolkit.ComputeZScore(history[len(history)-1], history, s.cfg.MinLookback)
	if !ok {
		return nil
	}
	return &z
}
