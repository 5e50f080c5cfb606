// Package events models scheduled macro events (central bank decisions, CPI
// prints) and the explicit lifecycle a position built around one follows:
// PRE_EVENT positioning, POST_EVENT adaptive holding, and EXITED.
package events

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// Phase is the lifecycle phase of an event position.
type Phase string

const (
	PhasePreEvent  Phase = "PRE_EVENT"
	PhasePostEvent Phase = "POST_EVENT"
	PhaseExited    Phase = "EXITED"
)

// MacroEvent is one scheduled event on the calendar.
type MacroEvent struct {
	Name       string    `json:"name"` // e.g. "COPOM", "IPCA", "FOMC"
	Date       time.Time `json:"date"`
	Instrument string    `json:"instrument"`
}

// Calendar is an immutable, date-ordered macro event schedule.
type Calendar struct {
	events []MacroEvent
}

// NewCalendar builds a calendar, sorting events chronologically.
func NewCalendar(events []MacroEvent) *Calendar {
	sorted := make([]MacroEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	return &Calendar{events: sorted}
}

// Next returns the first event on or after the given date within the horizon.
func (c *Calendar) Next(from time.Time, horizon time.Duration) (MacroEvent, bool) {
	limit := from.Add(horizon)
	for _, ev := range c.events {
		if ev.Date.Before(from) {
			continue
		}
		if ev.Date.After(limit) {
			break
		}
		return ev, true
	}
	return MacroEvent{}, false
}

// LifecycleConfig tunes the state machine.
type LifecycleConfig struct {
	// PreEventDays is how many days before the event positioning begins.
	PreEventDays int `json:"preEventDays"`
	// ExitZThreshold exits the post-event position once the move's z-score
	// falls back inside this band.
	ExitZThreshold float64 `json:"exitZThreshold"`
	// MaxHoldDays force-exits this many days after the event.
	MaxHoldDays int `json:"maxHoldDays"`
}

// DefaultLifecycleConfig returns the desk defaults.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{PreEventDays: 5, ExitZThreshold: 0.5, MaxHoldDays: 10}
}

// Lifecycle is the explicit state machine for one event position. Transitions
// are driven by calendar lookup plus a z-score adaptive exit, replacing
// inline date-window branching.
type Lifecycle struct {
	logger *zap.Logger
	cfg    LifecycleConfig
	event  MacroEvent
	phase  Phase
}

// NewLifecycle starts a lifecycle in PRE_EVENT for the given event.
func NewLifecycle(logger *zap.Logger, cfg LifecycleConfig, event MacroEvent) *Lifecycle {
	if cfg.PreEventDays <= 0 {
		cfg = DefaultLifecycleConfig()
	}
	return &Lifecycle{
		logger: logger.Named("event-lifecycle"),
		cfg:    cfg,
		event:  event,
		phase:  PhasePreEvent,
	}
}

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase { return l.phase }

// Event returns the event this lifecycle tracks.
func (l *Lifecycle) Event() MacroEvent { return l.event }

// Active reports whether the lifecycle still holds exposure.
func (l *Lifecycle) Active() bool { return l.phase != PhaseExited }

// Observe advances the machine for one date. zScore is the current z-score of
// the post-event move in the tracked instrument; pass nil while it cannot be
// computed (the adaptive exit then waits rather than guessing).
func (l *Lifecycle) Observe(date time.Time, zScore *float64) Phase {
	switch l.phase {
	case PhasePreEvent:
		if !date.Before(l.event.Date) {
			l.transition(PhasePostEvent, date)
		}
	case PhasePostEvent:
		daysHeld := int(date.Sub(l.event.Date).Hours() / 24)
		switch {
		case daysHeld >= l.cfg.MaxHoldDays:
			l.transition(PhaseExited, date)
		case zScore != nil && abs(*zScore) <= l.cfg.ExitZThreshold:
			// The move has normalized; take the position off.
			l.transition(PhaseExited, date)
		}
	}
	return l.phase
}

// InWindow reports whether a date falls inside the pre-event entry window.
func (l *Lifecycle) InWindow(date time.Time) bool {
	start := l.event.Date.AddDate(0, 0, -l.cfg.PreEventDays)
	return !date.Before(start) && date.Before(l.event.Date)
}

func (l *Lifecycle) transition(to Phase, date time.Time) {
	l.logger.Info("event lifecycle transition",
		zap.String("event", l.event.Name),
		zap.String("instrument", l.event.Instrument),
		zap.String("from", string(l.phase)),
		zap.String("to", string(to)),
		zap.Time("date", date),
	)
	l.phase = to
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
