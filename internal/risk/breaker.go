package risk

import (
	"sort"

	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// BreakerState is the discrete circuit-breaker state.
type BreakerState string

const (
	BreakerNormal  BreakerState = "NORMAL"
	BreakerWarning BreakerState = "WARNING"
	BreakerBreach  BreakerState = "BREACH"
)

// Breaker scales positions down as drawdown worsens. The drawdown-to-scale
// ladder is monotone non-increasing; state transitions require a configured
// number of consecutive confirming observations so single-day noise cannot
// thrash the book. Recovery is automatic under the same confirmation rule.
type Breaker struct {
	logger  *zap.Logger
	steps   []types.BreakerStep
	confirm int

	state        BreakerState
	scale        float64
	pendingState BreakerState
	pendingScale float64
	pendingCount int
}

// NewBreaker creates a circuit breaker from config. Steps are sorted by
// drawdown threshold; an empty config falls back to the desk default ladder.
func NewBreaker(logger *zap.Logger, cfg types.BreakerConfig) *Breaker {
	if len(cfg.Steps) == 0 {
		cfg = types.DefaultBreakerConfig()
	}
	steps := make([]types.BreakerStep, len(cfg.Steps))
	copy(steps, cfg.Steps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].DrawdownAt < steps[j].DrawdownAt })

	confirm := cfg.ConfirmObservations
	if confirm < 1 {
		confirm = 1
	}

	return &Breaker{
		logger:  logger.Named("breaker"),
		steps:   steps,
		confirm: confirm,
		state:   BreakerNormal,
		scale:   1.0,
	}
}

// ValidateBreakerConfig rejects ladders whose scale is not non-increasing or
// out of [0,1].
func ValidateBreakerConfig(cfg types.BreakerConfig) error {
	steps := make([]types.BreakerStep, len(cfg.Steps))
	copy(steps, cfg.Steps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].DrawdownAt < steps[j].DrawdownAt })

	prev := 1.0
	for _, s := range steps {
		if s.Scale < 0 || s.Scale > 1 {
			return &types.ConfigError{Field: "breaker.steps", Reason: "scale must be in [0,1]"}
		}
		if s.Scale > prev {
			return &types.ConfigError{Field: "breaker.steps", Reason: "scale must be non-increasing as drawdown worsens"}
		}
		prev = s.Scale
	}
	return nil
}

// Observe feeds one drawdown observation (a non-negative fraction) and returns
// the scale currently in force. The returned scale only moves once the target
// state has been confirmed the configured number of consecutive times.
func (b *Breaker) Observe(drawdown float64) float64 {
	targetScale, targetState := b.ladder(drawdown)

	if targetState == b.state && targetScale == b.scale {
		b.pendingCount = 0
		return b.scale
	}

	if targetState == b.pendingState && targetScale == b.pendingScale {
		b.pendingCount++
	} else {
		b.pendingState = targetState
		b.pendingScale = targetScale
		b.pendingCount = 1
	}

	if b.pendingCount >= b.confirm {
		b.logger.Info("circuit breaker transition",
			zap.String("from", string(b.state)),
			zap.String("to", string(targetState)),
			zap.Float64("drawdown", drawdown),
			zap.Float64("scale", targetScale),
		)
		b.state = targetState
		b.scale = targetScale
		b.pendingCount = 0
	}
	return b.scale
}

// ScaleFor returns the ladder scale for a drawdown without any hysteresis.
// Monotone non-increasing in drawdown.
func (b *Breaker) ScaleFor(drawdown float64) float64 {
	scale, _ := b.ladder(drawdown)
	return scale
}

// State returns the confirmed breaker state.
func (b *Breaker) State() BreakerState { return b.state }

// Scale returns the confirmed scale in force.
func (b *Breaker) Scale() float64 { return b.scale }

func (b *Breaker) ladder(drawdown float64) (float64, BreakerState) {
	scale := 1.0
	crossed := 0
	for _, s := range b.steps {
		if drawdown >= s.DrawdownAt {
			scale = s.Scale
			crossed++
		}
	}

	switch {
	case crossed == 0:
		return scale, BreakerNormal
	case crossed == len(b.steps) || scale == 0:
		return scale, BreakerBreach
	default:
		return scale, BreakerWarning
	}
}
