// Package registry provides lookup and dispatch of strategy implementations.
//
// The registry is an explicitly constructed instance passed into whichever
// component drives a backtest. There is no process-wide registry: parallel
// runs each hold their own references and tests stay deterministic.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/signals"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

// Strategy is the contract every trading strategy plugs in through. What a
// strategy does internally is its own business; the engine only consumes the
// tagged output.
type Strategy interface {
	ID() string
	AssetClass() types.AssetClass
	GenerateSignals(ctx context.Context, window types.MarketWindow) (signals.StrategyOutput, error)
}

// Registry holds strategy implementations keyed by identifier.
type Registry struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	strategies map[string]Strategy
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		logger:     logger.Named("registry"),
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy. Registering a duplicate ID is a wiring bug and
// fails loudly.
func (r *Registry) Register(s Strategy) error {
	if s == nil || s.ID() == "" {
		return fmt.Errorf("cannot register strategy without an ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[s.ID()]; exists {
		return fmt.Errorf("strategy %q already registered", s.ID())
	}
	r.strategies[s.ID()] = s

	r.logger.Info("registered strategy",
		zap.String("id", s.ID()),
		zap.String("assetClass", string(s.AssetClass())),
	)
	return nil
}

// Get returns the strategy with the given ID.
func (r *Registry) Get(id string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[id]
	if !ok {
		return nil, fmt.Errorf("strategy %q not registered", id)
	}
	return s, nil
}

// List returns registered strategy IDs in stable order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ByAssetClass returns the strategies covering one asset class, in stable
// ID order.
func (r *Registry) ByAssetClass(ac types.AssetClass) []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Strategy
	for _, s := range r.strategies {
		if s.AssetClass() == ac {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
