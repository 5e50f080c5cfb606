package backtester

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// SweepResult pairs one config of a batch with its outcome.
type SweepResult struct {
	Config *types.BacktestConfig
	Result *types.BacktestResult
	Err    error
}

// Sweep runs a batch of backtest configs over a bounded worker pool and
// returns results in input order. Each run gets its own engine so books never
// cross; one failed config does not stop the rest.
func Sweep(
	ctx context.Context,
	logger *zap.Logger,
	newEngine func() *Engine,
	configs []*types.BacktestConfig,
	workers int,
) []SweepResult {
	if workers < 1 {
		workers = 1
	}
	if workers > len(configs) {
		workers = len(configs)
	}

	results := make([]SweepResult, len(configs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine := newEngine()
			for i := range jobs {
				result, err := engine.Run(ctx, configs[i])
				results[i] = SweepResult{Config: configs[i], Result: result, Err: err}
				if err != nil {
					logger.Warn("sweep run failed",
						zap.String("id", configs[i].ID),
						zap.Error(err),
					)
				}
			}
		}()
	}

	for i := range configs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
