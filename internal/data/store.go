// Package data stores historical close series and pre-batches them into the
// windowed datasets the simulation engine consumes.
package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// ClosePoint is one date/close observation for an instrument.
type ClosePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Series is an instrument's historical close series.
type Series struct {
	Instrument string           `json:"instrument"`
	AssetClass types.AssetClass `json:"assetClass"`
	Points     []ClosePoint     `json:"points"`
}

// Store holds close series per instrument and assembles simulation datasets.
// Series are loaded from JSON files in a data directory or seeded directly.
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger
	series map[string]Series
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{logger: logger.Named("data"), series: make(map[string]Series)}
}

// NewStoreFromDir loads every *.json series file under dataDir.
func NewStoreFromDir(logger *zap.Logger, dataDir string) (*Store, error) {
	store := NewStore(logger)

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dataDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read series file %s: %w", entry.Name(), err)
		}
		var s Series
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse series file %s: %w", entry.Name(), err)
		}
		if err := store.Put(s); err != nil {
			return nil, err
		}
	}
	store.logger.Info("loaded series from disk",
		zap.String("dir", dataDir), zap.Int("instruments", len(store.series)))
	return store, nil
}

// Put adds or replaces one instrument's series. Points are sorted by date.
func (s *Store) Put(series Series) error {
	if series.Instrument == "" {
		return &types.ConfigError{Field: "instrument", Reason: "series instrument is empty"}
	}
	if len(series.Points) == 0 {
		return &types.ConfigError{Field: "points", Reason: fmt.Sprintf("series %s has no points", series.Instrument)}
	}
	sorted := make([]ClosePoint, len(series.Points))
	copy(sorted, series.Points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	for i := range sorted {
		sorted[i].Date = midnight(sorted[i].Date)
	}
	series.Points = sorted

	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[series.Instrument] = series
	return nil
}

// Series returns one instrument's stored series.
func (s *Store) Series(instrument string) (Series, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.series[instrument]
	return series, ok
}

// Instruments lists the stored instruments, sorted.
func (s *Store) Instruments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.series))
	for inst := range s.series {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}

// LoadDataSet builds the pre-batched dataset for [start, end]: the union
// rebalance calendar, one window per date with full history up to that date,
// and the realized next-period return per instrument. All I/O and slicing
// happens here; the simulation loop touches memory only.
func (s *Store) LoadDataSet(ctx context.Context, start, end time.Time) (*types.MarketDataSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.series) == 0 {
		return nil, &types.ConfigError{Field: "data", Reason: "store holds no series"}
	}

	start, end = midnight(start), midnight(end)
	dateSet := make(map[time.Time]struct{})
	for _, series := range s.series {
		for _, p := range series.Points {
			if !p.Date.Before(start) && !p.Date.After(end) {
				dateSet[p.Date] = struct{}{}
			}
		}
	}
	if len(dateSet) == 0 {
		return nil, &types.ConfigError{Field: "dates", Reason: "no observations inside the requested range"}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	ds := &types.MarketDataSet{
		Dates:        dates,
		Windows:      make(map[time.Time]types.MarketWindow, len(dates)),
		NextReturns:  make(map[time.Time]map[string]float64, len(dates)),
		AssetClasses: make(map[string]types.AssetClass, len(s.series)),
	}
	for inst, series := range s.series {
		ds.AssetClasses[inst] = series.AssetClass
	}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		window := types.MarketWindow{
			AsOf:    date,
			History: make(map[string][]float64),
			Prices:  make(map[string]decimal.Decimal),
		}
		nextReturns := make(map[string]float64)

		for inst, series := range s.series {
			idx := lastIndexOnOrBefore(series.Points, date)
			if idx < 0 {
				continue
			}
			history := make([]float64, idx+1)
			for i := 0; i <= idx; i++ {
				history[i] = series.Points[i].Close
			}
			window.History[inst] = history

			// Only mark a price when the instrument actually traded today;
			// a stale close must not price a trade.
			if series.Points[idx].Date.Equal(date) {
				window.Prices[inst] = decimal.NewFromFloat(series.Points[idx].Close)
				if idx+1 < len(series.Points) && series.Points[idx].Close != 0 {
					nextReturns[inst] = series.Points[idx+1].Close/series.Points[idx].Close - 1
				}
			}
		}

		ds.Windows[date] = window
		ds.NextReturns[date] = nextReturns
	}
	return ds, nil
}

func lastIndexOnOrBefore(points []ClosePoint, date time.Time) int {
	idx := sort.Search(len(points), func(i int) bool { return points[i].Date.After(date) })
	return idx - 1
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
