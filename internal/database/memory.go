package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Alias1177/candlecast/models"
)

// MemoryStore keeps candles, history and weights in process memory. It is used
// by the backtester and as a stand-in when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	candles map[string]map[int]models.Candle
	history []models.PredictionHistoryEntry
	byID    map[string]int
	weights *models.ModelWeights
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candles: make(map[string]map[int]models.Candle),
		byID:    make(map[string]int),
	}
}

// SaveCandles stores candles for symbol. A candle already stored under the same index is kept.
func (m *MemoryStore) SaveCandles(_ context.Context, symbol string, candles []models.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	series, ok := m.candles[symbol]
	if !ok {
		series = make(map[int]models.Candle, len(candles))
		m.candles[symbol] = series
	}
	for _, c := range candles {
		if _, exists := series[c.Index]; !exists {
			series[c.Index] = c
		}
	}
	return nil
}

// LoadCandles returns the latest limit candles for symbol ordered by index
func (m *MemoryStore) LoadCandles(_ context.Context, symbol string, limit int) ([]models.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.candles[symbol]
	out := make([]models.Candle, 0, len(series))
	for _, c := range series {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// DeleteCandles removes all candles of symbol
func (m *MemoryStore) DeleteCandles(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.candles, symbol)
	return nil
}

// AppendHistory logs a new prediction
func (m *MemoryStore) AppendHistory(_ context.Context, entry models.PredictionHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[entry.ID]; exists {
		return fmt.Errorf("prediction %s already logged", entry.ID)
	}
	m.byID[entry.ID] = len(m.history)
	m.history = append(m.history, entry)
	return nil
}

// UpdateOutcome back-fills the realized direction of a logged prediction
func (m *MemoryStore) UpdateOutcome(_ context.Context, id string, actual models.Direction, correct bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownPrediction, id)
	}
	m.history[pos].ActualOutcome = &actual
	m.history[pos].Correct = &correct
	return nil
}

// RecentHistory returns the last limit entries, oldest first
func (m *MemoryStore) RecentHistory(_ context.Context, limit int) ([]models.PredictionHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if limit > 0 && len(m.history) > limit {
		start = len(m.history) - limit
	}
	return append([]models.PredictionHistoryEntry(nil), m.history[start:]...), nil
}

// LoadWeights returns the saved weight snapshot, if any
func (m *MemoryStore) LoadWeights(_ context.Context) (models.ModelWeights, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.weights == nil {
		return models.ModelWeights{}, false, nil
	}
	return *m.weights, true, nil
}

// SaveWeights replaces the saved weight snapshot
func (m *MemoryStore) SaveWeights(_ context.Context, w models.ModelWeights) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights = &w
	return nil
}

var (
	_ models.CandleStore  = (*MemoryStore)(nil)
	_ models.HistoryStore = (*MemoryStore)(nil)
	_ models.WeightStore  = (*MemoryStore)(nil)
	_ models.CandleStore  = (*DB)(nil)
	_ models.HistoryStore = (*DB)(nil)
	_ models.WeightStore  = (*DB)(nil)
	_ models.CandleStore  = (*RedisStore)(nil)
	_ models.WeightStore  = (*RedisStore)(nil)
)
