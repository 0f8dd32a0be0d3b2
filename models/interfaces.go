package models

import "context"

// CandleStore persists candle sequences per symbol. Load returns candles
// ordered by index.
type CandleStore interface {
	SaveCandles(ctx context.Context, symbol string, candles []Candle) error
	LoadCandles(ctx context.Context, symbol string, limit int) ([]Candle, error)
	DeleteCandles(ctx context.Context, symbol string) error
}

// HistoryStore is an append-only log of predictions. UpdateOutcome only
// back-fills the outcome fields of an existing entry.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry PredictionHistoryEntry) error
	UpdateOutcome(ctx context.Context, id string, actual Direction, correct bool) error
	RecentHistory(ctx context.Context, limit int) ([]PredictionHistoryEntry, error)
}

// WeightStore keeps a snapshot of the model weights across restarts
type WeightStore interface {
	LoadWeights(ctx context.Context) (ModelWeights, bool, error)
	SaveWeights(ctx context.Context, w ModelWeights) error
}

// PositionSizer turns a prediction into a recommended stake
type PositionSizer interface {
	Size(result PredictionResult) (PositionSizingResult, error)
}
