package prediction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/candlecast/internal/analysis/scoring"
	"github.com/Alias1177/candlecast/internal/calculate"
	"github.com/Alias1177/candlecast/internal/patterns"
	"github.com/Alias1177/candlecast/internal/weights"
	"github.com/Alias1177/candlecast/models"
)

// DefaultHistoryLimit is how many predictions the engine keeps in memory
const DefaultHistoryLimit = 500

// Recorder receives engine events, typically to export them as metrics
type Recorder interface {
	ObservePrediction(symbol string, result models.PredictionResult)
	ObserveOutcome(symbol string, correct bool)
	SetWeights(w models.ModelWeights)
}

type nopRecorder struct{}

func (nopRecorder) ObservePrediction(string, models.PredictionResult) {}
func (nopRecorder) ObserveOutcome(string, bool)                       {}
func (nopRecorder) SetWeights(models.ModelWeights)                    {}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Params          calculate.Params
	Thresholds      patterns.Thresholds
	Scoring         scoring.Config
	Learner         weights.LearnerConfig
	IntervalMinutes int
	HistoryLimit    int
	InitialWeights  *models.ModelWeights

	HistoryStore models.HistoryStore // optional
	WeightStore  models.WeightStore  // optional
	Recorder     Recorder            // optional
	Now          func() time.Time
}

// Engine turns candle windows into predictions and learns from their outcomes.
// Engines share nothing, so several may run side by side. Predict is safe for
// concurrent use.
type Engine struct {
	params   calculate.Params
	detector *patterns.Detector
	scorer   *scoring.Scorer
	store    *weights.Store
	learner  *weights.Learner
	interval int

	mu           sync.Mutex
	history      []models.PredictionHistoryEntry
	historyLimit int

	historyStore models.HistoryStore
	weightStore  models.WeightStore
	recorder     Recorder
	now          func() time.Time
	logger       zerolog.Logger
}

// NewEngine creates an engine
func NewEngine(opts Options) (*Engine, error) {
	if opts.IntervalMinutes == 0 {
		opts.IntervalMinutes = 5
	}
	if !models.IntervalMinutesValid(opts.IntervalMinutes) {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidInterval, opts.IntervalMinutes)
	}
	if opts.Params.RSIPeriod == 0 {
		opts.Params = calculate.DefaultParams()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	initial := weights.Prior()
	if opts.InitialWeights != nil {
		initial = *opts.InitialWeights
	}
	store := weights.NewStore(initial)

	e := &Engine{
		params:       opts.Params,
		detector:     patterns.NewDetector(opts.Thresholds),
		scorer:       scoring.NewScorer(opts.Scoring),
		store:        store,
		learner:      weights.NewLearner(store, opts.Learner),
		interval:     opts.IntervalMinutes,
		historyLimit: opts.HistoryLimit,
		historyStore: opts.HistoryStore,
		weightStore:  opts.WeightStore,
		recorder:     opts.Recorder,
		now:          opts.Now,
		logger:       log.With().Str("component", "prediction-engine").Logger(),
	}
	e.recorder.SetWeights(store.Load())
	return e, nil
}

// RestoreWeights loads a saved weight snapshot from the WeightStore, if any
func (e *Engine) RestoreWeights(ctx context.Context) error {
	if e.weightStore == nil {
		return nil
	}

	w, ok, err := e.weightStore.LoadWeights(ctx)
	if err != nil {
		return fmt.Errorf("load weights: %w", err)
	}
	if !ok {
		return nil
	}

	restored := e.store.Swap(w)
	e.recorder.SetWeights(restored)
	e.logger.Info().Interface("weights", restored).Msg("Restored model weights")
	return nil
}

// Predict scores the window and predicts the direction of the next candle.
// The window must hold valid candles with strictly increasing indices.
func (e *Engine) Predict(ctx context.Context, symbol string, candles []models.Candle) (models.PredictionResult, error) {
	if len(candles) == 0 {
		return models.PredictionResult{}, fmt.Errorf("%w: empty candle window", models.ErrInsufficientData)
	}
	if err := models.ValidateWindow(candles); err != nil {
		return models.PredictionResult{}, err
	}

	snap := calculate.Snapshot(candles, e.params)
	matches := e.detector.Detect(candles)
	scores := e.scorer.Score(snap, matches)

	strongest := 0.0
	if best, ok := patterns.Strongest(matches); ok {
		strongest = best.Confidence
	}

	w := e.store.Load()
	decision := Decide(scores, w, snap, strongest)

	last := candles[len(candles)-1]
	now := e.now()
	base := last.Timestamp
	if base.IsZero() {
		base = now
	}

	result := models.PredictionResult{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		Direction:      decision.Direction,
		Probability:    decision.Probability,
		Confidence:     decision.Confidence,
		Score:          decision.Score,
		Factors:        scores,
		Contributions:  Contributions(scores, w),
		Patterns:       matches,
		Indicators:     snap,
		Recommendation: Recommendation(decision.Direction, decision.Confidence),
		Timestamp:      now,
		TargetTime:     models.TargetTime(base, e.interval),
		LastClose:      last.Close,
	}

	entry := models.PredictionHistoryEntry{
		ID:         result.ID,
		Factors:    scores,
		Prediction: result,
		Timestamp:  now,
	}
	e.appendHistory(entry)

	if e.historyStore != nil {
		if err := e.historyStore.AppendHistory(ctx, entry); err != nil {
			e.logger.Warn().Err(err).Str("id", result.ID).Msg("Failed to persist prediction")
		}
	}

	e.recorder.ObservePrediction(symbol, result)
	e.logger.Debug().
		Str("symbol", symbol).
		Str("id", result.ID).
		Str("direction", string(result.Direction)).
		Float64("score", result.Score).
		Float64("probability", result.Probability).
		Float64("confidence", result.Confidence).
		Int("patterns", len(matches)).
		Msg("Prediction generated")

	return result, nil
}

func (e *Engine) appendHistory(entry models.PredictionHistoryEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, entry)
	if over := len(e.history) - e.historyLimit; over > 0 {
		e.history = append([]models.PredictionHistoryEntry(nil), e.history[over:]...)
	}
}

// RecordOutcome back-fills the realized direction of a past prediction and
// feeds the labeled entry to the learner
func (e *Engine) RecordOutcome(ctx context.Context, id string, actual models.Direction) (models.PredictionHistoryEntry, error) {
	if actual != models.DirectionUp && actual != models.DirectionDown {
		return models.PredictionHistoryEntry{}, fmt.Errorf("invalid outcome direction %q", actual)
	}

	e.mu.Lock()
	pos := -1
	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		e.mu.Unlock()
		return models.PredictionHistoryEntry{}, fmt.Errorf("%w: %s", models.ErrUnknownPrediction, id)
	}
	if e.history[pos].Labeled() {
		e.mu.Unlock()
		return models.PredictionHistoryEntry{}, fmt.Errorf("%w: %s", models.ErrOutcomeRecorded, id)
	}

	correct := e.history[pos].Prediction.Direction == actual
	outcome := actual
	e.history[pos].ActualOutcome = &outcome
	e.history[pos].Correct = &correct
	entry := e.history[pos]
	e.mu.Unlock()

	if e.historyStore != nil {
		if err := e.historyStore.UpdateOutcome(ctx, id, actual, correct); err != nil {
			e.logger.Warn().Err(err).Str("id", id).Msg("Failed to persist outcome")
		}
	}

	e.recorder.ObserveOutcome(entry.Prediction.Symbol, correct)

	if w, updated := e.learner.Observe(entry); updated {
		e.recorder.SetWeights(w)
		e.persistWeights(ctx, w)
	}

	return entry, nil
}

// ResolveOutcome derives the outcome from the close of the candle following
// the prediction. A close at or below the last close counts as Down.
func (e *Engine) ResolveOutcome(ctx context.Context, id string, nextClose float64) (models.PredictionHistoryEntry, error) {
	e.mu.Lock()
	lastClose, found := 0.0, false
	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].ID == id {
			lastClose, found = e.history[i].Prediction.LastClose, true
			break
		}
	}
	e.mu.Unlock()

	if !found {
		return models.PredictionHistoryEntry{}, fmt.Errorf("%w: %s", models.ErrUnknownPrediction, id)
	}

	actual := models.DirectionDown
	if nextClose > lastClose {
		actual = models.DirectionUp
	}
	return e.RecordOutcome(ctx, id, actual)
}

// Weights returns the current weight snapshot
func (e *Engine) Weights() models.ModelWeights {
	return e.store.Load()
}

// LearnerState reports whether the learner is idle or adjusting
func (e *Engine) LearnerState() weights.State {
	return e.learner.State()
}

// WeightUpdates returns how many learner batches have been applied
func (e *Engine) WeightUpdates() int {
	return e.learner.Updates()
}

// ResetWeights restores the prior weights. It is an operator action and
// also drops labeled entries waiting for the next learner batch.
func (e *Engine) ResetWeights(ctx context.Context) models.ModelWeights {
	w := e.learner.Reset()
	e.recorder.SetWeights(w)
	e.persistWeights(ctx, w)
	return w
}

// History returns a copy of the in-memory prediction log, oldest first
func (e *Engine) History() []models.PredictionHistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.PredictionHistoryEntry(nil), e.history...)
}

// Accuracy returns the share of labeled predictions that were correct
func (e *Engine) Accuracy() (float64, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	labeled, correct := 0, 0
	for _, h := range e.history {
		if !h.Labeled() {
			continue
		}
		labeled++
		if *h.Correct {
			correct++
		}
	}
	if labeled == 0 {
		return 0, 0
	}
	return float64(correct) / float64(labeled), labeled
}

func (e *Engine) persistWeights(ctx context.Context, w models.ModelWeights) {
	if e.weightStore == nil {
		return
	}
	if err := e.weightStore.SaveWeights(ctx, w); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to persist model weights")
	}
}
