package weights

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/candlecast/models"
)

// State of the learner
type State int32

const (
	Idle State = iota
	Adjusting
)

func (s State) String() string {
	if s == Adjusting {
		return "ADJUSTING"
	}
	return "IDLE"
}

// LearnerConfig tunes the batch update
type LearnerConfig struct {
	BatchSize      int     // labeled entries needed before an update
	MaxStep        float64 // largest total adjustment per update
	ScoreThreshold float64 // a factor only votes when its score was above this
}

// DefaultLearnerConfig returns batch 10, step 0.1 and threshold 60
func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{
		BatchSize:      10,
		MaxStep:        0.1,
		ScoreThreshold: 60,
	}
}

// Learner revises the weights in a Store from outcome-labeled prediction
// history. Labeled entries accumulate while Idle; once BatchSize of them are
// pending the learner switches to Adjusting, applies one bounded update and
// returns to Idle. Updates are serialized.
type Learner struct {
	mu      sync.Mutex
	store   *Store
	cfg     LearnerConfig
	pending []models.PredictionHistoryEntry
	state   atomic.Int32
	updates int
	logger  zerolog.Logger
}

// NewLearner creates a learner updating store. Zero config fields take defaults.
func NewLearner(store *Store, cfg LearnerConfig) *Learner {
	defaults := DefaultLearnerConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = defaults.MaxStep
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = defaults.ScoreThreshold
	}

	return &Learner{
		store:  store,
		cfg:    cfg,
		logger: log.With().Str("component", "weight-learner").Logger(),
	}
}

// State returns the current learner state
func (l *Learner) State() State {
	return State(l.state.Load())
}

// Pending returns how many labeled entries wait for the next update
func (l *Learner) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Updates returns how many batch updates have been applied
func (l *Learner) Updates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}

// Observe queues a labeled entry and runs an update once the batch is full.
// Unlabeled entries are ignored. It reports the weights after the call and
// whether they changed.
func (l *Learner) Observe(entry models.PredictionHistoryEntry) (models.ModelWeights, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !entry.Labeled() {
		return l.store.Load(), false
	}

	l.pending = append(l.pending, entry)
	if len(l.pending) < l.cfg.BatchSize {
		return l.store.Load(), false
	}

	l.state.Store(int32(Adjusting))
	defer l.state.Store(int32(Idle))

	batch := l.pending
	l.pending = nil

	before := l.store.Load()
	after := l.store.Swap(Adjust(before, batch, l.cfg.ScoreThreshold, l.cfg.MaxStep))
	l.updates++

	l.logger.Info().
		Int("batch", len(batch)).
		Int("update", l.updates).
		Float64("technical", after.Technical).
		Float64("volume", after.Volume).
		Float64("momentum", after.Momentum).
		Float64("volatility", after.Volatility).
		Float64("pattern", after.Pattern).
		Float64("trend", after.Trend).
		Msg("Model weights updated")

	return after, true
}

// Reset drops pending entries and restores the prior weights
func (l *Learner) Reset() models.ModelWeights {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = nil
	l.logger.Warn().Msg("Model weights reset to prior")
	return l.store.Reset()
}

// Adjust applies one batch update to current. For every factor that scored
// above threshold, a correct prediction tallies +1 and an incorrect one -1.
// Each weight moves by tally/sum(|tally|) * maxStep, is clamped and the vector
// renormalized. With no votes the weights are only renormalized.
func Adjust(current models.ModelWeights, entries []models.PredictionHistoryEntry, threshold, maxStep float64) models.ModelWeights {
	var tally [6]float64
	for _, e := range entries {
		if !e.Labeled() {
			continue
		}
		vote := -1.0
		if *e.Correct {
			vote = 1.0
		}
		for i, score := range e.Factors.Values() {
			if score > threshold {
				tally[i] += vote
			}
		}
	}

	var total float64
	for _, t := range tally {
		total += math.Abs(t)
	}
	if total == 0 {
		return Normalize(current)
	}

	values := current.Values()
	for i := range values {
		adjusted := values[i] + tally[i]/total*maxStep
		values[i] = math.Min(MaxWeight, math.Max(MinWeight, adjusted))
	}
	return Normalize(models.WeightsFromValues(values))
}
