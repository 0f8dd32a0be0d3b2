package prediction

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Alias1177/candlecast/internal/weights"
	"github.com/Alias1177/candlecast/models"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func generateTestCandles(n int, generator func(int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		c := generator(i)
		c.Index = i
		c.Timestamp = baseTime.Add(time.Duration(i) * 5 * time.Minute)
		candles[i] = c
	}
	return candles
}

func risingCandles(n int) []models.Candle {
	return generateTestCandles(n, func(i int) models.Candle {
		open := 1.10 + 0.001*float64(i)
		closePrice := open + 0.0008
		return models.Candle{Open: open, High: closePrice + 0.0002, Low: open - 0.0002, Close: closePrice, Volume: 1000 + float64(i)}
	})
}

// fakeStore records persistence calls
type fakeStore struct {
	mu       sync.Mutex
	appended []models.PredictionHistoryEntry
	outcomes map[string]models.Direction
	saved    []models.ModelWeights
	stored   *models.ModelWeights
}

func newFakeStore() *fakeStore {
	return &fakeStore{outcomes: make(map[string]models.Direction)}
}

func (f *fakeStore) AppendHistory(_ context.Context, entry models.PredictionHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, entry)
	return nil
}

func (f *fakeStore) UpdateOutcome(_ context.Context, id string, actual models.Direction, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[id] = actual
	return nil
}

func (f *fakeStore) RecentHistory(_ context.Context, limit int) ([]models.PredictionHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.appended) > limit {
		return f.appended[len(f.appended)-limit:], nil
	}
	return f.appended, nil
}

func (f *fakeStore) LoadWeights(context.Context) (models.ModelWeights, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		return models.ModelWeights{}, false, nil
	}
	return *f.stored, true, nil
}

func (f *fakeStore) SaveWeights(_ context.Context, w models.ModelWeights) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, w)
	return nil
}

type countingRecorder struct {
	mu          sync.Mutex
	predictions int
	outcomes    int
	weightSets  int
}

func (r *countingRecorder) ObservePrediction(string, models.PredictionResult) {
	r.mu.Lock()
	r.predictions++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveOutcome(string, bool) {
	r.mu.Lock()
	r.outcomes++
	r.mu.Unlock()
}

func (r *countingRecorder) SetWeights(models.ModelWeights) {
	r.mu.Lock()
	r.weightSets++
	r.mu.Unlock()
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return baseTime.Add(time.Hour) }
	}
	engine, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestPredict(t *testing.T) {
	store := newFakeStore()
	recorder := &countingRecorder{}
	engine := newTestEngine(t, Options{HistoryStore: store, Recorder: recorder})
	candles := risingCandles(60)

	result, err := engine.Predict(context.Background(), "EUR/USD", candles)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	if result.ID == "" || result.Symbol != "EUR/USD" {
		t.Errorf("missing id or symbol: %+v", result)
	}
	if result.Probability < MinProbability || result.Probability > MaxProbability {
		t.Errorf("probability out of range: %v", result.Probability)
	}
	if result.Confidence < MinConfidence || result.Confidence > MaxConfidence || result.Confidence > result.Probability {
		t.Errorf("confidence %v invalid for probability %v", result.Confidence, result.Probability)
	}
	for i, v := range result.Factors.Values() {
		if v < 0 || v > 100 {
			t.Errorf("%s out of range: %v", models.Factors[i], v)
		}
	}
	if want := candles[59].Timestamp.Add(5 * time.Minute); !result.TargetTime.Equal(want) {
		t.Errorf("TargetTime = %v, want %v", result.TargetTime, want)
	}
	if result.LastClose != candles[59].Close {
		t.Errorf("LastClose = %v, want %v", result.LastClose, candles[59].Close)
	}
	if result.Recommendation == "" || len(result.Contributions) != 6 {
		t.Errorf("missing recommendation or contributions")
	}

	if h := engine.History(); len(h) != 1 || h[0].ID != result.ID || h[0].Labeled() {
		t.Errorf("History() = %+v", h)
	}
	if len(store.appended) != 1 {
		t.Errorf("history store got %d entries, want 1", len(store.appended))
	}
	if recorder.predictions != 1 {
		t.Errorf("recorder saw %d predictions, want 1", recorder.predictions)
	}
}

func TestPredictRejectsBadInput(t *testing.T) {
	engine := newTestEngine(t, Options{})
	ctx := context.Background()

	if _, err := engine.Predict(ctx, "EUR/USD", nil); !errors.Is(err, models.ErrInsufficientData) {
		t.Errorf("empty window error = %v, want ErrInsufficientData", err)
	}

	broken := risingCandles(20)
	broken[10].High = broken[10].Low - 0.01
	if _, err := engine.Predict(ctx, "EUR/USD", broken); !errors.Is(err, models.ErrInvalidCandle) {
		t.Errorf("invalid candle error = %v, want ErrInvalidCandle", err)
	}

	duplicate := risingCandles(20)
	duplicate[5].Index = duplicate[4].Index
	if _, err := engine.Predict(ctx, "EUR/USD", duplicate); !errors.Is(err, models.ErrInvalidCandle) {
		t.Errorf("duplicate index error = %v, want ErrInvalidCandle", err)
	}

	nan := risingCandles(20)
	nan[19].Close = math.NaN()
	if _, err := engine.Predict(ctx, "EUR/USD", nan); !errors.Is(err, models.ErrInvalidCandle) {
		t.Errorf("NaN close error = %v, want ErrInvalidCandle", err)
	}

	if len(engine.History()) != 0 {
		t.Error("rejected windows must not enter the history")
	}
}

func TestNewEngineRejectsUnsupportedInterval(t *testing.T) {
	if _, err := NewEngine(Options{IntervalMinutes: 7}); !errors.Is(err, models.ErrInvalidInterval) {
		t.Errorf("NewEngine() error = %v, want ErrInvalidInterval", err)
	}
}

func TestRecordOutcome(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, Options{HistoryStore: store})
	ctx := context.Background()

	result, err := engine.Predict(ctx, "EUR/USD", risingCandles(40))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	if _, err := engine.RecordOutcome(ctx, "missing", models.DirectionUp); !errors.Is(err, models.ErrUnknownPrediction) {
		t.Errorf("unknown id error = %v, want ErrUnknownPrediction", err)
	}

	entry, err := engine.RecordOutcome(ctx, result.ID, result.Direction)
	if err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}
	if !entry.Labeled() || !*entry.Correct || *entry.ActualOutcome != result.Direction {
		t.Errorf("entry not labeled correctly: %+v", entry)
	}
	if store.outcomes[result.ID] != result.Direction {
		t.Errorf("history store outcome = %s, want %s", store.outcomes[result.ID], result.Direction)
	}

	if _, err := engine.RecordOutcome(ctx, result.ID, result.Direction.Opposite()); !errors.Is(err, models.ErrOutcomeRecorded) {
		t.Errorf("second outcome error = %v, want ErrOutcomeRecorded", err)
	}

	if acc, n := engine.Accuracy(); acc != 1 || n != 1 {
		t.Errorf("Accuracy() = %v over %d, want 1 over 1", acc, n)
	}
}

func TestResolveOutcome(t *testing.T) {
	engine := newTestEngine(t, Options{})
	ctx := context.Background()

	result, err := engine.Predict(ctx, "EUR/USD", risingCandles(40))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	entry, err := engine.ResolveOutcome(ctx, result.ID, result.LastClose+0.001)
	if err != nil {
		t.Fatalf("ResolveOutcome() error = %v", err)
	}
	if *entry.ActualOutcome != models.DirectionUp {
		t.Errorf("outcome = %s, want UP", *entry.ActualOutcome)
	}
	if *entry.Correct != (result.Direction == models.DirectionUp) {
		t.Errorf("correct flag does not match direction %s", result.Direction)
	}

	second, _ := engine.Predict(ctx, "EUR/USD", risingCandles(41))
	entry, err = engine.ResolveOutcome(ctx, second.ID, second.LastClose)
	if err != nil {
		t.Fatalf("ResolveOutcome() error = %v", err)
	}
	if *entry.ActualOutcome != models.DirectionDown {
		t.Errorf("unchanged close should resolve DOWN, got %s", *entry.ActualOutcome)
	}

	if _, err := engine.ResolveOutcome(ctx, "missing", 1); !errors.Is(err, models.ErrUnknownPrediction) {
		t.Errorf("unknown id error = %v, want ErrUnknownPrediction", err)
	}
}

func TestOutcomesDriveLearner(t *testing.T) {
	store := newFakeStore()
	recorder := &countingRecorder{}
	engine := newTestEngine(t, Options{
		WeightStore: store,
		Recorder:    recorder,
		Learner:     weights.LearnerConfig{BatchSize: 2},
	})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		result, err := engine.Predict(ctx, "EUR/USD", risingCandles(40+i))
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		if _, err := engine.RecordOutcome(ctx, result.ID, models.DirectionUp); err != nil {
			t.Fatalf("RecordOutcome() error = %v", err)
		}
	}

	if len(store.saved) != 2 {
		t.Errorf("weights saved %d times, want 2", len(store.saved))
	}
	w := engine.Weights()
	if math.Abs(w.Sum()-1) > 1e-9 {
		t.Errorf("weights sum to %v", w.Sum())
	}
	if engine.LearnerState() != weights.Idle {
		t.Errorf("learner state = %s, want IDLE", engine.LearnerState())
	}
	if recorder.outcomes != 4 {
		t.Errorf("recorder saw %d outcomes, want 4", recorder.outcomes)
	}
}

func TestResetAndRestoreWeights(t *testing.T) {
	store := newFakeStore()
	saved := weights.Normalize(models.ModelWeights{Technical: 0.4, Volume: 0.1, Momentum: 0.1, Volatility: 0.1, Pattern: 0.2, Trend: 0.1})
	store.stored = &saved

	engine := newTestEngine(t, Options{WeightStore: store})
	ctx := context.Background()

	if err := engine.RestoreWeights(ctx); err != nil {
		t.Fatalf("RestoreWeights() error = %v", err)
	}
	if engine.Weights() != saved {
		t.Errorf("Weights() = %+v, want restored %+v", engine.Weights(), saved)
	}

	if got := engine.ResetWeights(ctx); got != weights.Prior() {
		t.Errorf("ResetWeights() = %+v, want prior", got)
	}
	if last := store.saved[len(store.saved)-1]; last != weights.Prior() {
		t.Errorf("reset weights not persisted: %+v", last)
	}
}

func TestHistoryLimit(t *testing.T) {
	engine := newTestEngine(t, Options{HistoryLimit: 3})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		result, err := engine.Predict(ctx, "EUR/USD", risingCandles(30+i))
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		ids = append(ids, result.ID)
	}

	history := engine.History()
	if len(history) != 3 || history[0].ID != ids[2] || history[2].ID != ids[4] {
		t.Errorf("history should keep the 3 newest entries")
	}
	if _, err := engine.RecordOutcome(ctx, ids[0], models.DirectionUp); !errors.Is(err, models.ErrUnknownPrediction) {
		t.Errorf("evicted entry error = %v, want ErrUnknownPrediction", err)
	}
}

func TestConcurrentPredictions(t *testing.T) {
	engine := newTestEngine(t, Options{Learner: weights.LearnerConfig{BatchSize: 5}})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				result, err := engine.Predict(ctx, "EUR/USD", risingCandles(30+g+i))
				if err != nil {
					errs <- err
					return
				}
				if _, err := engine.ResolveOutcome(ctx, result.ID, result.LastClose*1.001); err != nil {
					errs <- err
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent run error: %v", err)
	}
	if len(engine.History()) != 40 {
		t.Errorf("history has %d entries, want 40", len(engine.History()))
	}
	if w := engine.Weights(); math.Abs(w.Sum()-1) > 1e-9 {
		t.Errorf("weights sum to %v", w.Sum())
	}
}

func TestEnginesAreIndependent(t *testing.T) {
	first := newTestEngine(t, Options{Learner: weights.LearnerConfig{BatchSize: 1}})
	second := newTestEngine(t, Options{})
	ctx := context.Background()

	// push the first engine's weights away from the prior
	for i := 0; i < 10; i++ {
		result, err := first.Predict(ctx, "EUR/USD", risingCandles(40+i))
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		if _, err := first.RecordOutcome(ctx, result.ID, result.Direction.Opposite()); err != nil {
			t.Fatalf("RecordOutcome() error = %v", err)
		}
	}

	if second.Weights() != weights.Prior() {
		t.Errorf("second engine weights changed: %+v", second.Weights())
	}
	if len(second.History()) != 0 {
		t.Error("second engine history should be empty")
	}
}
