package weights

import (
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Alias1177/candlecast/models"
)

const tolerance = 1e-9

func checkWeightBounds(t *testing.T, w models.ModelWeights) {
	t.Helper()
	if math.Abs(w.Sum()-1) > tolerance {
		t.Fatalf("weights sum to %v, want 1: %+v", w.Sum(), w)
	}
	for i, v := range w.Values() {
		if v < MinWeight-tolerance || v > MaxWeight+tolerance {
			t.Fatalf("%s = %v outside [%v, %v]", models.Factors[i], v, MinWeight, MaxWeight)
		}
	}
}

func labeled(factors models.FactorScores, correct bool) models.PredictionHistoryEntry {
	actual := models.DirectionUp
	if !correct {
		actual = models.DirectionDown
	}
	return models.PredictionHistoryEntry{
		ID:            "test",
		Factors:       factors,
		Prediction:    models.PredictionResult{Direction: models.DirectionUp, Factors: factors},
		ActualOutcome: &actual,
		Correct:       &correct,
		Timestamp:     time.Now(),
	}
}

func neutralFactors() models.FactorScores {
	return models.FactorScores{Technical: 50, Volume: 50, Momentum: 50, Volatility: 50, Pattern: 50, Trend: 50}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   models.ModelWeights
	}{
		{"prior", Prior()},
		{"unnormalized", models.ModelWeights{Technical: 2, Volume: 1, Momentum: 1, Volatility: 1, Pattern: 1, Trend: 1}},
		{"one dominant", models.ModelWeights{Technical: 100, Volume: 1, Momentum: 1, Volatility: 1, Pattern: 1, Trend: 1}},
		{"one tiny", models.ModelWeights{Technical: 0.001, Volume: 1, Momentum: 1, Volatility: 1, Pattern: 1, Trend: 1}},
		{"zeros and NaN", models.ModelWeights{Technical: 0, Volume: math.NaN(), Momentum: -1, Volatility: 0.3, Pattern: 0.3, Trend: 0.3}},
		{"all zero", models.ModelWeights{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkWeightBounds(t, Normalize(tt.in))
		})
	}

	// already valid vectors keep their proportions
	got := Normalize(models.ModelWeights{Technical: 0.5, Volume: 0.3, Momentum: 0.3, Volatility: 0.3, Pattern: 0.3, Trend: 0.3})
	if math.Abs(got.Technical-0.25) > tolerance || math.Abs(got.Volume-0.15) > tolerance {
		t.Errorf("Normalize() = %+v, want proportional rescale", got)
	}

	capped := Normalize(models.ModelWeights{Technical: 100, Volume: 1, Momentum: 1, Volatility: 1, Pattern: 1, Trend: 1})
	if math.Abs(capped.Technical-MaxWeight) > tolerance {
		t.Errorf("dominant weight = %v, want capped at %v", capped.Technical, MaxWeight)
	}
}

func TestScenarioCorrectTechnicalIncreasesWeight(t *testing.T) {
	store := NewStore(Prior())
	learner := NewLearner(store, LearnerConfig{})
	before := store.Load()

	factors := neutralFactors()
	factors.Technical = 75

	var updated bool
	for i := 0; i < 10; i++ {
		_, updated = learner.Observe(labeled(factors, true))
		if i < 9 && updated {
			t.Fatalf("update ran after %d entries, want 10", i+1)
		}
	}
	if !updated {
		t.Fatal("learner should update after 10 labeled entries")
	}

	after := store.Load()
	if after.Technical <= before.Technical {
		t.Errorf("technical weight %v should increase from %v", after.Technical, before.Technical)
	}
	checkWeightBounds(t, after)

	if learner.Pending() != 0 || learner.Updates() != 1 {
		t.Errorf("pending=%d updates=%d, want 0 and 1", learner.Pending(), learner.Updates())
	}
	if learner.State() != Idle {
		t.Errorf("state = %s, want IDLE", learner.State())
	}
}

func TestIncorrectPredictionsLowerWeight(t *testing.T) {
	factors := neutralFactors()
	factors.Pattern = 90

	batch := make([]models.PredictionHistoryEntry, 10)
	for i := range batch {
		batch[i] = labeled(factors, false)
	}

	after := Adjust(Prior(), batch, 60, 0.1)
	if after.Pattern >= Prior().Pattern {
		t.Errorf("pattern weight %v should fall below %v", after.Pattern, Prior().Pattern)
	}
	checkWeightBounds(t, after)
}

func TestAdjustWithoutVotesOnlyNormalizes(t *testing.T) {
	batch := []models.PredictionHistoryEntry{labeled(neutralFactors(), true)}
	if got := Adjust(Prior(), batch, 60, 0.1); got != Normalize(Prior()) {
		t.Errorf("Adjust() = %+v, want prior unchanged", got)
	}
}

func TestUnlabeledEntriesIgnored(t *testing.T) {
	learner := NewLearner(NewStore(Prior()), LearnerConfig{BatchSize: 2})
	for i := 0; i < 5; i++ {
		if _, updated := learner.Observe(models.PredictionHistoryEntry{Factors: neutralFactors()}); updated {
			t.Fatal("unlabeled entry triggered an update")
		}
	}
	if learner.Pending() != 0 {
		t.Errorf("pending = %d, want 0", learner.Pending())
	}
}

func TestWeightsStayBoundedAfterManyUpdates(t *testing.T) {
	store := NewStore(Prior())
	learner := NewLearner(store, LearnerConfig{})
	rng := rand.New(rand.NewSource(3))

	// technical always right, volume always wrong, the rest random
	for i := 0; i < 5000; i++ {
		factors := models.FactorScores{
			Technical:  61 + rng.Float64()*39,
			Volume:     rng.Float64() * 100,
			Momentum:   rng.Float64() * 100,
			Volatility: rng.Float64() * 100,
			Pattern:    rng.Float64() * 100,
			Trend:      rng.Float64() * 100,
		}
		learner.Observe(labeled(factors, rng.Intn(4) != 0))
		checkWeightBounds(t, store.Load())
	}

	if learner.Updates() != 500 {
		t.Errorf("updates = %d, want 500", learner.Updates())
	}
}

func TestResetRestoresPrior(t *testing.T) {
	store := NewStore(Prior())
	learner := NewLearner(store, LearnerConfig{BatchSize: 1})

	factors := neutralFactors()
	factors.Trend = 80
	learner.Observe(labeled(factors, true))
	if store.Load() == Prior() {
		t.Fatal("weights should have moved")
	}

	if got := learner.Reset(); got != Prior() {
		t.Errorf("Reset() = %+v, want prior", got)
	}
}

func TestConcurrentObserve(t *testing.T) {
	store := NewStore(Prior())
	learner := NewLearner(store, LearnerConfig{})

	factors := neutralFactors()
	factors.Momentum = 70

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				learner.Observe(labeled(factors, true))
				_ = store.Load()
			}
		}()
	}
	wg.Wait()

	if learner.Updates() != 20 {
		t.Errorf("updates = %d, want 20", learner.Updates())
	}
	checkWeightBounds(t, store.Load())
}
