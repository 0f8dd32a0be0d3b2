package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Alias1177/candlecast/models"
)

// Recorder exports prediction engine events as Prometheus metrics
type Recorder struct {
	predictions *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	probability *prometheus.HistogramVec
	score       *prometheus.GaugeVec
	accuracy    *prometheus.GaugeVec
	weights     *prometheus.GaugeVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec

	mu      sync.Mutex
	tallies map[string]*tally
}

type tally struct {
	labeled int
	correct int
}

// New creates a recorder registered with reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlecast_predictions_total",
				Help: "Total number of predictions generated",
			},
			[]string{"symbol", "direction"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlecast_outcomes_total",
				Help: "Total number of recorded outcomes",
			},
			[]string{"symbol", "result"},
		),
		probability: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlecast_prediction_probability",
				Help:    "Probability reported with each prediction",
				Buckets: prometheus.LinearBuckets(55, 5, 9),
			},
			[]string{"symbol"},
		),
		score: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlecast_last_score",
				Help: "Weighted ensemble score of the last prediction",
			},
			[]string{"symbol"},
		),
		accuracy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlecast_accuracy_ratio",
				Help: "Share of labeled predictions that were correct",
			},
			[]string{"symbol"},
		),
		weights: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlecast_model_weight",
				Help: "Current ensemble weight of each factor",
			},
			[]string{"factor"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlecast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlecast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		tallies: make(map[string]*tally),
	}
}

// ObservePrediction records a generated prediction
func (r *Recorder) ObservePrediction(symbol string, result models.PredictionResult) {
	r.predictions.WithLabelValues(symbol, string(result.Direction)).Inc()
	r.probability.WithLabelValues(symbol).Observe(result.Probability)
	r.score.WithLabelValues(symbol).Set(result.Score)
}

// ObserveOutcome records whether a prediction was correct and updates the
// running accuracy of the symbol
func (r *Recorder) ObserveOutcome(symbol string, correct bool) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	r.outcomes.WithLabelValues(symbol, result).Inc()

	r.mu.Lock()
	t, ok := r.tallies[symbol]
	if !ok {
		t = &tally{}
		r.tallies[symbol] = t
	}
	t.labeled++
	if correct {
		t.correct++
	}
	ratio := float64(t.correct) / float64(t.labeled)
	r.mu.Unlock()

	r.accuracy.WithLabelValues(symbol).Set(ratio)
}

// SetWeights publishes the current weight vector
func (r *Recorder) SetWeights(w models.ModelWeights) {
	values := w.Values()
	for i, f := range models.Factors {
		r.weights.WithLabelValues(string(f)).Set(values[i])
	}
}

// RecordError records an error occurrence
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
