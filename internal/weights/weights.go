package weights

import (
	"math"
	"sync/atomic"

	"github.com/Alias1177/candlecast/models"
)

// Bounds every normalized weight stays within
const (
	MinWeight = 0.05
	MaxWeight = 0.5
)

// Prior returns the initial weight vector
func Prior() models.ModelWeights {
	return models.ModelWeights{
		Technical:  0.25,
		Volume:     0.15,
		Momentum:   0.20,
		Volatility: 0.10,
		Pattern:    0.15,
		Trend:      0.15,
	}
}

// Normalize rescales w so that it sums to 1 with every weight in
// [MinWeight, MaxWeight]. Weights that hit a bound are pinned there and the
// rest keep their relative proportions. Non-finite or non-positive entries
// are treated as MinWeight.
func Normalize(w models.ModelWeights) models.ModelWeights {
	values := w.Values()
	var sum float64
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			values[i] = MinWeight
		}
		sum += values[i]
	}

	if math.Abs(sum-1) <= 1e-12 {
		if same, ok := scaleWithin(values, 1); ok {
			return models.WeightsFromValues(same)
		}
	}

	// plain proportional rescale when nothing crosses a bound
	if scaled, ok := scaleWithin(values, 1/sum); ok {
		return models.WeightsFromValues(scaled)
	}

	// sum of clamp(s*v) is non-decreasing in s: bisect for the scale giving 1
	lo, hi := 0.0, MaxWeight/minPositive(values)
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if clampedSum(values, mid) < 1 {
			lo = mid
		} else {
			hi = mid
		}
	}

	out := clampScaled(values, (lo+hi)/2)
	return models.WeightsFromValues(absorbResidual(out))
}

func scaleWithin(values [6]float64, s float64) ([6]float64, bool) {
	var out [6]float64
	for i, v := range values {
		out[i] = v * s
		if out[i] < MinWeight || out[i] > MaxWeight {
			return out, false
		}
	}
	return out, true
}

func clampScaled(values [6]float64, s float64) [6]float64 {
	var out [6]float64
	for i, v := range values {
		out[i] = math.Min(MaxWeight, math.Max(MinWeight, v*s))
	}
	return out
}

func clampedSum(values [6]float64, s float64) float64 {
	var sum float64
	for _, v := range clampScaled(values, s) {
		sum += v
	}
	return sum
}

// absorbResidual moves the leftover floating-point error onto a weight that
// is strictly inside the bounds
func absorbResidual(values [6]float64) [6]float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	residual := 1 - sum
	for i, v := range values {
		if adjusted := v + residual; adjusted > MinWeight && adjusted < MaxWeight {
			values[i] = adjusted
			break
		}
	}
	return values
}

func minPositive(values [6]float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		if v > 0 && v < m {
			m = v
		}
	}
	return m
}

// Store holds the current weight vector. Readers get an immutable snapshot,
// writers swap in a whole new vector.
type Store struct {
	current atomic.Pointer[models.ModelWeights]
}

// NewStore creates a store holding the normalized initial weights
func NewStore(initial models.ModelWeights) *Store {
	s := &Store{}
	s.Swap(initial)
	return s
}

// Load returns the current weights
func (s *Store) Load() models.ModelWeights {
	return *s.current.Load()
}

// Swap normalizes w, makes it current and returns the stored vector
func (s *Store) Swap(w models.ModelWeights) models.ModelWeights {
	normalized := Normalize(w)
	s.current.Store(&normalized)
	return normalized
}

// Reset restores the prior
func (s *Store) Reset() models.ModelWeights {
	return s.Swap(Prior())
}
