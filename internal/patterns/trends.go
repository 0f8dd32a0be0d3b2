package patterns

import (
	"math"

	"github.com/Alias1177/candlecast/models"
)

// regressionSlope fits y = a + b*x over x = 0..n-1 and returns b
func regressionSlope(values []float64) float64 {
	n := float64(len(values))
	if len(values) < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denominator := n*sumXX - sumX*sumX
	if denominator == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denominator
}

// relativeDrift is the regression move across the whole window as a fraction of the mean
func relativeDrift(values []float64) float64 {
	mean := average(values)
	if mean == 0 {
		return 0
	}
	return regressionSlope(values) * float64(len(values)-1) / mean
}

// priorTrend classifies the move over the lookback candles ending right
// before window start. A move under minMove (fraction of price) is neutral.
func priorTrend(candles []models.Candle, start, lookback int, minMove float64) models.PatternKind {
	if start <= 0 || lookback <= 0 {
		return models.PatternNeutral
	}

	from := start - lookback
	if from < 0 {
		from = 0
	}
	first := candles[from].Close
	last := candles[start-1].Close
	if first <= 0 || from == start-1 {
		return models.PatternNeutral
	}

	move := (last - first) / first
	switch {
	case move > minMove:
		return models.PatternBullish
	case move < -minMove:
		return models.PatternBearish
	default:
		return models.PatternNeutral
	}
}

func highsOf(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func lowsOf(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

func closesOf(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func argMax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func argMin(values []float64) int {
	best := 0
	for i, v := range values {
		if v < values[best] {
			best = i
		}
	}
	return best
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
