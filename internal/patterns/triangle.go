package patterns

import (
	"math"

	"github.com/Alias1177/candlecast/models"
)

// DetectTriangle looks for a flat boundary touched at least twice within the
// touch tolerance while the opposite boundary slopes toward it. Flat highs with
// rising lows form an ascending (bullish) triangle, flat lows with falling highs
// a descending (bearish) one.
func (d *Detector) DetectTriangle(candles []models.Candle) *models.PatternMatch {
	window := trailing(candles, d.th.TriangleWindow, d.th.TriangleMinWindow)
	if window == nil {
		return nil
	}

	highs := highsOf(window)
	lows := lowsOf(window)
	highDrift := relativeDrift(highs)
	lowDrift := relativeDrift(lows)

	resistance := highs[argMax(highs)]
	support := lows[argMin(lows)]

	if touches := countTouches(highs, resistance, d.th.TriangleTouchTolerance); touches >= 2 &&
		math.Abs(highDrift) < d.th.TriangleFlatDrift && lowDrift > d.th.TriangleFlatDrift {
		confidence := 60 + math.Min(float64(touches), 5)*5
		return newMatch(AscendingTriangle, models.PatternBullish, confidence, window, d.th.TriangleMinWindow)
	}

	if touches := countTouches(lows, support, d.th.TriangleTouchTolerance); touches >= 2 &&
		math.Abs(lowDrift) < d.th.TriangleFlatDrift && highDrift < -d.th.TriangleFlatDrift {
		confidence := 60 + math.Min(float64(touches), 5)*5
		return newMatch(DescendingTriangle, models.PatternBearish, confidence, window, d.th.TriangleMinWindow)
	}

	return nil
}

// countTouches counts values within tolerance (fraction of extreme) of extreme
func countTouches(values []float64, extreme, tolerance float64) int {
	if extreme == 0 {
		return 0
	}
	touches := 0
	for _, v := range values {
		if math.Abs(v-extreme)/math.Abs(extreme) <= tolerance {
			touches++
		}
	}
	return touches
}
