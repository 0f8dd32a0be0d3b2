package patterns

import (
	"math"

	"github.com/Alias1177/candlecast/models"
)

// DetectHeadAndShoulders splits the window into thirds. A center-third high
// above both outer-third highs, with shoulders level within ShoulderSymmetry
// and the head at least HeadProminence above them, is a head-and-shoulders
// top. The mirror on lows is the inverse pattern.
func (d *Detector) DetectHeadAndShoulders(candles []models.Candle) *models.PatternMatch {
	window := trailing(candles, d.th.HSWindow, d.th.HSMinWindow)
	if window == nil {
		return nil
	}

	third := len(window) / 3
	highs := highsOf(window)
	lows := lowsOf(window)

	leftHigh := highs[argMax(highs[:third])]
	headHigh := highs[third+argMax(highs[third:2*third])]
	rightHigh := highs[2*third+argMax(highs[2*third:])]

	if headHigh > leftHigh && headHigh > rightHigh {
		shoulder := math.Max(leftHigh, rightHigh)
		symmetry := math.Abs(leftHigh-rightHigh) / shoulder
		prominence := (headHigh - shoulder) / headHigh
		if symmetry <= d.th.ShoulderSymmetry && prominence > d.th.HeadProminence {
			return newMatch(HeadAndShoulders, models.PatternBearish,
				d.headShouldersConfidence(symmetry, prominence), window, d.th.HSMinWindow)
		}
	}

	leftLow := lows[argMin(lows[:third])]
	headLow := lows[third+argMin(lows[third:2*third])]
	rightLow := lows[2*third+argMin(lows[2*third:])]

	if headLow < leftLow && headLow < rightLow && headLow > 0 {
		shoulder := math.Min(leftLow, rightLow)
		symmetry := math.Abs(leftLow-rightLow) / shoulder
		prominence := (shoulder - headLow) / headLow
		if symmetry <= d.th.ShoulderSymmetry && prominence > d.th.HeadProminence {
			return newMatch(InverseHeadAndShoulders, models.PatternBullish,
				d.headShouldersConfidence(symmetry, prominence), window, d.th.HSMinWindow)
		}
	}

	return nil
}

func (d *Detector) headShouldersConfidence(symmetry, prominence float64) float64 {
	confidence := 60.0
	if d.th.ShoulderSymmetry > 0 {
		confidence += (1 - symmetry/d.th.ShoulderSymmetry) * 15
	}
	if d.th.HeadProminence > 0 {
		confidence += math.Min(prominence/d.th.HeadProminence-1, 1) * 10
	}
	return confidence
}

// DetectDouble looks for two highs (or lows) at least DoubleMinSeparation
// candles apart, within DoubleTolerance of each other, with a retracement of
// at least DoubleRetracement between them.
func (d *Detector) DetectDouble(candles []models.Candle) *models.PatternMatch {
	window := trailing(candles, d.th.DoubleWindow, d.th.DoubleMinWindow)
	if window == nil {
		return nil
	}

	highs := highsOf(window)
	lows := lowsOf(window)

	if first, second, ok := d.secondExtreme(highs, argMax(highs), true); ok {
		top := math.Min(highs[first], highs[second])
		trough := lows[first+1+argMin(lows[first+1:second])]
		difference := math.Abs(highs[first]-highs[second]) / math.Max(highs[first], highs[second])
		retracement := (top - trough) / top
		if difference <= d.th.DoubleTolerance && retracement >= d.th.DoubleRetracement {
			return newMatch(DoubleTop, models.PatternBearish,
				d.doubleConfidence(difference, retracement), window, d.th.DoubleMinWindow)
		}
	}

	if first, second, ok := d.secondExtreme(lows, argMin(lows), false); ok {
		bottom := math.Max(lows[first], lows[second])
		peak := highs[first+1+argMax(highs[first+1:second])]
		difference := math.Abs(lows[first]-lows[second]) / math.Max(lows[first], lows[second])
		retracement := 0.0
		if bottom > 0 {
			retracement = (peak - bottom) / bottom
		}
		if difference <= d.th.DoubleTolerance && retracement >= d.th.DoubleRetracement {
			return newMatch(DoubleBottom, models.PatternBullish,
				d.doubleConfidence(difference, retracement), window, d.th.DoubleMinWindow)
		}
	}

	return nil
}

// secondExtreme finds the most extreme value at least DoubleMinSeparation
// away from the primary extreme and returns both positions in order.
func (d *Detector) secondExtreme(values []float64, primary int, highest bool) (int, int, bool) {
	second := -1
	for i, v := range values {
		if i-primary < d.th.DoubleMinSeparation && primary-i < d.th.DoubleMinSeparation {
			continue
		}
		if second < 0 || (highest && v > values[second]) || (!highest && v < values[second]) {
			second = i
		}
	}
	if second < 0 || values[primary] <= 0 {
		return 0, 0, false
	}
	first, last := primary, second
	if second < primary {
		first, last = second, primary
	}
	// at least one candle between the two extremes
	if last-first < 2 {
		return 0, 0, false
	}
	return first, last, true
}

func (d *Detector) doubleConfidence(difference, retracement float64) float64 {
	confidence := 60.0
	if d.th.DoubleTolerance > 0 {
		confidence += (1 - difference/d.th.DoubleTolerance) * 20
	}
	if d.th.DoubleRetracement > 0 {
		confidence += math.Min(retracement/d.th.DoubleRetracement-1, 1) * 10
	}
	return confidence
}
