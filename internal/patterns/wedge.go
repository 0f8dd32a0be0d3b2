package patterns

import (
	"math"

	"github.com/Alias1177/candlecast/models"
)

// DetectWedge fits regression lines to highs and lows. Both rising with
// unequal slopes is a rising (bearish) wedge, both falling a falling
// (bullish) one. Slopes whose magnitudes differ by less than WedgeMinSlopeGap
// describe a channel and are ignored.
func (d *Detector) DetectWedge(candles []models.Candle) *models.PatternMatch {
	window := trailing(candles, d.th.WedgeWindow, d.th.WedgeMinWindow)
	if window == nil {
		return nil
	}

	highSlope := regressionSlope(highsOf(window))
	lowSlope := regressionSlope(lowsOf(window))

	steeper := math.Max(math.Abs(highSlope), math.Abs(lowSlope))
	if steeper == 0 {
		return nil
	}
	gap := math.Abs(math.Abs(highSlope)-math.Abs(lowSlope)) / steeper
	if gap < d.th.WedgeMinSlopeGap {
		return nil
	}

	confidence := 55 + math.Min(gap, 1)*30

	switch {
	case highSlope > 0 && lowSlope > 0:
		return newMatch(RisingWedge, models.PatternBearish, confidence, window, d.th.WedgeMinWindow)
	case highSlope < 0 && lowSlope < 0:
		return newMatch(FallingWedge, models.PatternBullish, confidence, window, d.th.WedgeMinWindow)
	}
	return nil
}
