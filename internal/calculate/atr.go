package calculate

import "math"

// TrueRanges returns the true range of every candle after the first:
// max(high-low, |high-prevClose|, |low-prevClose|)
func TrueRanges(highs, lows, closes []float64) []float64 {
	n := minLen(highs, lows, closes)
	if n < 2 {
		return nil
	}

	out := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		highLow := highs[i] - lows[i]
		highPrevClose := math.Abs(highs[i] - closes[i-1])
		lowPrevClose := math.Abs(lows[i] - closes[i-1])
		out = append(out, math.Max(highLow, math.Max(highPrevClose, lowPrevClose)))
	}
	return out
}

// ATR returns the simple average of the last period true ranges. With fewer
// true ranges than period it averages what is available; a single candle
// yields 0.
func ATR(highs, lows, closes []float64, period int) float64 {
	trueRanges := TrueRanges(highs, lows, closes)
	if len(trueRanges) == 0 || period <= 0 {
		return 0
	}

	periodToUse := period
	if len(trueRanges) < period {
		periodToUse = len(trueRanges)
	}

	return finiteOr(average(trueRanges[len(trueRanges)-periodToUse:]), 0)
}

func minLen(series ...[]float64) int {
	n := -1
	for _, s := range series {
		if n < 0 || len(s) < n {
			n = len(s)
		}
	}
	if n < 0 {
		return 0
	}
	return n
}
