package calculate

import "github.com/Alias1177/candlecast/models"

// stochasticK computes %K for the kPeriod window ending at end (exclusive)
func stochasticK(highs, lows, closes []float64, end, kPeriod int) float64 {
	start := end - kPeriod
	highest, lowest := highs[start], lows[start]
	for i := start + 1; i < end; i++ {
		if highs[i] > highest {
			highest = highs[i]
		}
		if lows[i] < lowest {
			lowest = lows[i]
		}
	}

	if highest-lowest <= 0 {
		return 50.0 // no range, default to middle
	}
	return Clamp((closes[end-1]-lowest)/(highest-lowest)*100, 0, 100)
}

// Stochastic calculates %K over kPeriod candles and %D as the SMA of the last
// dPeriod %K values. Fewer than kPeriod candles yields 50/50. When there are not
// enough candles for dPeriod full %K windows, %D averages the ones available.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) models.Stochastic {
	n := minLen(highs, lows, closes)
	if kPeriod <= 0 || n < kPeriod {
		return models.Stochastic{K: 50, D: 50}
	}
	if dPeriod <= 0 {
		dPeriod = 1
	}

	k := stochasticK(highs, lows, closes, n, kPeriod)

	var kSum float64
	count := 0
	for i := 0; i < dPeriod; i++ {
		end := n - i
		if end < kPeriod {
			break
		}
		kSum += stochasticK(highs, lows, closes, end, kPeriod)
		count++
	}

	return models.Stochastic{
		K: k,
		D: Clamp(kSum/float64(count), 0, 100),
	}
}
