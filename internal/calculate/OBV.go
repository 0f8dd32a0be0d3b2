package calculate

// OBV calculates On-Balance Volume
func OBV(closes, volumes []float64) float64 {
	n := minLen(closes, volumes)
	if n < 2 {
		return 0.0
	}

	obv := volumes[0]
	for i := 1; i < n; i++ {
		if closes[i] > closes[i-1] {
			// Price up, add volume
			obv += volumes[i]
		} else if closes[i] < closes[i-1] {
			// Price down, subtract volume
			obv -= volumes[i]
		}
	}

	return finiteOr(obv, 0)
}

// VolumeRatio returns the latest volume divided by the average of the period
// volumes before it. Returns 1 when there is no usable history or the average is zero.
func VolumeRatio(volumes []float64, period int) float64 {
	if len(volumes) < 2 || period <= 0 {
		return 1.0
	}

	history := volumes[:len(volumes)-1]
	if len(history) > period {
		history = history[len(history)-period:]
	}

	avg := average(history)
	if avg <= 0 {
		return 1.0
	}
	return finiteOr(volumes[len(volumes)-1]/avg, 1.0)
}
