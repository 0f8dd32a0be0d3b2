package calculate

import "math"

// average calculates simple average
func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}

// lastOr returns the last element of values, or fallback if empty
func lastOr(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	return values[len(values)-1]
}

// finiteOr returns v unless it is NaN or infinite
func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Clamp bounds v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SMA returns the simple moving average of the last period prices.
// With fewer than period prices it falls back to the last price (0 for an empty slice).
func SMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return lastOr(prices, 0)
	}
	return finiteOr(average(prices[len(prices)-period:]), lastOr(prices, 0))
}

// SMASeries returns the rolling SMA aligned with prices. Positions before the
// first full window are empty: the result has len(prices)-period+1 values.
func SMASeries(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}

	out := make([]float64, 0, len(prices)-period+1)
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// StdDev returns the population standard deviation of the last period prices
func StdDev(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}

	window := prices[len(prices)-period:]
	mean := average(window)

	var variance float64
	for _, p := range window {
		variance += (p - mean) * (p - mean)
	}

	return finiteOr(math.Sqrt(variance/float64(period)), 0)
}
