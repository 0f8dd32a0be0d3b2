package calculate

// EMASeries returns the exponential moving average for every price. The series
// is seeded with the first price and uses multiplier 2/(period+1).
func EMASeries(prices []float64, period int) []float64 {
	if len(prices) == 0 || period <= 0 {
		return nil
	}

	multiplier := 2.0 / float64(period+1)

	out := make([]float64, len(prices))
	ema := prices[0]
	out[0] = ema
	for i := 1; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		out[i] = ema
	}

	return out
}

// EMA returns the latest exponential moving average value.
// With fewer than period prices it returns the last price.
func EMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return lastOr(prices, 0)
	}
	return finiteOr(lastOr(EMASeries(prices, period), 0), lastOr(prices, 0))
}
