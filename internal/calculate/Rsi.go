package calculate

// RSI calculates the Relative Strength Index from the average gain and
// average loss over the trailing window of up to period price changes.
//
// Fewer than period prices (or fewer than two) yields the neutral 50.
// A window with no losses yields 100.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period || len(prices) < 2 {
		return 50.0
	}

	changes := period
	if len(prices)-1 < changes {
		changes = len(prices) - 1
	}

	var gains, losses float64
	for i := len(prices) - changes; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(changes)
	avgLoss := losses / float64(changes)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}

	rs := avgGain / avgLoss
	return Clamp(100.0-(100.0/(1.0+rs)), 0, 100)
}
