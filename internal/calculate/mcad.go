package calculate

import "github.com/Alias1177/candlecast/models"

// MACD calculates the MACD line (fast EMA minus slow EMA), its signal line
// (EMA of the MACD line) and the histogram. Fewer than slowPeriod prices
// yields all zeros.
func MACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) models.MACD {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 || len(prices) < slowPeriod {
		return models.MACD{}
	}

	fast := EMASeries(prices, fastPeriod)
	slow := EMASeries(prices, slowPeriod)

	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = fast[i] - slow[i]
	}

	signal := EMASeries(line, signalPeriod)

	macdLine := finiteOr(line[len(line)-1], 0)
	signalLine := finiteOr(signal[len(signal)-1], 0)

	return models.MACD{
		Line:      macdLine,
		Signal:    signalLine,
		Histogram: macdLine - signalLine,
	}
}
