package calculate

import "github.com/Alias1177/candlecast/models"

// BollingerBands calculates the middle band (SMA) and the upper/lower bands at
// k standard deviations. With fewer than period prices all three bands equal
// the last price.
func BollingerBands(prices []float64, period int, k float64) models.Bollinger {
	if period <= 0 || len(prices) < period {
		last := lastOr(prices, 0)
		return models.Bollinger{Upper: last, Middle: last, Lower: last}
	}

	middle := SMA(prices, period)
	sd := StdDev(prices, period)

	return models.Bollinger{
		Upper:  middle + sd*k,
		Middle: middle,
		Lower:  middle - sd*k,
	}
}
