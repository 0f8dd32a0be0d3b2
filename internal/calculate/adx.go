package calculate

import (
	"math"

	"github.com/Alias1177/candlecast/models"
)

// ADX returns a trend-strength value in [0,100]. It is a simplified proxy
// rather than Wilder's ADX: 70% comes from the efficiency of the close path
// over the last period candles (net move / total absolute move), 30% from
// how many of the last three moves agree with the net direction.
// A more persistent trend never scores lower. Fewer than two candles yields 50.
func ADX(candles []models.Candle, period int) float64 {
	if len(candles) < 2 || period <= 0 {
		return 50.0
	}

	changes := period
	if len(candles)-1 < changes {
		changes = len(candles) - 1
	}

	window := candles[len(candles)-changes-1:]

	var path float64
	for i := 1; i < len(window); i++ {
		path += math.Abs(window[i].Close - window[i-1].Close)
	}
	if path == 0 {
		return 0
	}

	net := window[len(window)-1].Close - window[0].Close
	efficiency := math.Abs(net) / path

	recent := 3
	if len(window)-1 < recent {
		recent = len(window) - 1
	}
	agreeing := 0
	for i := len(window) - recent; i < len(window); i++ {
		move := window[i].Close - window[i-1].Close
		if (net > 0 && move > 0) || (net < 0 && move < 0) {
			agreeing++
		}
	}
	persistence := float64(agreeing) / 3.0

	return Clamp(100*(0.7*efficiency+0.3*persistence), 0, 100)
}
