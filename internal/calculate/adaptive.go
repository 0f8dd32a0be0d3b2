package calculate

import (
	"math"

	"github.com/Alias1177/candlecast/models"
)

// AdaptParams shortens oscillator periods when short-term volatility runs
// well above long-term volatility and lengthens them when it runs well below.
// Windows shorter than 30 candles are returned unchanged.
func AdaptParams(candles []models.Candle, params Params) Params {
	if len(candles) < 30 {
		return params
	}

	closes, highs, lows, _ := Series(candles)
	atr5 := ATR(highs, lows, closes, 5)
	atr20 := ATR(highs, lows, closes, 20)
	volatilityRatio := 1.0
	if atr20 > 0 {
		volatilityRatio = atr5 / atr20
	}

	adapted := params
	adapted.Adaptive = false
	adapted.MAPeriods = append([]int(nil), params.MAPeriods...)

	switch {
	case volatilityRatio > 1.5:
		// High volatility - shorter periods react faster
		adapted.RSIPeriod = maxInt(5, params.RSIPeriod-2)
		adapted.StochKPeriod = maxInt(5, params.StochKPeriod-2)
		adapted.BBStdDev = math.Min(3.0, params.BBStdDev+0.3)
	case volatilityRatio < 0.7:
		// Low volatility - longer periods filter noise
		adapted.RSIPeriod = minInt(21, params.RSIPeriod+2)
		adapted.StochKPeriod = minInt(21, params.StochKPeriod+2)
		adapted.BBStdDev = math.Max(1.8, params.BBStdDev-0.2)
	}

	return adapted
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
