package market

import (
	"math"

	"github.com/Alias1177/candlecast/internal/calculate"
	"github.com/Alias1177/candlecast/models"
)

// MinCandles is the shortest series Classify and DetectAnomaly will look at
const MinCandles = 21

// trendThreshold is the ADX proxy level above which the market trends
const trendThreshold = 50.0

// Classify describes the regime of the last candles. Short series yield
// RegimeUnknown with a neutral direction.
func Classify(candles []models.Candle) models.MarketRegime {
	regime := models.MarketRegime{
		Type:            models.RegimeUnknown,
		Direction:       "NEUTRAL",
		VolatilityLevel: "NORMAL",
	}
	if len(candles) < MinCandles {
		return regime
	}

	closes, highs, lows, _ := calculate.Series(candles)
	adx := calculate.ADX(candles, 14)
	atr10 := calculate.ATR(highs, lows, closes, 10)
	atr30 := calculate.ATR(highs, lows, closes, 30)

	if atr30 > 0 {
		regime.VolatilityRatio = atr10 / atr30
	}
	switch {
	case regime.VolatilityRatio > 1.5:
		regime.VolatilityLevel = "HIGH"
	case regime.VolatilityRatio > 0 && regime.VolatilityRatio < 0.7:
		regime.VolatilityLevel = "LOW"
	}

	last := len(closes) - 1
	current := closes[last]
	momentum := 0.5*change(current, closes[last-5]) +
		0.3*change(current, closes[last-10]) +
		0.2*change(current, closes[last-20])
	regime.MomentumStrength = math.Min(math.Abs(momentum)*10, 1)
	switch {
	case momentum > 0:
		regime.Direction = "BULLISH"
	case momentum < 0:
		regime.Direction = "BEARISH"
	}

	netUp := current >= closes[max(0, last-14)]

	if adx > trendThreshold {
		regime.Type = models.RegimeTrending
		regime.Strength = math.Min(adx/100, 1)
		regime.Structure = trendStructure(netUp)
		return regime
	}

	recent := candles[len(candles)-20:]
	high, low := recent[0].High, recent[0].Low
	for _, c := range recent[1:] {
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
	}

	if atr10 > 0 && (high-low)/atr10 < 5 {
		regime.Type = models.RegimeRanging
		regime.Structure = "RANGE_BOUND"
		regime.Strength = calculate.Clamp((trendThreshold-adx)/trendThreshold, 0, 1)
		return regime
	}

	if changes := directionChanges(closes[len(closes)-21:]); changes > 8 {
		regime.Type = models.RegimeChoppy
		regime.Strength = math.Min(float64(changes)/15, 1)
		return regime
	}

	if regime.VolatilityRatio > 1.8 {
		regime.Type = models.RegimeVolatile
		regime.Strength = math.Min(regime.VolatilityRatio/3, 1)
		switch {
		case momentum > 0.02:
			regime.Structure = "BREAKOUT"
		case momentum < -0.02:
			regime.Structure = "BREAKDOWN"
		}
		return regime
	}

	// mild trend
	regime.Type = models.RegimeTrending
	regime.Strength = math.Min(adx/trendThreshold, 0.7)
	regime.Structure = trendStructure(netUp)
	return regime
}

func trendStructure(up bool) string {
	if up {
		return "TRENDING_UP"
	}
	return "TRENDING_DOWN"
}

func change(current, past float64) float64 {
	if past == 0 {
		return 0
	}
	return (current - past) / past
}

// directionChanges counts how often consecutive close moves flip sign
func directionChanges(closes []float64) int {
	if len(closes) < 3 {
		return 0
	}
	changes := 0
	prevUp := closes[1] > closes[0]
	for i := 2; i < len(closes); i++ {
		up := closes[i] > closes[i-1]
		if up != prevUp {
			changes++
			prevUp = up
		}
	}
	return changes
}
