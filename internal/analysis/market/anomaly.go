package market

import (
	"fmt"
	"math"

	"github.com/Alias1177/candlecast/internal/calculate"
	"github.com/Alias1177/candlecast/models"
)

// DetectAnomaly checks the newest candle for price spikes, volume spikes,
// gaps and volatility breakouts relative to the preceding candles.
func DetectAnomaly(candles []models.Candle) models.Anomaly {
	var a models.Anomaly
	if len(candles) < MinCandles {
		return a
	}

	closes, highs, lows, volumes := calculate.Series(candles)
	atr10 := calculate.ATR(highs, lows, closes, 10)
	atr50 := calculate.ATR(highs, lows, closes, min(50, len(candles)-1))
	if atr10 <= 0 {
		return a
	}

	current := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	if move := math.Abs(current.Close-prev.Close) / atr10; move > 3 {
		a.Detected = true
		a.Type = "PRICE_SPIKE"
		a.Score = math.Min(move/3, 1)
		a.Details = fmt.Sprintf("price moved %.1f times the normal range", move)
		a.Flags = append(a.Flags, models.FlagReducePositionSize, models.FlagUseWiderStops)
	}

	if current.Volume > 0 {
		var total float64
		for _, v := range volumes[len(volumes)-11 : len(volumes)-1] {
			total += v
		}
		if avg := total / 10; avg > 0 {
			if ratio := current.Volume / avg; ratio > 3 {
				if a.Detected {
					a.Score = math.Min(a.Score+0.2, 1)
					a.Type += "_WITH_VOLUME_SPIKE"
				} else {
					a.Detected = true
					a.Type = "VOLUME_SPIKE"
					a.Score = math.Min(ratio/5, 1)
					a.Details = fmt.Sprintf("volume %.1f times the average", ratio)
					a.Flags = append(a.Flags, models.FlagWaitForConfirmation)
				}
			}
		}
	}

	var gap float64
	switch {
	case current.Low > prev.Close:
		gap = current.Low - prev.Close
	case current.High < prev.Close:
		gap = prev.Close - current.High
	}
	if size := gap / atr10; size > 1 {
		if a.Detected {
			a.Score = math.Min(a.Score+0.15, 1)
			a.Type += "_WITH_GAP"
		} else {
			a.Detected = true
			a.Type = "GAP"
			a.Score = math.Min(size/2, 1)
			a.Details = fmt.Sprintf("price gapped %.1f times the average range", size)
			a.Flags = append(a.Flags, models.FlagExpectVolatility)
		}
	}

	if atr50 > 0 {
		if ratio := atr10 / atr50; ratio > 2.5 {
			if a.Detected {
				a.Score = math.Min(a.Score+0.1, 1)
			} else {
				a.Detected = true
				a.Type = "VOLATILITY_BREAKOUT"
				a.Score = math.Min(ratio/4, 1)
				a.Details = fmt.Sprintf("recent volatility %.1f times the baseline", ratio)
				a.Flags = append(a.Flags, models.FlagExpectMomentum, models.FlagReducePositionSize)
			}
		}
	}

	if a.Detected {
		a.Flags = append(a.Flags, models.FlagUseCaution)
	}
	return a
}
