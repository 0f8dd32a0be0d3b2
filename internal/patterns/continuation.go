package patterns

import (
	"math"

	"github.com/Alias1177/candlecast/models"
)

// DetectFlag looks for a tight consolidation (range under FlagMaxRange of the
// average close) on declining volume. The move before the window decides the
// flag's direction; with no clear pole the match is neutral.
func (d *Detector) DetectFlag(candles []models.Candle) *models.PatternMatch {
	window := trailing(candles, d.th.FlagWindow, d.th.FlagMinWindow)
	if window == nil {
		return nil
	}

	highs := highsOf(window)
	lows := lowsOf(window)
	avgPrice := average(closesOf(window))
	if avgPrice <= 0 {
		return nil
	}

	rangeRatio := (highs[argMax(highs)] - lows[argMin(lows)]) / avgPrice
	if rangeRatio >= d.th.FlagMaxRange {
		return nil
	}

	half := len(window) / 2
	if half == 0 {
		return nil
	}
	var firstVolume, secondVolume float64
	for i, c := range window {
		if i < half {
			firstVolume += c.Volume
		} else {
			secondVolume += c.Volume
		}
	}
	firstVolume /= float64(half)
	secondVolume /= float64(len(window) - half)
	if firstVolume <= 0 {
		return nil
	}

	decline := (firstVolume - secondVolume) / firstVolume
	if decline < d.th.FlagVolumeDecline {
		return nil
	}

	// pole must move at least twice the flag's own range
	start := len(candles) - len(window)
	name, kind := Flag, models.PatternNeutral
	switch priorTrend(candles, start, len(window), 2*rangeRatio) {
	case models.PatternBullish:
		name, kind = BullFlag, models.PatternBullish
	case models.PatternBearish:
		name, kind = BearFlag, models.PatternBearish
	}

	confidence := 55 + math.Min(decline, 0.5)*50
	return newMatch(name, kind, confidence, window, d.th.FlagMinWindow)
}

// DetectPennant compares the average high-low range of the first and last
// thirds of the window and reports a contraction of at least PennantContraction.
func (d *Detector) DetectPennant(candles []models.Candle) *models.PatternMatch {
	window := trailing(candles, d.th.PennantWindow, d.th.PennantMinWindow)
	if window == nil {
		return nil
	}

	third := len(window) / 3
	if third == 0 {
		return nil
	}
	spanOf := func(part []models.Candle) float64 {
		var total float64
		for _, c := range part {
			total += c.High - c.Low
		}
		return total / float64(len(part))
	}

	early := spanOf(window[:third])
	late := spanOf(window[len(window)-third:])
	if early <= 0 {
		return nil
	}

	contraction := 1 - late/early
	if contraction < d.th.PennantContraction {
		return nil
	}

	start := len(candles) - len(window)
	kind := priorTrend(candles, start, len(window), 0.01)

	confidence := 55 + math.Min(contraction, 0.75)*40
	return newMatch(Pennant, kind, confidence, window, d.th.PennantMinWindow)
}
