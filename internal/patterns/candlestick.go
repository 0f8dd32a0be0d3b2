package patterns

import (
	"math"

	"github.com/Alias1177/candlecast/models"
)

// candleShape holds the body and shadow sizes of one candle
type candleShape struct {
	body, upper, lower, span float64
}

func shapeOf(c models.Candle) candleShape {
	return candleShape{
		body:  math.Abs(c.Close - c.Open),
		upper: c.High - math.Max(c.Open, c.Close),
		lower: math.Min(c.Open, c.Close) - c.Low,
		span:  c.High - c.Low,
	}
}

// oppositeShadowLimit is the largest non-dominant shadow still accepted for a
// hammer or shooting star. Bodies close to zero fall back to a share of the range.
func (d *Detector) oppositeShadowLimit(s candleShape) float64 {
	return math.Max(s.body*d.th.OppositeShadowBody, s.span*d.th.OppositeShadowRange)
}

func (d *Detector) isDoji(c models.Candle) bool {
	s := shapeOf(c)
	if s.span <= 0 {
		return false
	}
	return s.body/s.span < d.th.DojiBodyRatio
}

func (d *Detector) isHammer(c models.Candle) bool {
	s := shapeOf(c)
	if s.span <= 0 {
		return false
	}
	return s.lower > s.body*d.th.ShadowBodyRatio && s.upper < d.oppositeShadowLimit(s)
}

func (d *Detector) isShootingStar(c models.Candle) bool {
	s := shapeOf(c)
	if s.span <= 0 {
		return false
	}
	return s.upper > s.body*d.th.ShadowBodyRatio && s.lower < d.oppositeShadowLimit(s)
}

// isBullishEngulfing: bearish prev, bullish cur whose body covers prev's body
func (d *Detector) isBullishEngulfing(prev, cur models.Candle) bool {
	if !prev.Bearish() || !cur.Bullish() {
		return false
	}
	if cur.Open > prev.Close || cur.Close < prev.Open {
		return false
	}
	return shapeOf(cur).body > shapeOf(prev).body
}

func (d *Detector) isBearishEngulfing(prev, cur models.Candle) bool {
	if !prev.Bullish() || !cur.Bearish() {
		return false
	}
	if cur.Open < prev.Close || cur.Close > prev.Open {
		return false
	}
	return shapeOf(cur).body > shapeOf(prev).body
}

// DetectDoji checks the last candle for a doji
func (d *Detector) DetectDoji(candles []models.Candle) *models.PatternMatch {
	window := trailing(candles, 1, 1)
	if window == nil || !d.isDoji(window[0]) {
		return nil
	}

	s := shapeOf(window[0])
	confidence := 60 + (1-s.body/s.span/d.th.DojiBodyRatio)*20
	return newMatch(Doji, models.PatternNeutral, confidence, window, 1)
}

// DetectHammer checks the last candle for a hammer
func (d *Detector) DetectHammer(candles []models.Candle) *models.PatternMatch {
	window := trailing(candles, 1, 1)
	if window == nil || !d.isHammer(window[0]) {
		return nil
	}

	s := shapeOf(window[0])
	confidence := 60 + math.Min(s.lower/s.span, 1)*30
	return newMatch(Hammer, models.PatternBullish, confidence, window, 1)
}

// DetectShootingStar checks the last candle for a shooting star
func (d *Detector) DetectShootingStar(candles []models.Candle) *models.PatternMatch {
	window := trailing(candles, 1, 1)
	if window == nil || !d.isShootingStar(window[0]) {
		return nil
	}

	s := shapeOf(window[0])
	confidence := 60 + math.Min(s.upper/s.span, 1)*30
	return newMatch(ShootingStar, models.PatternBearish, confidence, window, 1)
}

// DetectEngulfing checks the last two candles for a bullish or bearish engulfing
func (d *Detector) DetectEngulfing(candles []models.Candle) *models.PatternMatch {
	window := trailing(candles, 2, 2)
	if window == nil {
		return nil
	}
	prev, cur := window[0], window[1]

	var name string
	var kind models.PatternKind
	switch {
	case d.isBullishEngulfing(prev, cur):
		name, kind = BullishEngulfing, models.PatternBullish
	case d.isBearishEngulfing(prev, cur):
		name, kind = BearishEngulfing, models.PatternBearish
	default:
		return nil
	}

	// bigger engulfing body, higher confidence
	prevBody := shapeOf(prev).body
	ratio := 1.0
	if prevBody > 0 {
		ratio = shapeOf(cur).body / prevBody
	}
	confidence := 65 + math.Min(ratio-1, 1)*25
	return newMatch(name, kind, confidence, window, 2)
}
