package scoring

import (
	"github.com/Alias1177/candlecast/internal/calculate"
	"github.com/Alias1177/candlecast/internal/patterns"
	"github.com/Alias1177/candlecast/models"
)

const neutral = 50.0

// Config holds the thresholds used to turn indicator readings into factor scores
type Config struct {
	RSIOverbought float64
	RSIOversold   float64

	HighVolatility float64 // ATR / close above this adds to the volatility score
	LowVolatility  float64 // ATR / close below this subtracts from it

	StrongTrendADX float64
	WeakTrendADX   float64
}

// DefaultConfig returns the standard scoring thresholds
func DefaultConfig() Config {
	return Config{
		RSIOverbought:  70,
		RSIOversold:    30,
		HighVolatility: 0.01,
		LowVolatility:  0.002,
		StrongTrendADX: 60,
		WeakTrendADX:   25,
	}
}

// Scorer maps an indicator snapshot and detected patterns into six factor
// scores. Each score starts at 50, moves by additive adjustments and is
// clamped to [0,100]. Above 50 reads bullish.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer. A zero Config selects the defaults.
func NewScorer(cfg Config) *Scorer {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Scorer{cfg: cfg}
}

// Score computes all six factor scores
func (s *Scorer) Score(snap models.IndicatorSnapshot, matches []models.PatternMatch) models.FactorScores {
	return models.FactorScores{
		Technical:  s.technical(snap),
		Volume:     s.volume(snap),
		Momentum:   s.momentum(snap),
		Volatility: s.volatility(snap),
		Pattern:    s.pattern(matches),
		Trend:      s.trend(snap),
	}
}

// technical: RSI ±20 (full at the overbought/oversold thresholds, linear
// between), MACD histogram sign ±10, close outside the Bollinger bands ±15
func (s *Scorer) technical(snap models.IndicatorSnapshot) float64 {
	score := neutral

	mid := (s.cfg.RSIOverbought + s.cfg.RSIOversold) / 2
	halfBand := mid - s.cfg.RSIOversold
	if halfBand > 0 {
		score += calculate.Clamp((mid-snap.RSI)/halfBand*20, -20, 20)
	}

	switch {
	case snap.MACD.Histogram > 0:
		score += 10
	case snap.MACD.Histogram < 0:
		score -= 10
	}

	bands := snap.Bollinger
	if bands.Upper > bands.Lower {
		if snap.Close >= bands.Upper {
			score -= 15
		} else if snap.Close <= bands.Lower {
			score += 15
		}
	}

	return calculate.Clamp(score, 0, 100)
}

// volume: 30 points per unit of volume ratio away from 1, capped at ±30
func (s *Scorer) volume(snap models.IndicatorSnapshot) float64 {
	ratio := snap.VolumeRatio
	if ratio <= 0 {
		ratio = 1
	}
	return calculate.Clamp(neutral+calculate.Clamp((ratio-1)*30, -30, 30), 0, 100)
}

// momentum: EMA fast/slow spread, one point per basis point up to ±15, plus
// stochastic %K extremity up to ±10 (oversold reads bullish)
func (s *Scorer) momentum(snap models.IndicatorSnapshot) float64 {
	score := neutral

	if snap.EMASlow > 0 {
		spreadBps := (snap.EMAFast - snap.EMASlow) / snap.EMASlow * 10000
		score += calculate.Clamp(spreadBps, -15, 15)
	}

	score += calculate.Clamp((neutral-snap.Stochastic.K)/3, -10, 10)

	return calculate.Clamp(score, 0, 100)
}

func (s *Scorer) volatility(snap models.IndicatorSnapshot) float64 {
	score := neutral
	if snap.Close <= 0 {
		return score
	}

	ratio := snap.ATR / snap.Close
	switch {
	case ratio > s.cfg.HighVolatility:
		score += 20
	case ratio < s.cfg.LowVolatility:
		score -= 10
	}
	return calculate.Clamp(score, 0, 100)
}

// pattern: the strongest reversal match moves the score by up to ±30.
// Continuation and neutral patterns leave it at 50.
func (s *Scorer) pattern(matches []models.PatternMatch) float64 {
	best, ok := patterns.Strongest(matches)
	if !ok {
		return neutral
	}

	shift := calculate.Clamp(best.Confidence, 0, 100) / 100 * 30
	switch best.Kind {
	case models.PatternBullish:
		return calculate.Clamp(neutral+shift, 0, 100)
	case models.PatternBearish:
		return calculate.Clamp(neutral-shift, 0, 100)
	}
	return neutral
}

func (s *Scorer) trend(snap models.IndicatorSnapshot) float64 {
	score := neutral
	switch {
	case snap.ADX > s.cfg.StrongTrendADX:
		score += 20
	case snap.ADX < s.cfg.WeakTrendADX:
		score -= 10
	}
	return calculate.Clamp(score, 0, 100)
}
