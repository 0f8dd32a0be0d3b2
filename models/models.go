package models

import (
	"time"
)

// Direction is the predicted or realized move of the next candle
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Opposite returns the other direction
func (d Direction) Opposite() Direction {
	if d == DirectionUp {
		return DirectionDown
	}
	return DirectionUp
}

// PatternKind tags a pattern match as bullish, bearish or neutral
type PatternKind string

const (
	PatternBullish PatternKind = "BULLISH"
	PatternBearish PatternKind = "BEARISH"
	PatternNeutral PatternKind = "NEUTRAL"
)

// Candle represents a single price candle
type Candle struct {
	Index     int       `json:"index"`
	Open      float64   `json:"open" validate:"gt=0"`
	High      float64   `json:"high" validate:"gt=0"`
	Low       float64   `json:"low" validate:"gt=0"`
	Close     float64   `json:"close" validate:"gt=0"`
	Volume    float64   `json:"volume,omitempty" validate:"gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

// Bullish reports whether the candle closed above its open
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the candle closed below its open
func (c Candle) Bearish() bool { return c.Close < c.Open }

// MACD holds the MACD line, its signal line and the histogram
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bollinger holds Bollinger Bands values
type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Stochastic holds the %K and %D lines
type Stochastic struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// IndicatorSnapshot holds all technical indicators computed over one window.
// It is derived data and is recomputed whenever the window changes.
type IndicatorSnapshot struct {
	Index       int        `json:"index"` // index of the last candle in the window
	Close       float64    `json:"close"`
	RSI         float64    `json:"rsi"`
	MACD        MACD       `json:"macd"`
	Bollinger   Bollinger  `json:"bollinger"`
	ATR         float64    `json:"atr"`
	Stochastic  Stochastic `json:"stochastic"`
	ADX         float64    `json:"adx"`
	SMA         []float64  `json:"sma"` // one value per configured moving-average period
	EMA         []float64  `json:"ema"`
	EMAFast     float64    `json:"ema_fast"`
	EMASlow     float64    `json:"ema_slow"`
	OBV         float64    `json:"obv"`
	VolumeRatio float64    `json:"volume_ratio"` // current volume / trailing average
}

// PatternMatch is a single detected candle or chart pattern
type PatternMatch struct {
	Name            string      `json:"name"`
	Kind            PatternKind `json:"kind"`
	Confidence      float64     `json:"confidence"` // 0-100
	StartIndex      int         `json:"start_index"`
	EndIndex        int         `json:"end_index"`
	RequiredCandles int         `json:"required_candles"`
}

// FactorScores holds the six factor scores, each in [0,100] with 50 as neutral
type FactorScores struct {
	Technical  float64 `json:"technical"`
	Volume     float64 `json:"volume"`
	Momentum   float64 `json:"momentum"`
	Volatility float64 `json:"volatility"`
	Pattern    float64 `json:"pattern"`
	Trend      float64 `json:"trend"`
}

// Factor names a single entry of FactorScores / ModelWeights
type Factor string

const (
	FactorTechnical  Factor = "technical"
	FactorVolume     Factor = "volume"
	FactorMomentum   Factor = "momentum"
	FactorVolatility Factor = "volatility"
	FactorPattern    Factor = "pattern"
	FactorTrend      Factor = "trend"
)

// Factors lists every factor in a fixed order
var Factors = [...]Factor{
	FactorTechnical,
	FactorVolume,
	FactorMomentum,
	FactorVolatility,
	FactorPattern,
	FactorTrend,
}

// Values returns the scores in the order of Factors
func (f FactorScores) Values() [6]float64 {
	return [6]float64{f.Technical, f.Volume, f.Momentum, f.Volatility, f.Pattern, f.Trend}
}

// ModelWeights holds the ensemble weight of each factor. A value is never
// mutated after creation; updates build a new vector.
type ModelWeights struct {
	Technical  float64 `json:"technical"`
	Volume     float64 `json:"volume"`
	Momentum   float64 `json:"momentum"`
	Volatility float64 `json:"volatility"`
	Pattern    float64 `json:"pattern"`
	Trend      float64 `json:"trend"`
}

// Values returns the weights in the order of Factors
func (w ModelWeights) Values() [6]float64 {
	return [6]float64{w.Technical, w.Volume, w.Momentum, w.Volatility, w.Pattern, w.Trend}
}

// WeightsFromValues builds a ModelWeights from values in the order of Factors
func WeightsFromValues(v [6]float64) ModelWeights {
	return ModelWeights{
		Technical:  v[0],
		Volume:     v[1],
		Momentum:   v[2],
		Volatility: v[3],
		Pattern:    v[4],
		Trend:      v[5],
	}
}

// Sum returns the total of all weights
func (w ModelWeights) Sum() float64 {
	var s float64
	for _, v := range w.Values() {
		s += v
	}
	return s
}

// FactorContribution is one line of the ranked factor breakdown
type FactorContribution struct {
	Factor       Factor  `json:"factor"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"` // weight * (score - 50)
}

// PredictionResult stores the outcome of one scoring pass
type PredictionResult struct {
	ID             string               `json:"id"`
	Symbol         string               `json:"symbol"`
	Direction      Direction            `json:"direction"`
	Probability    float64              `json:"probability"` // 55-95
	Confidence     float64              `json:"confidence"`  // 60-90
	Score          float64              `json:"score"`       // weighted ensemble score, 0-100
	Factors        FactorScores         `json:"factors"`
	Contributions  []FactorContribution `json:"contributions"`
	Patterns       []PatternMatch       `json:"patterns,omitempty"`
	Indicators     IndicatorSnapshot    `json:"indicators"`
	Recommendation string               `json:"recommendation"`
	Timestamp      time.Time            `json:"timestamp"`
	TargetTime     time.Time            `json:"target_time"` // when this prediction should be validated
	LastClose      float64              `json:"last_close"`
}

// PredictionHistoryEntry is one record of the prediction log used by the learner
type PredictionHistoryEntry struct {
	ID            string           `json:"id"`
	Factors       FactorScores     `json:"factors"`
	Prediction    PredictionResult `json:"prediction"`
	ActualOutcome *Direction       `json:"actual_outcome,omitempty"`
	Correct       *bool            `json:"correct,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Labeled reports whether the realized outcome has been recorded
func (e PredictionHistoryEntry) Labeled() bool {
	return e.ActualOutcome != nil && e.Correct != nil
}

// PositionSizingResult holds the stake recommended by a position sizer
type PositionSizingResult struct {
	Stake           float64 `json:"stake"`
	Fraction        float64 `json:"fraction"` // share of account put at risk
	StopLoss        float64 `json:"stop_loss,omitempty"`
	TakeProfit      float64 `json:"take_profit,omitempty"`
	RiskRewardRatio float64 `json:"risk_reward_ratio,omitempty"`
}
