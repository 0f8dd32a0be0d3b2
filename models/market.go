package models

// RegimeType classifies recent market behaviour
type RegimeType string

const (
	RegimeUnknown  RegimeType = "UNKNOWN"
	RegimeTrending RegimeType = "TRENDING"
	RegimeRanging  RegimeType = "RANGING"
	RegimeChoppy   RegimeType = "CHOPPY"
	RegimeVolatile RegimeType = "VOLATILE"
)

// MarketRegime describes the state of the market over the last candles
type MarketRegime struct {
	Type             RegimeType `json:"type"`
	Strength         float64    `json:"strength"`  // 0-1
	Direction        string     `json:"direction"` // BULLISH, BEARISH or NEUTRAL
	VolatilityLevel  string     `json:"volatility_level"`
	VolatilityRatio  float64    `json:"volatility_ratio"` // short ATR over long ATR
	MomentumStrength float64    `json:"momentum_strength"`
	Structure        string     `json:"structure,omitempty"`
}

// AnomalyFlag is an action hint attached to a detected anomaly
type AnomalyFlag string

const (
	FlagReducePositionSize  AnomalyFlag = "REDUCE_POSITION_SIZE"
	FlagUseWiderStops       AnomalyFlag = "USE_WIDER_STOPS"
	FlagWaitForConfirmation AnomalyFlag = "WAIT_FOR_CONFIRMATION"
	FlagExpectVolatility    AnomalyFlag = "EXPECT_VOLATILE_TRADING"
	FlagExpectMomentum      AnomalyFlag = "EXPECT_MOMENTUM"
	FlagUseCaution          AnomalyFlag = "USE_CAUTION"
)

// Anomaly is the result of checking the newest candle for unusual activity
type Anomaly struct {
	Detected bool          `json:"detected"`
	Type     string        `json:"type,omitempty"`
	Score    float64       `json:"score"` // 0-1
	Details  string        `json:"details,omitempty"`
	Flags    []AnomalyFlag `json:"flags,omitempty"`
}

// Has reports whether the anomaly carries the flag
func (a Anomaly) Has(flag AnomalyFlag) bool {
	for _, f := range a.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
