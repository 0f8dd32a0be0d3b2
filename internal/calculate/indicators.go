package calculate

import "github.com/Alias1177/candlecast/models"

// Params holds indicator periods used to build a snapshot
type Params struct {
	RSIPeriod        int
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
	BBPeriod         int
	BBStdDev         float64
	ATRPeriod        int
	StochKPeriod     int
	StochDPeriod     int
	ADXPeriod        int
	VolumePeriod     int
	MAPeriods        []int // periods reported in IndicatorSnapshot.SMA / EMA
	Adaptive         bool  // adjust periods to current volatility before computing
}

// DefaultParams returns the textbook indicator periods
func DefaultParams() Params {
	return Params{
		RSIPeriod:        14,
		MACDFastPeriod:   12,
		MACDSlowPeriod:   26,
		MACDSignalPeriod: 9,
		BBPeriod:         20,
		BBStdDev:         2.0,
		ATRPeriod:        14,
		StochKPeriod:     14,
		StochDPeriod:     3,
		ADXPeriod:        14,
		VolumePeriod:     20,
		MAPeriods:        []int{5, 10, 20},
	}
}

// Series splits candles into close, high, low and volume slices
func Series(candles []models.Candle) (closes, highs, lows, volumes []float64) {
	closes = make([]float64, len(candles))
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	volumes = make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}
	return closes, highs, lows, volumes
}

// Snapshot calculates all technical indicators over the candle window.
// It never mutates candles and returns the zero snapshot for an empty window.
func Snapshot(candles []models.Candle, params Params) models.IndicatorSnapshot {
	if len(candles) == 0 {
		return models.IndicatorSnapshot{}
	}

	if params.Adaptive {
		params = AdaptParams(candles, params)
	}

	closes, highs, lows, volumes := Series(candles)

	sma := make([]float64, len(params.MAPeriods))
	ema := make([]float64, len(params.MAPeriods))
	for i, period := range params.MAPeriods {
		sma[i] = SMA(closes, period)
		ema[i] = EMA(closes, period)
	}

	last := candles[len(candles)-1]

	return models.IndicatorSnapshot{
		Index:       last.Index,
		Close:       last.Close,
		RSI:         RSI(closes, params.RSIPeriod),
		MACD:        MACD(closes, params.MACDFastPeriod, params.MACDSlowPeriod, params.MACDSignalPeriod),
		Bollinger:   BollingerBands(closes, params.BBPeriod, params.BBStdDev),
		ATR:         ATR(highs, lows, closes, params.ATRPeriod),
		Stochastic:  Stochastic(highs, lows, closes, params.StochKPeriod, params.StochDPeriod),
		ADX:         ADX(candles, params.ADXPeriod),
		SMA:         sma,
		EMA:         ema,
		EMAFast:     EMA(closes, params.MACDFastPeriod),
		EMASlow:     EMA(closes, params.MACDSlowPeriod),
		OBV:         OBV(closes, volumes),
		VolumeRatio: VolumeRatio(volumes, params.VolumePeriod),
	}
}
