package calculate

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/Alias1177/candlecast/models"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func generateTestCandles(n int, generator func(int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		c := generator(i)
		c.Index = i
		if c.Timestamp.IsZero() {
			c.Timestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * 5 * time.Minute)
		}
		candles[i] = c
	}
	return candles
}

func randomWalk(n int, seed int64) []models.Candle {
	rng := rand.New(rand.NewSource(seed))
	price := 1.1
	return generateTestCandles(n, func(i int) models.Candle {
		open := price
		price += (rng.Float64() - 0.5) * 0.004
		closePrice := price
		high := math.Max(open, closePrice) + rng.Float64()*0.001
		low := math.Min(open, closePrice) - rng.Float64()*0.001
		return models.Candle{Open: open, High: high, Low: low, Close: closePrice, Volume: 1000 + rng.Float64()*500}
	})
}

func TestRSI(t *testing.T) {
	rising := make([]float64, 14)
	for i := range rising {
		rising[i] = 1.00 + 0.01*float64(i)
	}

	tests := []struct {
		name   string
		prices []float64
		period int
		want   float64
	}{
		{"all gains reports 100", rising, 14, 100},
		{"insufficient data is neutral", []float64{1, 2, 3}, 14, 50},
		{"balanced gains and losses", []float64{10, 11, 10, 11, 10}, 4, 50},
		{"flat window is neutral", []float64{5, 5, 5, 5, 5}, 4, 50},
		{"all losses reports 0", []float64{5, 4, 3, 2, 1}, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RSI(tt.prices, tt.period); !almostEqual(got, tt.want) {
				t.Errorf("RSI() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRSIBounds(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		closes, _, _, _ := Series(randomWalk(60, seed))
		for end := 2; end <= len(closes); end++ {
			rsi := RSI(closes[:end], 14)
			if rsi < 0 || rsi > 100 || math.IsNaN(rsi) {
				t.Fatalf("seed %d end %d: RSI out of bounds: %v", seed, end, rsi)
			}
		}
	}
}

func TestMovingAverages(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}

	if got := SMA(prices, 3); !almostEqual(got, 4) {
		t.Errorf("SMA() = %v, want 4", got)
	}
	if got := SMA(prices, 10); !almostEqual(got, 5) {
		t.Errorf("SMA() with short window = %v, want last price 5", got)
	}
	if got := SMASeries(prices, 3); !reflect.DeepEqual(got, []float64{2, 3, 4}) {
		t.Errorf("SMASeries() = %v, want [2 3 4]", got)
	}

	// seeded from the first price, multiplier 2/3
	if got := EMA([]float64{1, 2, 3}, 2); !almostEqual(got, 23.0/9.0) {
		t.Errorf("EMA() = %v, want %v", got, 23.0/9.0)
	}
	if got := EMA([]float64{1, 2}, 5); !almostEqual(got, 2) {
		t.Errorf("EMA() with short window = %v, want last price 2", got)
	}
	if got := EMA(nil, 5); got != 0 {
		t.Errorf("EMA(nil) = %v, want 0", got)
	}
}

func TestMACD(t *testing.T) {
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 1.2
	}
	if got := MACD(flat, 12, 26, 9); got != (models.MACD{}) {
		t.Errorf("MACD() on flat prices = %+v, want zeros", got)
	}

	rising := make([]float64, 40)
	for i := range rising {
		rising[i] = 1 + 0.01*float64(i)
	}
	got := MACD(rising, 12, 26, 9)
	if got.Line <= 0 {
		t.Errorf("MACD line on rising prices = %v, want > 0", got.Line)
	}
	if !almostEqual(got.Histogram, got.Line-got.Signal) {
		t.Errorf("histogram %v != line - signal %v", got.Histogram, got.Line-got.Signal)
	}

	if got := MACD(rising[:10], 12, 26, 9); got != (models.MACD{}) {
		t.Errorf("MACD() with short window = %+v, want zeros", got)
	}
}

func TestBollingerBands(t *testing.T) {
	got := BollingerBands([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	want := models.Bollinger{Upper: 9, Middle: 5, Lower: 1}
	if !almostEqual(got.Upper, want.Upper) || !almostEqual(got.Middle, want.Middle) || !almostEqual(got.Lower, want.Lower) {
		t.Errorf("BollingerBands() = %+v, want %+v", got, want)
	}

	short := BollingerBands([]float64{1.5, 1.6}, 20, 2)
	if short.Upper != 1.6 || short.Middle != 1.6 || short.Lower != 1.6 {
		t.Errorf("BollingerBands() with short window = %+v, want last price", short)
	}
}

func TestATR(t *testing.T) {
	highs := []float64{11, 12, 13}
	lows := []float64{9, 10, 11}
	closes := []float64{10, 11, 12}

	if got := ATR(highs, lows, closes, 14); !almostEqual(got, 2) {
		t.Errorf("ATR() = %v, want 2", got)
	}
	if got := ATR(highs[:1], lows[:1], closes[:1], 14); got != 0 {
		t.Errorf("ATR() on one candle = %v, want 0", got)
	}

	// gap up: true range uses the previous close
	if got := ATR([]float64{10, 15}, []float64{9, 14}, []float64{10, 14.5}, 1); !almostEqual(got, 5) {
		t.Errorf("ATR() across gap = %v, want 5", got)
	}
}

func TestStochastic(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = 10 + float64(i)
		lows[i] = 9 + float64(i)
		closes[i] = highs[i]
	}

	got := Stochastic(highs, lows, closes, 14, 3)
	if !almostEqual(got.K, 100) || !almostEqual(got.D, 100) {
		t.Errorf("Stochastic() closing at highs = %+v, want 100/100", got)
	}

	flat := []float64{5, 5, 5, 5, 5}
	if got := Stochastic(flat, flat, flat, 3, 3); got.K != 50 || got.D != 50 {
		t.Errorf("Stochastic() flat = %+v, want 50/50", got)
	}
	if got := Stochastic(highs[:5], lows[:5], closes[:5], 14, 3); got.K != 50 || got.D != 50 {
		t.Errorf("Stochastic() short = %+v, want 50/50", got)
	}

	for seed := int64(1); seed <= 10; seed++ {
		c, h, l, _ := Series(randomWalk(50, seed))
		s := Stochastic(h, l, c, 14, 3)
		if s.K < 0 || s.K > 100 || s.D < 0 || s.D > 100 {
			t.Fatalf("seed %d: stochastic out of bounds: %+v", seed, s)
		}
	}
}

func TestADX(t *testing.T) {
	rising := generateTestCandles(20, func(i int) models.Candle {
		p := 1 + 0.01*float64(i)
		return models.Candle{Open: p, High: p + 0.005, Low: p - 0.005, Close: p}
	})
	if got := ADX(rising, 14); !almostEqual(got, 100) {
		t.Errorf("ADX() on a persistent trend = %v, want 100", got)
	}

	flat := generateTestCandles(20, func(i int) models.Candle {
		return models.Candle{Open: 1, High: 1.01, Low: 0.99, Close: 1}
	})
	if got := ADX(flat, 14); got != 0 {
		t.Errorf("ADX() on flat closes = %v, want 0", got)
	}

	choppy := generateTestCandles(20, func(i int) models.Candle {
		p := 1 + 0.01*float64(i%2)
		return models.Candle{Open: p, High: p + 0.005, Low: p - 0.005, Close: p}
	})
	if got := ADX(choppy, 14); got >= 25 {
		t.Errorf("ADX() on alternating closes = %v, want < 25", got)
	}

	if got := ADX(rising[:1], 14); got != 50 {
		t.Errorf("ADX() on one candle = %v, want 50", got)
	}

	// one pullback in the middle scores below an uninterrupted trend
	interrupted := generateTestCandles(20, func(i int) models.Candle {
		p := 1 + 0.01*float64(i)
		if i == 10 {
			p -= 0.02
		}
		return models.Candle{Open: p, High: p + 0.005, Low: p - 0.005, Close: p}
	})
	if ADX(interrupted, 14) >= ADX(rising, 14) {
		t.Errorf("ADX() should be monotonic with trend persistence")
	}
}

func TestVolumeIndicators(t *testing.T) {
	if got := VolumeRatio([]float64{100, 100, 100, 200}, 3); !almostEqual(got, 2) {
		t.Errorf("VolumeRatio() = %v, want 2", got)
	}
	if got := VolumeRatio([]float64{0, 0, 0, 0}, 3); got != 1 {
		t.Errorf("VolumeRatio() with zero volume = %v, want 1", got)
	}
	if got := OBV([]float64{1, 2, 1, 1}, []float64{10, 20, 5, 7}); !almostEqual(got, 25) {
		t.Errorf("OBV() = %v, want 25", got)
	}
}

func TestEMAIncreasesWithCloses(t *testing.T) {
	base := make([]float64, 30)
	bumped := make([]float64, 30)
	for i := range base {
		base[i] = 1 + 0.01*float64(i)
		bumped[i] = base[i] + 0.005
	}

	if EMA(bumped, 10) <= EMA(base, 10) {
		t.Errorf("EMA should increase when every close increases")
	}
}

func TestRaisingLastCloseNarrowsDistanceToUpperBand(t *testing.T) {
	base := make([]float64, 20)
	for i := range base {
		base[i] = 1 + 0.01*float64(i)
	}
	bumped := append([]float64(nil), base...)
	bumped[len(bumped)-1] += 0.01

	distance := func(prices []float64) float64 {
		return BollingerBands(prices, 20, 2).Upper - prices[len(prices)-1]
	}

	if distance(bumped) >= distance(base) {
		t.Errorf("distance to upper band should shrink: base %v bumped %v", distance(base), distance(bumped))
	}
}

func TestSnapshotIsIdempotentAndFinite(t *testing.T) {
	candles := randomWalk(60, 42)
	params := DefaultParams()

	first := Snapshot(candles, params)
	second := Snapshot(candles, params)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Snapshot() is not idempotent:\n%+v\n%+v", first, second)
	}
	if first.Index != 59 || first.Close != candles[59].Close {
		t.Errorf("snapshot should describe the last candle, got index %d", first.Index)
	}
	if len(first.SMA) != len(params.MAPeriods) || len(first.EMA) != len(params.MAPeriods) {
		t.Errorf("expected one SMA/EMA per configured period")
	}

	// degenerate window: flat prices, no volume
	flat := generateTestCandles(3, func(i int) models.Candle {
		return models.Candle{Open: 1, High: 1, Low: 1, Close: 1}
	})
	s := Snapshot(flat, params)
	for name, v := range map[string]float64{
		"rsi": s.RSI, "atr": s.ATR, "adx": s.ADX, "k": s.Stochastic.K, "d": s.Stochastic.D,
		"upper": s.Bollinger.Upper, "macd": s.MACD.Line, "volume": s.VolumeRatio, "obv": s.OBV,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s is not finite: %v", name, v)
		}
	}

	if got := Snapshot(nil, params); !reflect.DeepEqual(got, models.IndicatorSnapshot{}) {
		t.Errorf("Snapshot(nil) = %+v, want zero value", got)
	}
}

func TestAdaptParams(t *testing.T) {
	params := DefaultParams()

	if got := AdaptParams(randomWalk(10, 1), params); got.RSIPeriod != params.RSIPeriod {
		t.Errorf("short windows should not adapt, got RSI period %d", got.RSIPeriod)
	}

	// last five candles are far wider than the rest
	volatile := generateTestCandles(40, func(i int) models.Candle {
		spread := 0.001
		if i >= 35 {
			spread = 0.02
		}
		return models.Candle{Open: 1, High: 1 + spread, Low: 1 - spread, Close: 1}
	})
	got := AdaptParams(volatile, params)
	if got.RSIPeriod >= params.RSIPeriod {
		t.Errorf("high volatility should shorten RSI period, got %d", got.RSIPeriod)
	}
	if got.Adaptive {
		t.Errorf("adapted params must not adapt again")
	}
}
