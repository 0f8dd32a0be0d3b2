package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestValidateCandle(t *testing.T) {
	tests := []struct {
		name    string
		candle  Candle
		wantErr bool
	}{
		{
			name:   "valid candle",
			candle: Candle{Index: 1, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15, Volume: 100},
		},
		{
			name:    "high below low",
			candle:  Candle{Index: 1, Open: 1.1, High: 1.0, Low: 1.2, Close: 1.1},
			wantErr: true,
		},
		{
			name:    "non-positive open",
			candle:  Candle{Index: 1, Open: 0, High: 1.2, Low: 1.0, Close: 1.1},
			wantErr: true,
		},
		{
			name:    "NaN close",
			candle:  Candle{Index: 1, Open: 1.1, High: 1.2, Low: 1.0, Close: math.NaN()},
			wantErr: true,
		},
		{
			name:    "infinite high",
			candle:  Candle{Index: 1, Open: 1.1, High: math.Inf(1), Low: 1.0, Close: 1.1},
			wantErr: true,
		},
		{
			name:    "negative volume",
			candle:  Candle{Index: 1, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.1, Volume: -5},
			wantErr: true,
		},
		{
			name:    "close above high",
			candle:  Candle{Index: 1, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.3},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandle(tt.candle)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCandle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCandle) {
				t.Errorf("error %v should wrap ErrInvalidCandle", err)
			}
		})
	}
}

func TestValidateWindowRejectsDuplicateIndex(t *testing.T) {
	c := Candle{Index: 3, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15}
	if err := ValidateWindow([]Candle{c, c}); !errors.Is(err, ErrInvalidCandle) {
		t.Fatalf("expected ErrInvalidCandle for duplicate index, got %v", err)
	}

	next := c
	next.Index = 4
	if err := ValidateWindow([]Candle{c, next}); err != nil {
		t.Fatalf("unexpected error for ordered window: %v", err)
	}
}

func TestIntervalString(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
		wantErr bool
	}{
		{1, "1min", false},
		{5, "5min", false},
		{30, "30min", false},
		{60, "1h", false},
		{2, "", true},
		{120, "", true},
	}

	for _, tt := range tests {
		got, err := IntervalString(tt.minutes)
		if (err != nil) != tt.wantErr {
			t.Errorf("IntervalString(%d) error = %v, wantErr %v", tt.minutes, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("IntervalString(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestTargetTimeAndBacktestCandles(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if got := TargetTime(ts, 15); !got.Equal(ts.Add(15 * time.Minute)) {
		t.Errorf("TargetTime() = %v", got)
	}

	// 5-minute candles: 288 per day, two days plus 10% buffer
	if got := CandlesForBacktest(5, 2); got != 633 {
		t.Errorf("CandlesForBacktest(5, 2) = %d, want 633", got)
	}
}

func TestModelWeightsRoundTrip(t *testing.T) {
	w := ModelWeights{Technical: 0.25, Volume: 0.15, Momentum: 0.2, Volatility: 0.1, Pattern: 0.15, Trend: 0.15}
	if got := WeightsFromValues(w.Values()); got != w {
		t.Errorf("WeightsFromValues(Values()) = %+v, want %+v", got, w)
	}
	if math.Abs(w.Sum()-1) > 1e-12 {
		t.Errorf("Sum() = %v, want 1", w.Sum())
	}
}

func TestCandleIndexIsStablePerSlot(t *testing.T) {
	open := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := CandleIndex(open, 5)
	if got := CandleIndex(open, 5); got != first {
		t.Errorf("CandleIndex not stable: %d then %d", first, got)
	}
	if got := CandleIndex(open.Add(5*time.Minute), 5); got != first+1 {
		t.Errorf("next slot index = %d, want %d", got, first+1)
	}
	if got := CandleIndex(open.Add(time.Hour), 60); got != CandleIndex(open, 60)+1 {
		t.Errorf("hourly slots not consecutive: %d", got)
	}
}
