package models

import (
	"fmt"
	"time"
)

// SupportedIntervals lists the prediction intervals in minutes
var SupportedIntervals = []int{1, 3, 5, 10, 15, 30, 60}

// IntervalMinutesValid reports whether minutes is a supported prediction interval
func IntervalMinutesValid(minutes int) bool {
	for _, m := range SupportedIntervals {
		if m == minutes {
			return true
		}
	}
	return false
}

// IntervalString converts a prediction interval to the data provider's notation
func IntervalString(minutes int) (string, error) {
	if !IntervalMinutesValid(minutes) {
		return "", fmt.Errorf("%w: %d", ErrInvalidInterval, minutes)
	}
	if minutes == 60 {
		return "1h", nil
	}
	return fmt.Sprintf("%dmin", minutes), nil
}

// CandleIndex numbers the candle opening at ts by the interval slots elapsed
// since the Unix epoch, so the same candle gets the same index on every fetch
func CandleIndex(ts time.Time, minutes int) int {
	if minutes <= 0 {
		return 0
	}
	return int(ts.Unix() / int64(minutes*60))
}

// TargetTime returns when a prediction made on a candle at ts should be validated
func TargetTime(ts time.Time, minutes int) time.Time {
	return ts.Add(time.Duration(minutes) * time.Minute)
}

// CandlesForBacktest returns how many candles of the given interval cover the
// requested number of days, with a 10% buffer
func CandlesForBacktest(minutes int, days int) int {
	if minutes <= 0 || days <= 0 {
		return 0
	}
	candlesPerDay := 24 * 60 / minutes
	return int(float64(candlesPerDay) * float64(days) * 1.1)
}
