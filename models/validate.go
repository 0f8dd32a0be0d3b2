package models

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateCandle rejects candles with non-finite or non-positive prices,
// negative volume, or inconsistent high/low bounds
func ValidateCandle(c Candle) error {
	for name, v := range map[string]float64{
		"open": c.Open, "high": c.High, "low": c.Low, "close": c.Close, "volume": c.Volume,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: index %d: %s is not finite", ErrInvalidCandle, c.Index, name)
		}
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: index %d: %v", ErrInvalidCandle, c.Index, err)
	}

	if c.High < c.Low {
		return fmt.Errorf("%w: index %d: high %.5f below low %.5f", ErrInvalidCandle, c.Index, c.High, c.Low)
	}
	if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
		return fmt.Errorf("%w: index %d: open/close outside high-low range", ErrInvalidCandle, c.Index)
	}

	return nil
}

// ValidateWindow validates every candle and checks that indices strictly increase
func ValidateWindow(candles []Candle) error {
	for i, c := range candles {
		if err := ValidateCandle(c); err != nil {
			return err
		}
		if i > 0 && c.Index <= candles[i-1].Index {
			return fmt.Errorf("%w: index %d does not follow %d", ErrInvalidCandle, c.Index, candles[i-1].Index)
		}
	}
	return nil
}
