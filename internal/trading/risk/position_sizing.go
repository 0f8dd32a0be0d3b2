package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Alias1177/candlecast/models"
)

// ATRStopMultiplier is how many ATRs the stop sits from the entry
const ATRStopMultiplier = 1.5

// DefaultRewardRatio is the take-profit distance in units of the stop distance
const DefaultRewardRatio = 2.0

// fractionPlaces bounds the precision of the staked share
const fractionPlaces = 6

// ErrInvalidSizing is returned when the sizer cannot produce a stake
var ErrInvalidSizing = errors.New("invalid position sizing input")

// DetermineStopLoss places the stop ATRStopMultiplier ATRs against the predicted move
func DetermineStopLoss(price, atr float64, direction models.Direction) float64 {
	if direction == models.DirectionUp {
		return price - atr*ATRStopMultiplier
	}
	return price + atr*ATRStopMultiplier
}

// TakeProfit places the target rewardRatio stop distances in the predicted direction
func TakeProfit(price, stopLoss, rewardRatio float64) float64 {
	if price > stopLoss {
		return price + (price-stopLoss)*rewardRatio
	}
	return price - (stopLoss-price)*rewardRatio
}

// AdjustForVolatility shrinks a stake in high-volatility markets and grows it
// slightly in quiet ones. volatilityRatio is current ATR over its average.
func AdjustForVolatility(stake, volatilityRatio float64) float64 {
	if volatilityRatio > 1.5 {
		return stake / volatilityRatio
	}
	if volatilityRatio > 0 && volatilityRatio < 0.7 {
		return stake * 1.2
	}
	return stake
}

// KellyFraction returns the Kelly criterion fraction for win probability p
// (0-1) and payoff ratio b. It is zero when the edge is not positive.
func KellyFraction(p, b float64) float64 {
	if b <= 0 || p <= 0 {
		return 0
	}
	f := (p*(b+1) - 1) / b
	if f <= 0 || math.IsNaN(f) {
		return 0
	}
	return f
}

// KellySizer sizes a stake with a fractional Kelly criterion from the
// prediction's probability. It implements models.PositionSizer.
type KellySizer struct {
	AccountSize  float64 // account equity
	PayoffRatio  float64 // expected win / expected loss, defaults to DefaultRewardRatio
	KellyScale   float64 // share of full Kelly to stake, defaults to 0.5
	MaxFraction  float64 // cap on the staked share of the account, defaults to 0.02
	MinStake     float64 // stakes below this round to zero
	StakeDecimal int32   // decimal places of the stake, defaults to 2
}

// NewKellySizer creates a sizer with defaults for the given account size and cap
func NewKellySizer(accountSize, maxFraction float64) *KellySizer {
	return &KellySizer{
		AccountSize:  accountSize,
		PayoffRatio:  DefaultRewardRatio,
		KellyScale:   0.5,
		MaxFraction:  maxFraction,
		StakeDecimal: 2,
	}
}

// Size implements models.PositionSizer
func (s *KellySizer) Size(result models.PredictionResult) (models.PositionSizingResult, error) {
	if s.AccountSize <= 0 {
		return models.PositionSizingResult{}, fmt.Errorf("%w: account size %v", ErrInvalidSizing, s.AccountSize)
	}
	if result.Probability < 0 || result.Probability > 100 {
		return models.PositionSizingResult{}, fmt.Errorf("%w: probability %v", ErrInvalidSizing, result.Probability)
	}

	payoff := s.PayoffRatio
	if payoff <= 0 {
		payoff = DefaultRewardRatio
	}
	scale := s.KellyScale
	if scale <= 0 || scale > 1 {
		scale = 0.5
	}
	maxFraction := s.MaxFraction
	if maxFraction <= 0 || maxFraction > 1 {
		maxFraction = 0.02
	}
	places := s.StakeDecimal
	if places <= 0 {
		places = 2
	}

	fraction := decimal.NewFromFloat(math.Min(KellyFraction(result.Probability/100, payoff)*scale, maxFraction)).
		Round(fractionPlaces)

	stake := decimal.NewFromFloat(s.AccountSize).
		Mul(fraction).
		RoundDown(places)
	if stake.LessThan(decimal.NewFromFloat(s.MinStake)) {
		stake = decimal.Zero
	}

	out := models.PositionSizingResult{
		Stake:    stake.InexactFloat64(),
		Fraction: fraction.InexactFloat64(),
	}

	if atr := result.Indicators.ATR; atr > 0 && result.LastClose > 0 {
		out.StopLoss = DetermineStopLoss(result.LastClose, atr, result.Direction)
		out.TakeProfit = TakeProfit(result.LastClose, out.StopLoss, payoff)
		out.RiskRewardRatio = payoff
	}

	return out, nil
}

// ApplyMarketConditions scales a sizing to the current regime and anomaly.
// The stake follows AdjustForVolatility, is halved when the anomaly asks for a
// smaller position and the stop moves out by half its distance when it asks
// for wider stops.
func ApplyMarketConditions(sizing models.PositionSizingResult, regime models.MarketRegime, anomaly models.Anomaly, price float64) models.PositionSizingResult {
	stake := AdjustForVolatility(sizing.Stake, regime.VolatilityRatio)
	if anomaly.Has(models.FlagReducePositionSize) {
		stake /= 2
	}
	sizing.Stake = decimal.NewFromFloat(stake).RoundDown(2).InexactFloat64()

	if anomaly.Has(models.FlagUseWiderStops) && sizing.StopLoss > 0 && price > 0 {
		sizing.StopLoss = price + (sizing.StopLoss-price)*1.5
		if sizing.RiskRewardRatio > 0 {
			sizing.TakeProfit = TakeProfit(price, sizing.StopLoss, sizing.RiskRewardRatio)
		}
	}
	return sizing
}

var _ models.PositionSizer = (*KellySizer)(nil)
