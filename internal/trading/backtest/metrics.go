package backtest

import (
	"math"
	"time"
)

// tradeReturn is the nominal per-trade return used for the Sharpe ratio
const tradeReturn = 0.01

// CalculatePerformanceMetrics fills the aggregate fields of results from its trades and equity curve
func CalculatePerformanceMetrics(results *Results) {
	if results == nil {
		return
	}

	results.TotalTrades = len(results.Trades)
	results.WinningTrades, results.LosingTrades = 0, 0
	for _, t := range results.Trades {
		if t.Correct {
			results.WinningTrades++
		} else {
			results.LosingTrades++
		}
	}
	if results.TotalTrades > 0 {
		results.Accuracy = float64(results.WinningTrades) / float64(results.TotalTrades) * 100
	}

	results.MaxConsecutiveWins, results.MaxConsecutiveLoses = streaks(results.Trades)
	results.SharpeRatio = sharpeRatio(results.Trades)
	results.MaxDrawdown = maxDrawdown(results.EquityCurve) * 100

	if n := len(results.EquityCurve); n > 0 && results.EquityCurve[0] != 0 {
		first, last := results.EquityCurve[0], results.EquityCurve[n-1]
		results.EquityGrowthPercent = (last - first) / first * 100
	}
}

// streaks returns the longest runs of correct and incorrect trades
func streaks(trades []Trade) (wins, losses int) {
	curWins, curLosses := 0, 0
	for _, t := range trades {
		if t.Correct {
			curWins++
			curLosses = 0
		} else {
			curLosses++
			curWins = 0
		}
		wins = max(wins, curWins)
		losses = max(losses, curLosses)
	}
	return wins, losses
}

// sharpeRatio treats every trade as a +1% or -1% return and annualizes by the trade frequency
func sharpeRatio(trades []Trade) float64 {
	if len(trades) < 2 {
		return 0
	}

	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = -tradeReturn
		if t.Correct {
			returns[i] = tradeReturn
		}
	}

	m := mean(returns)
	sd := stdDev(returns, m)
	if sd == 0 {
		return 0
	}
	return m / sd * math.Sqrt(periodsPerYear(trades))
}

func maxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}

	worst := 0.0
	peak := equity[0]
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			worst = math.Max(worst, (peak-v)/peak)
		}
	}
	return worst
}

// periodsPerYear returns the annualization factor based on the spacing of trades
func periodsPerYear(trades []Trade) float64 {
	var total time.Duration
	n := 0
	for i := 1; i < len(trades); i++ {
		if diff := trades[i].Timestamp.Sub(trades[i-1].Timestamp); diff > 0 {
			total += diff
			n++
		}
	}
	if n == 0 {
		return 252.0
	}

	hours := (total / time.Duration(n)).Hours()
	switch {
	case hours <= 1:
		return 252.0 * 6.5
	case hours <= 24:
		return 252.0
	case hours <= 24*7:
		return 52.0
	default:
		return 12.0
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff / float64(len(values)-1))
}
