package backtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/candlecast/internal/analysis/market"
	"github.com/Alias1177/candlecast/models"
)

// Predictor is the part of the prediction engine a walk-forward run needs
type Predictor interface {
	Predict(ctx context.Context, symbol string, candles []models.Candle) (models.PredictionResult, error)
	ResolveOutcome(ctx context.Context, id string, nextClose float64) (models.PredictionHistoryEntry, error)
	Weights() models.ModelWeights
	WeightUpdates() int
}

// Trade is one resolved prediction of a walk-forward run
type Trade struct {
	PredictionID string            `json:"prediction_id"`
	Index        int               `json:"index"`
	Timestamp    time.Time         `json:"timestamp"`
	Direction    models.Direction  `json:"direction"`
	Actual       models.Direction  `json:"actual"`
	Probability  float64           `json:"probability"`
	Confidence   float64           `json:"confidence"`
	Regime       models.RegimeType `json:"regime"`
	Correct      bool              `json:"correct"`
	Stake        float64           `json:"stake"`
	PnL          float64           `json:"pnl"`
}

// Results summarizes a walk-forward run
type Results struct {
	TotalTrades         int                           `json:"total_trades"`
	WinningTrades       int                           `json:"winning_trades"`
	LosingTrades        int                           `json:"losing_trades"`
	Skipped             int                           `json:"skipped"`
	Accuracy            float64                       `json:"accuracy"` // percent
	DirectionAccuracy   map[models.Direction]float64  `json:"direction_accuracy"`
	RegimeAccuracy      map[models.RegimeType]float64 `json:"regime_accuracy"`
	MaxConsecutiveWins  int                           `json:"max_consecutive_wins"`
	MaxConsecutiveLoses int                           `json:"max_consecutive_loses"`
	SharpeRatio         float64                       `json:"sharpe_ratio"`
	MaxDrawdown         float64                       `json:"max_drawdown"` // percent
	EquityGrowthPercent float64                       `json:"equity_growth_percent"`
	EquityCurve         []float64                     `json:"equity_curve"`
	MonthlyReturns      map[string]float64            `json:"monthly_returns"`
	InitialWeights      models.ModelWeights           `json:"initial_weights"`
	FinalWeights        models.ModelWeights           `json:"final_weights"`
	WeightUpdates       int                           `json:"weight_updates"`
	Trades              []Trade                       `json:"trades"`
}

// Engine replays a candle series through a predictor one window at a time,
// resolving every prediction against the next close so the learner sees
// outcomes in order
type Engine struct {
	predictor     Predictor
	sizer         models.PositionSizer
	window        int
	minConfidence float64
	initialValue  float64
	logger        zerolog.Logger
}

// NewEngine creates a backtesting engine with a sliding window of window candles
func NewEngine(predictor Predictor, window int) *Engine {
	return &Engine{
		predictor:    predictor,
		window:       window,
		initialValue: 10000.0,
		logger:       log.With().Str("component", "backtest").Logger(),
	}
}

// SetInitialValue sets the initial capital for backtesting
func (e *Engine) SetInitialValue(value float64) {
	e.initialValue = value
}

// SetSizer sizes every trade with sizer instead of a flat 1% stake
func (e *Engine) SetSizer(sizer models.PositionSizer) {
	e.sizer = sizer
}

// SetMinConfidence skips trades below the given confidence. Skipped
// predictions still feed the learner.
func (e *Engine) SetMinConfidence(confidence float64) {
	e.minConfidence = confidence
}

// Run executes a walk-forward backtest over candles
func (e *Engine) Run(ctx context.Context, symbol string, candles []models.Candle) (*Results, error) {
	if e.window < 1 {
		return nil, fmt.Errorf("invalid window size %d", e.window)
	}
	if len(candles) <= e.window {
		return nil, fmt.Errorf("%w: need more than %d candles for backtesting, got %d",
			models.ErrInsufficientData, e.window, len(candles))
	}

	results := &Results{
		DirectionAccuracy: make(map[models.Direction]float64),
		RegimeAccuracy:    make(map[models.RegimeType]float64),
		MonthlyReturns:    make(map[string]float64),
		InitialWeights:    e.predictor.Weights(),
	}

	balance := e.initialValue
	results.EquityCurve = []float64{balance}
	directionStats := map[models.Direction]*tally{
		models.DirectionUp:   {},
		models.DirectionDown: {},
	}
	regimeStats := make(map[models.RegimeType]*tally)

	for i := e.window; i < len(candles); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window := candles[i-e.window : i]
		pred, err := e.predictor.Predict(ctx, symbol, window)
		if err != nil {
			return nil, fmt.Errorf("predict window ending at %d: %w", window[len(window)-1].Index, err)
		}

		entry, err := e.predictor.ResolveOutcome(ctx, pred.ID, candles[i].Close)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", pred.ID, err)
		}

		if pred.Confidence < e.minConfidence {
			results.Skipped++
			continue
		}

		stake, err := e.stake(pred, balance)
		if err != nil {
			return nil, err
		}

		correct := *entry.Correct
		pnl := stake
		if !correct {
			pnl = -stake
		}
		balance += pnl

		trade := Trade{
			PredictionID: pred.ID,
			Index:        window[len(window)-1].Index,
			Timestamp:    window[len(window)-1].Timestamp,
			Direction:    pred.Direction,
			Actual:       *entry.ActualOutcome,
			Probability:  pred.Probability,
			Confidence:   pred.Confidence,
			Regime:       market.Classify(window).Type,
			Correct:      correct,
			Stake:        stake,
			PnL:          pnl,
		}
		results.Trades = append(results.Trades, trade)
		results.EquityCurve = append(results.EquityCurve, balance)

		stats := directionStats[pred.Direction]
		stats.total++
		if correct {
			stats.correct++
		}
		rs, ok := regimeStats[trade.Regime]
		if !ok {
			rs = &tally{}
			regimeStats[trade.Regime] = rs
		}
		rs.total++
		if correct {
			rs.correct++
		}
		if !trade.Timestamp.IsZero() {
			results.MonthlyReturns[trade.Timestamp.Format("2006-01")] += pnl
		}
	}

	for dir, stats := range directionStats {
		if stats.total > 0 {
			results.DirectionAccuracy[dir] = float64(stats.correct) / float64(stats.total) * 100
		}
	}
	for regime, stats := range regimeStats {
		results.RegimeAccuracy[regime] = float64(stats.correct) / float64(stats.total) * 100
	}
	for month, pnl := range results.MonthlyReturns {
		results.MonthlyReturns[month] = pnl / e.initialValue * 100
	}

	CalculatePerformanceMetrics(results)
	results.FinalWeights = e.predictor.Weights()
	results.WeightUpdates = e.predictor.WeightUpdates()

	e.logger.Info().
		Str("symbol", symbol).
		Int("trades", results.TotalTrades).
		Int("skipped", results.Skipped).
		Float64("accuracy", results.Accuracy).
		Int("weight_updates", results.WeightUpdates).
		Msg("Backtest finished")

	return results, nil
}

func (e *Engine) stake(pred models.PredictionResult, balance float64) (float64, error) {
	if balance <= 0 {
		return 0, nil
	}
	if e.sizer == nil {
		return balance * 0.01, nil
	}

	sizing, err := e.sizer.Size(pred)
	if err != nil {
		return 0, fmt.Errorf("size %s: %w", pred.ID, err)
	}
	return sizing.Stake, nil
}

type tally struct {
	correct int
	total   int
}

// FormatResults creates a human-readable summary of backtest results
func FormatResults(results *Results) string {
	if results == nil {
		return "No backtest results available"
	}

	var b strings.Builder
	b.WriteString("\n===== BACKTEST RESULTS =====\n")
	fmt.Fprintf(&b, "Total trades: %d (skipped %d)\n", results.TotalTrades, results.Skipped)
	fmt.Fprintf(&b, "Winning trades: %d (%.2f%%)\n", results.WinningTrades, results.Accuracy)
	for _, dir := range []models.Direction{models.DirectionUp, models.DirectionDown} {
		if acc, ok := results.DirectionAccuracy[dir]; ok {
			fmt.Fprintf(&b, "- %s accuracy: %.2f%%\n", dir, acc)
		}
	}
	if len(results.RegimeAccuracy) > 0 {
		regimes := make([]string, 0, len(results.RegimeAccuracy))
		for regime := range results.RegimeAccuracy {
			regimes = append(regimes, string(regime))
		}
		sort.Strings(regimes)
		for _, regime := range regimes {
			fmt.Fprintf(&b, "- %s market accuracy: %.2f%%\n", regime, results.RegimeAccuracy[models.RegimeType(regime)])
		}
	}
	fmt.Fprintf(&b, "Sharpe ratio: %.2f\n", results.SharpeRatio)
	fmt.Fprintf(&b, "Maximum drawdown: %.2f%%\n", results.MaxDrawdown)
	fmt.Fprintf(&b, "Max consecutive wins: %d\n", results.MaxConsecutiveWins)
	fmt.Fprintf(&b, "Max consecutive losses: %d\n", results.MaxConsecutiveLoses)

	if len(results.MonthlyReturns) > 0 {
		b.WriteString("\nMonthly returns:\n")

		months := make([]string, 0, len(results.MonthlyReturns))
		for month := range results.MonthlyReturns {
			months = append(months, month)
		}
		sort.Strings(months)

		for _, month := range months {
			fmt.Fprintf(&b, "- %s: %+.2f%%\n", month, results.MonthlyReturns[month])
		}
	}

	fmt.Fprintf(&b, "\nTotal equity growth: %.2f%%\n", results.EquityGrowthPercent)

	b.WriteString("\nWeights after learning (")
	fmt.Fprintf(&b, "%d updates):\n", results.WeightUpdates)
	initial := results.InitialWeights.Values()
	final := results.FinalWeights.Values()
	for i, f := range models.Factors {
		fmt.Fprintf(&b, "- %-10s %.3f -> %.3f\n", f, initial[i], final[i])
	}

	return b.String()
}
