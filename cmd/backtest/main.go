package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/candlecast/internal/analysis/prediction"
	"github.com/Alias1177/candlecast/internal/app"
	"github.com/Alias1177/candlecast/internal/config"
	"github.com/Alias1177/candlecast/internal/trading/backtest"
	"github.com/Alias1177/candlecast/internal/trading/risk"
)

func main() {
	window := flag.Int("window", 60, "candles per prediction window")
	minConfidence := flag.Float64("min-confidence", 0, "skip trades below this confidence")
	jsonOut := flag.Bool("json", false, "print results as JSON")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.SetupLogging(cfg.Level())

	client := app.NewClient(cfg)

	for _, symbol := range cfg.Symbols {
		candles, err := client.GetHistoricalCandles(ctx, symbol, cfg.IntervalMinutes, cfg.BacktestDays)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch historical data")
			continue
		}
		log.Info().Str("symbol", symbol).Int("candles", len(candles)).Msg("Running backtest")

		// every symbol learns from scratch
		engine, err := prediction.NewEngine(prediction.Options{
			Params:          cfg.IndicatorParams(),
			Learner:         cfg.LearnerConfig(),
			IntervalMinutes: cfg.IntervalMinutes,
			HistoryLimit:    len(candles),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create prediction engine")
		}

		bt := backtest.NewEngine(engine, *window)
		bt.SetInitialValue(cfg.AccountSize)
		bt.SetSizer(risk.NewKellySizer(cfg.AccountSize, cfg.RiskFraction))
		bt.SetMinConfidence(*minConfidence)

		results, err := bt.Run(ctx, symbol, candles)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("Backtest failed")
			continue
		}

		if *jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				log.Error().Err(err).Msg("Failed to encode results")
			}
			continue
		}
		fmt.Printf("\n%s", symbol)
		fmt.Print(backtest.FormatResults(results))
	}
}
