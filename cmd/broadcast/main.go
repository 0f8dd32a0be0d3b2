package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/candlecast/internal/analysis/market"
	"github.com/Alias1177/candlecast/internal/app"
	"github.com/Alias1177/candlecast/internal/config"
	"github.com/Alias1177/candlecast/internal/notify"
	"github.com/Alias1177/candlecast/internal/trading/risk"
	"github.com/Alias1177/candlecast/models"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.SetupLogging(cfg.Level())

	if cfg.TelegramToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}

	notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open stores")
	}
	defer stores.Close()

	engine, err := app.NewEngine(ctx, cfg, stores, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create prediction engine")
	}

	client := app.NewClient(cfg)
	sizer := risk.NewKellySizer(cfg.AccountSize, cfg.RiskFraction)

	sent, failed := 0, 0
	for i, symbol := range cfg.Symbols {
		candles, err := client.GetCandles(ctx, symbol, cfg.IntervalMinutes, cfg.CandleCount)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch candles")
			failed++
			continue
		}

		result, err := engine.Predict(ctx, symbol, candles)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("Prediction failed")
			failed++
			continue
		}

		var sizing *models.PositionSizingResult
		if s, err := sizer.Size(result); err == nil {
			s = risk.ApplyMarketConditions(s, market.Classify(candles), market.DetectAnomaly(candles), result.LastClose)
			sizing = &s
		}

		if err := notifier.NotifyPrediction(ctx, result, sizing); err != nil {
			failed++
		} else {
			sent++
		}

		// Telegram allows about 30 messages per second per bot
		if i < len(cfg.Symbols)-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}

	log.Info().Int("sent", sent).Int("failed", failed).Msg("Broadcast completed")
}
