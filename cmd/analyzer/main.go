package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/candlecast/internal/analysis/market"
	"github.com/Alias1177/candlecast/internal/analysis/prediction"
	"github.com/Alias1177/candlecast/internal/api/twelvedata"
	"github.com/Alias1177/candlecast/internal/app"
	"github.com/Alias1177/candlecast/internal/config"
	"github.com/Alias1177/candlecast/internal/metrics"
	"github.com/Alias1177/candlecast/internal/trading/risk"
	"github.com/Alias1177/candlecast/models"
)

// pending is the last unresolved prediction of a symbol
type pending struct {
	id     string
	target time.Time
}

type analyzer struct {
	cfg      *config.Config
	client   *twelvedata.Client
	engine   *prediction.Engine
	stores   *app.Stores
	recorder *metrics.Recorder
	sizer    *risk.KellySizer

	mu      sync.Mutex
	pending map[string]pending
}

func main() {
	once := flag.Bool("once", false, "predict once per symbol and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.SetupLogging(cfg.Level())
	log.Info().Strs("symbols", cfg.Symbols).Str("interval", cfg.Interval()).Msg("Starting analyzer")

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open stores")
	}
	defer stores.Close()

	recorder := metrics.New(prometheus.DefaultRegisterer)
	engine, err := app.NewEngine(ctx, cfg, stores, recorder)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create prediction engine")
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	a := &analyzer{
		cfg:      cfg,
		client:   app.NewClient(cfg),
		engine:   engine,
		stores:   stores,
		recorder: recorder,
		sizer:    risk.NewKellySizer(cfg.AccountSize, cfg.RiskFraction),
		pending:  make(map[string]pending),
	}

	if err := a.runCycle(ctx); err != nil {
		log.Error().Err(err).Msg("Analysis cycle failed")
	}
	if *once {
		return
	}

	ticker := time.NewTicker(time.Duration(cfg.IntervalMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutdown signal received, exiting")
			return
		case <-ticker.C:
			if err := a.runCycle(ctx); err != nil {
				log.Error().Err(err).Msg("Analysis cycle failed")
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}

// runCycle analyzes every configured symbol concurrently
func (a *analyzer) runCycle(ctx context.Context) error {
	start := time.Now()
	defer func() { a.recorder.RecordLatency("cycle", time.Since(start).Seconds()) }()

	g, ctx := errgroup.WithContext(ctx)
	for _, symbol := range a.cfg.Symbols {
		symbol := symbol
		g.Go(func() error {
			if err := a.analyzeSymbol(ctx, symbol); err != nil {
				a.recorder.RecordError("analyze")
				log.Error().Err(err).Str("symbol", symbol).Msg("Analysis failed")
			}
			return nil
		})
	}
	return g.Wait()
}

func (a *analyzer) analyzeSymbol(ctx context.Context, symbol string) error {
	candles, err := a.client.GetCandles(ctx, symbol, a.cfg.IntervalMinutes, a.cfg.CandleCount)
	if err != nil {
		a.recorder.RecordError("fetch")
		return fmt.Errorf("fetch candles: %w", err)
	}

	// the newest candle may still be forming
	if err := a.stores.Candles.SaveCandles(ctx, symbol, closedCandles(candles)); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to store candles")
	}

	a.resolvePending(ctx, symbol, candles)

	result, err := a.engine.Predict(ctx, symbol, candles)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	a.mu.Lock()
	a.pending[symbol] = pending{id: result.ID, target: result.TargetTime}
	a.mu.Unlock()

	regime := market.Classify(candles)
	anomaly := market.DetectAnomaly(candles)

	printPrediction(result)
	printConditions(regime, anomaly)
	if sizing, err := a.sizer.Size(result); err == nil && sizing.Stake > 0 {
		sizing = risk.ApplyMarketConditions(sizing, regime, anomaly, result.LastClose)
		fmt.Printf("Stake: %.2f (%.2f%%), stop %.5f, target %.5f\n",
			sizing.Stake, sizing.Fraction*100, sizing.StopLoss, sizing.TakeProfit)
	}
	return nil
}

// resolvePending records the outcome of the previous prediction once the
// candle it targeted has closed. The newest candle may still be forming.
func (a *analyzer) resolvePending(ctx context.Context, symbol string, candles []models.Candle) {
	a.mu.Lock()
	p, ok := a.pending[symbol]
	a.mu.Unlock()
	if !ok {
		return
	}

	for i := 0; i < len(candles)-1; i++ {
		if !candles[i].Timestamp.Equal(p.target) {
			continue
		}

		entry, err := a.engine.ResolveOutcome(ctx, p.id, candles[i].Close)
		if err != nil {
			log.Warn().Err(err).Str("id", p.id).Msg("Failed to resolve prediction")
		} else {
			acc, n := a.engine.Accuracy()
			log.Info().
				Str("symbol", symbol).
				Str("predicted", string(entry.Prediction.Direction)).
				Str("actual", string(*entry.ActualOutcome)).
				Float64("accuracy", acc).
				Int("labeled", n).
				Msg("Prediction resolved")
		}

		a.mu.Lock()
		delete(a.pending, symbol)
		a.mu.Unlock()
		return
	}
}

func closedCandles(candles []models.Candle) []models.Candle {
	if len(candles) == 0 {
		return nil
	}
	return candles[:len(candles)-1]
}

func printConditions(regime models.MarketRegime, anomaly models.Anomaly) {
	fmt.Printf("Market: %s %s (strength %.2f, volatility %s)\n",
		regime.Type, regime.Direction, regime.Strength, regime.VolatilityLevel)
	if anomaly.Detected {
		fmt.Printf("Anomaly: %s (score %.2f) %s %v\n", anomaly.Type, anomaly.Score, anomaly.Details, anomaly.Flags)
	}
}

func printPrediction(r models.PredictionResult) {
	fmt.Printf("\n===== %s =====\n", r.Symbol)
	fmt.Printf("Prediction: %s (probability %.1f%%, confidence %.1f%%, score %.2f)\n",
		r.Direction, r.Probability, r.Confidence, r.Score)
	fmt.Printf("Target time: %s\n", r.TargetTime.Format(time.RFC3339))
	for _, c := range r.Contributions {
		fmt.Printf("- %-10s score %5.1f weight %.3f contribution %+6.2f\n", c.Factor, c.Score, c.Weight, c.Contribution)
	}
	for _, p := range r.Patterns {
		fmt.Printf("Pattern: %s (%s, %.0f%%)\n", p.Name, p.Kind, p.Confidence)
	}
	fmt.Println(r.Recommendation)
}
