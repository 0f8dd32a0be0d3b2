package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/candlecast/internal/analysis/prediction"
	"github.com/Alias1177/candlecast/internal/api/twelvedata"
	"github.com/Alias1177/candlecast/internal/config"
	"github.com/Alias1177/candlecast/internal/database"
	"github.com/Alias1177/candlecast/models"
)

// SetupLogging configures the global console logger
func SetupLogging(level zerolog.Level) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output).Level(level)
}

// Stores bundles the persistence collaborators selected by the configuration
type Stores struct {
	Candles models.CandleStore
	History models.HistoryStore
	Weights models.WeightStore

	closers []func() error
}

// Close releases every open connection
func (s *Stores) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}
}

// OpenStores picks Postgres when DB_HOST is set and falls back to memory.
// With REDIS_ADDR set, weights and candle windows go through Redis instead
// so several processes share them.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	mem := database.NewMemoryStore()
	stores := &Stores{Candles: mem, History: mem, Weights: mem}

	if cfg.DatabaseEnabled() {
		db, err := database.New(ctx, cfg.ConnectionParams())
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		stores.Candles, stores.History, stores.Weights = db, db, db
		stores.closers = append(stores.closers, db.Close)
		log.Info().Str("host", cfg.DBHost).Msg("Using Postgres store")
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rs := database.NewRedisStore(client)
		stores.Candles, stores.Weights = rs, rs
		stores.closers = append(stores.closers, client.Close)
		log.Info().Str("addr", cfg.RedisAddr).Bool("available", rs.Available()).Msg("Using Redis store")
	}

	return stores, nil
}

// NewEngine builds a prediction engine from the configuration and restores
// saved weights
func NewEngine(ctx context.Context, cfg *config.Config, stores *Stores, recorder prediction.Recorder) (*prediction.Engine, error) {
	engine, err := prediction.NewEngine(prediction.Options{
		Params:          cfg.IndicatorParams(),
		Learner:         cfg.LearnerConfig(),
		IntervalMinutes: cfg.IntervalMinutes,
		HistoryLimit:    cfg.HistoryLimit,
		HistoryStore:    stores.History,
		WeightStore:     stores.Weights,
		Recorder:        recorder,
	})
	if err != nil {
		return nil, err
	}

	if err := engine.RestoreWeights(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to restore weights, starting from the prior")
	}
	return engine, nil
}

// NewClient creates the candle data client
func NewClient(cfg *config.Config) *twelvedata.Client {
	return twelvedata.NewClient(twelvedata.ClientOptions{
		APIKey:         cfg.TwelveAPIKey,
		RequestTimeout: cfg.Timeout(),
		RequestsPerSec: cfg.RequestsPerSec,
	})
}
