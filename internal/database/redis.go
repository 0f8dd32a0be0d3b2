package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/candlecast/models"
)

const (
	weightsKey       = "candlecast:weights"
	candleKeyPrefix  = "candlecast:candles"
	CandleCacheTTL   = 24 * time.Hour
	MaxCachedCandles = 5000
	redisPingTimeout = 2 * time.Second
)

// RedisStore shares model weights and recent candle windows between
// processes. When Redis is unreachable it keeps serving from an in-memory
// copy and marks Redis unavailable until a write succeeds again.
type RedisStore struct {
	client         *redis.Client
	redisAvailable atomic.Bool

	mu      sync.RWMutex
	weights *models.ModelWeights
	candles map[string][]models.Candle

	logger zerolog.Logger
}

// NewRedisStore creates a store. A nil client runs in memory-only mode.
func NewRedisStore(client *redis.Client) *RedisStore {
	s := &RedisStore{
		client:  client,
		candles: make(map[string][]models.Candle),
		logger:  log.With().Str("component", "redis-store").Logger(),
	}

	if client == nil {
		s.logger.Info().Msg("No Redis client provided, using in-memory cache only")
		return s
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Redis unavailable at startup, using in-memory cache")
		return s
	}

	s.redisAvailable.Store(true)
	s.logger.Info().Msg("Redis connected")
	return s
}

// Available reports whether the last Redis operation succeeded
func (s *RedisStore) Available() bool {
	return s.client != nil && s.redisAvailable.Load()
}

func (s *RedisStore) markUnavailable(err error) {
	if s.redisAvailable.Swap(false) {
		s.logger.Warn().Err(err).Msg("Redis error, falling back to in-memory cache")
	}
}

func (s *RedisStore) markAvailable() {
	if !s.redisAvailable.Swap(true) {
		s.logger.Info().Msg("Redis reachable again")
	}
}

func candleKey(symbol string) string {
	return fmt.Sprintf("%s:%s", candleKeyPrefix, symbol)
}

// SaveWeights always updates the in-memory copy, then Redis if it is reachable
func (s *RedisStore) SaveWeights(ctx context.Context, w models.ModelWeights) error {
	s.mu.Lock()
	s.weights = &w
	s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	if err := s.client.Set(ctx, weightsKey, data, 0).Err(); err != nil {
		s.markUnavailable(err)
		return nil
	}
	s.markAvailable()
	return nil
}

// LoadWeights prefers Redis and falls back to the in-memory copy
func (s *RedisStore) LoadWeights(ctx context.Context) (models.ModelWeights, bool, error) {
	if s.client != nil {
		data, err := s.client.Get(ctx, weightsKey).Bytes()
		switch {
		case err == nil:
			var w models.ModelWeights
			if err := json.Unmarshal(data, &w); err != nil {
				return models.ModelWeights{}, false, fmt.Errorf("unmarshal weights: %w", err)
			}
			s.markAvailable()
			s.mu.Lock()
			s.weights = &w
			s.mu.Unlock()
			return w, true, nil
		case errors.Is(err, redis.Nil):
			s.markAvailable()
		default:
			s.markUnavailable(err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.weights == nil {
		return models.ModelWeights{}, false, nil
	}
	return *s.weights, true, nil
}

// SaveCandles merges candles into the cached series for symbol. Cached
// candles keep their values; the series is capped at MaxCachedCandles.
func (s *RedisStore) SaveCandles(ctx context.Context, symbol string, candles []models.Candle) error {
	cached, err := s.LoadCandles(ctx, symbol, 0)
	if err != nil {
		return err
	}
	window := mergeCandles(cached, candles, MaxCachedCandles)

	s.mu.Lock()
	s.candles[symbol] = window
	s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	data, err := json.Marshal(window)
	if err != nil {
		return fmt.Errorf("marshal candles: %w", err)
	}
	if err := s.client.Set(ctx, candleKey(symbol), data, CandleCacheTTL).Err(); err != nil {
		s.markUnavailable(err)
		return nil
	}
	s.markAvailable()
	return nil
}

// mergeCandles adds incoming candles whose index is not in stored and
// returns the latest limit candles ordered by index
func mergeCandles(stored, incoming []models.Candle, limit int) []models.Candle {
	seen := make(map[int]struct{}, len(stored))
	out := make([]models.Candle, 0, len(stored)+len(incoming))
	for _, c := range stored {
		seen[c.Index] = struct{}{}
		out = append(out, c)
	}
	for _, c := range incoming {
		if _, ok := seen[c.Index]; ok {
			continue
		}
		seen[c.Index] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// LoadCandles returns the latest limit cached candles for symbol
func (s *RedisStore) LoadCandles(ctx context.Context, symbol string, limit int) ([]models.Candle, error) {
	var window []models.Candle
	found := false

	if s.client != nil {
		data, err := s.client.Get(ctx, candleKey(symbol)).Bytes()
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &window); err != nil {
				return nil, fmt.Errorf("unmarshal candles: %w", err)
			}
			s.markAvailable()
			found = true
		case errors.Is(err, redis.Nil):
			s.markAvailable()
		default:
			s.markUnavailable(err)
		}
	}

	if !found {
		s.mu.RLock()
		window = append([]models.Candle(nil), s.candles[symbol]...)
		s.mu.RUnlock()
	}

	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	return window, nil
}

// DeleteCandles drops the cached window for symbol
func (s *RedisStore) DeleteCandles(ctx context.Context, symbol string) error {
	s.mu.Lock()
	delete(s.candles, symbol)
	s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	if err := s.client.Del(ctx, candleKey(symbol)).Err(); err != nil {
		s.markUnavailable(err)
	}
	return nil
}
