package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contextgate/internal/cache"
	"contextgate/internal/models"
	"contextgate/logger"
)

// TTLs bound how long each kind of response is reused.
type TTLs struct {
	Candles time.Duration
	Ticker  time.Duration
	OI      time.Duration
}

// CachedFeed memoizes successful responses of the wrapped Feed keyed by
// data kind, instrument id and request parameters. Errors are never cached.
type CachedFeed struct {
	next  Feed
	cache cache.Cache
	ttl   TTLs
	log   *logger.Log
}

func NewCachedFeed(next Feed, c cache.Cache, ttl TTLs) *CachedFeed {
	return &CachedFeed{next: next, cache: c, ttl: ttl, log: logger.GetLogger()}
}

func (f *CachedFeed) FetchCandles(ctx context.Context, instID, bar string, limit int) ([]models.Candle, error) {
	key := fmt.Sprintf("contextgate:candles:%s:%s:%d", instID, bar, limit)
	var out []models.Candle
	err := f.memo(ctx, key, f.ttl.Candles, &out, func() (any, error) {
		return f.next.FetchCandles(ctx, instID, bar, limit)
	})
	return out, err
}

func (f *CachedFeed) FetchTicker(ctx context.Context, instID string) (*models.Ticker, error) {
	key := fmt.Sprintf("contextgate:ticker:%s", instID)
	var out *models.Ticker
	err := f.memo(ctx, key, f.ttl.Ticker, &out, func() (any, error) {
		return f.next.FetchTicker(ctx, instID)
	})
	return out, err
}

func (f *CachedFeed) FetchOpenInterestHistory(ctx context.Context, instID, period string, limit int) (models.OIHistory, error) {
	key := fmt.Sprintf("contextgate:oi:%s:%s:%d", instID, period, limit)
	var out models.OIHistory
	err := f.memo(ctx, key, f.ttl.OI, &out, func() (any, error) {
		return f.next.FetchOpenInterestHistory(ctx, instID, period, limit)
	})
	return out, err
}

func (f *CachedFeed) memo(ctx context.Context, key string, ttl time.Duration, out any, fetch func() (any, error)) error {
	log := f.log.WithComponent("market_cache").WithFields(logger.Fields{"key": key})

	if raw, ok := f.cache.Get(ctx, key); ok {
		if err := json.Unmarshal(raw, out); err == nil {
			log.Debug("cache hit")
			return nil
		}
		log.Warn("discarding undecodable cache entry")
	}

	v, err := fetch()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	f.cache.Set(ctx, key, raw, ttl)
	return nil
}
