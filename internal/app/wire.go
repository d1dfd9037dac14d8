package app

import (
	"context"
	"io"
	"time"

	appconfig "contextgate/config"
	"contextgate/internal/backup"
	"contextgate/internal/cache"
	"contextgate/internal/journal"
	"contextgate/internal/market"
	"contextgate/internal/reader/okx"
	"contextgate/internal/session"
	"contextgate/internal/trade"
)

// Build assembles the production App: OKX REST feed behind the configured
// cache, CSV journals and the optional S3 mirror. The returned close function
// releases the cache connection.
func Build(ctx context.Context, cfg *appconfig.Config) (*App, func(), error) {
	sessions, err := session.NewResolver(cfg.App.Timezone)
	if err != nil {
		return nil, nil, err
	}
	loc := sessions.Location()

	c := cache.New(cfg.Cache.Redis)
	closeFn := func() {
		if closer, ok := c.(io.Closer); ok {
			closer.Close()
		}
	}

	feed := market.NewCachedFeed(okx.NewClient(cfg.Okx), c, market.TTLs{
		Candles: cfg.Market.CandlesTTL,
		Ticker:  cfg.Market.TickerTTL,
		OI:      cfg.Market.OITTL,
	})

	deps := Deps{
		Feed:     feed,
		Contexts: journal.NewCSVStore(cfg.Journal.ContextFile, loc, time.Now),
		Trades:   trade.NewCSVStore(cfg.Journal.TradeFile, loc, time.Now),
		Clock:    time.Now,
	}
	if cfg.Storage.S3.Enabled {
		mirror, err := backup.NewS3Mirror(ctx, cfg)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		deps.Mirror = mirror
	}

	a, err := New(ctx, cfg, deps)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return a, closeFn, nil
}
