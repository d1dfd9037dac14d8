package market

import (
	"context"
	"errors"
	"fmt"

	"contextgate/internal/models"
	"contextgate/internal/symbols"
	"contextgate/logger"
)

// Params are the request shapes used for every instrument.
type Params struct {
	Bar         string
	CandleLimit int
	OIPeriod    string
	OILimit     int
	// RequireOI makes a missing open-interest history disqualify a candidate.
	RequireOI bool
}

// Data is the raw input set for one instrument.
type Data struct {
	Pair    string
	InstID  string
	Candles []models.Candle
	Ticker  *models.Ticker
	OI      models.OIHistory
}

// Resolver maps a pair to the first OKX instrument whose feeds are all
// non-empty.
type Resolver struct {
	feed   Feed
	params Params
	log    *logger.Log
}

func NewResolver(feed Feed, params Params) *Resolver {
	return &Resolver{feed: feed, params: params, log: logger.GetLogger()}
}

// Resolve validates pair and tries each instrument candidate in order. When
// every candidate fails, the returned error joins the per-candidate errors.
func (r *Resolver) Resolve(ctx context.Context, pair string) (Data, error) {
	pair, err := symbols.NormalizePair(pair)
	if err != nil {
		return Data{}, err
	}

	var errs []error
	for _, instID := range symbols.OKXCandidates(pair) {
		data, err := r.fetch(ctx, instID)
		if err == nil {
			data.Pair = pair
			return data, nil
		}
		if ctx.Err() != nil {
			return Data{}, ctx.Err()
		}
		r.log.WithComponent("market_resolver").WithFields(logger.Fields{
			"pair":    pair,
			"inst_id": instID,
		}).WithError(err).Info("instrument candidate rejected")
		errs = append(errs, fmt.Errorf("%s: %w", instID, err))
	}
	return Data{}, fmt.Errorf("no instrument with complete data for %s: %w", pair, errors.Join(errs...))
}

func (r *Resolver) fetch(ctx context.Context, instID string) (Data, error) {
	candles, err := r.feed.FetchCandles(ctx, instID, r.params.Bar, r.params.CandleLimit)
	if err != nil {
		return Data{}, err
	}
	if len(candles) == 0 {
		return Data{}, fmt.Errorf("candles: %w", models.ErrInsufficientData)
	}

	ticker, err := r.feed.FetchTicker(ctx, instID)
	if err != nil {
		return Data{}, err
	}
	if ticker == nil {
		return Data{}, fmt.Errorf("ticker: %w", models.ErrInsufficientData)
	}

	oi, err := r.feed.FetchOpenInterestHistory(ctx, instID, r.params.OIPeriod, r.params.OILimit)
	if err != nil || len(oi) == 0 {
		if r.params.RequireOI {
			if err == nil {
				err = fmt.Errorf("open interest: %w", models.ErrInsufficientData)
			}
			return Data{}, err
		}
		r.log.WithComponent("market_resolver").WithFields(logger.Fields{
			"inst_id": instID,
		}).WithError(err).Warn("open interest unavailable, continuing without it")
		oi = nil
	}

	return Data{InstID: instID, Candles: candles, Ticker: ticker, OI: oi}, nil
}
