// Package snapshot turns raw candle, ticker and open-interest feeds into a
// MarketSnapshot. It is pure: no I/O, no clock, no retries.
package snapshot

import (
	"fmt"
	"math"
	"sort"

	"contextgate/internal/models"
)

// Builder validates and summarises market data for the classifier.
type Builder struct {
	// RequireOI rejects snapshots without open-interest history. When false
	// the snapshot is built with OIAvailable=false instead.
	RequireOI bool
}

func NewBuilder(requireOI bool) *Builder {
	return &Builder{RequireOI: requireOI}
}

// Build summarises one window. Candles and OI samples may arrive in any
// order; the snapshot stores them oldest first.
func (b *Builder) Build(instID string, candles []models.Candle, ticker *models.Ticker, oi models.OIHistory) (models.MarketSnapshot, error) {
	if len(candles) == 0 {
		return models.MarketSnapshot{}, fmt.Errorf("%s: empty candle window: %w", instID, models.ErrInsufficientData)
	}
	if ticker == nil {
		return models.MarketSnapshot{}, fmt.Errorf("%s: missing ticker: %w", instID, models.ErrInsufficientData)
	}
	if !validNumber(ticker.QuoteVolume24h) {
		return models.MarketSnapshot{}, fmt.Errorf("%s: ticker 24h quote volume %v: %w", instID, ticker.QuoteVolume24h, models.ErrInsufficientData)
	}
	if b.RequireOI && len(oi) < 2 {
		return models.MarketSnapshot{}, fmt.Errorf("%s: open-interest history has %d samples: %w", instID, len(oi), models.ErrInsufficientData)
	}

	window := make([]models.Candle, len(candles))
	copy(window, candles)
	sort.SliceStable(window, func(i, j int) bool { return window[i].OpenTime.Before(window[j].OpenTime) })

	ranges := make([]float64, len(window))
	quotes := make([]float64, len(window))
	for i, c := range window {
		if !validNumber(c.Open) || !validNumber(c.High) || !validNumber(c.Low) || !validNumber(c.Close) || !validNumber(c.QuoteVolume) || !validNumber(c.BaseVolume) {
			return models.MarketSnapshot{}, fmt.Errorf("%s: candle at %s has invalid values: %w", instID, c.OpenTime, models.ErrInsufficientData)
		}
		if c.High < c.Low {
			return models.MarketSnapshot{}, fmt.Errorf("%s: candle at %s has high below low: %w", instID, c.OpenTime, models.ErrInsufficientData)
		}
		ranges[i] = c.Range()
		quotes[i] = c.QuoteVolume
	}

	history := make(models.OIHistory, 0, len(oi))
	for _, s := range oi {
		if !validNumber(s.Value) {
			return models.MarketSnapshot{}, fmt.Errorf("%s: open-interest sample at %s is invalid: %w", instID, s.Time, models.ErrInsufficientData)
		}
		history = append(history, s)
	}
	sort.SliceStable(history, func(i, j int) bool { return history[i].Time.Before(history[j].Time) })
	oiAvailable := len(history) >= 2

	snap := models.MarketSnapshot{
		InstID:            instID,
		Candles:           window,
		Ranges:            ranges,
		MedianRange:       Median(ranges),
		MeanRange:         Mean(ranges),
		MedianQuoteVolume: Median(quotes),
		Count:             len(window),
		QuoteVolume24h:    ticker.QuoteVolume24h,
		LastPrice:         ticker.Last,
		OIHistory:         history,
		OIAvailable:       oiAvailable,
		AsOf:              window[len(window)-1].OpenTime,
	}
	if oiAvailable {
		snap.OIDelta = history.Delta()
	}
	return snap, nil
}

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Median of values; the mean of the two middle elements for even lengths.
// Zero for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Mean of values, zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
