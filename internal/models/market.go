package models

import "time"

// Candle is a single OHLCV bar. Sequences of candles are kept in
// chronological order (oldest first) everywhere inside the module.
type Candle struct {
	OpenTime    time.Time `json:"open_time"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	BaseVolume  float64   `json:"base_volume"`
	QuoteVolume float64   `json:"quote_volume"`
	Confirmed   bool      `json:"confirmed"`
}

// Range is high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Ticker is the point-in-time 24h summary for an instrument.
type Ticker struct {
	InstID         string    `json:"inst_id"`
	Last           float64   `json:"last"`
	Vol24h         float64   `json:"vol_24h"`
	QuoteVolume24h float64   `json:"quote_volume_24h"`
	Timestamp      time.Time `json:"timestamp"`
}

// MarketSnapshot is the normalized input of the classifier.
type MarketSnapshot struct {
	InstID string `json:"inst_id"`

	Candles           []Candle  `json:"-"`
	Ranges            []float64 `json:"-"`
	MedianRange       float64   `json:"median_range"`
	MeanRange         float64   `json:"mean_range"`
	MedianQuoteVolume float64   `json:"median_quote_volume"`
	Count             int       `json:"count"`

	QuoteVolume24h float64 `json:"quote_volume_24h"`
	LastPrice      float64 `json:"last_price"`

	OIHistory   OIHistory `json:"-"`
	OIAvailable bool      `json:"oi_available"`
	OIDelta     float64   `json:"oi_delta"`

	// AsOf is the open time of the newest candle in the window.
	AsOf time.Time `json:"as_of"`
}
