package models

import "time"

// OISample is one open-interest observation for a swap instrument.
// Value is expressed in contracts as reported by the exchange.
type OISample struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
	// ValueCcy is the same figure in coin units when the exchange reports it.
	ValueCcy float64 `json:"value_ccy,omitempty"`
}

// OIHistory is ordered oldest first.
type OIHistory []OISample

// Delta is the newest value minus the oldest value. A history with fewer
// than two samples has no momentum and reports zero.
func (h OIHistory) Delta() float64 {
	if len(h) < 2 {
		return 0
	}
	return h[len(h)-1].Value - h[0].Value
}
