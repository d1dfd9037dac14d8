// Package session maps wall-clock time to the trading session label shown
// next to every context snapshot.
package session

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"contextgate/internal/models"
)

// DefaultTimezone is WIB, the zone the journals are written in.
const DefaultTimezone = "Asia/Jakarta"

// window is a half-open [From, To) hour range in local time.
type window struct {
	From, To int
	Session  models.Session
}

// timetable must stay non-overlapping; hours outside every window are off-hours.
var timetable = []window{
	{From: 7, To: 14, Session: models.SessionAsia},
	{From: 14, To: 19, Session: models.SessionLondon},
	{From: 19, To: 23, Session: models.SessionNewYork},
}

type Resolver struct {
	loc *time.Location
}

// NewResolver loads the named IANA zone.
func NewResolver(timezone string) (*Resolver, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", timezone, err)
	}
	return &Resolver{loc: loc}, nil
}

// Location is the zone every journal timestamp is expressed in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Local converts t into the resolver's zone.
func (r *Resolver) Local(t time.Time) time.Time {
	return t.In(r.loc)
}

// Resolve returns the session for t.
func (r *Resolver) Resolve(t time.Time) models.Session {
	return ForHour(t.In(r.loc).Hour())
}

// ForHour returns the session for a local hour of day.
func ForHour(hour int) models.Session {
	for _, w := range timetable {
		if hour >= w.From && hour < w.To {
			return w.Session
		}
	}
	return models.SessionOffHours
}
