package trade

import (
	"time"

	"contextgate/internal/models"
)

// DefaultMaxLag bounds how old a context may be and still describe a trade.
const DefaultMaxLag = 30 * time.Minute

// FindLatestContext returns the newest record for pair with
// at-maxLag <= Timestamp <= at, or nil. Equal timestamps resolve to the
// record appended last. The returned record is a copy.
func FindLatestContext(records []models.ContextRecord, pair string, at time.Time, maxLag time.Duration) *models.ContextRecord {
	if maxLag < 0 {
		return nil
	}
	best := -1
	for i, r := range records {
		if r.Pair != pair || r.Timestamp.After(at) {
			continue
		}
		if at.Sub(r.Timestamp) > maxLag {
			continue
		}
		if best < 0 || !r.Timestamp.Before(records[best].Timestamp) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	found := records[best]
	return &found
}
