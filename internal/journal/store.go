// Package journal persists user-confirmed context classifications.
package journal

import (
	"context"
	"time"

	"contextgate/internal/models"
)

// Filter narrows Load. Zero values disable each condition.
type Filter struct {
	Pair string
	// Until keeps records with Timestamp <= Until.
	Until time.Time
}

func (f Filter) match(r models.ContextRecord) bool {
	if f.Pair != "" && r.Pair != f.Pair {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Migration describes what MigrateIfNeeded did.
type Migration struct {
	Migrated   bool
	BackupPath string
	// BackupRows is the number of data rows preserved in the backup.
	BackupRows int
}

// ContextStore is an append-only sequence of ContextRecord. Records are
// returned in insertion order.
type ContextStore interface {
	Append(ctx context.Context, rec models.ContextRecord) error
	Load(ctx context.Context, f Filter) ([]models.ContextRecord, error)
	MigrateIfNeeded(ctx context.Context) (Migration, error)
}
