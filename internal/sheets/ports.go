package sheets

import (
	"context"
	"errors"
	"time"

	"ledgerdash/internal/core"
)

// Ports for ledger adapters.
type (
	// Source loads the full ledger in its stored order. Loaders reject
	// malformed rows instead of skipping them.
	Source interface {
		Load(ctx context.Context) ([]core.Movement, error)
	}

	// Store is a Source that can be replaced wholesale by a sync.
	Store interface {
		Source
		ReplaceAll(ctx context.Context, movements []core.Movement) error
	}
)

// SyncRun records one completed ledger sync.
type SyncRun struct {
	ID            string    `json:"id"`
	Reason        string    `json:"reason"`
	MovementCount int       `json:"movement_count"`
	SyncedAt      time.Time `json:"synced_at"`
}

// SyncHistory is implemented by stores that remember their syncs.
type SyncHistory interface {
	RecordSync(ctx context.Context, run SyncRun) error
	LastSync(ctx context.Context) (SyncRun, error)
}

// ErrNoSync is returned by LastSync before the first sync has completed.
var ErrNoSync = errors.New("no sync recorded")
