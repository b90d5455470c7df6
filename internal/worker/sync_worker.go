package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgerdash/internal/amqp"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/notify"
	ports "ledgerdash/internal/sheets"
)

// SyncWorker copies the ledger from its source of truth into the local store
// and raises an alert when the net balance turns negative.
type SyncWorker struct {
	source   ports.Source
	store    ports.Store
	notifier notify.Notifier

	// mu serializes syncs; negative is the balance state of the last sync.
	mu       sync.Mutex
	negative bool
	now      func() time.Time
}

// SyncResult summarizes one completed sync.
type SyncResult struct {
	Run  ports.SyncRun
	KPIs ledger.KPIs
}

func NewSyncWorker(source ports.Source, store ports.Store, notifier notify.Notifier) *SyncWorker {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &SyncWorker{
		source:   source,
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// Sync replaces the stored ledger with the source's current contents.
// The store is left untouched when the source fails to load.
func (w *SyncWorker) Sync(ctx context.Context, reason string) (SyncResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := w.now()
	movements, err := w.source.Load(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("load source ledger: %w", err)
	}
	if err := w.store.ReplaceAll(ctx, movements); err != nil {
		return SyncResult{}, fmt.Errorf("replace stored ledger: %w", err)
	}

	run := ports.SyncRun{
		ID:            uuid.NewString(),
		Reason:        reason,
		MovementCount: len(movements),
		SyncedAt:      w.now().UTC(),
	}
	if history, ok := w.store.(ports.SyncHistory); ok {
		if err := history.RecordSync(ctx, run); err != nil {
			// The ledger itself was replaced; a missing history row is not fatal.
			slog.ErrorContext(ctx, "Failed to record sync run", "id", run.ID, "error", err)
		}
	}

	kpis := ledger.ComputeKPIs(movements)
	if kpis.NegativeBalance && !w.negative {
		if err := w.notifier.NotifyNegativeBalance(ctx, kpis); err != nil {
			slog.ErrorContext(ctx, "Failed to send negative balance alert", "error", err)
		}
	}
	w.negative = kpis.NegativeBalance

	slog.InfoContext(ctx, "Ledger synced",
		"id", run.ID,
		"reason", reason,
		"movement_count", run.MovementCount,
		"net_balance", kpis.Net.String(),
		"duration", w.now().Sub(start))
	return SyncResult{Run: run, KPIs: kpis}, nil
}

// HandleSyncRequest processes a sync request from AMQP.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	slog.InfoContext(ctx, "Processing sync request",
		"id", msg.ID,
		"requested_by", msg.RequestedBy,
		"requested_at", msg.RequestedAt)

	if _, err := w.Sync(ctx, "request:"+msg.RequestedBy); err != nil {
		return fmt.Errorf("sync request %s: %w", msg.ID, err)
	}
	return nil
}

// RunPeriodic syncs every interval until ctx is done. Failed syncs are logged
// and retried on the next tick.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Sync(ctx, "interval"); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
