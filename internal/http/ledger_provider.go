package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"ledgerdash/internal/cache"
	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/log"
	ports "ledgerdash/internal/sheets"
)

const (
	snapshotKey   = "ledger"
	loadTimeout   = 10 * time.Second
	maxResultKeys = 128
)

// ledgerProvider serves the current ledger snapshot and the results computed
// from it. Snapshots are reused for ttl; concurrent misses share one load.
type ledgerProvider struct {
	source ports.Source
	ttl    time.Duration

	snapshots  *cache.LRUCache[snapshot]
	results    *cache.LRUCache[ledger.Result]
	loads      singleflight.Group
	generation atomic.Uint64
	logger     *log.StructuredLogger
}

// snapshot is one loaded ledger. Results are cached per generation so a
// recompute over an older snapshot never answers for a newer one.
type snapshot struct {
	movements  []core.Movement
	generation uint64
}

func newLedgerProvider(source ports.Source, ttl time.Duration, logger *log.Logger) *ledgerProvider {
	return &ledgerProvider{
		source:    source,
		ttl:       ttl,
		snapshots: cache.NewLRUCache[snapshot](1, ttl),
		results:   cache.NewLRUCache[ledger.Result](maxResultKeys, ttl),
		logger:    log.NewStructuredLogger(logger),
	}
}

func (p *ledgerProvider) caching() bool { return p.ttl > 0 }

// Movements returns the shared ledger snapshot. Callers must not modify it.
func (p *ledgerProvider) Movements(ctx context.Context) ([]core.Movement, error) {
	snap, err := p.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.movements, nil
}

func (p *ledgerProvider) snapshot(ctx context.Context) (snapshot, error) {
	if p.caching() {
		if snap, ok := p.snapshots.Get(snapshotKey); ok {
			return snap, nil
		}
	}

	v, err, _ := p.loads.Do(snapshotKey, func() (any, error) {
		// The load outlives any single caller that gives up.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		ms, err := p.source.Load(lctx)
		if err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		snap := snapshot{movements: ms, generation: p.generation.Add(1)}
		if p.caching() {
			p.results.Purge()
			p.snapshots.Set(snapshotKey, snap)
		}
		log.FromContext(ctx).DebugContext(ctx, "Ledger snapshot loaded",
			log.FieldMovementCount, len(ms), "generation", snap.generation)
		return snap, nil
	})
	if err != nil {
		return snapshot{}, err
	}
	return v.(snapshot), nil
}

// Result filters the snapshot with c and aggregates the view.
func (p *ledgerProvider) Result(ctx context.Context, c ledger.Criteria) (ledger.Result, []core.Movement, error) {
	snap, err := p.snapshot(ctx)
	if err != nil {
		return ledger.Result{}, nil, err
	}
	return p.resultFor(ctx, snap, c), snap.movements, nil
}

func (p *ledgerProvider) resultFor(ctx context.Context, snap snapshot, c ledger.Criteria) ledger.Result {
	key := c.Key()
	cacheKey := strconv.FormatUint(snap.generation, 10) + "|" + key
	if p.caching() {
		if res, ok := p.results.Get(cacheKey); ok {
			return res
		}
	}

	res := ledger.Recompute(snap.movements, c)
	if p.caching() {
		p.results.Set(cacheKey, res)
	}
	p.logger.LogRecompute(ctx, key, len(snap.movements), len(res.Filtered), res.KPIs.Net.String(), res.KPIs.NegativeBalance)
	return res
}

// Invalidate drops the cached snapshot and results.
func (p *ledgerProvider) Invalidate() {
	p.snapshots.Purge()
	p.results.Purge()
}

// LastSync reports the most recent sync when the source keeps a history.
func (p *ledgerProvider) LastSync(ctx context.Context) (*ports.SyncRun, error) {
	history, ok := p.source.(ports.SyncHistory)
	if !ok {
		return nil, nil
	}
	run, err := history.LastSync(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrNoSync) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// cleaners exposes the caches for periodic expiry.
func (p *ledgerProvider) cleaners() []cache.Cleaner {
	return []cache.Cleaner{p.snapshots, p.results}
}
