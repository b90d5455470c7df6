package http

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/log"
	ports "ledgerdash/internal/sheets"
	"ledgerdash/internal/sheets/memory"
)

// countingSource counts loads and can block them until release is closed.
type countingSource struct {
	ports.Source
	loads   atomic.Int32
	release chan struct{}
	err     error
}

func (c *countingSource) Load(ctx context.Context) ([]core.Movement, error) {
	c.loads.Add(1)
	if c.release != nil {
		<-c.release
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.Source.Load(ctx)
}

type historySource struct {
	*memory.Store
	run *ports.SyncRun
}

func (h historySource) RecordSync(context.Context, ports.SyncRun) error { return nil }

func (h historySource) LastSync(context.Context) (ports.SyncRun, error) {
	if h.run == nil {
		return ports.SyncRun{}, ports.ErrNoSync
	}
	return *h.run, nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Component: log.ComponentHTTP, Output: io.Discard})
}

func TestLedgerProvider_CachesSnapshot(t *testing.T) {
	src := &countingSource{Source: memory.NewDemo()}
	p := newLedgerProvider(src, time.Minute, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, err := p.Result(ctx, ledger.MatchAll()); err != nil {
			t.Fatal(err)
		}
	}
	if n := src.loads.Load(); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}

	p.Invalidate()
	if _, err := p.Movements(ctx); err != nil {
		t.Fatal(err)
	}
	if n := src.loads.Load(); n != 2 {
		t.Errorf("loads after invalidate = %d, want 2", n)
	}
}

func TestLedgerProvider_NoCachingWithZeroTTL(t *testing.T) {
	src := &countingSource{Source: memory.NewDemo()}
	p := newLedgerProvider(src, 0, testLogger())

	for i := 0; i < 3; i++ {
		if _, err := p.Movements(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if n := src.loads.Load(); n != 3 {
		t.Errorf("loads = %d, want 3", n)
	}
}

func TestLedgerProvider_CollapsesConcurrentLoads(t *testing.T) {
	src := &countingSource{Source: memory.NewDemo(), release: make(chan struct{})}
	p := newLedgerProvider(src, time.Minute, testLogger())

	const callers = 8
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
		errs    atomic.Int32
	)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			if _, err := p.Movements(context.Background()); err != nil {
				errs.Add(1)
			}
		}()
	}
	started.Wait()
	// Give the callers time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	if errs.Load() != 0 {
		t.Fatalf("%d callers failed", errs.Load())
	}
	if n := src.loads.Load(); n > 2 {
		t.Errorf("loads = %d, want concurrent misses collapsed", n)
	}
}

func TestLedgerProvider_LoadError(t *testing.T) {
	boom := errors.New("sheet unavailable")
	p := newLedgerProvider(&countingSource{Source: memory.New(), err: boom}, time.Minute, testLogger())

	if _, _, err := p.Result(context.Background(), ledger.MatchAll()); !errors.Is(err, boom) {
		t.Errorf("Result error = %v, want wrapped %v", err, boom)
	}
}

func TestLedgerProvider_ResultsMatchRecompute(t *testing.T) {
	p := newLedgerProvider(memory.NewDemo(), time.Minute, testLogger())
	branch := "Norte"
	c := ledger.Criteria{Branch: &branch}

	first, ms, err := p.Result(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	cached, _, _ := p.Result(context.Background(), c)
	want := ledger.Recompute(ms, c)

	for _, got := range []ledger.Result{first, cached} {
		if !got.KPIs.Net.Equal(want.KPIs.Net) || len(got.Filtered) != len(want.Filtered) {
			t.Errorf("result = %+v, want %+v", got.KPIs, want.KPIs)
		}
	}
}

func TestLedgerProvider_LastSync(t *testing.T) {
	ctx := context.Background()

	plain := newLedgerProvider(memory.NewDemo(), 0, testLogger())
	if run, err := plain.LastSync(ctx); run != nil || err != nil {
		t.Errorf("source without history: %v, %v", run, err)
	}

	empty := newLedgerProvider(historySource{Store: memory.New()}, 0, testLogger())
	if run, err := empty.LastSync(ctx); run != nil || err != nil {
		t.Errorf("no sync yet: %v, %v", run, err)
	}

	want := ports.SyncRun{ID: "abc", Reason: "startup", MovementCount: 3, SyncedAt: time.Now()}
	synced := newLedgerProvider(historySource{Store: memory.New(), run: &want}, 0, testLogger())
	if run, err := synced.LastSync(ctx); err != nil || run == nil || run.ID != "abc" {
		t.Errorf("LastSync = %v, %v", run, err)
	}
}

func TestLedgerProvider_StaleRecomputeDoesNotShadowReload(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDemo()
	p := newLedgerProvider(store, time.Minute, testLogger())
	c := ledger.MatchAll()

	old, err := p.snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// The ledger is replaced and reloaded while a request still holds the old snapshot.
	if err := store.ReplaceAll(ctx, memory.DemoLedger()[:2]); err != nil {
		t.Fatal(err)
	}
	p.Invalidate()
	fresh, _, err := p.Result(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh.Filtered) != 2 {
		t.Fatalf("fresh result has %d movements, want 2", len(fresh.Filtered))
	}

	// The slow request finishes and caches its result for the old snapshot.
	if stale := p.resultFor(ctx, old, c); len(stale.Filtered) != len(memory.DemoLedger()) {
		t.Fatalf("stale recompute has %d movements", len(stale.Filtered))
	}

	got, _, err := p.Result(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Filtered) != 2 {
		t.Errorf("result after stale recompute has %d movements, want 2", len(got.Filtered))
	}
}
