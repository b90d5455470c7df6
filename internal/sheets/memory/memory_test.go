package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
)

func TestStoreLoadReturnsCopy(t *testing.T) {
	s := New(core.Movement{Date: core.NewDate(2024, 1, 1), Type: core.Income, Amount: decimal.NewFromInt(5)})

	got, err := s.Load(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected load: %v err=%v", got, err)
	}
	got[0].Owner = "mutated"

	again, _ := s.Load(context.Background())
	if again[0].Owner != "" {
		t.Fatal("Load must not expose internal storage")
	}
}

func TestStoreReplaceAll(t *testing.T) {
	s := NewDemo()
	next := []core.Movement{{Date: core.NewDate(2024, 5, 1), Type: core.Expense, Amount: decimal.NewFromInt(10)}}
	if err := s.ReplaceAll(context.Background(), next); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	got, _ := s.Load(context.Background())
	if len(got) != 1 || got[0].Type != core.Expense {
		t.Fatalf("unexpected ledger after replace: %v", got)
	}

	bad := []core.Movement{{Type: core.Income, Amount: decimal.NewFromInt(1)}}
	if err := s.ReplaceAll(context.Background(), bad); err == nil {
		t.Fatal("expected validation error for zero date")
	}
	got, _ = s.Load(context.Background())
	if len(got) != 1 {
		t.Fatal("failed replace must keep the previous ledger")
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()

	s := NewFromFiles(dir)
	got, _ := s.Load(context.Background())
	if len(got) != len(DemoLedger()) {
		t.Fatalf("expected demo ledger when seed is missing, got %d movements", len(got))
	}

	seed := "Fecha,Tipo,Monto\n2024-01-10,Ingreso,1000\n2024-01-15,Egreso,400\n"
	if err := os.WriteFile(filepath.Join(dir, "ledger.csv"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	got, _ = NewFromFiles(dir).Load(context.Background())
	if len(got) != 2 || !got[1].Amount.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("unexpected seeded ledger: %v", got)
	}
}

func TestDemoLedgerIsValid(t *testing.T) {
	for i, m := range DemoLedger() {
		if err := m.Validate(); err != nil {
			t.Errorf("demo movement %d invalid: %v", i, err)
		}
	}
}
