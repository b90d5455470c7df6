package csvfile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledgerdash/internal/core"
)

const sample = `Fecha,Tipo,Categoría,Responsable,Estado,Sucursal,Monto,Descripción
2024-01-10,Ingreso,Ventas,Ana,Cobrado,Centro,1000,"Venta, mostrador"
2024-01-15,Egreso,Rent,A,Pendiente,X,400,Alquiler
`

func TestFile_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	ms, err := New(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("got %d movements, want 2", len(ms))
	}
	if ms[0].Description != "Venta, mostrador" {
		t.Errorf("quoted description = %q", ms[0].Description)
	}
	if ms[1].Type != core.Expense || ms[1].Status != core.StatusPending {
		t.Errorf("second movement = %+v", ms[1])
	}
}

func TestFile_LoadMissing(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "open ledger") {
		t.Errorf("expected open error, got %v", err)
	}
}

func TestWriteThenRead(t *testing.T) {
	ms, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, ms); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Date,Type,Category,Owner,Status,Branch,Amount,Description\n") {
		t.Errorf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	back, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() of written csv: %v", err)
	}
	if len(back) != len(ms) {
		t.Fatalf("got %d movements back, want %d", len(back), len(ms))
	}
	for i := range ms {
		if back[i].Date != ms[i].Date || !back[i].Amount.Equal(ms[i].Amount) || back[i].Description != ms[i].Description {
			t.Errorf("movement %d = %+v, want %+v", i, back[i], ms[i])
		}
	}
}
