package memory

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
	ports "ledgerdash/internal/sheets"
	"ledgerdash/internal/sources/csvfile"
)

// Store keeps a ledger in memory. It backs the memory data backend and tests.
type Store struct {
	mu    sync.RWMutex
	items []core.Movement
}

var _ ports.Store = (*Store)(nil)

func New(items ...core.Movement) *Store {
	return &Store{items: slices.Clone(items)}
}

// NewDemo returns a store seeded with a small deterministic ledger.
func NewDemo() *Store {
	return New(DemoLedger()...)
}

// NewFromFiles seeds the store from base/ledger.csv, falling back to the demo
// ledger when the file is missing or unreadable.
func NewFromFiles(base string) *Store {
	path := filepath.Join(base, "ledger.csv")
	f, err := os.Open(path)
	if err != nil {
		return NewDemo()
	}
	defer f.Close()

	ms, err := csvfile.Read(f)
	if err != nil {
		slog.Warn("Ignoring seed ledger", "path", path, "error", err)
		return NewDemo()
	}
	return New(ms...)
}

// Load returns a copy of the stored ledger.
func (s *Store) Load(_ context.Context) ([]core.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Movement, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) ReplaceAll(_ context.Context, movements []core.Movement) error {
	for _, m := range movements {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(movements)
	return nil
}

// DemoLedger builds three months of movements across two branches.
func DemoLedger() []core.Movement {
	type row struct {
		month, day int
		typ        core.MovementType
		category   string
		owner      string
		status     core.Status
		branch     string
		amount     int64
		desc       string
	}
	rows := []row{
		{1, 3, core.Income, "Ventas", "Ana", core.StatusSettled, "Centro", 185000, "Ventas semana 1"},
		{1, 5, core.Expense, "Alquiler", "Luis", core.StatusSettled, "Centro", 60000, "Alquiler local enero"},
		{1, 8, core.Expense, "Servicios", "Marta", core.StatusSettled, "Norte", 12500, "Luz y agua"},
		{1, 12, core.Income, "Consultoría", "Luis", core.StatusPending, "Norte", 90000, "Proyecto contable cliente A"},
		{1, 18, core.Expense, "Nómina", "Ana", core.StatusSettled, "Centro", 140000, "Sueldos primera quincena"},
		{1, 25, core.Expense, "Proveedores", "Marta", core.StatusPending, "Norte", 48000, "Compra de insumos"},
		{2, 2, core.Income, "Ventas", "Ana", core.StatusSettled, "Centro", 210000, "Ventas semana 5"},
		{2, 5, core.Expense, "Alquiler", "Luis", core.StatusSettled, "Centro", 60000, "Alquiler local febrero"},
		{2, 9, core.Expense, "Marketing", "Marta", core.StatusSettled, "Norte", 35000, "Campaña redes sociales"},
		{2, 14, core.Income, "Ventas", "Marta", core.StatusPending, "Norte", 75000, "Factura mayorista"},
		{2, 20, core.Expense, "Nómina", "Ana", core.StatusSettled, "Centro", 140000, "Sueldos febrero"},
		{2, 27, core.Expense, "Impuestos", "Luis", core.StatusPending, "Centro", 52000, "IVA bimestral"},
		{3, 1, core.Income, "Consultoría", "Luis", core.StatusSettled, "Norte", 90000, "Cobro proyecto cliente A"},
		{3, 6, core.Expense, "Alquiler", "Luis", core.StatusSettled, "Centro", 62000, "Alquiler local marzo"},
		{3, 11, core.Expense, "Servicios", "Marta", core.StatusPending, "Norte", 13800, "Internet y telefonía"},
		{3, 15, core.Income, "Ventas", "Ana", core.StatusSettled, "Centro", 165000, "Ventas quincena"},
		{3, 22, core.Expense, "Proveedores", "Marta", core.StatusSettled, "Norte", 51000, "Reposición de stock"},
		{3, 28, core.Expense, "Nómina", "Ana", core.StatusPending, "Centro", 135000, "Sueldos marzo"},
	}

	out := make([]core.Movement, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Movement{
			Date:        core.NewDate(2024, r.month, r.day),
			Type:        r.typ,
			Category:    r.category,
			Owner:       r.owner,
			Branch:      r.branch,
			Status:      r.status,
			Amount:      decimal.NewFromInt(r.amount),
			Description: r.desc,
		})
	}
	return out
}
