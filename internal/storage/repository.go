package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
	ports "ledgerdash/internal/sheets"

	_ "modernc.org/sqlite"
)

// Fixed-width so stored timestamps sort chronologically as text.
const syncTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ports.Store       = (*SQLiteRepository)(nil)
	_ ports.SyncHistory = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps ReplaceAll transactions from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite ledger store ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load returns the stored ledger in its original order.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Movement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, type, category, owner, branch, status, amount, description
		FROM movements
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	out := make([]core.Movement, 0)
	for rows.Next() {
		var (
			m            core.Movement
			date, amount string
			typ, status  string
		)
		if err := rows.Scan(&date, &typ, &m.Category, &m.Owner, &m.Branch, &status, &amount, &m.Description); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		if m.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("movement %d: %w", len(out)+1, err)
		}
		if m.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("movement %d: %w: %q", len(out)+1, core.ErrInvalidAmount, amount)
		}
		m.Type = core.MovementType(typ)
		m.Status = core.Status(status)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movements: %w", err)
	}
	return out, nil
}

// ReplaceAll swaps the stored ledger for movements in one transaction.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, movements []core.Movement) error {
	for i, m := range movements {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("movement %d: %w", i+1, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM movements`); err != nil {
		return fmt.Errorf("clear movements: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movements (position, date, type, category, owner, branch, status, amount, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range movements {
		if _, err := stmt.ExecContext(ctx, i, m.Date.String(), string(m.Type), m.Category, m.Owner,
			m.Branch, string(m.Status), m.Amount.String(), m.Description); err != nil {
			return fmt.Errorf("insert movement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	slog.InfoContext(ctx, "Ledger replaced in SQLite", "movement_count", len(movements))
	return nil
}

// Count returns the number of stored movements.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movements`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) RecordSync(ctx context.Context, run ports.SyncRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, reason, movement_count, synced_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Reason, run.MovementCount, run.SyncedAt.UTC().Format(syncTimeLayout))
	if err != nil {
		return fmt.Errorf("record sync %s: %w", run.ID, err)
	}
	return nil
}

// LastSync returns the most recent sync run, or ports.ErrNoSync.
func (r *SQLiteRepository) LastSync(ctx context.Context) (ports.SyncRun, error) {
	var (
		run      ports.SyncRun
		syncedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, reason, movement_count, synced_at FROM sync_runs ORDER BY synced_at DESC LIMIT 1`).
		Scan(&run.ID, &run.Reason, &run.MovementCount, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.SyncRun{}, ports.ErrNoSync
	}
	if err != nil {
		return ports.SyncRun{}, fmt.Errorf("query last sync: %w", err)
	}
	if run.SyncedAt, err = time.Parse(syncTimeLayout, syncedAt); err != nil {
		return ports.SyncRun{}, fmt.Errorf("parse sync time: %w", err)
	}
	return run, nil
}
