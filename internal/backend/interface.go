// Package backend builds the ledger source selected by configuration.
package backend

import (
	"context"

	ports "ledgerdash/internal/sheets"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the ledger source and an optional cleanup function.
type BackendResult struct {
	Source  ports.Source
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates ledger sources based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// csv and xlsx
	LedgerFile  string
	LedgerSheet string

	// sqlite
	SQLiteDBPath string

	// memory; an optional ledger.csv is read from here.
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	CSVBackend    BackendType = "csv"
	XLSXBackend   BackendType = "xlsx"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, CSVBackend, XLSXBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
