// Package csvfile loads a ledger from a CSV export and writes filtered views back out.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"ledgerdash/internal/core"
	ports "ledgerdash/internal/sheets"
	"ledgerdash/internal/sources/tabular"
)

type File struct {
	path string
}

var _ ports.Source = (*File)(nil)

func New(path string) *File {
	return &File{path: path}
}

// Load reads the whole file on every call so edits show up without a restart.
func (f *File) Load(ctx context.Context) ([]core.Movement, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", f.path, err)
	}
	defer fh.Close()

	ms, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", f.path, err)
	}
	return ms, nil
}

// Read parses CSV ledger rows from r.
func Read(r io.Reader) ([]core.Movement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return tabular.Parse(rows)
}

// Write renders movements as CSV with the canonical English header.
func Write(w io.Writer, movements []core.Movement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tabular.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range movements {
		if err := cw.Write(tabular.Record(m)); err != nil {
			return fmt.Errorf("write movement: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
