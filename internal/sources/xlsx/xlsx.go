// Package xlsx loads a ledger from an Excel workbook and exports filtered views as one.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"ledgerdash/internal/core"
	ports "ledgerdash/internal/sheets"
	"ledgerdash/internal/sources/tabular"
)

type Workbook struct {
	path  string
	sheet string
}

var _ ports.Source = (*Workbook)(nil)

// New reads sheet from the workbook at path, or its first sheet when sheet is empty.
func New(path, sheet string) *Workbook {
	return &Workbook{path: path, sheet: sheet}
}

func (w *Workbook) Load(ctx context.Context) ([]core.Movement, error) {
	fh, err := os.Open(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	defer fh.Close()

	ms, err := Read(fh, w.sheet)
	if err != nil {
		return nil, fmt.Errorf("read workbook %s: %w", w.path, err)
	}
	return ms, nil
}

// Read parses ledger rows from a workbook stream.
func Read(r io.Reader, sheet string) ([]core.Movement, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = list[0]
	}

	// Raw values keep dates as serial numbers instead of locale-formatted text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []core.Movement{}, nil
	}

	layout, err := tabular.ParseHeader(rows[0])
	if err != nil {
		return nil, err
	}
	if col := layout[tabular.ColDate]; col >= 0 {
		for _, row := range rows[1:] {
			if col < len(row) {
				row[col] = serialToDate(row[col])
			}
		}
	}
	return tabular.Parse(rows)
}

// serialToDate rewrites an Excel date serial as ISO text; other values pass through.
func serialToDate(v string) string {
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	t, err := excelize.ExcelDateToTime(math.Floor(serial+1e-6), false)
	if err != nil {
		return v
	}
	return core.DateOf(t).String()
}

// Write encodes movements as a single-sheet workbook.
func Write(w io.Writer, movements []core.Movement) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Ledger"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(tabular.Header))
	for i, h := range tabular.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, m := range movements {
		amount, _ := m.Amount.Float64()
		row := []interface{}{
			m.Date.String(), string(m.Type), m.Category, m.Owner,
			string(m.Status), m.Branch, amount, m.Description,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return nil
}
