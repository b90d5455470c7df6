// Package tabular turns header-led rows of text, as found in CSV exports,
// workbooks and spreadsheet ranges, into ledger movements.
package tabular

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"ledgerdash/internal/core"
)

// Column identifies a ledger field.
type Column int

const (
	ColDate Column = iota
	ColType
	ColCategory
	ColOwner
	ColStatus
	ColBranch
	ColAmount
	ColDescription
	numColumns
)

var ErrMissingColumn = errors.New("missing required column")

// Header lists the canonical column titles in export order.
var Header = []string{"Date", "Type", "Category", "Owner", "Status", "Branch", "Amount", "Description"}

var aliases = map[string]Column{
	"fecha":       ColDate,
	"date":        ColDate,
	"tipo":        ColType,
	"type":        ColType,
	"categoria":   ColCategory,
	"category":    ColCategory,
	"responsable": ColOwner,
	"owner":       ColOwner,
	"estado":      ColStatus,
	"status":      ColStatus,
	"sucursal":    ColBranch,
	"branch":      ColBranch,
	"monto":       ColAmount,
	"amount":      ColAmount,
	"descripcion": ColDescription,
	"description": ColDescription,
}

var required = []Column{ColDate, ColType, ColAmount}

// Layout maps each column to its index in a row, -1 when absent.
type Layout [numColumns]int

// ParseHeader locates the ledger columns in a header row. Titles are matched
// ignoring case and accents, in Spanish or English.
func ParseHeader(header []string) (Layout, error) {
	var l Layout
	for i := range l {
		l[i] = -1
	}
	for i, title := range header {
		title = strings.TrimPrefix(title, "\ufeff")
		if col, ok := aliases[core.Fold(title)]; ok && l[col] < 0 {
			l[col] = i
		}
	}
	var missing []string
	for _, col := range required {
		if l[col] < 0 {
			missing = append(missing, Header[col])
		}
	}
	if len(missing) > 0 {
		return l, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return l, nil
}

func (l Layout) get(row []string, col Column) string {
	i := l[col]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Movement converts one data row.
func (l Layout) Movement(row []string) (core.Movement, error) {
	date, err := core.ParseDate(l.get(row, ColDate))
	if err != nil {
		return core.Movement{}, err
	}
	typ, err := core.ParseMovementType(l.get(row, ColType))
	if err != nil {
		return core.Movement{}, err
	}
	amount, err := core.ParseAmount(l.get(row, ColAmount))
	if err != nil {
		return core.Movement{}, err
	}
	return core.Movement{
		Date:        date,
		Type:        typ,
		Category:    l.get(row, ColCategory),
		Owner:       l.get(row, ColOwner),
		Branch:      l.get(row, ColBranch),
		Status:      core.ParseStatus(l.get(row, ColStatus)),
		Amount:      amount,
		Description: l.get(row, ColDescription),
	}, nil
}

// Parse reads a header row followed by data rows. Blank rows are skipped.
// Every malformed row is reported, numbered as a spreadsheet would number it.
func Parse(rows [][]string) ([]core.Movement, error) {
	if len(rows) == 0 {
		return []core.Movement{}, nil
	}
	layout, err := ParseHeader(rows[0])
	if err != nil {
		return nil, err
	}

	out := make([]core.Movement, 0, len(rows)-1)
	var result *multierror.Error
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		m, err := layout.Movement(row)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("row %d: %w", i+2, err))
			continue
		}
		out = append(out, m)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Record renders a movement in Header order.
func Record(m core.Movement) []string {
	return []string{
		m.Date.String(),
		string(m.Type),
		m.Category,
		m.Owner,
		string(m.Status),
		m.Branch,
		m.Amount.String(),
		m.Description,
	}
}

// Strings flattens loosely typed cell values, such as Sheets API values, to text.
func Strings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cols := make([]string, len(row))
		for j, v := range row {
			switch n := v.(type) {
			case float64:
				cols[j] = strconv.FormatFloat(n, 'f', -1, 64)
			default:
				cols[j] = strings.TrimSpace(fmt.Sprint(v))
			}
		}
		out[i] = cols
	}
	return out
}
