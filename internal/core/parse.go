package core

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var dateLayouts = []string{
	dateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// ParseDate accepts the date shapes found in exported ledgers and drops the time of day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseMovementType maps English and Spanish labels to a MovementType.
func ParseMovementType(s string) (MovementType, error) {
	switch Fold(s) {
	case "income", "ingreso", "ingresos":
		return Income, nil
	case "expense", "egreso", "egresos", "gasto", "gastos":
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// ParseStatus normalizes known status aliases. Unknown labels are kept as written.
func ParseStatus(s string) Status {
	s = strings.TrimSpace(s)
	switch Fold(s) {
	case "pending", "pendiente":
		return StatusPending
	case "settled", "pagado", "cobrado", "liquidado", "paid":
		return StatusSettled
	}
	return Status(s)
}

// Fold lowercases s and strips combining accents, so "Categoría" matches "categoria".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
