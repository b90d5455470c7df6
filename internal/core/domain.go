package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  MovementType = "Income"
	Expense MovementType = "Expense"
)

const (
	StatusPending Status = "Pending"
	StatusSettled Status = "Settled"
)

type (
	// MovementType is the direction of a movement.
	MovementType string

	// Status is an open set of lifecycle labels. Only StatusPending carries
	// meaning for aggregation; any other label is kept verbatim.
	Status string

	// Date is a calendar date held at UTC midnight.
	Date struct {
		time.Time
	}

	// Movement is one ledger row. Movements are immutable once loaded.
	Movement struct {
		Date        Date            `json:"date"`
		Type        MovementType    `json:"type"`
		Category    string          `json:"category"`
		Owner       string          `json:"owner"`
		Branch      string          `json:"branch"`
		Status      Status          `json:"status"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("negative amount")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidType    = errors.New("invalid movement type")
)

const dateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date, keeping the wall-clock day of t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MonthKey returns the zero-padded "YYYY-MM" bucket of the date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// Compare orders two dates chronologically.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t MovementType) Valid() bool {
	return t == Income || t == Expense
}

// IsPending reports whether the status marks an unsettled movement.
func (s Status) IsPending() bool {
	return s == StatusPending
}

// Signed returns the amount with the sign of the movement's direction.
func (m Movement) Signed() decimal.Decimal {
	if m.Type == Expense {
		return m.Amount.Neg()
	}
	return m.Amount
}

func (m Movement) Validate() error {
	if m.Date.IsZero() {
		return ErrInvalidDate
	}
	if !m.Type.Valid() {
		return ErrInvalidType
	}
	if m.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
