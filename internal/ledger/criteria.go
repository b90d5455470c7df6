// Package ledger filters a ledger of movements and projects the filtered view
// into the indicators and chart datasets shown on the dashboard.
//
// Everything in this package is pure: inputs are never mutated and every call
// allocates fresh output, so a shared ledger snapshot can be filtered from many
// goroutines at once.
package ledger

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
)

// StatusFilter is a set of accepted statuses. A nil filter accepts every
// status; a non-nil empty filter accepts none.
type StatusFilter map[core.Status]struct{}

// AnyStatus returns the match-all filter.
func AnyStatus() StatusFilter { return nil }

// OnlyStatuses returns a filter accepting exactly the given statuses.
// Called with no arguments it returns the empty, match-nothing filter.
func OnlyStatuses(statuses ...core.Status) StatusFilter {
	f := make(StatusFilter, len(statuses))
	for _, s := range statuses {
		f[s] = struct{}{}
	}
	return f
}

func (f StatusFilter) Matches(s core.Status) bool {
	if f == nil {
		return true
	}
	_, ok := f[s]
	return ok
}

// List returns the accepted statuses sorted, or nil for the match-all filter.
func (f StatusFilter) List() []core.Status {
	if f == nil {
		return nil
	}
	out := make([]core.Status, 0, len(f))
	for s := range f {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func (f StatusFilter) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	return json.Marshal(f.List())
}

// Criteria selects movements. Every field is optional: a nil pointer, a nil
// status filter and an empty description query all accept every movement.
type Criteria struct {
	Type             *core.MovementType `json:"type"`
	Category         *string            `json:"category"`
	Owner            *string            `json:"owner"`
	Branch           *string            `json:"branch"`
	Statuses         StatusFilter       `json:"statuses"`
	AmountMin        *decimal.Decimal   `json:"amount_min"`
	AmountMax        *decimal.Decimal   `json:"amount_max"`
	DescriptionQuery string             `json:"description_query"`
	DateFrom         *core.Date         `json:"date_from"`
	DateTo           *core.Date         `json:"date_to"`
}

// MatchAll returns criteria that accept every movement.
func MatchAll() Criteria {
	return Criteria{}
}

// Match reports whether m satisfies every set criterion.
func (c Criteria) Match(m core.Movement) bool {
	if c.Type != nil && m.Type != *c.Type {
		return false
	}
	if c.Category != nil && m.Category != *c.Category {
		return false
	}
	if c.Owner != nil && m.Owner != *c.Owner {
		return false
	}
	if c.Branch != nil && m.Branch != *c.Branch {
		return false
	}
	if !c.Statuses.Matches(m.Status) {
		return false
	}
	if c.AmountMin != nil && m.Amount.LessThan(*c.AmountMin) {
		return false
	}
	if c.AmountMax != nil && m.Amount.GreaterThan(*c.AmountMax) {
		return false
	}
	if c.DateFrom != nil && m.Date.Compare(*c.DateFrom) < 0 {
		return false
	}
	if c.DateTo != nil && m.Date.Compare(*c.DateTo) > 0 {
		return false
	}
	if c.DescriptionQuery != "" &&
		!strings.Contains(strings.ToLower(m.Description), strings.ToLower(c.DescriptionQuery)) {
		return false
	}
	return true
}

// Key returns a canonical string for the criteria, suitable as a cache key.
func (c Criteria) Key() string {
	var b strings.Builder
	writeOpt := func(name string, v *string) {
		b.WriteString(name)
		b.WriteByte('=')
		if v != nil {
			b.WriteString(strconv.Quote(*v))
		} else {
			b.WriteByte('*')
		}
		b.WriteByte('|')
	}
	if c.Type != nil {
		t := string(*c.Type)
		writeOpt("type", &t)
	} else {
		writeOpt("type", nil)
	}
	writeOpt("category", c.Category)
	writeOpt("owner", c.Owner)
	writeOpt("branch", c.Branch)

	b.WriteString("status=")
	if c.Statuses == nil {
		b.WriteByte('*')
	} else {
		for i, s := range c.Statuses.List() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(string(s)))
		}
	}
	b.WriteByte('|')

	for _, bound := range []struct {
		name string
		v    *decimal.Decimal
	}{{"min", c.AmountMin}, {"max", c.AmountMax}} {
		if bound.v != nil {
			s := bound.v.String()
			writeOpt(bound.name, &s)
		} else {
			writeOpt(bound.name, nil)
		}
	}
	for _, bound := range []struct {
		name string
		v    *core.Date
	}{{"from", c.DateFrom}, {"to", c.DateTo}} {
		if bound.v != nil {
			s := bound.v.String()
			writeOpt(bound.name, &s)
		} else {
			writeOpt(bound.name, nil)
		}
	}
	q := strings.ToLower(c.DescriptionQuery)
	writeOpt("q", &q)
	return b.String()
}
