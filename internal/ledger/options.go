package ledger

import (
	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
)

// Options lists the distinct values a filter form can offer for a ledger,
// plus the ranges its amount and date inputs default to.
type Options struct {
	Types      []core.MovementType `json:"types"`
	Categories []string            `json:"categories"`
	Owners     []string            `json:"owners"`
	Branches   []string            `json:"branches"`
	Statuses   []core.Status       `json:"statuses"`
	AmountMin  decimal.Decimal     `json:"amount_min"`
	AmountMax  decimal.Decimal     `json:"amount_max"`
	DateFrom   core.Date           `json:"date_from"`
	DateTo     core.Date           `json:"date_to"`
}

type distinct[T comparable] struct {
	seen map[T]struct{}
	list []T
}

func newDistinct[T comparable]() *distinct[T] {
	return &distinct[T]{seen: make(map[T]struct{}), list: make([]T, 0)}
}

func (d *distinct[T]) add(v T) {
	if _, ok := d.seen[v]; ok {
		return
	}
	d.seen[v] = struct{}{}
	d.list = append(d.list, v)
}

// OptionsFor collects filter options in first-seen ledger order.
func OptionsFor(movements []core.Movement) Options {
	types := newDistinct[core.MovementType]()
	categories := newDistinct[string]()
	owners := newDistinct[string]()
	branches := newDistinct[string]()
	statuses := newDistinct[core.Status]()

	var o Options
	for i, m := range movements {
		types.add(m.Type)
		categories.add(m.Category)
		owners.add(m.Owner)
		branches.add(m.Branch)
		statuses.add(m.Status)

		if i == 0 {
			o.AmountMin, o.AmountMax = m.Amount, m.Amount
			o.DateFrom, o.DateTo = m.Date, m.Date
			continue
		}
		if m.Amount.LessThan(o.AmountMin) {
			o.AmountMin = m.Amount
		}
		if m.Amount.GreaterThan(o.AmountMax) {
			o.AmountMax = m.Amount
		}
		if m.Date.Compare(o.DateFrom) < 0 {
			o.DateFrom = m.Date
		}
		if m.Date.Compare(o.DateTo) > 0 {
			o.DateTo = m.Date
		}
	}

	o.Types = types.list
	o.Categories = categories.list
	o.Owners = owners.list
	o.Branches = branches.list
	o.Statuses = statuses.list
	return o
}

// DefaultStatuses returns a filter accepting every status present in the
// ledger, which is what the dashboard preselects.
func (o Options) DefaultStatuses() StatusFilter {
	return OnlyStatuses(o.Statuses...)
}
