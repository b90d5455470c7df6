package ledger

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
)

type (
	// KPIs are the headline indicators of a filtered view.
	KPIs struct {
		Income          decimal.Decimal `json:"income"`
		Expense         decimal.Decimal `json:"expense"`
		Net             decimal.Decimal `json:"net_balance"`
		Receivable      decimal.Decimal `json:"receivable"`
		Payable         decimal.Decimal `json:"payable"`
		NegativeBalance bool            `json:"negative_balance"`
	}

	BranchTotal struct {
		Branch string            `json:"branch"`
		Type   core.MovementType `json:"type"`
		Total  decimal.Decimal   `json:"total"`
	}

	OwnerTotal struct {
		Owner string          `json:"owner"`
		Total decimal.Decimal `json:"total"`
	}

	MonthTotal struct {
		Month string            `json:"month"`
		Type  core.MovementType `json:"type"`
		Total decimal.Decimal   `json:"total"`
	}

	CategoryTotal struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
	}

	// BalancePoint is the cumulative signed balance after one movement.
	BalancePoint struct {
		Date    core.Date       `json:"date"`
		Balance decimal.Decimal `json:"balance"`
	}

	// Result bundles the filtered view and every projection computed from it.
	Result struct {
		Filtered       []core.Movement `json:"filtered"`
		KPIs           KPIs            `json:"kpis"`
		ByBranch       []BranchTotal   `json:"by_branch"`
		ByOwner        []OwnerTotal    `json:"by_owner"`
		ByMonth        []MonthTotal    `json:"by_month"`
		ByCategory     []CategoryTotal `json:"by_category"`
		RunningBalance []BalancePoint  `json:"running_balance"`
	}
)

type typedKey struct {
	name string
	typ  core.MovementType
}

type group[K comparable] struct {
	key   K
	total decimal.Decimal
}

// groupSum sums the amounts of the movements accepted by keep, grouped by key.
// Groups come back in first-seen order.
func groupSum[K comparable](ms []core.Movement, keep func(core.Movement) bool, key func(core.Movement) K) []group[K] {
	index := make(map[K]int)
	groups := make([]group[K], 0)
	for _, m := range ms {
		if keep != nil && !keep(m) {
			continue
		}
		k := key(m)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group[K]{key: k, total: decimal.Zero})
		}
		groups[i].total = groups[i].total.Add(m.Amount)
	}
	return groups
}

func isExpense(m core.Movement) bool { return m.Type == core.Expense }

// compareTyped orders by name, then by type label, so Expense precedes Income.
func compareTyped(a, b group[typedKey]) int {
	if c := cmp.Compare(a.key.name, b.key.name); c != 0 {
		return c
	}
	return cmp.Compare(a.key.typ, b.key.typ)
}

// ComputeKPIs sums income, expense and the pending partitions of a view.
func ComputeKPIs(view []core.Movement) KPIs {
	k := KPIs{
		Income:     decimal.Zero,
		Expense:    decimal.Zero,
		Receivable: decimal.Zero,
		Payable:    decimal.Zero,
	}
	for _, m := range view {
		switch m.Type {
		case core.Income:
			k.Income = k.Income.Add(m.Amount)
			if m.Status.IsPending() {
				k.Receivable = k.Receivable.Add(m.Amount)
			}
		case core.Expense:
			k.Expense = k.Expense.Add(m.Amount)
			if m.Status.IsPending() {
				k.Payable = k.Payable.Add(m.Amount)
			}
		}
	}
	k.Net = k.Income.Sub(k.Expense)
	k.NegativeBalance = k.Net.IsNegative()
	return k
}

// SumByBranch totals amounts per (branch, type), sorted by branch then type.
func SumByBranch(view []core.Movement) []BranchTotal {
	groups := groupSum(view, nil, func(m core.Movement) typedKey {
		return typedKey{name: m.Branch, typ: m.Type}
	})
	slices.SortFunc(groups, compareTyped)
	out := make([]BranchTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, BranchTotal{Branch: g.key.name, Type: g.key.typ, Total: g.total})
	}
	return out
}

// SumByOwner totals expense amounts per owner, sorted by owner.
func SumByOwner(view []core.Movement) []OwnerTotal {
	groups := groupSum(view, isExpense, func(m core.Movement) string { return m.Owner })
	slices.SortFunc(groups, func(a, b group[string]) int { return cmp.Compare(a.key, b.key) })
	out := make([]OwnerTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, OwnerTotal{Owner: g.key, Total: g.total})
	}
	return out
}

// SumByMonth totals amounts per ("YYYY-MM", type), sorted chronologically then by type.
func SumByMonth(view []core.Movement) []MonthTotal {
	groups := groupSum(view, nil, func(m core.Movement) typedKey {
		return typedKey{name: m.Date.MonthKey(), typ: m.Type}
	})
	slices.SortFunc(groups, compareTyped)
	out := make([]MonthTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, MonthTotal{Month: g.key.name, Type: g.key.typ, Total: g.total})
	}
	return out
}

// SumByCategory totals expense amounts per category, sorted by category.
func SumByCategory(view []core.Movement) []CategoryTotal {
	groups := groupSum(view, isExpense, func(m core.Movement) string { return m.Category })
	slices.SortFunc(groups, func(a, b group[string]) int { return cmp.Compare(a.key, b.key) })
	out := make([]CategoryTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, CategoryTotal{Category: g.key, Total: g.total})
	}
	return out
}

// RunningBalance orders the view by date (ties keep ledger order) and emits
// the cumulative signed balance after each movement.
func RunningBalance(view []core.Movement) []BalancePoint {
	sorted := slices.Clone(view)
	slices.SortStableFunc(sorted, func(a, b core.Movement) int {
		return a.Date.Compare(b.Date)
	})
	out := make([]BalancePoint, 0, len(sorted))
	balance := decimal.Zero
	for _, m := range sorted {
		balance = balance.Add(m.Signed())
		out = append(out, BalancePoint{Date: m.Date, Balance: balance})
	}
	return out
}

// Aggregate runs every projection over an already filtered view.
func Aggregate(view []core.Movement) Result {
	if view == nil {
		view = []core.Movement{}
	}
	return Result{
		Filtered:       view,
		KPIs:           ComputeKPIs(view),
		ByBranch:       SumByBranch(view),
		ByOwner:        SumByOwner(view),
		ByMonth:        SumByMonth(view),
		ByCategory:     SumByCategory(view),
		RunningBalance: RunningBalance(view),
	}
}

// Recompute filters the ledger with c and aggregates the resulting view.
func Recompute(movements []core.Movement, c Criteria) Result {
	return Aggregate(Filter(movements, c))
}
