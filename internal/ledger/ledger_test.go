package ledger

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func twoMovements() []core.Movement {
	return []core.Movement{
		{Date: core.NewDate(2024, 1, 10), Type: core.Income, Amount: dec("1000"), Status: core.StatusSettled},
		{
			Date: core.NewDate(2024, 1, 15), Type: core.Expense, Amount: dec("400"), Status: core.StatusPending,
			Category: "Rent", Owner: "A", Branch: "X",
		},
	}
}

func sampleLedger() []core.Movement {
	return []core.Movement{
		{Date: core.NewDate(2024, 2, 3), Type: core.Income, Category: "Sales", Owner: "Ana", Branch: "Norte", Status: core.StatusSettled, Amount: dec("2500"), Description: "Venta mostrador"},
		{Date: core.NewDate(2024, 1, 20), Type: core.Expense, Category: "Rent", Owner: "Luis", Branch: "Norte", Status: core.StatusPending, Amount: dec("800"), Description: "Alquiler enero"},
		{Date: core.NewDate(2024, 2, 3), Type: core.Expense, Category: "Supplies", Owner: "Ana", Branch: "Sur", Status: core.StatusSettled, Amount: dec("150.75"), Description: "Papelería"},
		{Date: core.NewDate(2024, 1, 5), Type: core.Income, Category: "Services", Owner: "Luis", Branch: "Sur", Status: core.StatusPending, Amount: dec("1200"), Description: "Consultoría"},
		{Date: core.NewDate(2024, 2, 28), Type: core.Expense, Category: "Rent", Owner: "Luis", Branch: "Sur", Status: core.Status("Anulado"), Amount: dec("800"), Description: ""},
	}
}

func TestFilter_MatchAllIsIdentity(t *testing.T) {
	for _, ms := range [][]core.Movement{sampleLedger(), twoMovements(), {}} {
		got := Filter(ms, MatchAll())
		if !reflect.DeepEqual(got, ms) {
			t.Errorf("Filter with MatchAll changed the ledger:\n got %v\nwant %v", got, ms)
		}
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	ms := sampleLedger()
	before := sampleLedger()
	_ = Filter(ms, Criteria{Type: ptr(core.Expense)})
	_ = RunningBalance(ms)
	if !reflect.DeepEqual(ms, before) {
		t.Error("input ledger was mutated")
	}
}

func TestFilter_Criteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		wantIdx  []int
	}{
		{"type expense", Criteria{Type: ptr(core.Expense)}, []int{1, 2, 4}},
		{"category", Criteria{Category: ptr("Rent")}, []int{1, 4}},
		{"owner", Criteria{Owner: ptr("Ana")}, []int{0, 2}},
		{"branch", Criteria{Branch: ptr("Sur")}, []int{2, 3, 4}},
		{"unknown branch", Criteria{Branch: ptr("Este")}, []int{}},
		{"statuses pending", Criteria{Statuses: OnlyStatuses(core.StatusPending)}, []int{1, 3}},
		{"statuses open set", Criteria{Statuses: OnlyStatuses("Anulado", core.StatusSettled)}, []int{0, 2, 4}},
		{"empty status set", Criteria{Statuses: OnlyStatuses()}, []int{}},
		{"empty status set wins", Criteria{Statuses: OnlyStatuses(), Type: ptr(core.Income)}, []int{}},
		{"amount inclusive bounds", Criteria{AmountMin: ptr(dec("800")), AmountMax: ptr(dec("1200"))}, []int{1, 3, 4}},
		{"inverted amount bounds", Criteria{AmountMin: ptr(dec("500")), AmountMax: ptr(dec("100"))}, []int{}},
		{"date inclusive bounds", Criteria{DateFrom: ptr(core.NewDate(2024, 1, 20)), DateTo: ptr(core.NewDate(2024, 2, 3))}, []int{0, 1, 2}},
		{"inverted date bounds", Criteria{DateFrom: ptr(core.NewDate(2024, 3, 1)), DateTo: ptr(core.NewDate(2024, 1, 1))}, []int{}},
		{"description case insensitive", Criteria{DescriptionQuery: "ALQUILER"}, []int{1}},
		{"description accented", Criteria{DescriptionQuery: "papel"}, []int{2}},
		{"description substring", Criteria{DescriptionQuery: "ía"}, []int{2, 3}},
		{"combined", Criteria{Type: ptr(core.Expense), Branch: ptr("Sur"), Statuses: OnlyStatuses(core.StatusSettled)}, []int{2}},
	}

	ms := sampleLedger()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(ms, tt.criteria)
			if got == nil {
				t.Fatal("Filter returned nil slice")
			}
			want := make([]core.Movement, 0, len(tt.wantIdx))
			for _, i := range tt.wantIdx {
				want = append(want, ms[i])
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %d movements, want %d:\n got %v\nwant %v", len(got), len(want), got, want)
			}
		})
	}
}

func TestRecompute_TwoMovementScenario(t *testing.T) {
	r := Recompute(twoMovements(), MatchAll())

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"income", r.KPIs.Income, "1000"},
		{"expense", r.KPIs.Expense, "400"},
		{"net", r.KPIs.Net, "600"},
		{"payable", r.KPIs.Payable, "400"},
		{"receivable", r.KPIs.Receivable, "0"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if r.KPIs.NegativeBalance {
		t.Error("NegativeBalance should be false")
	}

	want := []BalancePoint{
		{Date: core.NewDate(2024, 1, 10), Balance: dec("1000")},
		{Date: core.NewDate(2024, 1, 15), Balance: dec("600")},
	}
	if len(r.RunningBalance) != len(want) {
		t.Fatalf("running balance has %d points, want %d", len(r.RunningBalance), len(want))
	}
	for i := range want {
		if r.RunningBalance[i].Date != want[i].Date || !r.RunningBalance[i].Balance.Equal(want[i].Balance) {
			t.Errorf("point %d = %+v, want %+v", i, r.RunningBalance[i], want[i])
		}
	}

	if len(r.ByOwner) != 1 || r.ByOwner[0].Owner != "A" || !r.ByOwner[0].Total.Equal(dec("400")) {
		t.Errorf("ByOwner = %+v", r.ByOwner)
	}
	if len(r.ByCategory) != 1 || r.ByCategory[0].Category != "Rent" {
		t.Errorf("ByCategory = %+v", r.ByCategory)
	}
}

func TestRecompute_InvertedBoundsYieldZeroAggregates(t *testing.T) {
	r := Recompute(twoMovements(), Criteria{AmountMin: ptr(dec("500")), AmountMax: ptr(dec("100"))})
	assertEmptyResult(t, r)
}

func TestRecompute_EmptyStatusSet(t *testing.T) {
	r := Recompute(sampleLedger(), Criteria{Statuses: OnlyStatuses(), Category: ptr("Rent")})
	assertEmptyResult(t, r)
}

func TestAggregate_EmptyView(t *testing.T) {
	assertEmptyResult(t, Aggregate(nil))
	assertEmptyResult(t, Aggregate([]core.Movement{}))
}

func assertEmptyResult(t *testing.T, r Result) {
	t.Helper()
	if r.Filtered == nil || len(r.Filtered) != 0 {
		t.Errorf("Filtered = %v, want empty non-nil", r.Filtered)
	}
	for name, v := range map[string]decimal.Decimal{
		"income": r.KPIs.Income, "expense": r.KPIs.Expense, "net": r.KPIs.Net,
		"receivable": r.KPIs.Receivable, "payable": r.KPIs.Payable,
	} {
		if !v.IsZero() {
			t.Errorf("%s = %s, want 0", name, v)
		}
	}
	if r.KPIs.NegativeBalance {
		t.Error("NegativeBalance on empty view")
	}
	if r.ByBranch == nil || r.ByOwner == nil || r.ByMonth == nil || r.ByCategory == nil || r.RunningBalance == nil {
		t.Error("groupings must be empty, not nil")
	}
	if len(r.ByBranch)+len(r.ByOwner)+len(r.ByMonth)+len(r.ByCategory)+len(r.RunningBalance) != 0 {
		t.Errorf("groupings not empty: %+v", r)
	}
}

func TestKPIs_Invariants(t *testing.T) {
	views := map[string][]core.Movement{
		"sample":   sampleLedger(),
		"expenses": Filter(sampleLedger(), Criteria{Type: ptr(core.Expense)}),
		"pending":  Filter(sampleLedger(), Criteria{Statuses: OnlyStatuses(core.StatusPending)}),
		"fraction": {
			{Date: core.NewDate(2024, 1, 1), Type: core.Income, Amount: dec("0.1")},
			{Date: core.NewDate(2024, 1, 1), Type: core.Income, Amount: dec("0.2")},
			{Date: core.NewDate(2024, 1, 2), Type: core.Expense, Amount: dec("0.3")},
		},
	}

	for name, view := range views {
		t.Run(name, func(t *testing.T) {
			k := ComputeKPIs(view)
			if !k.Income.Sub(k.Expense).Equal(k.Net) {
				t.Errorf("income - expense = %s, net = %s", k.Income.Sub(k.Expense), k.Net)
			}

			receivable, payable := decimal.Zero, decimal.Zero
			for _, m := range view {
				if m.Status == core.StatusPending && m.Type == core.Income {
					receivable = receivable.Add(m.Amount)
				}
				if m.Status == core.StatusPending && m.Type == core.Expense {
					payable = payable.Add(m.Amount)
				}
			}
			if !k.Receivable.Equal(receivable) || !k.Payable.Equal(payable) {
				t.Errorf("receivable/payable = %s/%s, want %s/%s", k.Receivable, k.Payable, receivable, payable)
			}

			points := RunningBalance(view)
			if len(points) != len(view) {
				t.Fatalf("running balance has %d points for %d movements", len(points), len(view))
			}
			if len(points) > 0 && !points[len(points)-1].Balance.Equal(k.Net) {
				t.Errorf("final balance %s != net %s", points[len(points)-1].Balance, k.Net)
			}
		})
	}
}

func TestKPIs_NegativeBalance(t *testing.T) {
	k := ComputeKPIs([]core.Movement{
		{Date: core.NewDate(2024, 1, 1), Type: core.Income, Amount: dec("100")},
		{Date: core.NewDate(2024, 1, 2), Type: core.Expense, Amount: dec("250")},
	})
	if !k.NegativeBalance || !k.Net.Equal(dec("-150")) {
		t.Errorf("KPIs = %+v, want negative net -150", k)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	view := Filter(sampleLedger(), MatchAll())
	first := Aggregate(view)
	second := Aggregate(view)
	if !reflect.DeepEqual(first, second) {
		t.Error("aggregating the same view twice produced different results")
	}
}

func TestSumByBranch_SortedByBranchThenType(t *testing.T) {
	got := SumByBranch(sampleLedger())
	want := []BranchTotal{
		{Branch: "Norte", Type: core.Expense, Total: dec("800")},
		{Branch: "Norte", Type: core.Income, Total: dec("2500")},
		{Branch: "Sur", Type: core.Expense, Total: dec("950.75")},
		{Branch: "Sur", Type: core.Income, Total: dec("1200")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d groups, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Branch != want[i].Branch || got[i].Type != want[i].Type || !got[i].Total.Equal(want[i].Total) {
			t.Errorf("group %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSumByMonth(t *testing.T) {
	got := SumByMonth(sampleLedger())
	want := []MonthTotal{
		{Month: "2024-01", Type: core.Expense, Total: dec("800")},
		{Month: "2024-01", Type: core.Income, Total: dec("1200")},
		{Month: "2024-02", Type: core.Expense, Total: dec("950.75")},
		{Month: "2024-02", Type: core.Income, Total: dec("2500")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d groups, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Month != want[i].Month || got[i].Type != want[i].Type || !got[i].Total.Equal(want[i].Total) {
			t.Errorf("group %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSumByOwnerAndCategory_ExpenseOnly(t *testing.T) {
	owners := SumByOwner(sampleLedger())
	if len(owners) != 2 || owners[0].Owner != "Ana" || !owners[0].Total.Equal(dec("150.75")) ||
		owners[1].Owner != "Luis" || !owners[1].Total.Equal(dec("1600")) {
		t.Errorf("SumByOwner = %+v", owners)
	}

	cats := SumByCategory(sampleLedger())
	if len(cats) != 2 || cats[0].Category != "Rent" || !cats[0].Total.Equal(dec("1600")) ||
		cats[1].Category != "Supplies" || !cats[1].Total.Equal(dec("150.75")) {
		t.Errorf("SumByCategory = %+v", cats)
	}
}

func TestRunningBalance_StableOnTies(t *testing.T) {
	day := core.NewDate(2024, 5, 1)
	view := []core.Movement{
		{Date: core.NewDate(2024, 5, 2), Type: core.Income, Amount: dec("10")},
		{Date: day, Type: core.Expense, Amount: dec("30")},
		{Date: day, Type: core.Income, Amount: dec("100")},
	}
	got := RunningBalance(view)
	wantBalances := []string{"-30", "70", "80"}
	for i, w := range wantBalances {
		if !got[i].Balance.Equal(dec(w)) {
			t.Errorf("point %d balance = %s, want %s", i, got[i].Balance, w)
		}
	}
	if got[0].Date != day || got[2].Date != core.NewDate(2024, 5, 2) {
		t.Errorf("points not in date order: %+v", got)
	}
}

func TestOptionsFor(t *testing.T) {
	o := OptionsFor(sampleLedger())

	if !reflect.DeepEqual(o.Types, []core.MovementType{core.Income, core.Expense}) {
		t.Errorf("Types = %v", o.Types)
	}
	if !reflect.DeepEqual(o.Categories, []string{"Sales", "Rent", "Supplies", "Services"}) {
		t.Errorf("Categories = %v", o.Categories)
	}
	if !reflect.DeepEqual(o.Statuses, []core.Status{core.StatusSettled, core.StatusPending, "Anulado"}) {
		t.Errorf("Statuses = %v", o.Statuses)
	}
	if !o.AmountMin.Equal(dec("150.75")) || !o.AmountMax.Equal(dec("2500")) {
		t.Errorf("amount range = %s..%s", o.AmountMin, o.AmountMax)
	}
	if o.DateFrom != core.NewDate(2024, 1, 5) || o.DateTo != core.NewDate(2024, 2, 28) {
		t.Errorf("date range = %s..%s", o.DateFrom, o.DateTo)
	}

	if got := Filter(sampleLedger(), Criteria{Statuses: o.DefaultStatuses()}); len(got) != len(sampleLedger()) {
		t.Errorf("default statuses filtered %d of %d movements", len(got), len(sampleLedger()))
	}

	empty := OptionsFor(nil)
	if empty.Types == nil || len(empty.Types) != 0 {
		t.Errorf("empty options Types = %v", empty.Types)
	}
}

func TestCriteria_Key(t *testing.T) {
	a := Criteria{Statuses: OnlyStatuses(core.StatusSettled, core.StatusPending), Owner: ptr("Ana")}
	b := Criteria{Owner: ptr("Ana"), Statuses: OnlyStatuses(core.StatusPending, core.StatusSettled)}
	if a.Key() != b.Key() {
		t.Errorf("equivalent criteria produced different keys:\n%s\n%s", a.Key(), b.Key())
	}
	if MatchAll().Key() == (Criteria{Statuses: OnlyStatuses()}).Key() {
		t.Error("nil and empty status filters must have distinct keys")
	}
	if MatchAll().Key() == (Criteria{Owner: ptr("")}).Key() {
		t.Error("unset and empty-string owner must have distinct keys")
	}
}

func TestStatusFilter_JSON(t *testing.T) {
	b, _ := json.Marshal(Criteria{})
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["statuses"] != nil {
		t.Errorf("nil status filter encoded as %v", decoded["statuses"])
	}

	b, _ = json.Marshal(OnlyStatuses())
	if string(b) != "[]" {
		t.Errorf("empty status filter encoded as %s", b)
	}
}
