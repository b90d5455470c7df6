package http

import (
	"errors"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
)

func TestParseCriteria_MatchAllTokens(t *testing.T) {
	for _, token := range []string{"", "all", "ALL", "Todos", "todas", "  Todas  "} {
		q := url.Values{"type": {token}, "category": {token}, "owner": {token}, "branch": {token}}
		c, invalid := ParseCriteria(q)
		if c.Type != nil || c.Category != nil || c.Owner != nil || c.Branch != nil {
			t.Errorf("token %q should match all, got %+v", token, c)
		}
		if len(invalid) != 0 {
			t.Errorf("token %q reported invalid params: %v", token, invalid)
		}
	}
}

func TestParseCriteria_Values(t *testing.T) {
	q := url.Values{
		"type":       {"Egreso"},
		"category":   {"Nómina"},
		"owner":      {"Ana"},
		"branch":     {"Centro"},
		"status":     {"Pendiente", "Settled", ""},
		"amount_min": {"$1,000"},
		"amount_max": {"50000.50"},
		"q":          {"  sueldos "},
		"date_from":  {"2024-01-01"},
		"date_to":    {"31/03/2024"},
	}

	c, invalid := ParseCriteria(q)
	if len(invalid) != 0 {
		t.Fatalf("unexpected invalid params: %v", invalid)
	}
	if c.Type == nil || *c.Type != core.Expense {
		t.Errorf("Type = %v", c.Type)
	}
	if c.Category == nil || *c.Category != "Nómina" || *c.Owner != "Ana" || *c.Branch != "Centro" {
		t.Errorf("unexpected selects: %+v", c)
	}
	if got := c.Statuses.List(); len(got) != 2 || got[0] != core.StatusPending || got[1] != core.StatusSettled {
		t.Errorf("Statuses = %v", got)
	}
	if !c.AmountMin.Equal(decimal.NewFromInt(1000)) || !c.AmountMax.Equal(decimal.RequireFromString("50000.5")) {
		t.Errorf("amount bounds = %s..%s", c.AmountMin, c.AmountMax)
	}
	if c.DescriptionQuery != "sueldos" {
		t.Errorf("DescriptionQuery = %q", c.DescriptionQuery)
	}
	if c.DateFrom.String() != "2024-01-01" || c.DateTo.String() != "2024-03-31" {
		t.Errorf("dates = %s..%s", c.DateFrom, c.DateTo)
	}
}

func TestParseCriteria_StatusPresence(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantNil   bool
		wantCount int
	}{
		{"absent means any status", url.Values{}, true, 0},
		{"present but empty selects nothing", url.Values{"status": {""}}, false, 0},
		{"aliases collapse", url.Values{"status": {"Pagado", "Cobrado"}}, false, 1},
		{"unknown status kept", url.Values{"status": {"Anulado"}}, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := ParseCriteria(tt.query)
			if (c.Statuses == nil) != tt.wantNil {
				t.Fatalf("Statuses nil = %v, want %v", c.Statuses == nil, tt.wantNil)
			}
			if !tt.wantNil && len(c.Statuses) != tt.wantCount {
				t.Errorf("len(Statuses) = %d, want %d", len(c.Statuses), tt.wantCount)
			}
		})
	}
}

func TestParseCriteria_InvalidValuesIgnored(t *testing.T) {
	q := url.Values{
		"type":       {"Transfer"},
		"amount_min": {"lots"},
		"amount_max": {"-5"},
		"date_from":  {"yesterday"},
		"date_to":    {"2024-02-30"},
	}
	c, invalid := ParseCriteria(q)
	if c.Type != nil || c.AmountMin != nil || c.AmountMax != nil || c.DateFrom != nil || c.DateTo != nil {
		t.Errorf("invalid values should be dropped: %+v", c)
	}
	if len(invalid) != 5 {
		t.Fatalf("got %d invalid params, want 5: %v", len(invalid), invalid)
	}
	for _, p := range invalid {
		switch p.Name {
		case "type":
			if !errors.Is(p.Err, core.ErrInvalidType) {
				t.Errorf("type error = %v", p.Err)
			}
		case "amount_max":
			if !errors.Is(p.Err, core.ErrNegativeAmount) {
				t.Errorf("amount_max error = %v", p.Err)
			}
		}
	}
}

func TestEncodeCriteria_RoundTrip(t *testing.T) {
	typ := core.Income
	branch := "Norte"
	min := decimal.NewFromInt(100)
	from := core.NewDate(2024, 2, 1)

	tests := []struct {
		name string
		c    ledger.Criteria
	}{
		{"match all", ledger.MatchAll()},
		{"every field", ledger.Criteria{
			Type:             &typ,
			Branch:           &branch,
			Statuses:         ledger.OnlyStatuses(core.StatusPending),
			AmountMin:        &min,
			DateFrom:         &from,
			DescriptionQuery: "proyecto",
		}},
		{"empty status set", ledger.Criteria{Statuses: ledger.OnlyStatuses()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, invalid := ParseCriteria(EncodeCriteria(tt.c))
			if len(invalid) != 0 {
				t.Fatalf("invalid params: %v", invalid)
			}
			if got.Key() != tt.c.Key() {
				t.Errorf("round trip key = %s, want %s", got.Key(), tt.c.Key())
			}
		})
	}
}
