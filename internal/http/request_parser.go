package http

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
)

// Query parameter names understood by the dashboard endpoints.
const (
	ParamType      = "type"
	ParamCategory  = "category"
	ParamOwner     = "owner"
	ParamBranch    = "branch"
	ParamStatus    = "status"
	ParamAmountMin = "amount_min"
	ParamAmountMax = "amount_max"
	ParamQuery     = "q"
	ParamDateFrom  = "date_from"
	ParamDateTo    = "date_to"
)

// matchAllTokens are the select values meaning "no restriction".
var matchAllTokens = map[string]struct{}{
	"":      {},
	"all":   {},
	"todos": {},
	"todas": {},
}

// InvalidParam records a query value that could not be parsed and was ignored.
type InvalidParam struct {
	Name  string
	Value string
	Err   error
}

// ParseCriteria builds filter criteria from query parameters. Unparseable
// values are dropped, as if absent, and reported in the returned slice.
func ParseCriteria(q url.Values) (ledger.Criteria, []InvalidParam) {
	var (
		c       ledger.Criteria
		invalid []InvalidParam
	)

	if v, ok := selectValue(q, ParamType); ok {
		if t, err := core.ParseMovementType(v); err != nil {
			invalid = append(invalid, InvalidParam{Name: ParamType, Value: v, Err: err})
		} else {
			c.Type = &t
		}
	}
	if v, ok := selectValue(q, ParamCategory); ok {
		c.Category = &v
	}
	if v, ok := selectValue(q, ParamOwner); ok {
		c.Owner = &v
	}
	if v, ok := selectValue(q, ParamBranch); ok {
		c.Branch = &v
	}

	// A present but empty status list selects nothing.
	if values, ok := q[ParamStatus]; ok {
		statuses := make([]core.Status, 0, len(values))
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				statuses = append(statuses, core.ParseStatus(v))
			}
		}
		c.Statuses = ledger.OnlyStatuses(statuses...)
	}

	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{{ParamAmountMin, &c.AmountMin}, {ParamAmountMax, &c.AmountMax}} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseAmount(v)
		if err != nil {
			invalid = append(invalid, InvalidParam{Name: p.name, Value: v, Err: err})
			continue
		}
		*p.dst = &d
	}

	for _, p := range []struct {
		name string
		dst  **core.Date
	}{{ParamDateFrom, &c.DateFrom}, {ParamDateTo, &c.DateTo}} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			invalid = append(invalid, InvalidParam{Name: p.name, Value: v, Err: err})
			continue
		}
		*p.dst = &d
	}

	c.DescriptionQuery = strings.TrimSpace(q.Get(ParamQuery))
	return c, invalid
}

// selectValue returns a single-choice parameter, or false when it is absent
// or one of the match-all tokens.
func selectValue(q url.Values, name string) (string, bool) {
	v := strings.TrimSpace(q.Get(name))
	if _, all := matchAllTokens[strings.ToLower(v)]; all {
		return "", false
	}
	return v, true
}

// EncodeCriteria renders criteria back into query parameters, so that
// ParseCriteria(EncodeCriteria(c)) selects the same movements as c.
func EncodeCriteria(c ledger.Criteria) url.Values {
	q := url.Values{}
	if c.Type != nil {
		q.Set(ParamType, string(*c.Type))
	}
	for name, v := range map[string]*string{ParamCategory: c.Category, ParamOwner: c.Owner, ParamBranch: c.Branch} {
		if v != nil {
			q.Set(name, *v)
		}
	}
	if c.Statuses != nil {
		statuses := c.Statuses.List()
		if len(statuses) == 0 {
			q.Set(ParamStatus, "")
		}
		for _, s := range statuses {
			q.Add(ParamStatus, string(s))
		}
	}
	if c.AmountMin != nil {
		q.Set(ParamAmountMin, c.AmountMin.String())
	}
	if c.AmountMax != nil {
		q.Set(ParamAmountMax, c.AmountMax.String())
	}
	if c.DateFrom != nil {
		q.Set(ParamDateFrom, c.DateFrom.String())
	}
	if c.DateTo != nil {
		q.Set(ParamDateTo, c.DateTo.String())
	}
	if c.DescriptionQuery != "" {
		q.Set(ParamQuery, c.DescriptionQuery)
	}
	return q
}
