package http

import (
	"html/template"
	"net/http"

	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/log"
	ports "ledgerdash/internal/sheets"
)

// chartSeries is one Chart.js dataset.
type chartSeries struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

type chart struct {
	Labels   []string      `json:"labels"`
	Datasets []chartSeries `json:"datasets"`
}

// dashboardCharts feeds the five charts on the page.
type dashboardCharts struct {
	ByBranch   chart `json:"by_branch"`
	ByOwner    chart `json:"by_owner"`
	ByMonth    chart `json:"by_month"`
	ByCategory chart `json:"by_category"`
	Balance    chart `json:"balance"`
}

// formState echoes the applied criteria back into the filter form.
type formState struct {
	Type, Category, Owner, Branch string
	Statuses                      map[core.Status]bool
	AmountMin, AmountMax          string
	DateFrom, DateTo              string
	Query                         string
}

type dashboardPage struct {
	Form     formState
	Options  ledger.Options
	KPIs     ledger.KPIs
	Rows     []core.Movement
	Total    int
	Charts   dashboardCharts
	CSVURL   template.URL // filtered view as CSV
	XLSXURL  template.URL
	LastSync *ports.SyncRun
	CanSync  bool
}

func newFormState(c ledger.Criteria, opts ledger.Options) formState {
	f := formState{Query: c.DescriptionQuery, Statuses: make(map[core.Status]bool)}
	if c.Type != nil {
		f.Type = string(*c.Type)
	}
	if c.Category != nil {
		f.Category = *c.Category
	}
	if c.Owner != nil {
		f.Owner = *c.Owner
	}
	if c.Branch != nil {
		f.Branch = *c.Branch
	}

	// With no status parameter every ledger status starts selected.
	for _, st := range opts.Statuses {
		f.Statuses[st] = c.Statuses.Matches(st)
	}

	if c.AmountMin != nil {
		f.AmountMin = c.AmountMin.String()
	}
	if c.AmountMax != nil {
		f.AmountMax = c.AmountMax.String()
	}
	if c.DateFrom != nil {
		f.DateFrom = c.DateFrom.String()
	}
	if c.DateTo != nil {
		f.DateTo = c.DateTo.String()
	}
	return f
}

// typedChart spreads (label, type, total) triples into one dataset per type.
func typedChart[T any](items []T, label func(T) string, typ func(T) core.MovementType, total func(T) float64) chart {
	c := chart{Labels: []string{}}
	index := make(map[string]int)
	series := map[core.MovementType]*chartSeries{
		core.Income:  {Label: string(core.Income)},
		core.Expense: {Label: string(core.Expense)},
	}
	for _, it := range items {
		l := label(it)
		if _, ok := index[l]; !ok {
			index[l] = len(c.Labels)
			c.Labels = append(c.Labels, l)
		}
	}
	for _, s := range series {
		s.Data = make([]float64, len(c.Labels))
	}
	for _, it := range items {
		if s, ok := series[typ(it)]; ok {
			s.Data[index[label(it)]] = total(it)
		}
	}
	c.Datasets = []chartSeries{*series[core.Income], *series[core.Expense]}
	return c
}

func buildCharts(res ledger.Result) dashboardCharts {
	var ch dashboardCharts

	ch.ByBranch = typedChart(res.ByBranch,
		func(b ledger.BranchTotal) string { return b.Branch },
		func(b ledger.BranchTotal) core.MovementType { return b.Type },
		func(b ledger.BranchTotal) float64 { return b.Total.InexactFloat64() })
	ch.ByMonth = typedChart(res.ByMonth,
		func(m ledger.MonthTotal) string { return m.Month },
		func(m ledger.MonthTotal) core.MovementType { return m.Type },
		func(m ledger.MonthTotal) float64 { return m.Total.InexactFloat64() })

	owners := chartSeries{Label: string(core.Expense), Data: make([]float64, 0, len(res.ByOwner))}
	ch.ByOwner.Labels = make([]string, 0, len(res.ByOwner))
	for _, o := range res.ByOwner {
		ch.ByOwner.Labels = append(ch.ByOwner.Labels, o.Owner)
		owners.Data = append(owners.Data, o.Total.InexactFloat64())
	}
	ch.ByOwner.Datasets = []chartSeries{owners}

	cats := chartSeries{Label: string(core.Expense), Data: make([]float64, 0, len(res.ByCategory))}
	ch.ByCategory.Labels = make([]string, 0, len(res.ByCategory))
	for _, c := range res.ByCategory {
		ch.ByCategory.Labels = append(ch.ByCategory.Labels, c.Category)
		cats.Data = append(cats.Data, c.Total.InexactFloat64())
	}
	ch.ByCategory.Datasets = []chartSeries{cats}

	balance := chartSeries{Label: "Net balance", Data: make([]float64, 0, len(res.RunningBalance))}
	ch.Balance.Labels = make([]string, 0, len(res.RunningBalance))
	for _, p := range res.RunningBalance {
		ch.Balance.Labels = append(ch.Balance.Labels, p.Date.String())
		balance.Data = append(balance.Data, p.Balance.InexactFloat64())
	}
	ch.Balance.Datasets = []chartSeries{balance}
	return ch
}

// handleIndex renders the dashboard for the criteria in the query string.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.templates == nil {
		log.FromContext(ctx).ErrorContext(ctx, "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	c := s.criteriaFromRequest(r)
	res, ms, err := s.provider.Result(ctx, c)
	if err != nil {
		s.requestLog.LogError(ctx, "Failed to load ledger", err, log.ComponentLedger, log.OpLoad, nil)
		http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
		return
	}

	opts := ledger.OptionsFor(ms)
	page := dashboardPage{
		Form:    newFormState(c, opts),
		Options: opts,
		KPIs:    res.KPIs,
		Rows:    res.Filtered,
		Total:   len(ms),
		Charts:  buildCharts(res),
		CSVURL:  exportURL("/export.csv", c),
		XLSXURL: exportURL("/export.xlsx", c),
		CanSync: s.publisher != nil,
	}
	if run, err := s.provider.LastSync(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to read last sync", log.FieldError, err)
	} else {
		page.LastSync = run
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", page); err != nil {
		s.requestLog.LogError(ctx, "Dashboard template execution failed", err, log.ComponentHTTP, log.OpRender, nil)
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func exportURL(path string, c ledger.Criteria) template.URL {
	q := EncodeCriteria(c)
	if len(q) == 0 {
		return template.URL(path)
	}
	return template.URL(path + "?" + q.Encode())
}
