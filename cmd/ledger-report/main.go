// Command ledger-report applies dashboard filters to a ledger file and prints
// the KPIs and groupings as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"ledgerdash/internal/backend"
	"ledgerdash/internal/cli"
	apphttp "ledgerdash/internal/http"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/log"
)

type report struct {
	Criteria       ledger.Criteria        `json:"criteria"`
	Movements      int                    `json:"movement_count"`
	Matched        int                    `json:"filtered_count"`
	KPIs           ledger.KPIs            `json:"kpis"`
	ByBranch       []ledger.BranchTotal   `json:"by_branch"`
	ByOwner        []ledger.OwnerTotal    `json:"by_owner"`
	ByMonth        []ledger.MonthTotal    `json:"by_month"`
	ByCategory     []ledger.CategoryTotal `json:"by_category"`
	RunningBalance []ledger.BalancePoint  `json:"running_balance,omitempty"`
}

func main() {
	var (
		file    = flag.String("file", "", "ledger file (.csv or .xlsx)")
		sheet   = flag.String("sheet", "", "worksheet of an .xlsx ledger (default: first)")
		balance = flag.Bool("balance", false, "include the running balance series")
		status  = flag.String("status", "", "comma-separated statuses; omit for all, \"none\" for an empty set")
	)
	// Single-valued filters share the dashboard's query parameter names.
	single := map[string]*string{}
	for _, name := range []string{
		apphttp.ParamType, apphttp.ParamCategory, apphttp.ParamOwner, apphttp.ParamBranch,
		apphttp.ParamAmountMin, apphttp.ParamAmountMax, apphttp.ParamQuery,
		apphttp.ParamDateFrom, apphttp.ParamDateTo,
	} {
		single[name] = flag.String(name, "", "filter by "+name)
	}
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(nil, log.ComponentApp)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: ledger-report -file ledger.csv [filters]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	q := url.Values{}
	for name, v := range single {
		if *v != "" {
			q.Set(name, *v)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name != "status" {
			return
		}
		if strings.EqualFold(*status, "none") {
			q[apphttp.ParamStatus] = []string{""}
			return
		}
		for _, s := range strings.Split(*status, ",") {
			q.Add(apphttp.ParamStatus, strings.TrimSpace(s))
		}
	})

	criteria, invalid := apphttp.ParseCriteria(q)
	for _, p := range invalid {
		logger.Warn("Ignoring invalid filter value", "param", p.Name, "value", p.Value, log.FieldError, p.Err)
	}

	cfg := backend.Config{Type: backend.CSVBackend, LedgerFile: *file, LedgerSheet: *sheet}
	if strings.EqualFold(filepath.Ext(*file), ".xlsx") {
		cfg.Type = backend.XLSXBackend
	}
	ctx := context.Background()
	src, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err, "path", *file)
		os.Exit(1)
	}
	defer src.Close()

	movements, err := src.Source.Load(ctx)
	if err != nil {
		logger.Error("Failed to load ledger", "error", err, "path", *file)
		os.Exit(1)
	}

	res := ledger.Recompute(movements, criteria)
	out := report{
		Criteria:   criteria,
		Movements:  len(movements),
		Matched:    len(res.Filtered),
		KPIs:       res.KPIs,
		ByBranch:   res.ByBranch,
		ByOwner:    res.ByOwner,
		ByMonth:    res.ByMonth,
		ByCategory: res.ByCategory,
	}
	if *balance {
		out.RunningBalance = res.RunningBalance
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("Failed to write report", "error", err)
		os.Exit(1)
	}
}
