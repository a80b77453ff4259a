package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"spendlens/internal/cli"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/report"
	"spendlens/internal/services"
	"spendlens/internal/statement"
)

// app is bound into every command's Run method.
type app struct {
	svc    *services.StatementService
	logger *log.Logger
	out    io.Writer
	pretty bool
}

func (a *app) upload(path string) (services.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Upload{}, fmt.Errorf("read statement: %w", err)
	}
	return services.Upload{
		Filename: filepath.Base(path),
		Data:     data,
		Endpoint: core.EndpointCLI,
	}, nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	if a.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func (a *app) view(path string, view services.ViewFunc) error {
	up, err := a.upload(path)
	if err != nil {
		return err
	}
	rows, err := a.svc.Aggregate(context.Background(), up, view)
	if err != nil {
		return err
	}
	return a.print(rows)
}

type FileArg struct {
	File string `arg:"" type:"existingfile" help:"Statement CSV file."`
}

type categorizeCmd struct {
	FileArg
	Limit  int `help:"Transactions per page (1-100)." default:"20"`
	Offset int `help:"Transactions to skip." default:"0"`
}

func (c *categorizeCmd) Run(a *app) error {
	up, err := a.upload(c.File)
	if err != nil {
		return err
	}
	res, err := a.svc.Categorize(context.Background(), up)
	if err != nil {
		return err
	}
	return a.print(a.svc.Page(res, c.Limit, c.Offset, report.CategorySummary))
}

type summaryCmd struct{ FileArg }

func (c *summaryCmd) Run(a *app) error { return a.view(c.File, report.CategorySummary) }

type trendCmd struct{ FileArg }

func (c *trendCmd) Run(a *app) error { return a.view(c.File, report.MonthlyTrend) }

type breakdownCmd struct{ FileArg }

func (c *breakdownCmd) Run(a *app) error { return a.view(c.File, report.MonthlyCategoryBreakdown) }

type merchantsCmd struct {
	FileArg
	Top int `help:"How many merchants to list." default:"10"`
}

func (c *merchantsCmd) Run(a *app) error {
	return a.view(c.File, func(t *statement.Table, caps statement.Capabilities) []statement.Record {
		return report.TopMerchants(t, caps, c.Top)
	})
}

type incomeCmd struct{ FileArg }

func (c *incomeCmd) Run(a *app) error { return a.view(c.File, report.IncomeVsExpense) }

type runsCmd struct {
	DB    string `name:"db" help:"SQLite run store." default:"./data/spendlens.db" env:"SQLITE_DB_PATH" type:"path"`
	Limit int    `help:"How many runs to list, newest first." default:"20"`
}

func (c *runsCmd) Run(a *app) error {
	store, err := cli.OpenRunStore(a.logger, c.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), c.Limit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []core.RunSummary{}
	}
	return a.print(runs)
}
