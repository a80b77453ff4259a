package main

import (
	"os"

	"github.com/alecthomas/kong"

	"spendlens/internal/cli"
	"spendlens/internal/log"
	"spendlens/internal/services"
	"spendlens/internal/statement"
)

type Globals struct {
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"warn" env:"LOG_LEVEL"`
	Pretty   bool   `short:"p" help:"Indent JSON output."`
	RecordDB string `name:"record-db" help:"Also record each run in this SQLite database." env:"SPENDLENS_RECORD_DB" placeholder:"PATH"`
}

type cliArgs struct {
	Globals

	Categorize categorizeCmd `cmd:"" help:"Categorize a statement and print one page of transactions with the category summary."`
	Summary    summaryCmd    `cmd:"" help:"Print amounts summed per category."`
	Trend      trendCmd      `cmd:"" help:"Print amounts summed per month."`
	Breakdown  breakdownCmd  `cmd:"" help:"Print one row per month with one column per category."`
	Merchants  merchantsCmd  `cmd:"" help:"Print the merchants with the largest absolute totals."`
	Income     incomeCmd     `cmd:"" help:"Print income and expense per month."`
	Runs       runsCmd       `cmd:"" help:"List recorded runs from the SQLite run store."`
}

func main() {
	var args cliArgs
	kctx := kong.Parse(&args,
		kong.Name("spendlens-cli"),
		kong.Description("Categorize bank statement CSV files offline."),
		kong.UsageOnError(),
	)

	cli.LoadEnvFile()
	logger := cli.SetupLogger(args.LogLevel, "text", os.Stderr).WithComponent(log.ComponentCLI)

	a := &app{
		logger: logger,
		out:    os.Stdout,
		pretty: args.Pretty,
	}
	opts := []services.ServiceOption{services.WithLogger(logger)}
	if args.RecordDB != "" {
		store, err := cli.OpenRunStore(logger, args.RecordDB)
		kctx.FatalIfErrorf(err)
		defer store.Close()
		opts = append(opts, services.WithRecorder(store))
	}
	a.svc = services.NewStatementService(statement.NewPipeline(statement.DefaultRules()), opts...)

	err := kctx.Run(a)
	kctx.FatalIfErrorf(err)
}
