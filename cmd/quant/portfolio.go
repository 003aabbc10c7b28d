package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/subcommands"

	"github.com/mdc5017/QuantFinanceCourse/internal/app"
	"github.com/mdc5017/QuantFinanceCourse/internal/collector"
	"github.com/mdc5017/QuantFinanceCourse/internal/pipeline"
	"github.com/mdc5017/QuantFinanceCourse/internal/report"
	"github.com/mdc5017/QuantFinanceCourse/internal/scheduler"
)

type markowitzCmd struct {
	symbols  string
	provider string
	samples  int
	restarts int
	seed     uint64
	stats    bool
	chart    bool
	notify   bool
}

func (*markowitzCmd) Name() string     { return "markowitz" }
func (*markowitzCmd) Synopsis() string { return "find the maximum-Sharpe portfolio" }
func (*markowitzCmd) Usage() string {
	return `markowitz [-symbols AAPL,WMT] [-samples n] [-seed n] [-stats] [-chart] [-notify]:
  Download daily prices, sample random portfolios and optimise the Sharpe ratio.
`
}

func (c *markowitzCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbols, "symbols", "", "comma separated symbols (default from config)")
	f.StringVar(&c.provider, "provider", "", "price provider: yahoo, csv, parquet or mock")
	f.IntVar(&c.samples, "samples", 0, "number of random portfolios")
	f.IntVar(&c.restarts, "restarts", -1, "extra optimiser starts from the best samples")
	f.Uint64Var(&c.seed, "seed", 0, "random seed (0 keeps the config value)")
	f.BoolVar(&c.stats, "stats", false, "print annualised means and covariance")
	f.BoolVar(&c.chart, "chart", false, "write weight and price charts to report.chart_dir")
	f.BoolVar(&c.notify, "notify", false, "send the report to Telegram")
}

func (c *markowitzCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, cleanup, err := InitializeApp(app.ConfigPath(*configPath))
	if err != nil {
		log.Printf("[ERROR] initialize: %v", err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	if err := c.apply(a); err != nil {
		log.Printf("[ERROR] %v", err)
		return subcommands.ExitUsageError
	}
	res, err := a.Pipeline.Run(ctx)
	if err != nil {
		log.Printf("[ERROR] markowitz: %v", err)
		return subcommands.ExitFailure
	}

	if c.stats {
		fmt.Print(report.FormatStatistics(res.Moments))
	}
	fmt.Print(report.FormatPortfolio(res.Optimal, res.Moments))

	if c.chart {
		writeCharts(a.Config.Report.ChartDir, res)
	}
	if c.notify {
		if err := a.Config.ValidateTelegram(); err != nil {
			log.Printf("[ERROR] notify: %v", err)
			return subcommands.ExitFailure
		}
		if err := a.Notifier.SendWithRetry(ctx, report.FormatPortfolioHTML(res.Optimal, len(res.Samples), res.Elapsed), 3); err != nil {
			log.Printf("[ERROR] notify: %v", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

// apply folds command-line overrides into the config and rebuilds the
// pipeline settings from it.
func (c *markowitzCmd) apply(a *App) error {
	cfg := a.Config
	if c.symbols != "" {
		cfg.Portfolio.Symbols = splitList(c.symbols)
	}
	if c.samples > 0 {
		cfg.Portfolio.SampleCount = c.samples
	}
	if c.restarts >= 0 {
		cfg.Portfolio.Restarts = c.restarts
	}
	if c.seed != 0 {
		cfg.Portfolio.Seed = c.seed
	}
	if c.provider != "" {
		cfg.DataSource.Provider = c.provider
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if c.provider != "" {
		f, err := app.ProvideFetcher(cfg)
		if err != nil {
			return err
		}
		a.Pipeline.Collector.Fetcher = f
	}
	s, err := app.ProvideSettings(cfg)
	if err != nil {
		return err
	}
	a.Pipeline.Settings = s
	return nil
}

func writeCharts(dir string, res *pipeline.Result) {
	charts := map[string]func() ([]byte, error){
		"weights":  func() ([]byte, error) { return report.WeightsChart(res.Optimal) },
		"prices":   func() ([]byte, error) { return report.PriceChart(res.Prices) },
		"frontier": func() ([]byte, error) { return report.FrontierChart(res.Samples, res.Optimal) },
	}
	for name, render := range charts {
		png, err := render()
		if err != nil {
			log.Printf("[WARN] %s chart: %v", name, err)
			continue
		}
		path, err := report.WriteChart(dir, name, png)
		if err != nil {
			log.Printf("[WARN] %s chart: %v", name, err)
			continue
		}
		log.Printf("[INFO] wrote %s", path)
	}
}

type fetchCmd struct {
	symbols string
	out     string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download price history into parquet files" }
func (*fetchCmd) Usage() string {
	return `fetch [-symbols AAPL,WMT] [-out dir]:
  Download the portfolio window and write <dir>/<SYMBOL>.parquet for the parquet provider.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbols, "symbols", "", "comma separated symbols (default from config)")
	f.StringVar(&c.out, "out", "", "output directory (default data_source.dir)")
}

func (c *fetchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, cleanup, err := InitializeApp(app.ConfigPath(*configPath))
	if err != nil {
		log.Printf("[ERROR] initialize: %v", err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	s := a.Pipeline.Settings
	symbols := s.Symbols
	if c.symbols != "" {
		symbols = splitList(c.symbols)
	}
	out := a.Config.DataSource.Dir
	if c.out != "" {
		out = c.out
	}
	status := subcommands.ExitSuccess
	for _, sym := range symbols {
		series, err := a.Pipeline.Collector.FetchSeries(ctx, sym, s.From, s.To)
		if err != nil {
			log.Printf("[ERROR] %v", err)
			status = subcommands.ExitFailure
			continue
		}
		if err := collector.WriteParquet(out, sym, series.Bars); err != nil {
			log.Printf("[ERROR] write %s: %v", sym, err)
			status = subcommands.ExitFailure
			continue
		}
		log.Printf("[INFO] wrote %d bars for %s to %s", len(series.Bars), sym, out)
	}
	return status
}

type varCmd struct {
	symbol     string
	confidence float64
	days       int
	iterations int
	seed       uint64
}

func (*varCmd) Name() string     { return "var" }
func (*varCmd) Synopsis() string { return "Monte Carlo value at risk of a single position" }
func (*varCmd) Usage() string {
	return `var [-symbol C] [-confidence 0.99] [-days 1] [-iterations n]:
  Estimate daily drift and volatility from history and simulate the position value.
`
}

func (c *varCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "symbol (default from config)")
	f.Float64Var(&c.confidence, "confidence", 0, "confidence level in (0,1)")
	f.IntVar(&c.days, "days", 0, "horizon in trading days")
	f.IntVar(&c.iterations, "iterations", 0, "number of simulations")
	f.Uint64Var(&c.seed, "seed", 0, "random seed (0 keeps the config value)")
}

func (c *varCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, cleanup, err := InitializeApp(app.ConfigPath(*configPath))
	if err != nil {
		log.Printf("[ERROR] initialize: %v", err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	cfg := a.Config
	if c.symbol != "" {
		cfg.VaR.Symbol = strings.ToUpper(c.symbol)
	}
	if c.confidence != 0 {
		cfg.VaR.Confidence = c.confidence
	}
	if c.days != 0 {
		cfg.VaR.Days = c.days
	}
	if c.iterations != 0 {
		cfg.VaR.Iterations = c.iterations
	}
	if c.seed != 0 {
		cfg.Portfolio.Seed = c.seed
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[ERROR] %v", err)
		return subcommands.ExitUsageError
	}
	if a.Pipeline.VaR, err = app.ProvideVaRSettings(cfg); err != nil {
		log.Printf("[ERROR] %v", err)
		return subcommands.ExitUsageError
	}

	r, err := a.Pipeline.RunVaR(ctx)
	if err != nil {
		log.Printf("[ERROR] var: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Print(report.FormatVaR(*r))
	return subcommands.ExitSuccess
}

type serveCmd struct {
	runOnStart bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the scheduled Telegram report bot" }
func (*serveCmd) Usage() string {
	return `serve [-run-on-start]:
  Send the portfolio report on schedule.report_cron and answer Telegram commands.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "send a report immediately")
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log.Println("[INFO] quant bot starting...")
	a, cleanup, err := InitializeApp(app.ConfigPath(*configPath))
	if err != nil {
		log.Printf("[FATAL] initialize: %v", err)
		return subcommands.ExitFailure
	}
	defer cleanup()
	if err := a.Config.ValidateTelegram(); err != nil {
		log.Printf("[FATAL] config validation: %v", err)
		return subcommands.ExitFailure
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, a.Pipeline, a.Notifier)
	if err := sched.RegisterAll(a.Config.Schedule.ReportCron); err != nil {
		log.Printf("[FATAL] register cron tasks: %v", err)
		return subcommands.ExitFailure
	}
	sched.Start()
	defer sched.Stop()

	go a.Notifier.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	if c.runOnStart {
		log.Println("[INFO] run-on-start enabled, sending report now")
		go sched.RunReportNow()
	}

	log.Println("[INFO] quant bot is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	return subcommands.ExitSuccess
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
