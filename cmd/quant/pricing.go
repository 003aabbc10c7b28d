package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/subcommands"
	"gonum.org/v1/gonum/floats"

	"github.com/mdc5017/QuantFinanceCourse/internal/app"
	"github.com/mdc5017/QuantFinanceCourse/internal/bond"
	"github.com/mdc5017/QuantFinanceCourse/internal/config"
	"github.com/mdc5017/QuantFinanceCourse/internal/pricing"
	"github.com/mdc5017/QuantFinanceCourse/internal/report"
	"github.com/mdc5017/QuantFinanceCourse/internal/rng"
	"github.com/mdc5017/QuantFinanceCourse/internal/stochastic"
)

func loadConfig() (*config.Config, bool) {
	cfg, err := app.ProvideConfig(app.ConfigPath(*configPath))
	if err != nil {
		log.Printf("[ERROR] load config: %v", err)
		return nil, false
	}
	return cfg, true
}

// contractFlags override the option section of the config.
type contractFlags struct {
	spot, strike, expiry, rate, vol float64
	rateSet                         bool
}

func (c *contractFlags) set(f *flag.FlagSet) {
	f.Float64Var(&c.spot, "spot", 0, "underlying price S0")
	f.Float64Var(&c.strike, "strike", 0, "strike price K")
	f.Float64Var(&c.expiry, "expiry", 0, "time to expiry in years")
	f.Func("rate", "annual risk-free rate", func(s string) error {
		_, err := fmt.Sscan(s, &c.rate)
		c.rateSet = err == nil
		return err
	})
	f.Float64Var(&c.vol, "vol", 0, "annual volatility")
}

func (c *contractFlags) contract(cfg *config.Config) pricing.Contract {
	o := cfg.Option
	k := pricing.Contract{Spot: o.Spot, Strike: o.Strike, Expiry: o.Expiry, Rate: o.Rate, Volatility: o.Volatility}
	if c.spot != 0 {
		k.Spot = c.spot
	}
	if c.strike != 0 {
		k.Strike = c.strike
	}
	if c.expiry != 0 {
		k.Expiry = c.expiry
	}
	if c.rateSet {
		k.Rate = c.rate
	}
	if c.vol != 0 {
		k.Volatility = c.vol
	}
	return k
}

func closedForm(k pricing.Contract) (report.OptionQuote, error) {
	q := report.OptionQuote{Contract: k}
	var err error
	if q.Call, err = pricing.BlackScholes(k, pricing.Call); err != nil {
		return q, err
	}
	q.Put, err = pricing.BlackScholes(k, pricing.Put)
	return q, err
}

type blackScholesCmd struct {
	contractFlags
}

func (*blackScholesCmd) Name() string     { return "blackscholes" }
func (*blackScholesCmd) Synopsis() string { return "price European options in closed form" }
func (*blackScholesCmd) Usage() string {
	return `blackscholes [-spot S] [-strike K] [-expiry T] [-rate r] [-vol sigma]:
  Black-Scholes call and put prices.
`
}

func (c *blackScholesCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *blackScholesCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, ok := loadConfig()
	if !ok {
		return subcommands.ExitFailure
	}
	q, err := closedForm(c.contract(cfg))
	if err != nil {
		log.Printf("[ERROR] blackscholes: %v", err)
		return subcommands.ExitUsageError
	}
	fmt.Print(report.FormatOption(q))
	return subcommands.ExitSuccess
}

type mcOptionCmd struct {
	contractFlags
	paths int
	seed  uint64
	typ   string
}

func (*mcOptionCmd) Name() string     { return "mcoption" }
func (*mcOptionCmd) Synopsis() string { return "price European options by Monte Carlo simulation" }
func (*mcOptionCmd) Usage() string {
	return `mcoption [-paths n] [-seed n] [-spot S] [-strike K] [-expiry T] [-rate r] [-vol sigma]:
  Simulated call and put prices next to the Black-Scholes values.
`
}

func (c *mcOptionCmd) SetFlags(f *flag.FlagSet) {
	c.set(f)
	f.IntVar(&c.paths, "paths", 0, "number of simulated paths")
	f.Uint64Var(&c.seed, "seed", 0, "random seed (0 keeps the config value)")
	f.StringVar(&c.typ, "type", "", "simulate only call or put (default both)")
}

func (c *mcOptionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, ok := loadConfig()
	if !ok {
		return subcommands.ExitFailure
	}
	k := c.contract(cfg)
	q, err := closedForm(k)
	if err != nil {
		log.Printf("[ERROR] mcoption: %v", err)
		return subcommands.ExitUsageError
	}
	paths := cfg.Option.Paths
	if c.paths != 0 {
		paths = c.paths
	}
	seed := cfg.Portfolio.Seed
	if c.seed != 0 {
		seed = c.seed
	}

	types := []pricing.OptionType{pricing.Call, pricing.Put}
	if c.typ != "" {
		typ, err := pricing.ParseOptionType(c.typ)
		if err != nil {
			log.Printf("[ERROR] mcoption: %v", err)
			return subcommands.ExitUsageError
		}
		types = []pricing.OptionType{typ}
	}

	src := rng.New(seed)
	for _, typ := range types {
		est, err := pricing.MonteCarlo(k, typ, paths, src)
		if err != nil {
			log.Printf("[ERROR] mcoption: %v", err)
			return subcommands.ExitUsageError
		}
		if typ == pricing.Put {
			q.MCPut = &est
		} else {
			q.MCCall = &est
		}
	}
	fmt.Print(report.FormatOption(q))
	return subcommands.ExitSuccess
}

type bondCmd struct {
	principal, coupon, market float64
	maturity                  int
	compounding               string
}

func (*bondCmd) Name() string     { return "bond" }
func (*bondCmd) Synopsis() string { return "price a fixed-coupon bond" }
func (*bondCmd) Usage() string {
	return `bond [-principal P] [-coupon pct] [-maturity years] [-market pct] [-compounding discrete|continuous]:
  Present value of the coupons and principal.
`
}

func (c *bondCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.principal, "principal", 0, "face value")
	f.Float64Var(&c.coupon, "coupon", 0, "annual coupon rate in percent")
	f.IntVar(&c.maturity, "maturity", 0, "maturity in years")
	f.Float64Var(&c.market, "market", 0, "market interest rate in percent")
	f.StringVar(&c.compounding, "compounding", "", "discrete or continuous")
}

func (c *bondCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, ok := loadConfig()
	if !ok {
		return subcommands.ExitFailure
	}
	b := cfg.Bond
	if c.principal != 0 {
		b.Principal = c.principal
	}
	if c.coupon != 0 {
		b.CouponRate = c.coupon
	}
	if c.maturity != 0 {
		b.Maturity = c.maturity
	}
	if c.market != 0 {
		b.MarketRate = c.market
	}
	if c.compounding != "" {
		b.Compounding = c.compounding
	}
	comp, err := bond.ParseCompounding(b.Compounding)
	if err != nil {
		log.Printf("[ERROR] bond: %v", err)
		return subcommands.ExitUsageError
	}

	bd := bond.CouponBond{
		Principal:   b.Principal,
		CouponRate:  b.CouponRate,
		Maturity:    b.Maturity,
		MarketRate:  b.MarketRate,
		Compounding: comp,
	}
	price, err := bd.Price()
	if err != nil {
		log.Printf("[ERROR] bond: %v", err)
		return subcommands.ExitUsageError
	}
	fmt.Print(report.FormatBond(bd, price))
	return subcommands.ExitSuccess
}

type wienerCmd struct {
	dt        float64
	steps     int
	seed      uint64
	chart     bool
	s0        float64
	mu, sigma float64
}

func (*wienerCmd) Name() string     { return "wiener" }
func (*wienerCmd) Synopsis() string { return "simulate a Wiener process" }
func (*wienerCmd) Usage() string {
	return `wiener [-dt 0.1] [-steps n] [-seed n] [-chart]:
  Sample a Brownian path and optionally chart it.
`
}

func (c *wienerCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.dt, "dt", 0, "time step")
	f.IntVar(&c.steps, "steps", 0, "number of increments")
	f.Uint64Var(&c.seed, "seed", 0, "random seed (0 keeps the config value)")
	f.BoolVar(&c.chart, "chart", false, "write the path chart to report.chart_dir")
	f.Float64Var(&c.s0, "s0", 0, "if set, also drive a geometric Brownian motion from this price")
	f.Float64Var(&c.mu, "mu", 0.05, "GBM drift")
	f.Float64Var(&c.sigma, "sigma", 0.2, "GBM volatility")
}

func (c *wienerCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, ok := loadConfig()
	if !ok {
		return subcommands.ExitFailure
	}
	w := cfg.Wiener
	if c.dt != 0 {
		w.Dt = c.dt
	}
	if c.steps != 0 {
		w.Steps = c.steps
	}
	seed := cfg.Portfolio.Seed
	if c.seed != 0 {
		seed = c.seed
	}

	path, err := stochastic.WienerProcess(w.Dt, w.X0, w.Steps, rng.New(seed))
	if err != nil {
		log.Printf("[ERROR] wiener: %v", err)
		return subcommands.ExitUsageError
	}
	fmt.Printf("Wiener process: %d steps of dt=%g\n", w.Steps, w.Dt)
	fmt.Printf("W(end)=%.6f min=%.6f max=%.6f\n", path.W[len(path.W)-1], floats.Min(path.W), floats.Max(path.W))
	if c.s0 > 0 {
		prices, err := stochastic.GeometricBrownianMotion(c.s0, c.mu, c.sigma, w.Dt, path)
		if err != nil {
			log.Printf("[ERROR] gbm: %v", err)
			return subcommands.ExitUsageError
		}
		fmt.Printf("GBM S(0)=%.4f S(end)=%.4f\n", prices[0], prices[len(prices)-1])
	}

	if c.chart {
		png, err := report.WienerChart(path)
		if err != nil {
			log.Printf("[ERROR] wiener chart: %v", err)
			return subcommands.ExitFailure
		}
		out, err := report.WriteChart(cfg.Report.ChartDir, "wiener", png)
		if err != nil {
			log.Printf("[ERROR] wiener chart: %v", err)
			return subcommands.ExitFailure
		}
		log.Printf("[INFO] wrote %s", out)
	}
	return subcommands.ExitSuccess
}
