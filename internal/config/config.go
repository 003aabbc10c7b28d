package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// BoundsConfig is an inclusive weight interval.
type BoundsConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Config holds all application configuration.
type Config struct {
	Portfolio struct {
		Symbols            []string                `yaml:"symbols"`
		StartDate          string                  `yaml:"start_date"`
		EndDate            string                  `yaml:"end_date"`
		TradingDaysPerYear float64                 `yaml:"trading_days_per_year"`
		SampleCount        int                     `yaml:"sample_count"`
		WeightBounds       *BoundsConfig           `yaml:"weight_bounds"`
		BoundOverrides     map[string]BoundsConfig `yaml:"bound_overrides"`
		Restarts           int                     `yaml:"restarts"`
		MaxIterations      int                     `yaml:"max_iterations"`
		Tolerance          float64                 `yaml:"tolerance"`
		FTol               float64                 `yaml:"ftol"`
		Seed               uint64                  `yaml:"seed"`
	} `yaml:"portfolio"`
	DataSource struct {
		Provider    string `yaml:"provider"`
		Dir         string `yaml:"dir"`
		Concurrency int    `yaml:"concurrency"`
	} `yaml:"data_source"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		ReportCron string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Report struct {
		ChartDir string `yaml:"chart_dir"`
	} `yaml:"report"`
	Option struct {
		Spot       float64 `yaml:"spot"`
		Strike     float64 `yaml:"strike"`
		Expiry     float64 `yaml:"expiry"`
		Rate       float64 `yaml:"rate"`
		Volatility float64 `yaml:"volatility"`
		Paths      int     `yaml:"paths"`
	} `yaml:"option"`
	Bond struct {
		Principal   float64 `yaml:"principal"`
		CouponRate  float64 `yaml:"coupon_rate"`
		Maturity    int     `yaml:"maturity"`
		MarketRate  float64 `yaml:"market_rate"`
		Compounding string  `yaml:"compounding"`
	} `yaml:"bond"`
	Wiener struct {
		Dt    float64 `yaml:"dt"`
		X0    float64 `yaml:"x0"`
		Steps int     `yaml:"steps"`
	} `yaml:"wiener"`
	VaR struct {
		Symbol     string  `yaml:"symbol"`
		StartDate  string  `yaml:"start_date"`
		EndDate    string  `yaml:"end_date"`
		Investment float64 `yaml:"investment"`
		Confidence float64 `yaml:"confidence"`
		Days       int     `yaml:"days"`
		Iterations int     `yaml:"iterations"`
	} `yaml:"var"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataSource.Dir = v
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		c.Schedule.ReportCron = v
	}
	if v := os.Getenv("QUANT_SYMBOLS"); v != "" {
		c.Portfolio.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("QUANT_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Portfolio.Seed = seed
		}
	}
	if v := os.Getenv("QUANT_SAMPLE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Portfolio.SampleCount = n
		}
	}
}

func (c *Config) applyDefaults() {
	p := &c.Portfolio
	if len(p.Symbols) == 0 {
		p.Symbols = []string{"AAPL", "WMT", "TSLA", "GE", "AMZN", "DB"}
	}
	if p.StartDate == "" {
		p.StartDate = "2010-01-01"
	}
	if p.EndDate == "" {
		p.EndDate = "2017-01-01"
	}
	if p.TradingDaysPerYear == 0 {
		p.TradingDaysPerYear = 252
	}
	if p.SampleCount == 0 {
		p.SampleCount = 10000
	}
	if p.WeightBounds == nil {
		p.WeightBounds = &BoundsConfig{Min: 0, Max: 1}
	}
	if p.Seed == 0 {
		p.Seed = uint64(time.Now().UnixNano())
	}

	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.Dir == "" {
		c.DataSource.Dir = "data/prices"
	}
	if c.DataSource.Concurrency == 0 {
		c.DataSource.Concurrency = 4
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 22 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/quant.db"
	}
	if c.Report.ChartDir == "" {
		c.Report.ChartDir = "data/charts"
	}

	o := &c.Option
	if o.Spot == 0 {
		o.Spot = 100
	}
	if o.Strike == 0 {
		o.Strike = 100
	}
	if o.Expiry == 0 {
		o.Expiry = 1
	}
	if o.Rate == 0 {
		o.Rate = 0.05
	}
	if o.Volatility == 0 {
		o.Volatility = 0.2
	}
	if o.Paths == 0 {
		o.Paths = 1000000
	}

	b := &c.Bond
	if b.Principal == 0 {
		b.Principal = 1000
	}
	if b.CouponRate == 0 {
		b.CouponRate = 10
	}
	if b.Maturity == 0 {
		b.Maturity = 3
	}
	if b.MarketRate == 0 {
		b.MarketRate = 4
	}
	if b.Compounding == "" {
		b.Compounding = "discrete"
	}

	if c.Wiener.Dt == 0 {
		c.Wiener.Dt = 0.1
	}
	if c.Wiener.Steps == 0 {
		c.Wiener.Steps = 1000
	}

	v := &c.VaR
	if v.Symbol == "" {
		v.Symbol = "C"
	}
	if v.StartDate == "" {
		v.StartDate = "2014-01-01"
	}
	if v.EndDate == "" {
		v.EndDate = "2018-01-01"
	}
	if v.Investment == 0 {
		v.Investment = 1e6
	}
	if v.Confidence == 0 {
		v.Confidence = 0.99
	}
	if v.Days == 0 {
		v.Days = 1
	}
	if v.Iterations == 0 {
		v.Iterations = 1000
	}
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	p := c.Portfolio
	if len(p.Symbols) == 0 {
		return fmt.Errorf("portfolio.symbols is required")
	}
	seen := make(map[string]bool, len(p.Symbols))
	for _, s := range p.Symbols {
		if seen[s] {
			return fmt.Errorf("portfolio.symbols contains %s twice", s)
		}
		seen[s] = true
	}
	start, end, err := c.PortfolioRange()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("portfolio.start_date must be before end_date")
	}
	if p.TradingDaysPerYear <= 0 {
		return fmt.Errorf("portfolio.trading_days_per_year must be positive")
	}
	if p.SampleCount <= 0 {
		return fmt.Errorf("portfolio.sample_count must be positive")
	}
	if p.WeightBounds.Min > p.WeightBounds.Max {
		return fmt.Errorf("portfolio.weight_bounds.min must not exceed max")
	}
	for sym, b := range p.BoundOverrides {
		if !seen[sym] {
			return fmt.Errorf("portfolio.bound_overrides: %s is not in symbols", sym)
		}
		if b.Min > b.Max {
			return fmt.Errorf("portfolio.bound_overrides.%s: min must not exceed max", sym)
		}
	}
	if p.Restarts < 0 {
		return fmt.Errorf("portfolio.restarts must not be negative")
	}
	switch c.DataSource.Provider {
	case "yahoo", "csv", "parquet", "mock":
	default:
		return fmt.Errorf("data_source.provider %q is not supported (use yahoo, csv, parquet or mock)", c.DataSource.Provider)
	}
	if c.VaR.Confidence <= 0 || c.VaR.Confidence >= 1 {
		return fmt.Errorf("var.confidence must be in (0,1)")
	}
	return nil
}

// ValidateTelegram checks the settings needed by serve mode.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

// PortfolioRange parses the portfolio date window.
func (c *Config) PortfolioRange() (time.Time, time.Time, error) {
	return parseRange("portfolio", c.Portfolio.StartDate, c.Portfolio.EndDate)
}

// VaRRange parses the VaR estimation window.
func (c *Config) VaRRange() (time.Time, time.Time, error) {
	return parseRange("var", c.VaR.StartDate, c.VaR.EndDate)
}

func parseRange(section, from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%s.start_date: %w", section, err)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%s.end_date: %w", section, err)
	}
	return start, end, nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
