// Package app holds the providers that build the application graph.
package app

import (
	"fmt"
	"log"

	"github.com/mdc5017/QuantFinanceCourse/internal/collector"
	"github.com/mdc5017/QuantFinanceCourse/internal/config"
	"github.com/mdc5017/QuantFinanceCourse/internal/markowitz"
	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/notifier"
	"github.com/mdc5017/QuantFinanceCourse/internal/pipeline"
	"github.com/mdc5017/QuantFinanceCourse/internal/store"
)

// ConfigPath is the location of the YAML config file.
type ConfigPath string

// ProvideConfig loads and validates config (for Wire).
func ProvideConfig(path ConfigPath) (*config.Config, error) {
	cfg, err := config.Load(string(path))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// ProvideFetcher selects the price provider named in config (for Wire).
func ProvideFetcher(cfg *config.Config) (collector.Fetcher, error) {
	var f collector.Fetcher
	switch cfg.DataSource.Provider {
	case "yahoo":
		f = collector.NewYahooFetcher(cfg.Proxy)
	case "csv":
		f = collector.NewCSVFetcher(cfg.DataSource.Dir)
	case "parquet":
		f = collector.NewParquetFetcher(cfg.DataSource.Dir)
	case "mock":
		f = &collector.MockFetcher{BasePrice: 100}
	default:
		return nil, fmt.Errorf("unsupported data_source.provider %q (use: yahoo, csv, parquet, mock)", cfg.DataSource.Provider)
	}
	log.Printf("[INFO] data source: %s", f.Name())
	return f, nil
}

// ProvidePriceCache opens the sqlite price cache (for Wire). If the database
// cannot be opened, downloads are not cached. The cleanup closes it.
func ProvidePriceCache(cfg *config.Config) (store.PriceCache, func(), error) {
	if cfg.Database.SQLitePath == "" {
		return store.NewNoopCache(), func() {}, nil
	}
	c, err := store.NewSQLiteCache(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] init sqlite price cache failed, using noop: %v", err)
		return store.NewNoopCache(), func() {}, nil
	}
	return c, func() {
		if err := c.Close(); err != nil {
			log.Printf("[WARN] close price cache: %v", err)
		}
	}, nil
}

// ProvideCollector wires the fetcher and cache (for Wire).
func ProvideCollector(cfg *config.Config, f collector.Fetcher, cache store.PriceCache) *collector.Collector {
	return collector.NewCollector(f, cache, cfg.DataSource.Concurrency)
}

// ProvideSettings maps the portfolio section onto pipeline settings (for Wire).
func ProvideSettings(cfg *config.Config) (pipeline.Settings, error) {
	p := cfg.Portfolio
	from, to, err := cfg.PortfolioRange()
	if err != nil {
		return pipeline.Settings{}, err
	}
	def := model.Bounds{Min: p.WeightBounds.Min, Max: p.WeightBounds.Max}
	overrides := make(map[string]model.Bounds, len(p.BoundOverrides))
	for sym, b := range p.BoundOverrides {
		overrides[sym] = model.Bounds{Min: b.Min, Max: b.Max}
	}

	opts := markowitz.DefaultOptions()
	opts.Bounds = def
	opts.PerAsset = pipeline.PerAssetBounds(p.Symbols, def, overrides)
	if p.MaxIterations > 0 {
		opts.MaxIterations = p.MaxIterations
	}
	if p.Tolerance > 0 {
		opts.Tolerance = p.Tolerance
	}
	if p.FTol > 0 {
		opts.FTol = p.FTol
	}
	return pipeline.Settings{
		Symbols:     p.Symbols,
		From:        from,
		To:          to,
		TradingDays: p.TradingDaysPerYear,
		SampleCount: p.SampleCount,
		Restarts:    p.Restarts,
		Seed:        p.Seed,
		Options:     opts,
	}, nil
}

// ProvideVaRSettings maps the var section onto pipeline settings (for Wire).
func ProvideVaRSettings(cfg *config.Config) (pipeline.VaRSettings, error) {
	v := cfg.VaR
	from, to, err := cfg.VaRRange()
	if err != nil {
		return pipeline.VaRSettings{}, err
	}
	return pipeline.VaRSettings{
		Symbol:     v.Symbol,
		From:       from,
		To:         to,
		Investment: v.Investment,
		Confidence: v.Confidence,
		Days:       v.Days,
		Iterations: v.Iterations,
		Seed:       cfg.Portfolio.Seed,
	}, nil
}

// ProvidePipeline builds the analysis pipeline (for Wire).
func ProvidePipeline(col *collector.Collector, s pipeline.Settings, v pipeline.VaRSettings) *pipeline.Pipeline {
	p := pipeline.New(col, s)
	p.VaR = v
	return p
}

// ProvideNotifier creates the Telegram client (for Wire). Credentials are
// checked by the commands that send.
func ProvideNotifier(cfg *config.Config) *notifier.TelegramNotifier {
	return notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
}
