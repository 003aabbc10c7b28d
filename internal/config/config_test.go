package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Portfolio.TradingDaysPerYear != 252 {
		t.Errorf("expected 252 trading days, got %v", cfg.Portfolio.TradingDaysPerYear)
	}
	if cfg.Portfolio.SampleCount != 10000 {
		t.Errorf("expected 10000 samples, got %d", cfg.Portfolio.SampleCount)
	}
	if cfg.Portfolio.WeightBounds.Min != 0 || cfg.Portfolio.WeightBounds.Max != 1 {
		t.Errorf("expected [0,1] bounds, got %+v", cfg.Portfolio.WeightBounds)
	}
	if len(cfg.Portfolio.Symbols) != 6 {
		t.Errorf("expected 6 default symbols, got %v", cfg.Portfolio.Symbols)
	}
	if cfg.DataSource.Provider != "yahoo" {
		t.Errorf("expected yahoo provider, got %q", cfg.DataSource.Provider)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
portfolio:
  symbols: [AAA, BBB]
  start_date: "2020-01-01"
  end_date: "2021-01-01"
  trading_days_per_year: 250
  sample_count: 500
  seed: 42
  weight_bounds:
    min: 0.1
    max: 0.9
  bound_overrides:
    AAA: {min: 0, max: 0.5}
data_source:
  provider: csv
  dir: testdata
bond:
  compounding: continuous
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := cfg.Portfolio
	if p.TradingDaysPerYear != 250 || p.SampleCount != 500 || p.Seed != 42 {
		t.Errorf("portfolio not parsed: %+v", p)
	}
	if p.WeightBounds.Min != 0.1 || p.WeightBounds.Max != 0.9 {
		t.Errorf("bounds not parsed: %+v", p.WeightBounds)
	}
	if p.BoundOverrides["AAA"].Max != 0.5 {
		t.Errorf("override not parsed: %+v", p.BoundOverrides)
	}
	if cfg.DataSource.Provider != "csv" || cfg.Bond.Compounding != "continuous" {
		t.Errorf("sections not parsed: %+v %+v", cfg.DataSource, cfg.Bond)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoad_ExplicitZeroBoundsKept(t *testing.T) {
	path := writeConfig(t, `
portfolio:
  weight_bounds:
    min: 0
    max: 0.4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Portfolio.WeightBounds.Max != 0.4 {
		t.Errorf("expected max 0.4, got %v", cfg.Portfolio.WeightBounds.Max)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "123")
	t.Setenv("QUANT_SYMBOLS", "msft, goog ,")
	t.Setenv("QUANT_SEED", "7")
	t.Setenv("DATA_PROVIDER", "parquet")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(cfg.Portfolio.Symbols, ",") != "MSFT,GOOG" {
		t.Errorf("expected MSFT,GOOG, got %v", cfg.Portfolio.Symbols)
	}
	if cfg.Portfolio.Seed != 7 {
		t.Errorf("expected seed 7, got %d", cfg.Portfolio.Seed)
	}
	if cfg.DataSource.Provider != "parquet" {
		t.Errorf("expected parquet, got %q", cfg.DataSource.Provider)
	}
	if err := cfg.ValidateTelegram(); err != nil {
		t.Errorf("unexpected telegram validation error: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "portfolio: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"dup symbol", func(c *Config) { c.Portfolio.Symbols = []string{"A", "A"} }, "twice"},
		{"bad date", func(c *Config) { c.Portfolio.StartDate = "2020/01/01" }, "start_date"},
		{"reversed range", func(c *Config) { c.Portfolio.StartDate, c.Portfolio.EndDate = "2021-01-01", "2020-01-01" }, "before"},
		{"bad bounds", func(c *Config) { c.Portfolio.WeightBounds = &BoundsConfig{Min: 0.6, Max: 0.4} }, "weight_bounds"},
		{"unknown override", func(c *Config) { c.Portfolio.BoundOverrides = map[string]BoundsConfig{"ZZZ": {Max: 1}} }, "ZZZ"},
		{"provider", func(c *Config) { c.DataSource.Provider = "ftp" }, "provider"},
		{"confidence", func(c *Config) { c.VaR.Confidence = 1 }, "confidence"},
		{"negative samples", func(c *Config) { c.Portfolio.SampleCount = -1 }, "sample_count"},
	}
	for _, tc := range cases {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		tc.mutate(cfg)
		err = cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateTelegram_Missing(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	cfg, _ := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err := cfg.ValidateTelegram(); err == nil {
		t.Error("expected error for missing bot token")
	}
}
