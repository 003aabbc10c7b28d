package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mdc5017/QuantFinanceCourse/internal/config"
	"github.com/mdc5017/QuantFinanceCourse/internal/store"
)

func writeConfig(t *testing.T, body string) ConfigPath {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return ConfigPath(path)
}

func TestProvideConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "data_source:\n  provider: bloomberg\n")
	if _, err := ProvideConfig(path); err == nil {
		t.Error("expected validation error for unknown provider")
	}
}

func TestProvideFetcher(t *testing.T) {
	for _, name := range []string{"yahoo", "csv", "parquet", "mock"} {
		cfg := &config.Config{}
		cfg.DataSource.Provider = name
		f, err := ProvideFetcher(cfg)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if f.Name() != name {
			t.Errorf("expected fetcher %s, got %s", name, f.Name())
		}
	}
	cfg := &config.Config{}
	cfg.DataSource.Provider = "ftp"
	if _, err := ProvideFetcher(cfg); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestProvidePriceCache(t *testing.T) {
	cfg := &config.Config{}
	cache, cleanup, err := ProvidePriceCache(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cleanup()
	if _, ok := cache.(*store.NoopCache); !ok {
		t.Errorf("expected noop cache without a path, got %T", cache)
	}

	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "cache.db")
	cache, cleanup, err = ProvidePriceCache(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if _, ok := cache.(*store.SQLiteCache); !ok {
		t.Errorf("expected sqlite cache, got %T", cache)
	}
}

func TestProvideSettings(t *testing.T) {
	path := writeConfig(t, `
portfolio:
  symbols: [AAA, BBB, CCC]
  start_date: "2020-01-01"
  end_date: "2021-01-01"
  sample_count: 100
  seed: 9
  restarts: 2
  ftol: 1e-10
  weight_bounds: {min: 0.05, max: 0.6}
  bound_overrides:
    BBB: {min: 0.1, max: 0.2}
data_source:
  provider: mock
`)
	cfg, err := ProvideConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := ProvideSettings(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.SampleCount != 100 || s.Seed != 9 || s.Restarts != 2 {
		t.Errorf("unexpected settings: %+v", s)
	}
	if s.Options.FTol != 1e-10 || s.Options.Tolerance != 1e-8 {
		t.Errorf("expected ftol 1e-10 and default tolerance, got %v and %v", s.Options.FTol, s.Options.Tolerance)
	}
	if len(s.Options.PerAsset) != 3 {
		t.Fatalf("expected 3 per-asset bounds, got %d", len(s.Options.PerAsset))
	}
	if s.Options.PerAsset[0].Max != 0.6 || s.Options.PerAsset[1].Max != 0.2 {
		t.Errorf("unexpected per-asset bounds: %+v", s.Options.PerAsset)
	}

	v, err := ProvideVaRSettings(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if v.Symbol != "C" || v.Confidence != 0.99 {
		t.Errorf("unexpected var defaults: %+v", v)
	}
}
