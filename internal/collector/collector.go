package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/rng"
	"github.com/mdc5017/QuantFinanceCourse/internal/store"
)

// MockFetcher returns deterministic weekday bars for development and
// testing. Each symbol follows its own geometric random walk seeded from
// the symbol name, so repeated calls return identical data.
type MockFetcher struct {
	BasePrice float64
	// Bars, when set, is returned for the matching symbol instead.
	Bars map[string][]model.OHLCV
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error) {
	if m.Bars != nil {
		bars, ok := m.Bars[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: mock has no data for %s", model.ErrInvalidInput, symbol)
		}
		out := filterRange(bars, from, to)
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: mock has no bars for %s in range", model.ErrInvalidInput, symbol)
		}
		return out, nil
	}
	bars := generateMockBars(symbol, m.BasePrice, from, to)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty range for %s", model.ErrInvalidInput, symbol)
	}
	return bars, nil
}

func generateMockBars(symbol string, basePrice float64, from, to time.Time) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	h := fnv.New64a()
	h.Write([]byte(symbol))
	src := rng.New(h.Sum64())
	drift := 0.0002 + 0.0006*src.Float64()
	vol := 0.01 + 0.02*src.Float64()

	var bars []model.OHLCV
	p := basePrice
	for d := from.UTC().Truncate(24 * time.Hour); d.Before(to); d = d.AddDate(0, 0, 1) {
		if d.Before(from) || d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p *= math.Exp(drift - 0.5*vol*vol + vol*src.NormFloat64())
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
	}
	return bars
}

// Collector fetches price history through a Fetcher, consulting the cache
// first, and aligns several series into a PriceMatrix.
type Collector struct {
	Fetcher     Fetcher
	Cache       store.PriceCache
	Concurrency int

	group singleflight.Group
}

// NewCollector creates a new Collector. A nil cache disables caching.
func NewCollector(fetcher Fetcher, cache store.PriceCache, concurrency int) *Collector {
	if cache == nil {
		cache = store.NewNoopCache()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Collector{Fetcher: fetcher, Cache: cache, Concurrency: concurrency}
}

// FetchSeries returns the bars of one symbol in [from, to).
func (c *Collector) FetchSeries(ctx context.Context, symbol string, from, to time.Time) (*model.PriceSeries, error) {
	source := c.Fetcher.Name()
	if bars, hit, err := c.Cache.Load(ctx, symbol, source, from, to); err != nil {
		log.Printf("[WARN] price cache load %s: %v", symbol, err)
	} else if hit && len(bars) > 0 {
		return &model.PriceSeries{Symbol: symbol, Bars: bars, Source: source + "+cache", FetchedAt: time.Now()}, nil
	}

	// Concurrent requests for the same window share one download. The
	// download outlives any single caller; each caller waits on its own ctx.
	key := fmt.Sprintf("%s|%d|%d", symbol, from.Unix(), to.Unix())
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		bars, err := c.Fetcher.FetchDailyBars(shared, symbol, from, to)
		if err != nil {
			return nil, err
		}
		if err := c.Cache.Save(shared, symbol, source, from, to, bars); err != nil {
			log.Printf("[WARN] price cache save %s: %v", symbol, err)
		}
		return bars, nil
	})
	var v interface{}
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", symbol, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, fmt.Errorf("fetch %s: %w", symbol, r.Err)
		}
		v = r.Val
	}
	bars := v.([]model.OHLCV)
	log.Printf("[INFO] fetched %d bars for %s from %s", len(bars), symbol, source)
	return &model.PriceSeries{Symbol: symbol, Bars: bars, Source: source, FetchedAt: time.Now()}, nil
}

// Collect fetches every symbol concurrently and joins them on the trading
// days common to all series. Column order follows symbols.
func (c *Collector) Collect(ctx context.Context, symbols []string, from, to time.Time) (*model.PriceMatrix, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols", model.ErrInvalidInput)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: empty date range %s..%s", model.ErrInvalidInput,
			from.Format(dateLayout), to.Format(dateLayout))
	}

	series := make([]*model.PriceSeries, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			s, err := c.FetchSeries(gctx, sym, from, to)
			if err != nil {
				return err
			}
			series[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Align(series)
}

// Align inner-joins series on calendar day (UTC). Days missing from any
// series are dropped so the matrix has no gaps.
func Align(series []*model.PriceSeries) (*model.PriceMatrix, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no series to align", model.ErrInvalidInput)
	}
	type dayKey = int64
	toKey := func(t time.Time) dayKey {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	}

	closes := make([]map[dayKey]float64, len(series))
	counts := map[dayKey]int{}
	for i, s := range series {
		closes[i] = make(map[dayKey]float64, len(s.Bars))
		for _, b := range s.Bars {
			k := toKey(b.Time)
			if _, dup := closes[i][k]; !dup {
				counts[k]++
			}
			closes[i][k] = b.Close
		}
	}

	var days []dayKey
	for k, n := range counts {
		if n == len(series) {
			days = append(days, k)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: series share no trading days", model.ErrInvalidInput)
	}

	pm := &model.PriceMatrix{
		Symbols: make([]string, len(series)),
		Times:   make([]time.Time, len(days)),
		Prices:  make([][]float64, len(days)),
	}
	for i, s := range series {
		pm.Symbols[i] = s.Symbol
	}
	for t, k := range days {
		pm.Times[t] = time.Unix(k, 0).UTC()
		row := make([]float64, len(series))
		for i := range series {
			row[i] = closes[i][k]
		}
		pm.Prices[t] = row
	}
	for _, s := range series {
		if dropped := len(s.Bars) - len(days); dropped > 0 {
			log.Printf("[INFO] align: dropped %d unmatched bars from %s", dropped, s.Symbol)
		}
	}
	return pm, nil
}

func sortBars(bars []model.OHLCV) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
}
